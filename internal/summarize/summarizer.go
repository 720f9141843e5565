package summarize

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

const (
	systemInstruction = "You are a helpful AI assistant that summarizes newsletter content."

	chunkPromptFormat = `Summarize the following text as comprehensive bullet points.
Cover every topic, name, date, and number; do not drop information:

%s`

	digestPromptFormat = `Please summarize the following text concisely into a short digest
for the end user:

%s`
)

// Summarizer compresses text through an LLM backend. Oversized input is
// split at sentence boundaries, each chunk is summarized independently,
// and the concatenated chunk summaries are reduced again until they fit
// a single final pass.
type Summarizer struct {
	llm    core.LLMClient
	cfg    config.DigestConfig
	logger *zap.Logger
	sleep  func(time.Duration)
}

// New creates a new Summarizer around an LLM backend
func New(llm core.LLMClient, cfg config.DigestConfig, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		llm:    llm,
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Summarize sanitizes and compresses text into a digest. The error is
// the exhausted-retry error of the deepest failing backend call.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	sanitized := Sanitize(text, s.cfg.MaxInputSize)
	if sanitized == "" {
		return "", fmt.Errorf("no summarizable content after sanitization")
	}
	return s.reduce(ctx, sanitized, 0)
}

// reduce performs one level of chunked summarization. Termination is
// enforced, not assumed: a pass that fails to strictly shrink the text
// falls through to a truncated final pass, and depth is capped.
func (s *Summarizer) reduce(ctx context.Context, text string, depth int) (string, error) {
	if len(text) <= s.cfg.MaxChunkSize {
		return s.generate(ctx, fmt.Sprintf(digestPromptFormat, text))
	}

	if s.cfg.MaxDepth > 0 && depth >= s.cfg.MaxDepth {
		s.logger.Warn("Summarization recursion depth cap reached, truncating",
			zap.Int("depth", depth),
			zap.Int("size", len(text)))
		return s.generate(ctx, fmt.Sprintf(digestPromptFormat, text[:s.cfg.MaxChunkSize]))
	}

	chunks := SplitChunks(text, s.cfg.MaxChunkSize)
	s.logger.Debug("Splitting oversized input for summarization",
		zap.Int("depth", depth),
		zap.Int("size", len(text)),
		zap.Int("chunks", len(chunks)))

	combined := ""
	for i, chunk := range chunks {
		part, err := s.generate(ctx, fmt.Sprintf(chunkPromptFormat, chunk))
		if err != nil {
			return "", fmt.Errorf("failed to summarize chunk %d of %d: %w", i+1, len(chunks), err)
		}
		if combined != "" {
			combined += "\n"
		}
		combined += part
	}

	if len(combined) >= len(text) {
		// The model inflated the text instead of shrinking it; give up
		// on recursion and finish on what fits.
		s.logger.Warn("Chunk summaries did not shrink input, truncating",
			zap.Int("input_size", len(text)),
			zap.Int("combined_size", len(combined)))
		if len(combined) > s.cfg.MaxChunkSize {
			combined = combined[:s.cfg.MaxChunkSize]
		}
		return s.generate(ctx, fmt.Sprintf(digestPromptFormat, combined))
	}

	return s.reduce(ctx, combined, depth+1)
}

// generate calls the backend with bounded exponential-backoff retries.
// After the attempts are exhausted the last error propagates to the
// caller; there is no silent empty-summary fallback at this layer.
func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.BackoffBase
	bo.Multiplier = 2
	bo.MaxInterval = s.cfg.BackoffCap
	bo.RandomizationFactor = 0
	bo.Reset()

	attempts := s.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := s.llm.Generate(ctx, prompt, systemInstruction)
		if err == nil {
			return out, nil
		}
		lastErr = err
		s.logger.Warn("Summarization backend call failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err))
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			s.sleep(bo.NextBackOff())
		}
	}
	return "", fmt.Errorf("summarization failed after %d attempts: %w", attempts, lastErr)
}
