package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mikey/inbox-digest/internal/config"
	"go.uber.org/zap"
)

type fakeLLM struct {
	generate func(prompt string) (string, error)
	calls    int
	prompts  []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.generate(prompt)
}

func testConfig() config.DigestConfig {
	return config.DigestConfig{
		MaxInputSize: 10000,
		MaxChunkSize: 8000,
		MaxAttempts:  3,
		BackoffBase:  4 * time.Second,
		BackoffCap:   10 * time.Second,
		MaxDepth:     5,
	}
}

func newTestSummarizer(llm *fakeLLM, cfg config.DigestConfig) (*Summarizer, *[]time.Duration) {
	s := New(llm, cfg, zap.NewNop())
	var waits []time.Duration
	s.sleep = func(d time.Duration) { waits = append(waits, d) }
	return s, &waits
}

func TestSummarizeShortInputSinglePass(t *testing.T) {
	llm := &fakeLLM{generate: func(prompt string) (string, error) {
		return "the digest", nil
	}}
	s, _ := newTestSummarizer(llm, testConfig())

	got, err := s.Summarize(context.Background(), "A short newsletter about Go.")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "the digest" {
		t.Errorf("digest = %q", got)
	}
	if llm.calls != 1 {
		t.Errorf("backend calls = %d, want 1", llm.calls)
	}
	if !strings.Contains(llm.prompts[0], "A short newsletter about Go.") {
		t.Errorf("prompt does not contain the input: %q", llm.prompts[0])
	}
}

func TestSummarizeEmptyAfterSanitization(t *testing.T) {
	llm := &fakeLLM{generate: func(prompt string) (string, error) {
		t.Fatal("backend must not be called for empty input")
		return "", nil
	}}
	s, _ := newTestSummarizer(llm, testConfig())

	if _, err := s.Summarize(context.Background(), "☃☃☃"); err == nil {
		t.Error("expected an error for input that sanitizes to nothing")
	}
}

func TestSummarizeChunksAndReduces(t *testing.T) {
	cfg := testConfig()
	cfg.MaxChunkSize = 500

	llm := &fakeLLM{generate: func(prompt string) (string, error) {
		return "a tiny bullet point summary.", nil
	}}
	s, _ := newTestSummarizer(llm, cfg)

	var b strings.Builder
	for b.Len() < 3000 {
		b.WriteString("This sentence pads the corpus with newsletter prose. ")
	}

	got, err := s.Summarize(context.Background(), b.String())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "a tiny bullet point summary." {
		t.Errorf("digest = %q", got)
	}
	// Several chunk passes plus exactly one final digest pass.
	if llm.calls < 3 {
		t.Errorf("backend calls = %d, want chunked summarization", llm.calls)
	}
	var finals int
	for _, p := range llm.prompts {
		if strings.Contains(p, "short digest") {
			finals++
		}
	}
	if finals != 1 {
		t.Errorf("final digest passes = %d, want exactly 1", finals)
	}
}

// A backend that inflates its input instead of shrinking it must not
// recurse forever.
func TestSummarizeTerminatesWhenOutputDoesNotShrink(t *testing.T) {
	cfg := testConfig()
	cfg.MaxChunkSize = 200
	cfg.MaxInputSize = 0

	llm := &fakeLLM{generate: func(prompt string) (string, error) {
		return strings.Repeat("padding output that is never smaller. ", 20), nil
	}}
	s, _ := newTestSummarizer(llm, cfg)

	input := strings.Repeat("Input sentence number one of many. ", 30)
	if _, err := s.Summarize(context.Background(), input); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if llm.calls > 50 {
		t.Errorf("backend calls = %d, reduction did not terminate promptly", llm.calls)
	}
}

func TestGenerateRetriesWithExponentialBackoff(t *testing.T) {
	llm := &fakeLLM{generate: func(prompt string) (string, error) {
		return "", errors.New("model busy")
	}}
	s, waits := newTestSummarizer(llm, testConfig())

	_, err := s.Summarize(context.Background(), "some newsletter text.")
	if err == nil {
		t.Fatal("expected an error after exhausted retries")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("err = %v, want the attempt count surfaced", err)
	}
	if llm.calls != 3 {
		t.Errorf("backend calls = %d, want 3", llm.calls)
	}
	want := []time.Duration{4 * time.Second, 8 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
	for i, w := range want {
		if (*waits)[i] != w {
			t.Errorf("wait %d = %v, want %v", i, (*waits)[i], w)
		}
	}
}

func TestGenerateBackoffIsCapped(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 4

	llm := &fakeLLM{generate: func(prompt string) (string, error) {
		return "", errors.New("model busy")
	}}
	s, waits := newTestSummarizer(llm, cfg)

	if _, err := s.Summarize(context.Background(), "some newsletter text."); err == nil {
		t.Fatal("expected an error after exhausted retries")
	}
	want := []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
	if (*waits)[2] != 10*time.Second {
		t.Errorf("third wait = %v, want it capped at 10s", (*waits)[2])
	}
}

func TestGenerateRecoversAfterTransientFailure(t *testing.T) {
	llm := &fakeLLM{}
	llm.generate = func(prompt string) (string, error) {
		if llm.calls < 2 {
			return "", errors.New("model busy")
		}
		return "eventual digest", nil
	}
	s, waits := newTestSummarizer(llm, testConfig())

	got, err := s.Summarize(context.Background(), "some newsletter text.")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "eventual digest" {
		t.Errorf("digest = %q", got)
	}
	if len(*waits) != 1 {
		t.Errorf("waits = %v, want a single retry wait", *waits)
	}
}
