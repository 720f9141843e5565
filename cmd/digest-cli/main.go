package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/factory"
	"github.com/mikey/inbox-digest/internal/format"
	"github.com/mikey/inbox-digest/internal/logging"
	"github.com/mikey/inbox-digest/internal/summarize"
	"go.uber.org/zap"
)

var (
	// LLM provider flags
	provider = flag.String("provider", "ollama", "LLM provider (ollama, openai, gemini, bedrock)")

	// Ollama flags
	ollamaURL   = flag.String("ollama-url", "http://localhost:11434", "Base URL of the Ollama server")
	ollamaModel = flag.String("ollama-model", "phi3:3.8b", "Ollama model name")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Digest flags
	maxInputSize = flag.Int("max-input-size", 10000, "Maximum input size after sanitization")
	maxChunkSize = flag.Int("max-chunk-size", 8000, "Maximum chunk size per backend call")
	maxAttempts  = flag.Int("max-attempts", 3, "Retry attempts per backend call")

	// Input flags
	inputFile  = flag.String("file", "", "Input text file (use stdin if not specified)")
	escape     = flag.Bool("escape", false, "Render the digest as channel-safe markup")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	llmFactory := factory.NewLLMFactory(cfg, logger)
	llmClient, err := llmFactory.CreateLLMClient()
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	var reader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		reader = file
		logger.Info("Reading text from file", zap.String("file", *inputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading text from stdin")
	}

	text, err := io.ReadAll(reader)
	if err != nil {
		logger.Fatal("Failed to read input", zap.Error(err))
	}

	summarizer := summarize.New(llmClient, cfg.GetDigest(), logger)
	digest, err := summarizer.Summarize(context.Background(), string(text))
	if err != nil {
		logger.Fatal("Failed to summarize input", zap.Error(err))
	}

	if *escape {
		digest = format.Render(digest)
	}
	fmt.Println(digest)

	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
}

// createConfigFromFlags builds a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)

	v.Set("ollama.base_url", *ollamaURL)
	v.Set("ollama.model", *ollamaModel)

	v.Set("openai.api_key", *openaiAPIKey)
	v.Set("openai.model_name", *openaiModelName)

	v.Set("gemini.api_key", *geminiAPIKey)
	v.Set("gemini.model_name", *geminiModelName)

	v.Set("bedrock.region", *bedrockRegion)
	v.Set("bedrock.model_id", *bedrockModelID)

	v.Set("digest.max_input_size", *maxInputSize)
	v.Set("digest.max_chunk_size", *maxChunkSize)
	v.Set("digest.max_attempts", *maxAttempts)

	return config.NewFromViper(v)
}
