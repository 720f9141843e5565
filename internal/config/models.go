package config

import "time"

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// MailTMConfig represents the configuration for the disposable mailbox provider
type MailTMConfig struct {
	BaseURL string
	Timeout time.Duration
}

// OllamaConfig represents the configuration for a local Ollama backend
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// DigestConfig represents the summarization pipeline configuration
type DigestConfig struct {
	MaxInputSize int
	MaxChunkSize int
	MaxAttempts  int
	BackoffBase  time.Duration
	BackoffCap   time.Duration
	MaxDepth     int
}

// TelegramConfig represents the delivery channel configuration
type TelegramConfig struct {
	Token string
	Debug bool
}

// StorageConfig represents the persistent store configuration
type StorageConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetMailTM returns the mailbox provider configuration
func (c *Config) GetMailTM() MailTMConfig {
	timeout, err := c.GetDuration("mailtm.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return MailTMConfig{
		BaseURL: c.GetString("mailtm.base_url"),
		Timeout: timeout,
	}
}

// GetOllama returns the Ollama configuration
func (c *Config) GetOllama() OllamaConfig {
	timeout, err := c.GetDuration("ollama.timeout")
	if err != nil {
		timeout = 600 * time.Second
	}
	return OllamaConfig{
		BaseURL: c.GetString("ollama.base_url"),
		Model:   c.GetString("ollama.model"),
		Timeout: timeout,
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetDigest returns the summarization pipeline configuration
func (c *Config) GetDigest() DigestConfig {
	base, err := c.GetDuration("digest.backoff_base")
	if err != nil {
		base = 4 * time.Second
	}
	cap, err := c.GetDuration("digest.backoff_cap")
	if err != nil {
		cap = 10 * time.Second
	}
	return DigestConfig{
		MaxInputSize: c.GetInt("digest.max_input_size"),
		MaxChunkSize: c.GetInt("digest.max_chunk_size"),
		MaxAttempts:  c.GetInt("digest.max_attempts"),
		BackoffBase:  base,
		BackoffCap:   cap,
		MaxDepth:     c.GetInt("digest.max_depth"),
	}
}

// GetTelegram returns the delivery channel configuration
func (c *Config) GetTelegram() TelegramConfig {
	return TelegramConfig{
		Token: c.GetString("telegram.token"),
		Debug: c.GetBool("telegram.debug"),
	}
}

// GetStorage returns the persistent store configuration
func (c *Config) GetStorage() StorageConfig {
	return StorageConfig{
		Type:       c.GetString("storage.type"),
		SQLitePath: c.GetString("storage.sqlite_path"),
		MySQLDSN:   c.GetString("storage.mysql_dsn"),
	}
}
