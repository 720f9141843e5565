package ollama

import (
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of OllamaClient
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for OllamaClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new OllamaClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	ollamaCfg := f.cfg.GetOllama()
	return NewOllamaClient(
		ollamaCfg.BaseURL,
		ollamaCfg.Model,
		ollamaCfg.Timeout,
		f.logger,
	), nil
}
