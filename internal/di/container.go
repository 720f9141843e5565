package di

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/adapters/mailtm"
	"github.com/mikey/inbox-digest/internal/adapters/telegram"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/factory"
	"github.com/mikey/inbox-digest/internal/logging"
	"github.com/mikey/inbox-digest/internal/scheduler"
	"github.com/mikey/inbox-digest/internal/summarize"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register persistent store
	if err := container.Provide(func(f *factory.StoreFactory) (core.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}

	// Register mailbox provider
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.MailboxProvider {
		mailCfg := cfg.GetMailTM()
		return mailtm.NewClient(mailCfg.BaseURL, mailCfg.Timeout, logger)
	}); err != nil {
		return nil, err
	}

	// Register summarizer
	if err := container.Provide(func(cfg *config.Config, llm core.LLMClient, logger *zap.Logger) core.Summarizer {
		return summarize.New(llm, cfg.GetDigest(), logger)
	}); err != nil {
		return nil, err
	}

	// Register Telegram API
	if err := container.Provide(func(cfg *config.Config) (*tgbotapi.BotAPI, error) {
		tgCfg := cfg.GetTelegram()
		if tgCfg.Token == "" {
			return nil, fmt.Errorf("telegram bot token is required")
		}
		api, err := tgbotapi.NewBotAPI(tgCfg.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
		}
		api.Debug = tgCfg.Debug
		return api, nil
	}); err != nil {
		return nil, err
	}

	// Register notifier
	if err := container.Provide(func(api *tgbotapi.BotAPI, logger *zap.Logger) core.Notifier {
		return telegram.NewNotifier(api, logger)
	}); err != nil {
		return nil, err
	}

	// Register digest engine
	if err := container.Provide(core.NewDigestEngine); err != nil {
		return nil, err
	}

	// Register scheduler
	if err := container.Provide(func(cfg *config.Config, engine *core.DigestEngine, logger *zap.Logger) (*scheduler.Scheduler, error) {
		retryDelay, err := cfg.GetDuration("scheduler.retry_delay")
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler retry delay: %w", err)
		}
		return scheduler.New(engine.ProcessUser, retryDelay, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register command bot
	if err := container.Provide(telegram.NewBot); err != nil {
		return nil, err
	}

	return container, nil
}
