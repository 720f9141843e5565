package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/inbox-digest/internal/adapters/telegram"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/di"
	"github.com/mikey/inbox-digest/internal/scheduler"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	store core.Store,
	sched *scheduler.Scheduler,
	bot *telegram.Bot,
	llmClient core.LLMClient,
) error {
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The store is the only boot dependency that is fatal when absent
	if err := store.Ping(ctx); err != nil {
		logger.Fatal("Cannot reach persistent store", zap.Error(err))
		return err
	}

	// Re-enroll every user with mailboxes so schedules survive restarts
	if err := sched.EnrollAll(ctx, store); err != nil {
		logger.Fatal("Failed to enroll users", zap.Error(err))
		return err
	}

	botErr := make(chan error, 1)
	go func() {
		botErr <- bot.Run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-botErr:
		if err != nil {
			logger.Error("Bot loop exited", zap.Error(err))
		}
	}
	logger.Info("Shutting down...")

	sched.Stop()

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("Failed to close store", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
