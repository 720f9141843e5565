package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mikey/inbox-digest/internal/format"
	"go.uber.org/zap"
)

// Notifier delivers digest notices to Telegram chats. Text is rendered
// to MarkdownV2-safe form before sending.
type Notifier struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewNotifier creates a new Telegram notifier
func NewNotifier(api *tgbotapi.BotAPI, logger *zap.Logger) *Notifier {
	return &Notifier{
		api:    api,
		logger: logger,
	}
}

// Send delivers one message to the chat identified by chatID
func (n *Notifier) Send(ctx context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(id, format.Render(text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	n.logger.Debug("Delivered message",
		zap.String("chat_id", chatID),
		zap.Int("size", len(text)))
	return nil
}
