package telegram

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/scheduler"
	"go.uber.org/zap"
)

const helpText = `Available commands:
/start - Start the bot
/help - Show this help message
/create_mailbox <tag> - Create a new mailbox with the given tag
/list_mailboxes - List your active mailboxes (up to 3)
/set_frequency <email> <daily|weekly> - Set summary frequency for a mailbox
/trigger_summary - Trigger immediate summary generation for all mailboxes`

// Bot is the Telegram command surface: it owns the long-polling update
// loop and translates commands into store, provider, and scheduler calls
type Bot struct {
	api      *tgbotapi.BotAPI
	notifier core.Notifier
	store    core.Store
	provider core.MailboxProvider
	sched    *scheduler.Scheduler
	logger   *zap.Logger
}

// NewBot creates a new command bot
func NewBot(
	api *tgbotapi.BotAPI,
	notifier core.Notifier,
	store core.Store,
	provider core.MailboxProvider,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *Bot {
	return &Bot{
		api:      api,
		notifier: notifier,
		store:    store,
		provider: provider,
		sched:    sched,
		logger:   logger,
	}
}

// Run polls for updates until the context is cancelled
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot is ready to accept commands",
		zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic while handling command",
				zap.String("command", msg.Command()),
				zap.Any("panic", r))
			b.reply(ctx, chatID, "An unexpected error occurred. Please try again later.")
		}
	}()

	b.logger.Debug("Received command",
		zap.String("command", msg.Command()),
		zap.String("chat_id", chatID))

	switch msg.Command() {
	case "start":
		b.reply(ctx, chatID, "Welcome to the Newsletter Bot! Use /help to see available commands.")
	case "help":
		b.reply(ctx, chatID, helpText)
	case "create_mailbox":
		b.createMailbox(ctx, chatID, strings.TrimSpace(msg.CommandArguments()))
	case "list_mailboxes":
		b.listMailboxes(ctx, chatID)
	case "set_frequency":
		b.setFrequency(ctx, chatID, strings.Fields(msg.CommandArguments()))
	case "trigger_summary":
		b.triggerSummary(ctx, chatID)
	}
}

func (b *Bot) createMailbox(ctx context.Context, chatID, tag string) {
	if tag == "" {
		b.reply(ctx, chatID, "Please provide a tag for the mailbox. Usage: /create_mailbox <tag>")
		return
	}

	user, err := b.store.GetOrCreateUser(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to load user", zap.Error(err))
		b.reply(ctx, chatID, "An error occurred while creating the mailbox.")
		return
	}

	domains, err := b.provider.ListDomains(ctx)
	if err != nil || len(domains) == 0 {
		b.logger.Error("No domains available", zap.Error(err))
		b.reply(ctx, chatID, "Failed to fetch available domains. Please try again later.")
		return
	}

	address := fmt.Sprintf("%s@%s", randomString(10, lowercaseAlphabet), domains[0].Domain)
	password := randomString(12, passwordAlphabet)

	if _, err := b.provider.CreateAccount(ctx, address, password); err != nil {
		b.logger.Error("Failed to create provider account",
			zap.String("address", address),
			zap.Error(err))
		b.reply(ctx, chatID, "Failed to create mailbox. Please try again later.")
		return
	}

	if _, err := b.provider.GetToken(ctx, address, password); err != nil {
		b.logger.Error("Failed to authenticate new mailbox",
			zap.String("address", address),
			zap.Error(err))
		b.reply(ctx, chatID, "Failed to authenticate the new mailbox. Please try again later.")
		return
	}

	now := time.Now().UTC()
	mb := &core.Mailbox{
		UserID:          user.ID,
		Email:           address,
		Password:        password,
		Tag:             tag,
		Frequency:       core.FrequencyDaily,
		LastSummarySent: now,
		NextSummaryTime: core.FrequencyDaily.Next(now),
	}
	if err := b.store.CreateMailbox(ctx, mb); err != nil {
		if errors.Is(err, core.ErrMailboxLimit) {
			b.reply(ctx, chatID, fmt.Sprintf("You can only have up to %d active mailboxes.", core.MaxMailboxesPerUser))
			return
		}
		b.logger.Error("Failed to persist mailbox", zap.Error(err))
		b.reply(ctx, chatID, "An error occurred while creating the mailbox.")
		return
	}

	b.rescheduleUser(ctx, user.ID)
	b.reply(ctx, chatID, fmt.Sprintf(
		"Mailbox created successfully:\nEmail: %s\nPassword: %s\nPlease save these credentials securely.",
		address, password))
}

func (b *Bot) listMailboxes(ctx context.Context, chatID string) {
	user, err := b.store.GetOrCreateUser(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to load user", zap.Error(err))
		b.reply(ctx, chatID, "An error occurred while listing your mailboxes. Please try again later.")
		return
	}

	mailboxes, err := b.store.MailboxesByUser(ctx, user.ID)
	if err != nil {
		b.logger.Error("Failed to load mailboxes", zap.Error(err))
		b.reply(ctx, chatID, "An error occurred while listing your mailboxes. Please try again later.")
		return
	}
	if len(mailboxes) == 0 {
		b.reply(ctx, chatID, "You don't have any mailboxes yet. Use /create_mailbox to create one.")
		return
	}

	var lines []string
	for _, mb := range mailboxes {
		lines = append(lines, fmt.Sprintf("Email: %s, Tag: %s, Frequency: %s", mb.Email, mb.Tag, mb.Frequency))
	}
	b.reply(ctx, chatID, "Your mailboxes:\n\n"+strings.Join(lines, "\n"))
}

func (b *Bot) setFrequency(ctx context.Context, chatID string, args []string) {
	if len(args) != 2 {
		b.reply(ctx, chatID, "Usage: /set_frequency <email> <daily|weekly>")
		return
	}

	freq, err := core.ParseFrequency(args[1])
	if err != nil {
		b.reply(ctx, chatID, "Frequency must be daily or weekly.")
		return
	}

	mb, err := b.store.MailboxByEmail(ctx, args[0], chatID)
	if err != nil {
		if errors.Is(err, core.ErrMailboxNotFound) || errors.Is(err, core.ErrNotOwner) {
			b.reply(ctx, chatID, "That mailbox does not exist or does not belong to you.")
			return
		}
		b.logger.Error("Failed to look up mailbox", zap.Error(err))
		b.reply(ctx, chatID, "An error occurred. Please try again later.")
		return
	}

	next := freq.Next(time.Now().UTC())
	if err := b.store.UpdateMailboxFrequency(ctx, mb.ID, freq, next); err != nil {
		b.logger.Error("Failed to update frequency", zap.Error(err))
		b.reply(ctx, chatID, "An error occurred. Please try again later.")
		return
	}

	// The new cadence may move the user's timer earlier than it was.
	b.rescheduleUser(ctx, mb.UserID)
	b.reply(ctx, chatID, fmt.Sprintf("Frequency for %s set to %s.", mb.Email, freq))
}

func (b *Bot) triggerSummary(ctx context.Context, chatID string) {
	user, err := b.store.GetOrCreateUser(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to load user", zap.Error(err))
		b.reply(ctx, chatID, "An error occurred. Please try again later.")
		return
	}

	mailboxes, err := b.store.MailboxesByUser(ctx, user.ID)
	if err != nil || len(mailboxes) == 0 {
		b.reply(ctx, chatID, "You don't have any mailboxes yet. Use /create_mailbox to create one.")
		return
	}

	b.sched.Schedule(user.ID, time.Now())
	b.reply(ctx, chatID, "Summary generation triggered. You will receive your digest shortly.")
}

// rescheduleUser re-arms the user's single timer at the minimum next
// summary time across their mailboxes
func (b *Bot) rescheduleUser(ctx context.Context, userID string) {
	mailboxes, err := b.store.MailboxesByUser(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to load mailboxes for reschedule",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	var next time.Time
	for _, mb := range mailboxes {
		if next.IsZero() || mb.NextSummaryTime.Before(next) {
			next = mb.NextSummaryTime
		}
	}
	if !next.IsZero() {
		b.sched.Schedule(userID, next)
	}
}

func (b *Bot) reply(ctx context.Context, chatID, text string) {
	if err := b.notifier.Send(ctx, chatID, text); err != nil {
		b.logger.Error("Failed to send reply",
			zap.String("chat_id", chatID),
			zap.Error(err))
	}
}

const (
	lowercaseAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	passwordAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func randomString(length int, alphabet string) string {
	var b strings.Builder
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the system source is broken
			panic(fmt.Sprintf("failed to read random source: %v", err))
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String()
}
