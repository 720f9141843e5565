package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// sqlStore implements core.Store over an sqlx handle. The SQL sticks to
// `?` placeholders and portable types so the SQLite and MySQL backends
// share every query; only the schema DDL differs per driver.
// Transactions are short-lived and scoped to one logical operation.
type sqlStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Ping verifies the database is reachable
func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// GetOrCreateUser returns the user for a chat identity, creating the
// row on first interaction
func (s *sqlStore) GetOrCreateUser(ctx context.Context, chatID string) (*core.User, error) {
	var user core.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE chat_id = ?", chatID)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query user by chat id: %w", err)
	}

	user = core.User{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, chat_id, created_at) VALUES (?, ?, ?)",
		user.ID, user.ChatID, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Created user", zap.String("user_id", user.ID))
	return &user, nil
}

// UserByID fetches a user by primary key
func (s *sqlStore) UserByID(ctx context.Context, id string) (*core.User, error) {
	var user core.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// UsersWithMailboxes returns every user owning at least one mailbox
func (s *sqlStore) UsersWithMailboxes(ctx context.Context) ([]core.User, error) {
	var users []core.User
	err := s.db.SelectContext(ctx, &users, `
		SELECT DISTINCT u.id, u.chat_id, u.created_at
		FROM users u
		JOIN mailboxes m ON m.user_id = u.id
		ORDER BY u.created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users with mailboxes: %w", err)
	}
	return users, nil
}

// CreateMailbox persists a new mailbox, enforcing the per-user cap
func (s *sqlStore) CreateMailbox(ctx context.Context, mb *core.Mailbox) error {
	if mb.ID == "" {
		mb.ID = uuid.NewString()
	}
	if mb.Frequency == "" {
		mb.Frequency = core.FrequencyDaily
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM mailboxes WHERE user_id = ?", mb.UserID); err != nil {
		return fmt.Errorf("failed to count mailboxes: %w", err)
	}
	if count >= core.MaxMailboxesPerUser {
		return core.ErrMailboxLimit
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mailboxes (id, user_id, email, password, tag, frequency, last_summary_sent, next_summary_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		mb.ID, mb.UserID, mb.Email, mb.Password, mb.Tag, mb.Frequency,
		mb.LastSummarySent, mb.NextSummaryTime)
	if err != nil {
		return fmt.Errorf("failed to insert mailbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mailbox: %w", err)
	}

	s.logger.Info("Created mailbox",
		zap.String("mailbox", mb.Email),
		zap.String("user_id", mb.UserID))
	return nil
}

// MailboxesByUser returns a user's mailboxes
func (s *sqlStore) MailboxesByUser(ctx context.Context, userID string) ([]core.Mailbox, error) {
	var mailboxes []core.Mailbox
	err := s.db.SelectContext(ctx, &mailboxes,
		"SELECT * FROM mailboxes WHERE user_id = ? ORDER BY email", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mailboxes: %w", err)
	}
	return mailboxes, nil
}

// MailboxByID fetches a mailbox by id, rejecting lookups from a chat
// identity that does not own it
func (s *sqlStore) MailboxByID(ctx context.Context, id, chatID string) (*core.Mailbox, error) {
	var mb core.Mailbox
	err := s.db.GetContext(ctx, &mb, "SELECT * FROM mailboxes WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrMailboxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query mailbox: %w", err)
	}
	return s.checkOwner(ctx, &mb, chatID)
}

// MailboxByEmail fetches a mailbox by address with the same ownership check
func (s *sqlStore) MailboxByEmail(ctx context.Context, email, chatID string) (*core.Mailbox, error) {
	var mb core.Mailbox
	err := s.db.GetContext(ctx, &mb, "SELECT * FROM mailboxes WHERE email = ?", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrMailboxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query mailbox: %w", err)
	}
	return s.checkOwner(ctx, &mb, chatID)
}

func (s *sqlStore) checkOwner(ctx context.Context, mb *core.Mailbox, chatID string) (*core.Mailbox, error) {
	var ownerChat string
	err := s.db.GetContext(ctx, &ownerChat,
		"SELECT chat_id FROM users WHERE id = ?", mb.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mailbox owner: %w", err)
	}
	if ownerChat != chatID {
		return nil, core.ErrNotOwner
	}
	return mb, nil
}

// UpdateMailboxSchedule persists the cycle's recomputed summary times
func (s *sqlStore) UpdateMailboxSchedule(ctx context.Context, id string, lastSent, nextRun time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE mailboxes SET last_summary_sent = ?, next_summary_time = ? WHERE id = ?",
		lastSent, nextRun, id)
	if err != nil {
		return fmt.Errorf("failed to update mailbox schedule: %w", err)
	}
	return nil
}

// UpdateMailboxFrequency changes a mailbox's cadence and next run together
func (s *sqlStore) UpdateMailboxFrequency(ctx context.Context, id string, freq core.Frequency, nextRun time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE mailboxes SET frequency = ?, next_summary_time = ? WHERE id = ?",
		freq, nextRun, id)
	if err != nil {
		return fmt.Errorf("failed to update mailbox frequency: %w", err)
	}
	return nil
}
