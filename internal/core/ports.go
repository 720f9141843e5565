package core

import (
	"context"
	"time"
)

// Domain is an email domain offered by the mailbox provider
type Domain struct {
	ID     string
	Domain string
}

// Account is a provider-side mailbox account
type Account struct {
	ID      string
	Address string
}

// MailboxProvider defines the interface to the disposable mailbox service
type MailboxProvider interface {
	// ListDomains returns the domains available for new accounts.
	// It degrades to an empty result on provider errors.
	ListDomains(ctx context.Context) ([]Domain, error)

	// CreateAccount registers a new mailbox account
	CreateAccount(ctx context.Context, address, password string) (*Account, error)

	// GetToken authenticates and returns an opaque bearer token.
	// Tokens are re-fetched every cycle, never cached.
	GetToken(ctx context.Context, address, password string) (string, error)

	// ListUnread returns summaries of unseen, non-deleted messages (first page only)
	ListUnread(ctx context.Context, token string) ([]MessageSummary, error)

	// GetMessage fetches the full body of one message
	GetMessage(ctx context.Context, token, messageID string) (*Message, error)

	// MarkRead flags a message as seen upstream. Best effort.
	MarkRead(ctx context.Context, token, messageID string) error
}

// LLMClient defines the interface for a text-generation backend
type LLMClient interface {
	// Generate produces text for a prompt under a system instruction
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Summarizer compresses arbitrary text into a digest
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Notifier delivers a message to a user's chat channel
type Notifier interface {
	Send(ctx context.Context, chatID, text string) error
}

// Store defines the persistence interface for users and mailboxes
type Store interface {
	Ping(ctx context.Context) error

	GetOrCreateUser(ctx context.Context, chatID string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
	UsersWithMailboxes(ctx context.Context) ([]User, error)

	// CreateMailbox persists a new mailbox, enforcing MaxMailboxesPerUser
	CreateMailbox(ctx context.Context, mb *Mailbox) error
	MailboxesByUser(ctx context.Context, userID string) ([]Mailbox, error)

	// MailboxByID looks up a mailbox and verifies the requesting chat owns it
	MailboxByID(ctx context.Context, id, chatID string) (*Mailbox, error)
	// MailboxByEmail looks up a mailbox by address and verifies ownership
	MailboxByEmail(ctx context.Context, email, chatID string) (*Mailbox, error)

	UpdateMailboxSchedule(ctx context.Context, id string, lastSent, nextRun time.Time) error
	UpdateMailboxFrequency(ctx context.Context, id string, freq Frequency, nextRun time.Time) error

	Close() error
}
