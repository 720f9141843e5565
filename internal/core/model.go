package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/k3a/html2text"
)

// Frequency is the cadence at which a mailbox gets summarized
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// ParseFrequency converts user input into a Frequency
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	default:
		return "", fmt.Errorf("unknown frequency %q (expected daily or weekly)", s)
	}
}

// Interval returns the wall-clock gap between two summaries at this frequency
func (f Frequency) Interval() time.Duration {
	if f == FrequencyWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Next returns the next summary time relative to now
func (f Frequency) Next(now time.Time) time.Time {
	return now.Add(f.Interval())
}

// User represents a chat account that owns mailboxes
type User struct {
	ID        string    `db:"id"`
	ChatID    string    `db:"chat_id"`
	CreatedAt time.Time `db:"created_at"`
}

// MaxMailboxesPerUser is the hard cap on mailboxes a single user may own
const MaxMailboxesPerUser = 3

// Mailbox represents a disposable email account tracked for one user
type Mailbox struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	Email           string    `db:"email"`
	Password        string    `db:"password"`
	Tag             string    `db:"tag"`
	Frequency       Frequency `db:"frequency"`
	LastSummarySent time.Time `db:"last_summary_sent"`
	NextSummaryTime time.Time `db:"next_summary_time"`
}

// MessageSummary is a provider list entry for an unread message
type MessageSummary struct {
	ID      string
	From    string
	Subject string
	Seen    bool
}

// Message is a fully fetched provider message. It is transient: read,
// summarized, marked seen upstream, and discarded.
type Message struct {
	ID      string
	From    string
	Subject string
	Text    string
	HTML    string
	Seen    bool
}

const noReadableBody = "No readable content found in this email."

// ReadableBody extracts a plain-text body, preferring the text part,
// converting HTML when that is all the provider returned
func (m *Message) ReadableBody() string {
	if strings.TrimSpace(m.Text) != "" {
		return m.Text
	}
	if strings.TrimSpace(m.HTML) != "" {
		if plain := strings.TrimSpace(html2text.HTML2Text(m.HTML)); plain != "" {
			return plain
		}
	}
	return noReadableBody
}

// Digest is the produced summary for one mailbox cycle. Not persisted:
// delivered once and forgotten.
type Digest struct {
	MailboxEmail string
	Tag          string
	Text         string
	MessageCount int
	GeneratedAt  time.Time
}
