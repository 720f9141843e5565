package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CycleState identifies a stage of a single mailbox digest cycle
type CycleState string

const (
	StateFetchToken  CycleState = "FETCH_TOKEN"
	StateListUnread  CycleState = "LIST_UNREAD"
	StateFetchBodies CycleState = "FETCH_BODIES"
	StateMarkRead    CycleState = "MARK_READ"
	StateSummarize   CycleState = "SUMMARIZE"
	StateDeliver     CycleState = "DELIVER"
	StateReschedule  CycleState = "RESCHEDULE"
	StateDone        CycleState = "DONE"
	StateFailed      CycleState = "FAILED"
)

// Transition records one state change of a cycle and why it happened
type Transition struct {
	From   CycleState
	To     CycleState
	Reason string
}

// CycleResult is the outcome of processing one mailbox
type CycleResult struct {
	MailboxEmail string
	State        CycleState
	Reason       string
	MessageCount int
	Notice       string
	Delivered    bool
	NextRun      time.Time
	Transitions  []Transition
	Err          error
}

func (r *CycleResult) advance(to CycleState, reason string) {
	r.Transitions = append(r.Transitions, Transition{From: r.State, To: to, Reason: reason})
	r.State = to
	r.Reason = reason
}

// DigestEngine drives the fetch, summarize, deliver, reschedule cycle
// for every mailbox a user owns
type DigestEngine struct {
	provider   MailboxProvider
	summarizer Summarizer
	notifier   Notifier
	store      Store
	logger     *zap.Logger
	now        func() time.Time
}

// NewDigestEngine creates a new digest engine with injected collaborators
func NewDigestEngine(
	provider MailboxProvider,
	summarizer Summarizer,
	notifier Notifier,
	store Store,
	logger *zap.Logger,
) *DigestEngine {
	return &DigestEngine{
		provider:   provider,
		summarizer: summarizer,
		notifier:   notifier,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessUser runs one digest cycle over every mailbox the user owns,
// sequentially, and returns the earliest next summary time across them.
// One mailbox failing never blocks its siblings. A zero time is returned
// when the user has no mailboxes to schedule.
func (e *DigestEngine) ProcessUser(ctx context.Context, userID string) (next time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic while processing user",
				zap.String("user_id", userID),
				zap.Any("panic", r))
			err = fmt.Errorf("panic while processing user %s: %v", userID, r)
		}
	}()

	user, err := e.store.UserByID(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	mailboxes, err := e.store.MailboxesByUser(ctx, user.ID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load mailboxes for user %s: %w", userID, err)
	}
	if len(mailboxes) == 0 {
		return time.Time{}, nil
	}

	anyDelivered := false
	for i := range mailboxes {
		res := e.ProcessMailbox(ctx, &mailboxes[i], user.ChatID)
		if res.Delivered {
			anyDelivered = true
		}
		e.logger.Info("Mailbox cycle finished",
			zap.String("mailbox", res.MailboxEmail),
			zap.String("state", string(res.State)),
			zap.String("reason", res.Reason),
			zap.Int("messages", res.MessageCount),
			zap.Time("next_run", res.NextRun))
	}

	if !anyDelivered {
		e.send(ctx, user.ChatID, "No new emails to summarize at this time.")
	}

	for _, mb := range mailboxes {
		if next.IsZero() || mb.NextSummaryTime.Before(next) {
			next = mb.NextSummaryTime
		}
	}
	return next, nil
}

// ProcessMailbox walks one mailbox through the digest state machine.
// The schedule is always advanced, even when the attempt fails: failure
// is per-attempt, not per-schedule.
func (e *DigestEngine) ProcessMailbox(ctx context.Context, mb *Mailbox, chatID string) (res *CycleResult) {
	res = &CycleResult{MailboxEmail: mb.Email, State: StateFetchToken}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic while processing mailbox",
				zap.String("mailbox", mb.Email),
				zap.Any("panic", r))
			res.advance(StateFailed, fmt.Sprintf("panic: %v", r))
			res.Err = fmt.Errorf("panic while processing mailbox %s: %v", mb.Email, r)
			e.send(ctx, chatID, fmt.Sprintf("An error occurred while processing mailbox %s. Please try again later.", mb.Email))
		}
	}()

	token, err := e.provider.GetToken(ctx, mb.Email, mb.Password)
	if err != nil || token == "" {
		e.logger.Error("Failed to authenticate mailbox",
			zap.String("mailbox", mb.Email),
			zap.Error(err))
		res.Err = ErrAuthFailed
		res.Notice = fmt.Sprintf("Could not access mailbox %s (authentication failed). It will be retried at the next scheduled run.", mb.Email)
		res.Delivered = e.send(ctx, chatID, res.Notice)
		e.reschedule(ctx, mb, res)
		res.advance(StateFailed, "token authentication failed")
		return res
	}

	res.advance(StateListUnread, "token acquired")
	summaries, err := e.provider.ListUnread(ctx, token)
	if err != nil {
		// Transient provider error degrades to an empty inbox; the
		// messages stay unread and surface on the next cycle.
		e.logger.Error("Failed to list unread messages",
			zap.String("mailbox", mb.Email),
			zap.Error(err))
		summaries = nil
	}
	if len(summaries) == 0 {
		res.Notice = fmt.Sprintf("No new emails to summarize for %s.", mb.Email)
		e.reschedule(ctx, mb, res)
		res.advance(StateDone, "no unread messages")
		return res
	}

	res.advance(StateFetchBodies, fmt.Sprintf("%d unread messages", len(summaries)))
	messages := make([]*Message, 0, len(summaries))
	for _, s := range summaries {
		msg, err := e.provider.GetMessage(ctx, token, s.ID)
		if err != nil {
			// Skipped messages are not marked read, so the next
			// cycle picks them up.
			e.logger.Error("Failed to fetch message body, skipping",
				zap.String("mailbox", mb.Email),
				zap.String("message_id", s.ID),
				zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}
	if len(messages) == 0 {
		res.Notice = fmt.Sprintf("No new emails to summarize for %s.", mb.Email)
		e.reschedule(ctx, mb, res)
		res.advance(StateDone, "no message bodies could be fetched")
		return res
	}
	res.MessageCount = len(messages)

	res.advance(StateMarkRead, "bodies fetched")
	for _, msg := range messages {
		if err := e.provider.MarkRead(ctx, token, msg.ID); err != nil {
			e.logger.Warn("Failed to mark message as read",
				zap.String("mailbox", mb.Email),
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}

	res.advance(StateSummarize, "messages marked read")
	digest, err := e.summarizer.Summarize(ctx, buildCorpus(messages))
	if err != nil || strings.TrimSpace(digest) == "" {
		e.logger.Error("Failed to summarize messages",
			zap.String("mailbox", mb.Email),
			zap.Int("messages", len(messages)),
			zap.Error(err))
		res.Notice = subjectsFallback(mb.Email, messages)
		res.advance(StateDeliver, "summarization failed, falling back to subjects")
	} else {
		res.Notice = fmt.Sprintf("Summary of %d emails for %s:\n\n%s", len(messages), mb.Email, digest)
		res.advance(StateDeliver, "summary generated")
	}

	res.Delivered = e.send(ctx, chatID, res.Notice)

	e.reschedule(ctx, mb, res)
	res.advance(StateDone, "cycle complete")
	return res
}

// reschedule recomputes and persists the mailbox's next summary time.
// Delivery loss is accepted here: an undelivered digest is not retried,
// the next cycle only sees messages that remain unread.
func (e *DigestEngine) reschedule(ctx context.Context, mb *Mailbox, res *CycleResult) {
	now := e.now()
	next := mb.Frequency.Next(now)
	if err := e.store.UpdateMailboxSchedule(ctx, mb.ID, now, next); err != nil {
		e.logger.Error("Failed to persist mailbox schedule",
			zap.String("mailbox", mb.Email),
			zap.Error(err))
		if res.Err == nil {
			res.Err = err
		}
	}
	mb.LastSummarySent = now
	mb.NextSummaryTime = next
	res.NextRun = next
	res.advance(StateReschedule, "next run "+next.Format(time.RFC3339))
}

func (e *DigestEngine) send(ctx context.Context, chatID, text string) bool {
	if err := e.notifier.Send(ctx, chatID, text); err != nil {
		e.logger.Error("Failed to deliver notification",
			zap.String("chat_id", chatID),
			zap.Error(err))
		return false
	}
	return true
}

// buildCorpus concatenates message subjects and readable bodies into the
// summarizer input
func buildCorpus(messages []*Message) string {
	var b strings.Builder
	for _, msg := range messages {
		subject := msg.Subject
		if subject == "" {
			subject = "No Subject"
		}
		fmt.Fprintf(&b, "Subject: %s\n\nContent:\n%s\n\n---\n\n", subject, msg.ReadableBody())
	}
	return b.String()
}

// subjectsFallback enumerates message subjects so a failed summarization
// never turns into a silent drop
func subjectsFallback(email string, messages []*Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Failed to summarize %d new emails for %s. Here are the subjects:\n", len(messages), email)
	for _, msg := range messages {
		subject := msg.Subject
		if subject == "" {
			subject = "No Subject"
		}
		fmt.Fprintf(&b, "\n- %s", subject)
	}
	return b.String()
}
