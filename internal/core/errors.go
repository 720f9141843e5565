package core

import "errors"

var (
	// ErrMailboxNotFound is returned when a mailbox lookup matches nothing
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrNotOwner is returned when a mailbox exists but belongs to another user
	ErrNotOwner = errors.New("mailbox is owned by a different user")
	// ErrMailboxLimit is returned when a user already owns the maximum number of mailboxes
	ErrMailboxLimit = errors.New("mailbox limit reached")
	// ErrAuthFailed is returned when the provider rejects mailbox credentials
	ErrAuthFailed = errors.New("mailbox authentication failed")
	// ErrUserNotFound is returned when a user lookup matches nothing
	ErrUserNotFound = errors.New("user not found")
)
