package session

import (
	"context"
	"time"

	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// Repository defines persistence operations for sessions and the chat
// members that own them. Implementations live in the infrastructure layer.
type Repository interface {
	// UpsertUser records the last-seen identity of a chat member.
	UpsertUser(ctx context.Context, user *User) error

	// UpsertChat records the last-seen identity of a chat.
	UpsertChat(ctx context.Context, chat *Chat) error

	// GetUser returns the stored identity of a member, or
	// shared.ErrNotFound wrapped in a domain error when unknown.
	GetUser(ctx context.Context, userID UserID) (*User, error)

	// FindOpen returns the member's open session in the chat, or nil
	// when no open session exists.
	FindOpen(ctx context.Context, chatID ChatID, userID UserID) (*Session, error)

	// FindLastClosed returns the member's most recently closed session
	// in the chat, ordered by check-out, or nil when none exists.
	FindLastClosed(ctx context.Context, chatID ChatID, userID UserID) (*Session, error)

	// CountForDay returns how many sessions were opened in the chat on
	// the given business day, used to assign the check-in sequence.
	CountForDay(ctx context.Context, chatID ChatID, day timeutil.DayKey) (int, error)

	// Create persists an open session and fills in its ID.
	Create(ctx context.Context, s *Session) error

	// SetCheckOut persists the check-out timestamp of a session.
	SetCheckOut(ctx context.Context, id ID, at time.Time) error
}
