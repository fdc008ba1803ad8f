// Package session contains domain entities and business logic for awake
// sessions: a member checks in when they wake up and checks out when the
// day is over. This is a pure domain layer with zero external dependencies
// beyond the business-day calendar.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// ChatID represents a chat-platform chat identifier.
type ChatID int64

// Int64 returns the underlying int64 value.
func (c ChatID) Int64() int64 { return int64(c) }

// UserID represents a chat-platform user identifier.
type UserID int64

// Int64 returns the underlying int64 value.
func (u UserID) Int64() int64 { return int64(u) }

// ID is a session's store-assigned identifier.
type ID int64

// User is a chat member. Created on first observed command; the display
// name is mutable and the last-seen value wins.
type User struct {
	ID        UserID
	Username  string
	FirstName string
	LastName  string
	UpdatedAt time.Time
}

// DisplayName returns the name shown in replies and leaderboards:
// "@username" when set, otherwise the joined first/last name,
// otherwise the numeric id.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := strings.TrimSpace(strings.Join(nonEmpty(u.FirstName, u.LastName), " "))
	if name != "" {
		return name
	}
	return fmt.Sprintf("%d", u.ID)
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Chat is a group chat. Created on first observed command in that chat.
type Chat struct {
	ID        ChatID
	Title     string
	Type      string
	UpdatedAt time.Time
}

// Session is the core entity: one check-in/check-out pair per (chat, user).
// Sessions are append-only history; the only mutation ever applied is
// setting CheckOut, exactly once. For a given (chat, user) at most one
// session with a nil CheckOut exists at any time.
type Session struct {
	ID     ID
	ChatID ChatID
	UserID UserID

	// Day is the business day the session is attributed to,
	// stamped from the check-in timestamp.
	Day timeutil.DayKey

	// Seq is "today's Nth check-in" within the chat, assigned at check-in.
	Seq int

	CheckIn  time.Time
	CheckOut *time.Time
}

// New creates an open session stamped with its business day.
func New(chatID ChatID, userID UserID, day timeutil.DayKey, checkIn time.Time) (*Session, error) {
	if chatID == 0 || userID == 0 {
		return nil, shared.NewDomainError("session", "New", shared.ErrInvalidID, "chat and user ids are required")
	}
	if day.IsZero() {
		return nil, shared.NewDomainError("session", "New", shared.ErrInvalidInput, "business day is required")
	}
	return &Session{
		ChatID:  chatID,
		UserID:  userID,
		Day:     day,
		CheckIn: checkIn.UTC(),
	}, nil
}

// IsOpen reports whether the session has not been checked out yet.
func (s *Session) IsOpen() bool {
	return s.CheckOut == nil
}

// Close sets the check-out timestamp. A timestamp earlier than the
// check-in is clamped to the check-in, yielding a zero-length session.
func (s *Session) Close(at time.Time) error {
	if !s.IsOpen() {
		return shared.ErrSessionClosed
	}
	at = at.UTC()
	if at.Before(s.CheckIn) {
		at = s.CheckIn
	}
	s.CheckOut = &at
	return nil
}

// Duration returns the awake duration: check-out minus check-in for a
// closed session, asOf minus check-in for an open one. Never negative.
func (s *Session) Duration(asOf time.Time) time.Duration {
	end := asOf
	if s.CheckOut != nil {
		end = *s.CheckOut
	}
	d := end.Sub(s.CheckIn)
	if d < 0 {
		return 0
	}
	return d
}
