// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWAKE DURATION QUERY
// "How long have I been awake": the open session's running duration, falling
// back to the most recently closed session.
// ══════════════════════════════════════════════════════════════════════════════

// AwakeDurationQuery asks for a member's current or last awake duration.
type AwakeDurationQuery struct {
	ChatID session.ChatID
	UserID session.UserID

	// AsOf is the instant an open session is measured against.
	AsOf time.Time
}

// Validate validates the query.
func (q AwakeDurationQuery) Validate() error {
	if q.ChatID == 0 || q.UserID == 0 {
		return errors.New("awake_duration: chat_id and user_id are required")
	}
	return nil
}

// AwakeDurationResult reports the measured duration. Found is false when
// the member has no session history at all in the chat.
type AwakeDurationResult struct {
	Found    bool
	Open     bool
	Duration time.Duration

	// CheckIn is the start of the measured session.
	CheckIn time.Time
}

// AwakeDurationHandler handles the AwakeDurationQuery.
type AwakeDurationHandler struct {
	sessions session.Repository
}

// NewAwakeDurationHandler creates a new AwakeDurationHandler.
func NewAwakeDurationHandler(sessions session.Repository) *AwakeDurationHandler {
	return &AwakeDurationHandler{sessions: sessions}
}

// Handle executes the awake duration query.
func (h *AwakeDurationHandler) Handle(ctx context.Context, q AwakeDurationQuery) (*AwakeDurationResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("awake_duration: validation failed: %w", err)
	}
	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	open, err := h.sessions.FindOpen(ctx, q.ChatID, q.UserID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return &AwakeDurationResult{
			Found:    true,
			Open:     true,
			Duration: open.Duration(asOf),
			CheckIn:  open.CheckIn,
		}, nil
	}

	last, err := h.sessions.FindLastClosed(ctx, q.ChatID, q.UserID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return &AwakeDurationResult{}, nil
	}
	return &AwakeDurationResult{
		Found:    true,
		Duration: last.Duration(asOf),
		CheckIn:  last.CheckIn,
	}, nil
}
