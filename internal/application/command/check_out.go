package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK-OUT COMMAND
// Closes the open awake session and evaluates the end-of-day achievements
// (on-time eight hours, long day) in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CheckOutCommand carries a member's check-out.
type CheckOutCommand struct {
	ChatID    session.ChatID
	ChatTitle string
	ChatType  string

	UserID    session.UserID
	Username  string
	FirstName string
	LastName  string

	// At is the check-out instant from the chat message timestamp.
	At time.Time
}

// Validate validates the command.
func (c CheckOutCommand) Validate() error {
	if c.ChatID == 0 {
		return errors.New("check_out: chat_id is required")
	}
	if c.UserID == 0 {
		return errors.New("check_out: user_id is required")
	}
	if c.At.IsZero() {
		return errors.New("check_out: timestamp is required")
	}
	return nil
}

// CheckOutResult reports the closed session and any awards granted.
type CheckOutResult struct {
	Session  *session.Session
	Duration time.Duration

	// Granted lists the check-out awards this close produced, in
	// evaluation order.
	Granted []achievement.Kind
}

// CheckOutHandler handles the CheckOutCommand.
type CheckOutHandler struct {
	store Store
	log   *logger.Logger
}

// NewCheckOutHandler creates a new CheckOutHandler.
func NewCheckOutHandler(store Store, log *logger.Logger) *CheckOutHandler {
	return &CheckOutHandler{
		store: store,
		log:   log.With(logger.Component("check_out")),
	}
}

// Handle executes the check-out command.
func (h *CheckOutHandler) Handle(ctx context.Context, cmd CheckOutCommand) (*CheckOutResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("check_out: validation failed: %w", err)
	}

	result := &CheckOutResult{}

	err := h.store.WithinChatTx(ctx, cmd.ChatID, func(r Repos) error {
		if err := upsertIdentity(ctx, r.Sessions(), cmd.ChatID, cmd.ChatTitle, cmd.ChatType, cmd.UserID, cmd.Username, cmd.FirstName, cmd.LastName); err != nil {
			return err
		}

		s, err := r.Sessions().FindOpen(ctx, cmd.ChatID, cmd.UserID)
		if err != nil {
			return err
		}
		if s == nil {
			return shared.ErrNoOpenSession
		}

		if err := s.Close(cmd.At); err != nil {
			return err
		}
		if err := r.Sessions().SetCheckOut(ctx, s.ID, *s.CheckOut); err != nil {
			return err
		}

		result.Session = s
		result.Duration = s.Duration(cmd.At)

		dedup := strconv.FormatInt(int64(s.ID), 10)
		for _, kind := range achievement.CheckOutKinds(result.Duration) {
			granted, err := r.Achievements().Grant(ctx, achievement.NewEvent(
				s.ChatID, s.UserID, kind, s.Day, dedup, *s.CheckOut,
			))
			if err != nil {
				return err
			}
			if granted {
				result.Granted = append(result.Granted, kind)
			}
		}
		return nil
	})
	if err != nil {
		if shared.IsNoOpenSession(err) {
			return nil, shared.ErrNoOpenSession
		}
		return nil, err
	}

	h.log.Info("check-out recorded",
		logger.ChatID(cmd.ChatID.Int64()),
		logger.UserID(cmd.UserID.Int64()),
		logger.SessionID(int64(result.Session.ID)),
		logger.Duration("awake", result.Duration),
	)
	return result, nil
}
