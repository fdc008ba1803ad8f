package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/logger"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK-IN COMMAND
// Opens an awake session, assigns today's sequence number and evaluates the
// morning achievements (earliest of day, streaks) in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CheckInCommand carries a member's check-in.
type CheckInCommand struct {
	ChatID    session.ChatID
	ChatTitle string
	ChatType  string

	UserID    session.UserID
	Username  string
	FirstName string
	LastName  string

	// At is when the check-in happened. Taken from the incoming chat
	// message timestamp, not from server receipt time.
	At time.Time
}

// Validate validates the command.
func (c CheckInCommand) Validate() error {
	if c.ChatID == 0 {
		return errors.New("check_in: chat_id is required")
	}
	if c.UserID == 0 {
		return errors.New("check_in: user_id is required")
	}
	if c.At.IsZero() {
		return errors.New("check_in: timestamp is required")
	}
	return nil
}

// CheckInResult reports the opened session and any achievements granted.
type CheckInResult struct {
	Session *session.Session

	// Seq is "today's Nth check-in" in the chat, starting at 1.
	Seq int

	// BecameEarliest reports that this check-in now holds the day's
	// earliest slot, possibly displacing a previous holder.
	BecameEarliest bool

	// Streak is the member's run after this check-in; only meaningful
	// when BecameEarliest.
	Streak int

	// StreakMilestone reports that the run just reached a multiple of
	// seven and a streak_7 award was granted.
	StreakMilestone bool
}

// CheckInHandler handles the CheckInCommand.
type CheckInHandler struct {
	store    Store
	calendar *timeutil.Calendar
	log      *logger.Logger
}

// NewCheckInHandler creates a new CheckInHandler.
func NewCheckInHandler(store Store, calendar *timeutil.Calendar, log *logger.Logger) *CheckInHandler {
	return &CheckInHandler{
		store:    store,
		calendar: calendar,
		log:      log.With(logger.Component("check_in")),
	}
}

// Handle executes the check-in command. The member's identity upsert,
// the session insert and all achievement effects commit or roll back
// together.
func (h *CheckInHandler) Handle(ctx context.Context, cmd CheckInCommand) (*CheckInResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("check_in: validation failed: %w", err)
	}

	day := h.calendar.BusinessDay(cmd.At)
	result := &CheckInResult{}

	err := h.store.WithinChatTx(ctx, cmd.ChatID, func(r Repos) error {
		if err := upsertIdentity(ctx, r.Sessions(), cmd.ChatID, cmd.ChatTitle, cmd.ChatType, cmd.UserID, cmd.Username, cmd.FirstName, cmd.LastName); err != nil {
			return err
		}

		open, err := r.Sessions().FindOpen(ctx, cmd.ChatID, cmd.UserID)
		if err != nil {
			return err
		}
		if open != nil {
			return shared.ErrAlreadyOpen
		}

		count, err := r.Sessions().CountForDay(ctx, cmd.ChatID, day)
		if err != nil {
			return err
		}

		s, err := session.New(cmd.ChatID, cmd.UserID, day, cmd.At)
		if err != nil {
			return err
		}
		s.Seq = count + 1
		if err := r.Sessions().Create(ctx, s); err != nil {
			return err
		}

		result.Session = s
		result.Seq = s.Seq

		return h.evaluateMorning(ctx, r.Achievements(), s, result)
	})
	if err != nil {
		if shared.IsAlreadyOpen(err) {
			return nil, shared.ErrAlreadyOpen
		}
		return nil, err
	}

	h.log.Info("check-in recorded",
		logger.ChatID(cmd.ChatID.Int64()),
		logger.UserID(cmd.UserID.Int64()),
		logger.Day(string(day)),
		logger.Int("seq", result.Seq),
	)
	return result, nil
}

// evaluateMorning runs the earliest-of-day replacement and streak logic
// inside the check-in transaction.
func (h *CheckInHandler) evaluateMorning(ctx context.Context, repo achievement.Repository, s *session.Session, result *CheckInResult) error {
	prev, err := repo.GetDailyEarliest(ctx, s.ChatID, s.Day)
	if err != nil {
		return err
	}

	won, err := repo.ReplaceDailyEarliest(ctx, &achievement.DailyEarliest{
		ChatID:  s.ChatID,
		Day:     s.Day,
		UserID:  s.UserID,
		CheckIn: s.CheckIn,
	})
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	result.BecameEarliest = true

	// A displaced same-day holder loses the day from their run. Their
	// already-granted event stays; the event log is append-only.
	if prev != nil && prev.UserID != s.UserID {
		if err := h.retractStreak(ctx, repo, s.ChatID, prev.UserID, s.Day); err != nil {
			return err
		}
	}

	granted, err := repo.Grant(ctx, achievement.NewEvent(
		s.ChatID, s.UserID, achievement.KindEarliestOfDay, s.Day, string(s.Day), s.CheckIn,
	))
	if err != nil {
		return err
	}

	streak, err := repo.GetStreak(ctx, s.ChatID, s.UserID)
	if err != nil {
		return err
	}
	milestone := streak.Advance(s.Day)
	if granted {
		if err := repo.SaveStreak(ctx, streak); err != nil {
			return err
		}
	}
	result.Streak = streak.Current

	if milestone {
		grantedStreak, err := repo.Grant(ctx, achievement.NewEvent(
			s.ChatID, s.UserID, achievement.KindStreak7, s.Day, string(s.Day), s.CheckIn,
		))
		if err != nil {
			return err
		}
		result.StreakMilestone = grantedStreak
	}
	return nil
}

func (h *CheckInHandler) retractStreak(ctx context.Context, repo achievement.Repository, chatID session.ChatID, userID session.UserID, day timeutil.DayKey) error {
	streak, err := repo.GetStreak(ctx, chatID, userID)
	if err != nil {
		return err
	}
	streak.Retract(day)
	return repo.SaveStreak(ctx, streak)
}

// upsertIdentity records the last-seen chat and member identity.
func upsertIdentity(ctx context.Context, repo session.Repository, chatID session.ChatID, chatTitle, chatType string, userID session.UserID, username, firstName, lastName string) error {
	now := time.Now().UTC()
	if err := repo.UpsertChat(ctx, &session.Chat{
		ID:        chatID,
		Title:     chatTitle,
		Type:      chatType,
		UpdatedAt: now,
	}); err != nil {
		return err
	}
	return repo.UpsertUser(ctx, &session.User{
		ID:        userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		UpdatedAt: now,
	})
}
