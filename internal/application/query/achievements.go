package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS QUERY
// A member's achievement counts by kind plus their streak state.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementsQuery asks for one member's achievement tally.
type AchievementsQuery struct {
	Scope  shared.Scope
	UserID session.UserID
}

// Validate validates the query.
func (q AchievementsQuery) Validate() error {
	if q.UserID == 0 {
		return errors.New("achievements: user_id is required")
	}
	if !q.Scope.IsGlobal() && q.Scope.ChatID == 0 {
		return errors.New("achievements: chat scope needs a chat_id")
	}
	return nil
}

// AchievementsResult reports counts for every kind (zero when never
// granted) and the member's streak within the scope.
type AchievementsResult struct {
	Counts map[achievement.Kind]int
	Streak *achievement.Streak
}

// AchievementsHandler handles the AchievementsQuery.
type AchievementsHandler struct {
	achievements achievement.Repository
}

// NewAchievementsHandler creates a new AchievementsHandler.
func NewAchievementsHandler(achievements achievement.Repository) *AchievementsHandler {
	return &AchievementsHandler{achievements: achievements}
}

// Handle executes the achievements query.
func (h *AchievementsHandler) Handle(ctx context.Context, q AchievementsQuery) (*AchievementsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("achievements: validation failed: %w", err)
	}

	stats, err := h.achievements.Stats(ctx, q.Scope, q.UserID)
	if err != nil {
		return nil, err
	}
	counts := make(map[achievement.Kind]int, len(achievement.Kinds))
	for _, k := range achievement.Kinds {
		counts[k] = 0
	}
	for _, s := range stats {
		counts[s.Kind] = s.Count
	}

	var streak *achievement.Streak
	if q.Scope.IsGlobal() {
		streak, err = h.achievements.BestStreak(ctx, q.UserID)
	} else {
		streak, err = h.achievements.GetStreak(ctx, session.ChatID(q.Scope.ChatID), q.UserID)
	}
	if err != nil {
		return nil, err
	}

	return &AchievementsResult{Counts: counts, Streak: streak}, nil
}
