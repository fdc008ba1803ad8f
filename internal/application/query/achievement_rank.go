package query

import (
	"context"
	"fmt"

	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT RANK QUERY
// Standings by achievement count for one kind, plus current streak standings.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRankQuery asks for one kind's standings within a scope.
type AchievementRankQuery struct {
	Scope shared.Scope
	Kind  achievement.Kind
	Limit int
}

// Validate validates the query.
func (q AchievementRankQuery) Validate() error {
	if !q.Kind.Valid() {
		return fmt.Errorf("achievement_rank: %w: %q", shared.ErrUnknownKind, q.Kind)
	}
	return nil
}

// AchievementRankHandler handles the AchievementRankQuery.
type AchievementRankHandler struct {
	achievements achievement.Repository
}

// NewAchievementRankHandler creates a new AchievementRankHandler.
func NewAchievementRankHandler(achievements achievement.Repository) *AchievementRankHandler {
	return &AchievementRankHandler{achievements: achievements}
}

// Handle executes the achievement rank query.
func (h *AchievementRankHandler) Handle(ctx context.Context, q AchievementRankQuery) ([]achievement.RankEntry, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	entries, err := h.achievements.RankByKind(ctx, q.Scope, q.Kind)
	if err != nil {
		return nil, err
	}
	return clipRank(entries, q.Limit), nil
}

// StreakRankQuery asks for current streak standings within a scope.
type StreakRankQuery struct {
	Scope shared.Scope
	Limit int
}

// StreakRankHandler handles the StreakRankQuery.
type StreakRankHandler struct {
	achievements achievement.Repository
}

// NewStreakRankHandler creates a new StreakRankHandler.
func NewStreakRankHandler(achievements achievement.Repository) *StreakRankHandler {
	return &StreakRankHandler{achievements: achievements}
}

// Handle executes the streak rank query.
func (h *StreakRankHandler) Handle(ctx context.Context, q StreakRankQuery) ([]achievement.RankEntry, error) {
	entries, err := h.achievements.StreakStandings(ctx, q.Scope)
	if err != nil {
		return nil, err
	}
	return clipRank(entries, q.Limit), nil
}

func clipRank(entries []achievement.RankEntry, limit int) []achievement.RankEntry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
