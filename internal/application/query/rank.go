package query

import (
	"context"
	"fmt"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/ranking"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/logger"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANK QUERY
// Awake-time leaderboard for a chat or globally, for today or all time.
// ══════════════════════════════════════════════════════════════════════════════

// RankQuery asks for leaderboard standings.
type RankQuery struct {
	Scope  shared.Scope
	Window shared.Window

	// AsOf bounds open sessions and selects the business day for the
	// today window.
	AsOf time.Time

	// Limit caps the number of rows; zero means no cap.
	Limit int
}

// RankResult holds ordered standings and the business day they cover
// (empty for the all-time window).
type RankResult struct {
	Day     timeutil.DayKey
	Entries []ranking.Entry
}

// RankCache is a read-through cache in front of the standings query.
// A miss returns ok=false; Set failures are not fatal to the query.
type RankCache interface {
	Get(ctx context.Context, scope shared.Scope, window shared.Window, day timeutil.DayKey) ([]ranking.Entry, bool, error)
	Set(ctx context.Context, scope shared.Scope, window shared.Window, day timeutil.DayKey, entries []ranking.Entry) error
}

// RankHandler handles the RankQuery.
type RankHandler struct {
	rankings ranking.Repository
	calendar *timeutil.Calendar
	cache    RankCache
	log      *logger.Logger
}

// NewRankHandler creates a new RankHandler. cache may be nil.
func NewRankHandler(rankings ranking.Repository, calendar *timeutil.Calendar, cache RankCache, log *logger.Logger) *RankHandler {
	return &RankHandler{
		rankings: rankings,
		calendar: calendar,
		cache:    cache,
		log:      log.With(logger.Component("rank")),
	}
}

// Handle executes the rank query.
func (h *RankHandler) Handle(ctx context.Context, q RankQuery) (*RankResult, error) {
	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	var day timeutil.DayKey
	if q.Window == shared.WindowToday {
		day = h.calendar.BusinessDay(asOf)
	}

	if h.cache != nil {
		if entries, ok, err := h.cache.Get(ctx, q.Scope, q.Window, day); err != nil {
			h.log.Warn("rank cache read failed", logger.Err(err))
		} else if ok {
			return &RankResult{Day: day, Entries: clip(entries, q.Limit)}, nil
		}
	}

	entries, err := h.rankings.Rank(ctx, q.Scope, q.Window, day, asOf)
	if err != nil {
		return nil, fmt.Errorf("rank: query failed: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, q.Scope, q.Window, day, entries); err != nil {
			h.log.Warn("rank cache write failed", logger.Err(err))
		}
	}
	return &RankResult{Day: day, Entries: clip(entries, q.Limit)}, nil
}

func clip(entries []ranking.Entry, limit int) []ranking.Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
