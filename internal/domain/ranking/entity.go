// Package ranking defines the awake-time leaderboard read model.
package ranking

import (
	"context"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// Entry is one leaderboard row. Total is the summed awake duration in
// the window; open sessions contribute up to the query's asOf instant.
type Entry struct {
	UserID      session.UserID
	DisplayName string
	Total       time.Duration

	// FirstCheckIn is the earliest check-in inside the window and the
	// tie-break key for equal totals.
	FirstCheckIn time.Time

	// Open marks members with a session still running.
	Open bool
}

// Repository computes leaderboard standings. Ordering is total
// descending, then earlier first check-in, then user id, so equal
// inputs always render identically.
type Repository interface {
	// Rank returns the standings for the scope and window. For
	// WindowToday only sessions attributed to day are counted; for
	// WindowAllTime day is ignored.
	Rank(ctx context.Context, scope shared.Scope, window shared.Window, day timeutil.DayKey, asOf time.Time) ([]Entry, error)
}
