package achievement

import (
	"context"

	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// StatCount is one (kind, count) pair of a member's achievement tally.
type StatCount struct {
	Kind  Kind
	Count int
}

// Repository defines persistence for achievement state: the per-day
// earliest holder, streak runs, the immutable event log and the
// denormalized stat counters.
type Repository interface {
	// GetDailyEarliest returns the current earliest holder for the day,
	// or nil when the day has no check-ins yet.
	GetDailyEarliest(ctx context.Context, chatID session.ChatID, day timeutil.DayKey) (*DailyEarliest, error)

	// ReplaceDailyEarliest installs the candidate as the day's holder if
	// the day is unclaimed or the candidate's check-in is strictly
	// earlier than the recorded one. The comparison happens atomically
	// at write time; won reports whether the candidate is now the holder.
	ReplaceDailyEarliest(ctx context.Context, candidate *DailyEarliest) (won bool, err error)

	// GetStreak returns the member's streak, or a zero-valued streak
	// when the member has never won a day.
	GetStreak(ctx context.Context, chatID session.ChatID, userID session.UserID) (*Streak, error)

	// SaveStreak upserts a streak row.
	SaveStreak(ctx context.Context, s *Streak) error

	// BestStreak returns the member's streak with the highest current
	// run across all chats, or a zero-valued streak when none exists.
	BestStreak(ctx context.Context, userID session.UserID) (*Streak, error)

	// Grant appends an event and, in the same statement batch, bumps
	// the matching stat counter. A duplicate dedup key makes the whole
	// grant a no-op with granted=false; the counter is not bumped.
	Grant(ctx context.Context, e *Event) (granted bool, err error)

	// Stats returns the member's counts by kind within the scope.
	// Global scope sums the per-chat counters.
	Stats(ctx context.Context, scope shared.Scope, userID session.UserID) ([]StatCount, error)

	// RankByKind returns the scope's standings for one kind, count
	// descending, ties by user id ascending.
	RankByKind(ctx context.Context, scope shared.Scope, kind Kind) ([]RankEntry, error)

	// StreakStandings returns current streak lengths in the scope,
	// descending, ties by user id. Global scope reports each member's
	// best current streak across chats.
	StreakStandings(ctx context.Context, scope shared.Scope) ([]RankEntry, error)
}

// RankEntry is one row of an achievement or streak leaderboard.
type RankEntry struct {
	UserID      session.UserID
	DisplayName string
	Count       int
}
