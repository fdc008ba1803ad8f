// Package achievement holds the achievement rules: who was the earliest
// riser of a business day, consecutive-day streaks, and the per-session
// check-out awards. Rules are evaluated here; durable counters live in
// the infrastructure layer.
package achievement

import (
	"time"

	"github.com/google/uuid"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// Kind identifies an achievement type.
type Kind string

const (
	// KindEarliestOfDay is granted to the holder of a business day's
	// earliest check-in, at most once per member per day.
	KindEarliestOfDay Kind = "earliest_of_day"

	// KindStreak7 is granted each time a member's consecutive
	// earliest-of-day streak reaches a positive multiple of seven.
	KindStreak7 Kind = "streak_7"

	// KindOnTime8h is granted on check-out when the awake duration is
	// within one minute of eight hours, inclusive.
	KindOnTime8h Kind = "ontime_8h"

	// KindLongDay12h is granted on check-out when the awake duration
	// strictly exceeds twelve hours.
	KindLongDay12h Kind = "long_day_12h"
)

// Kinds lists every achievement in display order.
var Kinds = []Kind{KindEarliestOfDay, KindStreak7, KindOnTime8h, KindLongDay12h}

// Valid reports whether k names a known achievement.
func (k Kind) Valid() bool {
	switch k {
	case KindEarliestOfDay, KindStreak7, KindOnTime8h, KindLongDay12h:
		return true
	}
	return false
}

const (
	onTimeTarget    = 8 * time.Hour
	onTimeTolerance = time.Minute
	longDayFloor    = 12 * time.Hour

	// StreakMilestone is the streak length granting KindStreak7.
	StreakMilestone = 7
)

// CheckOutKinds evaluates the check-out awards for an awake duration.
// The two awards are independent; tolerance bounds are inclusive and the
// long-day floor is exclusive.
func CheckOutKinds(d time.Duration) []Kind {
	var kinds []Kind
	diff := d - onTimeTarget
	if diff < 0 {
		diff = -diff
	}
	if diff <= onTimeTolerance {
		kinds = append(kinds, KindOnTime8h)
	}
	if d > longDayFloor {
		kinds = append(kinds, KindLongDay12h)
	}
	return kinds
}

// IsStreakMilestone reports whether a streak length grants KindStreak7.
func IsStreakMilestone(n int) bool {
	return n > 0 && n%StreakMilestone == 0
}

// Event is one immutable grant of an achievement.
type Event struct {
	ID        uuid.UUID
	ChatID    session.ChatID
	UserID    session.UserID
	Kind      Kind
	Day       timeutil.DayKey
	GrantedAt time.Time

	// DedupKey makes accidental double grants impossible: the business
	// day for day-scoped kinds, the session id for session-scoped ones.
	DedupKey string
}

// NewEvent creates a grant with a fresh event id.
func NewEvent(chatID session.ChatID, userID session.UserID, kind Kind, day timeutil.DayKey, dedupKey string, at time.Time) *Event {
	return &Event{
		ID:        uuid.New(),
		ChatID:    chatID,
		UserID:    userID,
		Kind:      kind,
		Day:       day,
		GrantedAt: at.UTC(),
		DedupKey:  dedupKey,
	}
}

// Stat is the durable per-(chat, user, kind) counter. It is incremented
// in the same transaction that records the grant event and is never
// recomputed from event history.
type Stat struct {
	ChatID session.ChatID
	UserID session.UserID
	Kind   Kind
	Count  int
}

// DailyEarliest tracks the current earliest check-in holder of a
// business day in a chat. A later check-in with a strictly earlier
// timestamp replaces the holder.
type DailyEarliest struct {
	ChatID  session.ChatID
	Day     timeutil.DayKey
	UserID  session.UserID
	CheckIn time.Time
}

// Streak is a member's consecutive earliest-of-day run in a chat.
type Streak struct {
	ChatID  session.ChatID
	UserID  session.UserID
	Current int
	Longest int
	LastDay timeutil.DayKey
}

// Advance records an earliest-of-day win for the given business day and
// reports whether the new length hits a streak milestone. Winning the
// same day twice is a no-op; a gap since the last win resets the run.
func (s *Streak) Advance(day timeutil.DayKey) (milestone bool) {
	switch s.LastDay {
	case day:
		return false
	case day.Prev():
		s.Current++
	default:
		s.Current = 1
	}
	s.LastDay = day
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	return IsStreakMilestone(s.Current)
}

// Retract undoes a win for the given business day after the member was
// displaced as the day's earliest. The longest run is left as is.
func (s *Streak) Retract(day timeutil.DayKey) {
	if s.LastDay != day {
		return
	}
	s.Current--
	if s.Current < 0 {
		s.Current = 0
	}
	s.LastDay = day.Prev()
}
