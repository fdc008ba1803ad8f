package command

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/logger"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

func testCalendar(t *testing.T) *timeutil.Calendar {
	t.Helper()
	cal, err := timeutil.NewCalendar("Asia/Shanghai")
	require.NoError(t, err)
	return cal
}

// shanghai builds an instant in the bot's configured zone.
func shanghai(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, loc)
	require.NoError(t, err)
	return ts
}

func checkIn(chat session.ChatID, user session.UserID, at time.Time) CheckInCommand {
	return CheckInCommand{ChatID: chat, UserID: user, Username: "u", At: at}
}

func TestCheckInOpensSession(t *testing.T) {
	store := newFakeStore()
	h := NewCheckInHandler(store, testCalendar(t), testLogger())

	res, err := h.Handle(context.Background(), checkIn(1, 10, shanghai(t, "2024-05-06 07:30:00")))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Seq)
	assert.Equal(t, timeutil.DayKey("2024-05-06"), res.Session.Day)
	assert.True(t, res.Session.IsOpen())
	assert.True(t, res.BecameEarliest)
	assert.Equal(t, 1, res.Streak)
}

func TestCheckInBeforeCutoffBelongsToPreviousDay(t *testing.T) {
	store := newFakeStore()
	h := NewCheckInHandler(store, testCalendar(t), testLogger())

	res, err := h.Handle(context.Background(), checkIn(1, 10, shanghai(t, "2024-05-07 03:30:00")))
	require.NoError(t, err)
	assert.Equal(t, timeutil.DayKey("2024-05-06"), res.Session.Day)

	store2 := newFakeStore()
	h2 := NewCheckInHandler(store2, testCalendar(t), testLogger())
	res2, err := h2.Handle(context.Background(), checkIn(1, 10, shanghai(t, "2024-05-07 04:01:00")))
	require.NoError(t, err)
	assert.Equal(t, timeutil.DayKey("2024-05-07"), res2.Session.Day)
}

func TestCheckInDuplicateRejected(t *testing.T) {
	store := newFakeStore()
	h := NewCheckInHandler(store, testCalendar(t), testLogger())
	ctx := context.Background()

	_, err := h.Handle(ctx, checkIn(1, 10, shanghai(t, "2024-05-06 07:00:00")))
	require.NoError(t, err)

	_, err = h.Handle(ctx, checkIn(1, 10, shanghai(t, "2024-05-06 07:05:00")))
	assert.ErrorIs(t, err, shared.ErrAlreadyOpen)

	// one open session, duplicate left no trace
	n, err := (*fakeSessionRepo)(store).CountForDay(ctx, 1, "2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCheckInSequenceNumbers(t *testing.T) {
	store := newFakeStore()
	h := NewCheckInHandler(store, testCalendar(t), testLogger())
	ctx := context.Background()

	for i, user := range []session.UserID{10, 11, 12} {
		at := shanghai(t, "2024-05-06 07:00:00").Add(time.Duration(i) * time.Minute)
		res, err := h.Handle(ctx, checkIn(1, user, at))
		require.NoError(t, err)
		assert.Equal(t, i+1, res.Seq)
	}

	// another chat counts from one
	res, err := h.Handle(ctx, checkIn(2, 10, shanghai(t, "2024-05-06 08:00:00")))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Seq)
}

func TestCheckInEarliestReplacement(t *testing.T) {
	store := newFakeStore()
	h := NewCheckInHandler(store, testCalendar(t), testLogger())
	ctx := context.Background()

	res, err := h.Handle(ctx, checkIn(1, 10, shanghai(t, "2024-05-06 07:00:00")))
	require.NoError(t, err)
	assert.True(t, res.BecameEarliest)

	// a later message stamped earlier takes the slot
	res, err = h.Handle(ctx, checkIn(1, 11, shanghai(t, "2024-05-06 06:30:00")))
	require.NoError(t, err)
	assert.True(t, res.BecameEarliest)

	// the displaced holder's run was rolled back
	streak, err := (*fakeAchievementRepo)(store).GetStreak(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, streak.Current)

	// a later check-in never replaces
	res, err = h.Handle(ctx, checkIn(1, 12, shanghai(t, "2024-05-06 06:45:00")))
	require.NoError(t, err)
	assert.False(t, res.BecameEarliest)
}

func TestCheckInDisplacedHolderKeepsEvent(t *testing.T) {
	store := newFakeStore()
	h := NewCheckInHandler(store, testCalendar(t), testLogger())
	ctx := context.Background()

	_, err := h.Handle(ctx, checkIn(1, 10, shanghai(t, "2024-05-06 07:00:00")))
	require.NoError(t, err)
	_, err = h.Handle(ctx, checkIn(1, 11, shanghai(t, "2024-05-06 06:30:00")))
	require.NoError(t, err)

	stats, err := (*fakeAchievementRepo)(store).Stats(ctx, shared.ChatScope(1), 10)
	require.NoError(t, err)
	assert.Equal(t, []achievement.StatCount{{Kind: achievement.KindEarliestOfDay, Count: 1}}, stats)
}

func TestCheckInStreakMilestoneAtSeven(t *testing.T) {
	store := newFakeStore()
	h := NewCheckInHandler(store, testCalendar(t), testLogger())
	ctx := context.Background()
	outH := NewCheckOutHandler(store, testLogger())

	day := shanghai(t, "2024-05-01 06:00:00")
	for i := 0; i < 7; i++ {
		res, err := h.Handle(ctx, checkIn(1, 10, day))
		require.NoError(t, err)
		assert.Equal(t, i+1, res.Streak)
		assert.Equal(t, i == 6, res.StreakMilestone, "day %d", i+1)

		_, err = outH.Handle(ctx, CheckOutCommand{ChatID: 1, UserID: 10, Username: "u", At: day.Add(10 * time.Hour)})
		require.NoError(t, err)
		day = day.AddDate(0, 0, 1)
	}

	stats, err := (*fakeAchievementRepo)(store).Stats(ctx, shared.ChatScope(1), 10)
	require.NoError(t, err)
	counts := map[achievement.Kind]int{}
	for _, s := range stats {
		counts[s.Kind] = s.Count
	}
	assert.Equal(t, 7, counts[achievement.KindEarliestOfDay])
	assert.Equal(t, 1, counts[achievement.KindStreak7])
}

func TestCheckInStreakResetsAfterMiss(t *testing.T) {
	store := newFakeStore()
	h := NewCheckInHandler(store, testCalendar(t), testLogger())
	outH := NewCheckOutHandler(store, testLogger())
	ctx := context.Background()

	day := shanghai(t, "2024-05-01 06:00:00")
	for i := 0; i < 6; i++ {
		_, err := h.Handle(ctx, checkIn(1, 10, day))
		require.NoError(t, err)
		_, err = outH.Handle(ctx, CheckOutCommand{ChatID: 1, UserID: 10, Username: "u", At: day.Add(9 * time.Hour)})
		require.NoError(t, err)
		day = day.AddDate(0, 0, 1)
	}

	// skip 2024-05-07 entirely
	day = day.AddDate(0, 0, 1)
	res, err := h.Handle(ctx, checkIn(1, 10, day))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.False(t, res.StreakMilestone)
}

func TestCheckInValidation(t *testing.T) {
	h := NewCheckInHandler(newFakeStore(), testCalendar(t), testLogger())

	_, err := h.Handle(context.Background(), CheckInCommand{UserID: 10, At: time.Now()})
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), CheckInCommand{ChatID: 1, At: time.Now()})
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), CheckInCommand{ChatID: 1, UserID: 10})
	assert.Error(t, err)
}
