package query

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/ranking"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/logger"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

type stubSessionRepo struct {
	session.Repository
	open *session.Session
	last *session.Session
}

func (s *stubSessionRepo) FindOpen(context.Context, session.ChatID, session.UserID) (*session.Session, error) {
	return s.open, nil
}

func (s *stubSessionRepo) FindLastClosed(context.Context, session.ChatID, session.UserID) (*session.Session, error) {
	return s.last, nil
}

func TestAwakeDurationOpenSession(t *testing.T) {
	in := time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)
	repo := &stubSessionRepo{open: &session.Session{ChatID: 1, UserID: 10, Day: "2024-05-06", CheckIn: in}}
	h := NewAwakeDurationHandler(repo)

	res, err := h.Handle(context.Background(), AwakeDurationQuery{ChatID: 1, UserID: 10, AsOf: in.Add(3 * time.Hour)})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.True(t, res.Open)
	assert.Equal(t, 3*time.Hour, res.Duration)
	assert.Equal(t, in, res.CheckIn)
}

func TestAwakeDurationFallsBackToLastClosed(t *testing.T) {
	in := time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)
	out := in.Add(9 * time.Hour)
	repo := &stubSessionRepo{last: &session.Session{ChatID: 1, UserID: 10, Day: "2024-05-06", CheckIn: in, CheckOut: &out}}
	h := NewAwakeDurationHandler(repo)

	res, err := h.Handle(context.Background(), AwakeDurationQuery{ChatID: 1, UserID: 10, AsOf: out.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.False(t, res.Open)
	assert.Equal(t, 9*time.Hour, res.Duration)
}

func TestAwakeDurationNoHistory(t *testing.T) {
	h := NewAwakeDurationHandler(&stubSessionRepo{})

	res, err := h.Handle(context.Background(), AwakeDurationQuery{ChatID: 1, UserID: 10})
	require.NoError(t, err)
	assert.False(t, res.Found)
}

type stubRankingRepo struct {
	entries []ranking.Entry
	err     error
	calls   int
	gotDay  timeutil.DayKey
}

func (s *stubRankingRepo) Rank(_ context.Context, _ shared.Scope, _ shared.Window, day timeutil.DayKey, _ time.Time) ([]ranking.Entry, error) {
	s.calls++
	s.gotDay = day
	return s.entries, s.err
}

type memoryRankCache struct {
	entries []ranking.Entry
	ok      bool
	getErr  error
	sets    int
}

func (c *memoryRankCache) Get(context.Context, shared.Scope, shared.Window, timeutil.DayKey) ([]ranking.Entry, bool, error) {
	return c.entries, c.ok, c.getErr
}

func (c *memoryRankCache) Set(_ context.Context, _ shared.Scope, _ shared.Window, _ timeutil.DayKey, entries []ranking.Entry) error {
	c.entries = entries
	c.ok = true
	c.sets++
	return nil
}

func testCalendar(t *testing.T) *timeutil.Calendar {
	t.Helper()
	cal, err := timeutil.NewCalendar("Asia/Shanghai")
	require.NoError(t, err)
	return cal
}

func TestRankTodayUsesBusinessDay(t *testing.T) {
	repo := &stubRankingRepo{entries: []ranking.Entry{{UserID: 10, Total: time.Hour}}}
	h := NewRankHandler(repo, testCalendar(t), nil, testLogger())

	// 19:30 UTC on May 6 is 03:30 Shanghai on May 7, before the cutoff
	asOf := time.Date(2024, 5, 6, 19, 30, 0, 0, time.UTC)
	res, err := h.Handle(context.Background(), RankQuery{Scope: shared.ChatScope(1), Window: shared.WindowToday, AsOf: asOf})
	require.NoError(t, err)
	assert.Equal(t, timeutil.DayKey("2024-05-06"), res.Day)
	assert.Equal(t, timeutil.DayKey("2024-05-06"), repo.gotDay)
	assert.Len(t, res.Entries, 1)
}

func TestRankAllTimeHasNoDay(t *testing.T) {
	repo := &stubRankingRepo{}
	h := NewRankHandler(repo, testCalendar(t), nil, testLogger())

	res, err := h.Handle(context.Background(), RankQuery{Scope: shared.GlobalScope(), Window: shared.WindowAllTime, AsOf: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, timeutil.DayKey(""), res.Day)
	assert.Equal(t, timeutil.DayKey(""), repo.gotDay)
}

func TestRankCacheHitSkipsRepository(t *testing.T) {
	repo := &stubRankingRepo{}
	cache := &memoryRankCache{entries: []ranking.Entry{{UserID: 10}}, ok: true}
	h := NewRankHandler(repo, testCalendar(t), cache, testLogger())

	res, err := h.Handle(context.Background(), RankQuery{Scope: shared.ChatScope(1), Window: shared.WindowToday, AsOf: time.Now()})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 1)
	assert.Equal(t, 0, repo.calls)
}

func TestRankCacheMissPopulatesCache(t *testing.T) {
	repo := &stubRankingRepo{entries: []ranking.Entry{{UserID: 10}, {UserID: 11}}}
	cache := &memoryRankCache{}
	h := NewRankHandler(repo, testCalendar(t), cache, testLogger())

	_, err := h.Handle(context.Background(), RankQuery{Scope: shared.ChatScope(1), Window: shared.WindowToday, AsOf: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestRankCacheFailureFallsThrough(t *testing.T) {
	repo := &stubRankingRepo{entries: []ranking.Entry{{UserID: 10}}}
	cache := &memoryRankCache{getErr: errors.New("redis down")}
	h := NewRankHandler(repo, testCalendar(t), cache, testLogger())

	res, err := h.Handle(context.Background(), RankQuery{Scope: shared.ChatScope(1), Window: shared.WindowToday, AsOf: time.Now()})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 1)
	assert.Equal(t, 1, repo.calls)
}

func TestRankLimit(t *testing.T) {
	repo := &stubRankingRepo{entries: []ranking.Entry{{UserID: 10}, {UserID: 11}, {UserID: 12}}}
	h := NewRankHandler(repo, testCalendar(t), nil, testLogger())

	res, err := h.Handle(context.Background(), RankQuery{Scope: shared.ChatScope(1), Window: shared.WindowAllTime, AsOf: time.Now(), Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
}

type stubAchievementRepo struct {
	achievement.Repository
	stats   []achievement.StatCount
	streak  *achievement.Streak
	best    *achievement.Streak
	entries []achievement.RankEntry
}

func (s *stubAchievementRepo) Stats(context.Context, shared.Scope, session.UserID) ([]achievement.StatCount, error) {
	return s.stats, nil
}

func (s *stubAchievementRepo) GetStreak(context.Context, session.ChatID, session.UserID) (*achievement.Streak, error) {
	return s.streak, nil
}

func (s *stubAchievementRepo) BestStreak(context.Context, session.UserID) (*achievement.Streak, error) {
	return s.best, nil
}

func (s *stubAchievementRepo) RankByKind(context.Context, shared.Scope, achievement.Kind) ([]achievement.RankEntry, error) {
	return s.entries, nil
}

func (s *stubAchievementRepo) StreakStandings(context.Context, shared.Scope) ([]achievement.RankEntry, error) {
	return s.entries, nil
}

func TestAchievementsFillsAllKinds(t *testing.T) {
	repo := &stubAchievementRepo{
		stats:  []achievement.StatCount{{Kind: achievement.KindEarliestOfDay, Count: 3}},
		streak: &achievement.Streak{ChatID: 1, UserID: 10, Current: 2, Longest: 5},
	}
	h := NewAchievementsHandler(repo)

	res, err := h.Handle(context.Background(), AchievementsQuery{Scope: shared.ChatScope(1), UserID: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Counts[achievement.KindEarliestOfDay])
	assert.Equal(t, 0, res.Counts[achievement.KindOnTime8h])
	assert.Equal(t, 0, res.Counts[achievement.KindStreak7])
	assert.Equal(t, 0, res.Counts[achievement.KindLongDay12h])
	assert.Equal(t, 2, res.Streak.Current)
}

func TestAchievementsGlobalScopeUsesBestStreak(t *testing.T) {
	repo := &stubAchievementRepo{
		best: &achievement.Streak{UserID: 10, Current: 9, Longest: 9},
	}
	h := NewAchievementsHandler(repo)

	res, err := h.Handle(context.Background(), AchievementsQuery{Scope: shared.GlobalScope(), UserID: 10})
	require.NoError(t, err)
	assert.Equal(t, 9, res.Streak.Current)
}

func TestAchievementRankRejectsUnknownKind(t *testing.T) {
	h := NewAchievementRankHandler(&stubAchievementRepo{})

	_, err := h.Handle(context.Background(), AchievementRankQuery{Scope: shared.ChatScope(1), Kind: "nope"})
	assert.ErrorIs(t, err, shared.ErrUnknownKind)
}

func TestAchievementRankLimit(t *testing.T) {
	repo := &stubAchievementRepo{entries: []achievement.RankEntry{{UserID: 10, Count: 5}, {UserID: 11, Count: 2}}}
	h := NewAchievementRankHandler(repo)

	entries, err := h.Handle(context.Background(), AchievementRankQuery{Scope: shared.ChatScope(1), Kind: achievement.KindEarliestOfDay, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, session.UserID(10), entries[0].UserID)
}

func TestStreakRank(t *testing.T) {
	repo := &stubAchievementRepo{entries: []achievement.RankEntry{{UserID: 10, Count: 9}}}
	h := NewStreakRankHandler(repo)

	entries, err := h.Handle(context.Background(), StreakRankQuery{Scope: shared.GlobalScope()})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
