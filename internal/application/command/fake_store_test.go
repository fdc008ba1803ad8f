package command

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// fakeStore is an in-memory Store mirroring the transactional repository
// semantics: one big lock plays the role of the per-chat lock, and the
// dedup/replace rules match the SQL implementation.
type fakeStore struct {
	mu sync.Mutex

	nextID   session.ID
	sessions []*session.Session
	users    map[session.UserID]*session.User
	chats    map[session.ChatID]*session.Chat

	earliest map[earliestKey]*achievement.DailyEarliest
	streaks  map[streakKey]*achievement.Streak
	events   map[eventKey]struct{}
	stats    map[statKey]int
}

type earliestKey struct {
	chat session.ChatID
	day  timeutil.DayKey
}

type streakKey struct {
	chat session.ChatID
	user session.UserID
}

type eventKey struct {
	chat  session.ChatID
	user  session.UserID
	kind  achievement.Kind
	dedup string
}

type statKey struct {
	chat session.ChatID
	user session.UserID
	kind achievement.Kind
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[session.UserID]*session.User),
		chats:    make(map[session.ChatID]*session.Chat),
		earliest: make(map[earliestKey]*achievement.DailyEarliest),
		streaks:  make(map[streakKey]*achievement.Streak),
		events:   make(map[eventKey]struct{}),
		stats:    make(map[statKey]int),
	}
}

func (f *fakeStore) WithinChatTx(ctx context.Context, chatID session.ChatID, fn func(Repos) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(fakeRepos{f})
}

type fakeRepos struct{ s *fakeStore }

func (r fakeRepos) Sessions() session.Repository         { return (*fakeSessionRepo)(r.s) }
func (r fakeRepos) Achievements() achievement.Repository { return (*fakeAchievementRepo)(r.s) }

type fakeSessionRepo fakeStore

func (f *fakeSessionRepo) UpsertUser(_ context.Context, u *session.User) error {
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeSessionRepo) UpsertChat(_ context.Context, c *session.Chat) error {
	cp := *c
	f.chats[c.ID] = &cp
	return nil
}

func (f *fakeSessionRepo) GetUser(_ context.Context, userID session.UserID) (*session.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeSessionRepo) FindOpen(_ context.Context, chatID session.ChatID, userID session.UserID) (*session.Session, error) {
	for _, s := range f.sessions {
		if s.ChatID == chatID && s.UserID == userID && s.IsOpen() {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionRepo) FindLastClosed(_ context.Context, chatID session.ChatID, userID session.UserID) (*session.Session, error) {
	var last *session.Session
	for _, s := range f.sessions {
		if s.ChatID != chatID || s.UserID != userID || s.IsOpen() {
			continue
		}
		if last == nil || s.CheckOut.After(*last.CheckOut) {
			last = s
		}
	}
	return last, nil
}

func (f *fakeSessionRepo) CountForDay(_ context.Context, chatID session.ChatID, day timeutil.DayKey) (int, error) {
	n := 0
	for _, s := range f.sessions {
		if s.ChatID == chatID && s.Day == day {
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionRepo) Create(_ context.Context, s *session.Session) error {
	for _, existing := range f.sessions {
		if existing.ChatID == s.ChatID && existing.UserID == s.UserID && existing.IsOpen() {
			return shared.ErrAlreadyOpen
		}
	}
	f.nextID++
	s.ID = f.nextID
	f.sessions = append(f.sessions, s)
	return nil
}

func (f *fakeSessionRepo) SetCheckOut(_ context.Context, id session.ID, at time.Time) error {
	for _, s := range f.sessions {
		if s.ID == id {
			s.CheckOut = &at
			return nil
		}
	}
	return shared.ErrNotFound
}

type fakeAchievementRepo fakeStore

func (f *fakeAchievementRepo) GetDailyEarliest(_ context.Context, chatID session.ChatID, day timeutil.DayKey) (*achievement.DailyEarliest, error) {
	e, ok := f.earliest[earliestKey{chatID, day}]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeAchievementRepo) ReplaceDailyEarliest(_ context.Context, c *achievement.DailyEarliest) (bool, error) {
	key := earliestKey{c.ChatID, c.Day}
	cur, ok := f.earliest[key]
	if ok && !c.CheckIn.Before(cur.CheckIn) {
		return false, nil
	}
	cp := *c
	f.earliest[key] = &cp
	return true, nil
}

func (f *fakeAchievementRepo) GetStreak(_ context.Context, chatID session.ChatID, userID session.UserID) (*achievement.Streak, error) {
	s, ok := f.streaks[streakKey{chatID, userID}]
	if !ok {
		return &achievement.Streak{ChatID: chatID, UserID: userID}, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeAchievementRepo) SaveStreak(_ context.Context, s *achievement.Streak) error {
	cp := *s
	f.streaks[streakKey{s.ChatID, s.UserID}] = &cp
	return nil
}

func (f *fakeAchievementRepo) BestStreak(_ context.Context, userID session.UserID) (*achievement.Streak, error) {
	best := &achievement.Streak{UserID: userID}
	for key, s := range f.streaks {
		if key.user == userID && s.Current > best.Current {
			cp := *s
			best = &cp
		}
	}
	return best, nil
}

func (f *fakeAchievementRepo) Grant(_ context.Context, e *achievement.Event) (bool, error) {
	key := eventKey{e.ChatID, e.UserID, e.Kind, e.DedupKey}
	if _, ok := f.events[key]; ok {
		return false, nil
	}
	f.events[key] = struct{}{}
	f.stats[statKey{e.ChatID, e.UserID, e.Kind}]++
	return true, nil
}

func (f *fakeAchievementRepo) Stats(_ context.Context, scope shared.Scope, userID session.UserID) ([]achievement.StatCount, error) {
	totals := make(map[achievement.Kind]int)
	for key, count := range f.stats {
		if key.user != userID {
			continue
		}
		if !scope.IsGlobal() && key.chat != session.ChatID(scope.ChatID) {
			continue
		}
		totals[key.kind] += count
	}
	out := make([]achievement.StatCount, 0, len(totals))
	for kind, count := range totals {
		out = append(out, achievement.StatCount{Kind: kind, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (f *fakeAchievementRepo) RankByKind(_ context.Context, scope shared.Scope, kind achievement.Kind) ([]achievement.RankEntry, error) {
	totals := make(map[session.UserID]int)
	for key, count := range f.stats {
		if key.kind != kind {
			continue
		}
		if !scope.IsGlobal() && key.chat != session.ChatID(scope.ChatID) {
			continue
		}
		totals[key.user] += count
	}
	return rankEntries(totals), nil
}

func (f *fakeAchievementRepo) StreakStandings(_ context.Context, scope shared.Scope) ([]achievement.RankEntry, error) {
	best := make(map[session.UserID]int)
	for key, s := range f.streaks {
		if !scope.IsGlobal() && key.chat != session.ChatID(scope.ChatID) {
			continue
		}
		if s.Current > best[key.user] {
			best[key.user] = s.Current
		}
	}
	return rankEntries(best), nil
}

func rankEntries(totals map[session.UserID]int) []achievement.RankEntry {
	out := make([]achievement.RankEntry, 0, len(totals))
	for user, count := range totals {
		out = append(out, achievement.RankEntry{UserID: user, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
