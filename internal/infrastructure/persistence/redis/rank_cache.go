package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/ranking"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANK CACHE
// ══════════════════════════════════════════════════════════════════════════════

// RankCache implements query.RankCache with short-lived JSON snapshots.
type RankCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewRankCache creates a new RankCache. A non-positive ttl falls back
// to TTLRank.
func NewRankCache(cache *Cache, ttl time.Duration) *RankCache {
	if ttl <= 0 {
		ttl = TTLRank
	}
	return &RankCache{cache: cache, ttl: ttl}
}

// cachedEntry is the wire form of a leaderboard row. Durations travel
// as integer seconds so the snapshot stays stable across versions.
type cachedEntry struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	TotalSecs   int64  `json:"total_secs"`
	FirstIn     int64  `json:"first_in"`
	Open        bool   `json:"open"`
}

// Get returns a cached snapshot; ok is false on a miss.
func (c *RankCache) Get(ctx context.Context, scope shared.Scope, window shared.Window, day timeutil.DayKey) ([]ranking.Entry, bool, error) {
	var cached []cachedEntry
	err := c.cache.Get(ctx, rankKey(scope, window, day), &cached)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}

	entries := make([]ranking.Entry, len(cached))
	for i, ce := range cached {
		entries[i] = ranking.Entry{
			UserID:       session.UserID(ce.UserID),
			DisplayName:  ce.DisplayName,
			Total:        time.Duration(ce.TotalSecs) * time.Second,
			FirstCheckIn: time.Unix(ce.FirstIn, 0).UTC(),
			Open:         ce.Open,
		}
	}
	return entries, true, nil
}

// Set stores a snapshot under the scope/window/day key.
func (c *RankCache) Set(ctx context.Context, scope shared.Scope, window shared.Window, day timeutil.DayKey, entries []ranking.Entry) error {
	cached := make([]cachedEntry, len(entries))
	for i, e := range entries {
		cached[i] = cachedEntry{
			UserID:      int64(e.UserID),
			DisplayName: e.DisplayName,
			TotalSecs:   int64(e.Total / time.Second),
			FirstIn:     e.FirstCheckIn.Unix(),
			Open:        e.Open,
		}
	}
	return c.cache.Set(ctx, rankKey(scope, window, day), cached, c.ttl)
}

func rankKey(scope shared.Scope, window shared.Window, day timeutil.DayKey) string {
	target := "global"
	if !scope.IsGlobal() {
		target = fmt.Sprintf("chat:%d", scope.ChatID)
	}
	return fmt.Sprintf("%s%s:%s:%s", PrefixRank, target, window, day)
}
