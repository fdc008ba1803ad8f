package postgres

import (
	"context"
	"fmt"

	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	q Querier
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(q Querier) *AchievementRepository {
	return &AchievementRepository{q: q}
}

// GetDailyEarliest returns the day's current holder, or nil.
func (r *AchievementRepository) GetDailyEarliest(ctx context.Context, chatID session.ChatID, day timeutil.DayKey) (*achievement.DailyEarliest, error) {
	query := `
		SELECT chat_id, day, user_id, check_in
		FROM daily_earliest
		WHERE chat_id = $1 AND day = $2
	`

	var (
		e      achievement.DailyEarliest
		chat   int64
		d      string
		userID int64
	)
	err := r.q.QueryRow(ctx, query, int64(chatID), string(day)).Scan(&chat, &d, &userID, &e.CheckIn)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily earliest: %w", err)
	}
	e.ChatID = session.ChatID(chat)
	e.Day = timeutil.DayKey(d)
	e.UserID = session.UserID(userID)
	return &e, nil
}

// ReplaceDailyEarliest installs the candidate when the slot is free or
// the candidate's check-in is strictly earlier. The conditional update
// decides at write time, so two racing replacements cannot both win.
func (r *AchievementRepository) ReplaceDailyEarliest(ctx context.Context, c *achievement.DailyEarliest) (bool, error) {
	query := `
		INSERT INTO daily_earliest (chat_id, day, user_id, check_in)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, day) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			check_in = EXCLUDED.check_in
		WHERE EXCLUDED.check_in < daily_earliest.check_in
	`

	tag, err := r.q.Exec(ctx, query, int64(c.ChatID), string(c.Day), int64(c.UserID), c.CheckIn)
	if err != nil {
		return false, fmt.Errorf("failed to replace daily earliest: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetStreak returns the member's streak row, zero-valued when absent.
func (r *AchievementRepository) GetStreak(ctx context.Context, chatID session.ChatID, userID session.UserID) (*achievement.Streak, error) {
	query := `
		SELECT current, longest, last_day
		FROM streaks
		WHERE chat_id = $1 AND user_id = $2
	`

	s := &achievement.Streak{ChatID: chatID, UserID: userID}
	var lastDay string
	err := r.q.QueryRow(ctx, query, int64(chatID), int64(userID)).Scan(&s.Current, &s.Longest, &lastDay)
	if err != nil {
		if IsNoRows(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	s.LastDay = timeutil.DayKey(lastDay)
	return s, nil
}

// SaveStreak upserts a streak row.
func (r *AchievementRepository) SaveStreak(ctx context.Context, s *achievement.Streak) error {
	query := `
		INSERT INTO streaks (chat_id, user_id, current, longest, last_day)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id, user_id) DO UPDATE SET
			current = EXCLUDED.current,
			longest = EXCLUDED.longest,
			last_day = EXCLUDED.last_day
	`

	_, err := r.q.Exec(ctx, query, int64(s.ChatID), int64(s.UserID), s.Current, s.Longest, string(s.LastDay))
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}

// BestStreak returns the member's strongest current run across chats.
func (r *AchievementRepository) BestStreak(ctx context.Context, userID session.UserID) (*achievement.Streak, error) {
	query := `
		SELECT chat_id, current, longest, last_day
		FROM streaks
		WHERE user_id = $1
		ORDER BY current DESC, longest DESC
		LIMIT 1
	`

	s := &achievement.Streak{UserID: userID}
	var chatID int64
	var lastDay string
	err := r.q.QueryRow(ctx, query, int64(userID)).Scan(&chatID, &s.Current, &s.Longest, &lastDay)
	if err != nil {
		if IsNoRows(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to get best streak: %w", err)
	}
	s.ChatID = session.ChatID(chatID)
	s.LastDay = timeutil.DayKey(lastDay)
	return s, nil
}

// Grant appends the event and bumps the stat counter. The dedup index
// makes a repeated grant insert nothing, in which case the counter is
// left untouched and granted is false.
func (r *AchievementRepository) Grant(ctx context.Context, e *achievement.Event) (bool, error) {
	insertEvent := `
		INSERT INTO achievement_events (id, chat_id, user_id, kind, day, granted_at, dedup_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chat_id, user_id, kind, dedup_key) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, insertEvent,
		e.ID, int64(e.ChatID), int64(e.UserID), string(e.Kind), string(e.Day), e.GrantedAt, e.DedupKey,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert achievement event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	bumpStat := `
		INSERT INTO achievement_stats (chat_id, user_id, kind, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (chat_id, user_id, kind) DO UPDATE SET
			count = achievement_stats.count + 1
	`

	if _, err := r.q.Exec(ctx, bumpStat, int64(e.ChatID), int64(e.UserID), string(e.Kind)); err != nil {
		return false, fmt.Errorf("failed to bump achievement stat: %w", err)
	}
	return true, nil
}

// Stats returns counts by kind. Global scope sums per-chat counters.
func (r *AchievementRepository) Stats(ctx context.Context, scope shared.Scope, userID session.UserID) ([]achievement.StatCount, error) {
	query := `
		SELECT kind, SUM(count)::INTEGER
		FROM achievement_stats
		WHERE user_id = $1 AND ($2 OR chat_id = $3)
		GROUP BY kind
		ORDER BY kind
	`

	rows, err := r.q.Query(ctx, query, int64(userID), scope.IsGlobal(), scope.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var out []achievement.StatCount
	for rows.Next() {
		var sc achievement.StatCount
		var kind string
		if err := rows.Scan(&kind, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan stat row: %w", err)
		}
		sc.Kind = achievement.Kind(kind)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// RankByKind returns one kind's standings, count descending.
func (r *AchievementRepository) RankByKind(ctx context.Context, scope shared.Scope, kind achievement.Kind) ([]achievement.RankEntry, error) {
	query := `
		SELECT s.user_id, ` + displayNameExpr + `, SUM(s.count)::INTEGER AS total
		FROM achievement_stats s
		JOIN users u ON u.id = s.user_id
		WHERE s.kind = $1 AND ($2 OR s.chat_id = $3)
		GROUP BY s.user_id, u.username, u.first_name, u.last_name
		ORDER BY total DESC, s.user_id ASC
	`

	return r.queryRankEntries(ctx, query, string(kind), scope.IsGlobal(), scope.ChatID)
}

// StreakStandings returns current streaks, longest run first.
func (r *AchievementRepository) StreakStandings(ctx context.Context, scope shared.Scope) ([]achievement.RankEntry, error) {
	query := `
		SELECT s.user_id, ` + displayNameExpr + `, MAX(s.current)::INTEGER AS best
		FROM streaks s
		JOIN users u ON u.id = s.user_id
		WHERE ($1 OR s.chat_id = $2)
		GROUP BY s.user_id, u.username, u.first_name, u.last_name
		HAVING MAX(s.current) > 0
		ORDER BY best DESC, s.user_id ASC
	`

	return r.queryRankEntries(ctx, query, scope.IsGlobal(), scope.ChatID)
}

func (r *AchievementRepository) queryRankEntries(ctx context.Context, query string, args ...interface{}) ([]achievement.RankEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rank entries: %w", err)
	}
	defer rows.Close()

	var out []achievement.RankEntry
	for rows.Next() {
		var e achievement.RankEntry
		var userID int64
		if err := rows.Scan(&userID, &e.DisplayName, &e.Count); err != nil {
			return nil, fmt.Errorf("failed to scan rank entry: %w", err)
		}
		e.UserID = session.UserID(userID)
		out = append(out, e)
	}
	return out, rows.Err()
}

// displayNameExpr renders a member's display name in SQL the same way
// session.User.DisplayName does in Go.
const displayNameExpr = `
	CASE
		WHEN u.username <> '' THEN '@' || u.username
		WHEN TRIM(u.first_name || ' ' || u.last_name) <> '' THEN TRIM(u.first_name || ' ' || u.last_name)
		ELSE u.id::TEXT
	END
`
