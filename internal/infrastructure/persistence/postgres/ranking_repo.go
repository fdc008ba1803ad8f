package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/ranking"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RankingRepository implements ranking.Repository for PostgreSQL.
type RankingRepository struct {
	q Querier
}

// NewRankingRepository creates a new RankingRepository.
func NewRankingRepository(q Querier) *RankingRepository {
	return &RankingRepository{q: q}
}

// Rank computes standings in SQL. Open sessions are bounded by asOf so
// the leaderboard never credits time that has not passed yet; ordering
// is fully deterministic (total desc, first check-in asc, user id asc).
func (r *RankingRepository) Rank(ctx context.Context, scope shared.Scope, window shared.Window, day timeutil.DayKey, asOf time.Time) ([]ranking.Entry, error) {
	query := `
		SELECT
			s.user_id,
			` + displayNameExpr + `,
			SUM(EXTRACT(EPOCH FROM (GREATEST(COALESCE(s.check_out, $1), s.check_in) - s.check_in)))::BIGINT AS total_secs,
			MIN(s.check_in) AS first_in,
			BOOL_OR(s.check_out IS NULL) AS open
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE ($2 OR s.chat_id = $3)
		  AND ($4 OR s.day = $5)
		GROUP BY s.user_id, u.username, u.first_name, u.last_name
		ORDER BY total_secs DESC, first_in ASC, s.user_id ASC
	`

	allTime := window == shared.WindowAllTime
	rows, err := r.q.Query(ctx, query, asOf, scope.IsGlobal(), scope.ChatID, allTime, string(day))
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	var out []ranking.Entry
	for rows.Next() {
		var (
			e      ranking.Entry
			userID int64
			secs   int64
		)
		if err := rows.Scan(&userID, &e.DisplayName, &secs, &e.FirstCheckIn, &e.Open); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		e.UserID = session.UserID(userID)
		e.Total = time.Duration(secs) * time.Second
		out = append(out, e)
	}
	return out, rows.Err()
}
