package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements session.Repository for PostgreSQL. It runs
// against any Querier, so the same implementation serves both pool-backed
// queries and the write side's transactions.
type SessionRepository struct {
	q Querier
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(q Querier) *SessionRepository {
	return &SessionRepository{q: q}
}

// UpsertUser records the last-seen identity of a member.
func (r *SessionRepository) UpsertUser(ctx context.Context, u *session.User) error {
	query := `
		INSERT INTO users (id, username, first_name, last_name, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.Exec(ctx, query, int64(u.ID), u.Username, u.FirstName, u.LastName, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// UpsertChat records the last-seen identity of a chat.
func (r *SessionRepository) UpsertChat(ctx context.Context, c *session.Chat) error {
	query := `
		INSERT INTO chats (id, title, chat_type, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			chat_type = EXCLUDED.chat_type,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.Exec(ctx, query, int64(c.ID), c.Title, c.Type, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert chat: %w", err)
	}
	return nil
}

// GetUser returns a member's stored identity.
func (r *SessionRepository) GetUser(ctx context.Context, userID session.UserID) (*session.User, error) {
	query := `
		SELECT id, username, first_name, last_name, updated_at
		FROM users
		WHERE id = $1
	`

	var u session.User
	var id int64
	err := r.q.QueryRow(ctx, query, int64(userID)).Scan(&id, &u.Username, &u.FirstName, &u.LastName, &u.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("session", "GetUser", shared.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.ID = session.UserID(id)
	return &u, nil
}

// FindOpen returns the member's open session, or nil when none exists.
func (r *SessionRepository) FindOpen(ctx context.Context, chatID session.ChatID, userID session.UserID) (*session.Session, error) {
	query := sessionColumns + `
		WHERE chat_id = $1 AND user_id = $2 AND check_out IS NULL
	`

	s, err := r.scanOne(ctx, query, int64(chatID), int64(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to find open session: %w", err)
	}
	return s, nil
}

// FindLastClosed returns the most recently closed session, or nil.
func (r *SessionRepository) FindLastClosed(ctx context.Context, chatID session.ChatID, userID session.UserID) (*session.Session, error) {
	query := sessionColumns + `
		WHERE chat_id = $1 AND user_id = $2 AND check_out IS NOT NULL
		ORDER BY check_out DESC
		LIMIT 1
	`

	s, err := r.scanOne(ctx, query, int64(chatID), int64(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to find last closed session: %w", err)
	}
	return s, nil
}

// CountForDay returns how many sessions the chat opened on a business day.
func (r *SessionRepository) CountForDay(ctx context.Context, chatID session.ChatID, day timeutil.DayKey) (int, error) {
	query := `SELECT COUNT(*) FROM sessions WHERE chat_id = $1 AND day = $2`

	var n int
	if err := r.q.QueryRow(ctx, query, int64(chatID), string(day)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// Create persists an open session. The partial unique index on open
// sessions turns a racing duplicate into ErrAlreadyOpen.
func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	query := `
		INSERT INTO sessions (chat_id, user_id, day, seq, check_in)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.q.QueryRow(ctx, query,
		int64(s.ChatID), int64(s.UserID), string(s.Day), s.Seq, s.CheckIn,
	).Scan(&id)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyOpen
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	s.ID = session.ID(id)
	return nil
}

// SetCheckOut persists a session's check-out timestamp.
func (r *SessionRepository) SetCheckOut(ctx context.Context, id session.ID, at time.Time) error {
	query := `UPDATE sessions SET check_out = $2 WHERE id = $1 AND check_out IS NULL`

	tag, err := r.q.Exec(ctx, query, int64(id), at)
	if err != nil {
		return fmt.Errorf("failed to set check-out: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSessionClosed
	}
	return nil
}

const sessionColumns = `
	SELECT id, chat_id, user_id, day, seq, check_in, check_out
	FROM sessions
`

func (r *SessionRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*session.Session, error) {
	var (
		s       session.Session
		id      int64
		chatID  int64
		userID  int64
		day     string
		checkOut *time.Time
	)
	err := r.q.QueryRow(ctx, query, args...).Scan(&id, &chatID, &userID, &day, &s.Seq, &s.CheckIn, &checkOut)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	s.ID = session.ID(id)
	s.ChatID = session.ChatID(chatID)
	s.UserID = session.UserID(userID)
	s.Day = timeutil.DayKey(day)
	s.CheckOut = checkOut
	return &s, nil
}
