package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ionlz/telegram-zao-bot/internal/application/command"
	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTIONAL STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store implements command.Store on top of a Connection. Each call runs
// fn in one transaction whose repositories all share the transaction's
// connection.
type Store struct {
	conn *Connection
}

// NewStore creates a new Store.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// WithinChatTx runs fn in a transaction holding pg_advisory_xact_lock on
// the chat id. The lock serializes all writes to one chat, which keeps
// sequence assignment and earliest-of-day replacement race-free; it is
// released automatically at commit or rollback.
func (s *Store) WithinChatTx(ctx context.Context, chatID session.ChatID, fn func(command.Repos) error) error {
	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", int64(chatID)); err != nil {
			return fmt.Errorf("failed to take chat lock: %w", err)
		}
		return fn(txRepos{tx: tx})
	})
	if err != nil {
		// domain rejections pass through untouched; everything else is
		// a store failure
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

type txRepos struct {
	tx pgx.Tx
}

func (r txRepos) Sessions() session.Repository {
	return NewSessionRepository(r.tx)
}

func (r txRepos) Achievements() achievement.Repository {
	return NewAchievementRepository(r.tx)
}
