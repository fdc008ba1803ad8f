// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
)

// Repos bundles the repositories visible inside one transaction. Every
// read and write made through it sees and joins the same transaction.
type Repos interface {
	Sessions() session.Repository
	Achievements() achievement.Repository
}

// Store opens transactions for the write side. WithinChatTx runs fn in
// a single database transaction holding an exclusive per-chat lock, so
// concurrent commands against one chat execute one at a time while
// other chats proceed independently. fn returning an error rolls the
// transaction back; otherwise it commits.
type Store interface {
	WithinChatTx(ctx context.Context, chatID session.ChatID, fn func(Repos) error) error
}
