// Package telegram implements the chat command layer: the long-polling
// bot loop, command dispatch and reply rendering.
package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ionlz/telegram-zao-bot/pkg/logger"
	"github.com/ionlz/telegram-zao-bot/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig holds the transport configuration.
type BotConfig struct {
	// Token is the Telegram bot token.
	Token string

	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int

	// UpdateBuffer is the size of the update channel buffer.
	UpdateBuffer int

	// Debug enables tgbotapi request logging.
	Debug bool
}

// DefaultBotConfig returns defaults for the given token.
func DefaultBotConfig(token string) BotConfig {
	return BotConfig{
		Token:        token,
		PollTimeout:  30,
		UpdateBuffer: 100,
	}
}

// Bot runs the long-polling loop and feeds updates to the handlers.
type Bot struct {
	api      *tgbotapi.BotAPI
	handlers *Handlers
	config   BotConfig
	sender   *retry.Retrier
	log      *logger.Logger

	mu      sync.Mutex
	running bool
}

// NewBot authenticates against the Telegram API and builds the bot.
func NewBot(config BotConfig, handlers *Handlers, log *logger.Logger) (*Bot, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to create bot api: %w", err)
	}
	api.Debug = config.Debug

	return &Bot{
		api:      api,
		handlers: handlers,
		config:   config,
		sender:   retry.TelegramRetrier(),
		log:      log.With(logger.Component("bot")),
	}, nil
}

// Username returns the authenticated bot account name.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run polls for updates until ctx is cancelled. It blocks.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("telegram: bot already running")
	}
	b.running = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.PollTimeout

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("bot started", logger.String("username", b.Username()))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	start := time.Now()
	replies := b.handlers.Handle(ctx, msg)
	if len(replies) == 0 {
		return
	}

	for _, text := range replies {
		reply := tgbotapi.NewMessage(msg.Chat.ID, text)
		reply.ReplyToMessageID = msg.MessageID
		err := b.sender.Do(ctx, func(context.Context) error {
			_, serr := b.api.Send(reply)
			return serr
		})
		if err != nil {
			b.log.Error("failed to send reply",
				logger.Err(err),
				logger.ChatID(msg.Chat.ID),
			)
		}
	}

	b.log.Debug("command handled",
		logger.Command(msg.Command()),
		logger.ChatID(msg.Chat.ID),
		logger.UserID(msg.From.ID),
		logger.Latency(time.Since(start)),
	)
}
