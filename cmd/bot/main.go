// Package main is the entry point for the zao bot: a Telegram bot that
// tracks wake-up check-ins per chat, keeps awake-time leaderboards and
// grants morning achievements.
//
// The layering follows Clean Architecture:
// - Domain: session, achievement and ranking logic
// - Application: command and query handlers
// - Infrastructure: PostgreSQL persistence, Redis cache
// - Interface: Telegram long-polling transport
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ionlz/telegram-zao-bot/config"
	"github.com/ionlz/telegram-zao-bot/internal/application/command"
	"github.com/ionlz/telegram-zao-bot/internal/application/query"
	"github.com/ionlz/telegram-zao-bot/internal/infrastructure/persistence/postgres"
	"github.com/ionlz/telegram-zao-bot/internal/infrastructure/persistence/redis"
	"github.com/ionlz/telegram-zao-bot/internal/interface/telegram"
	"github.com/ionlz/telegram-zao-bot/pkg/logger"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	log := logger.New(opts)

	log.Info("starting zao bot",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	// Validate() already vetted the zone name.
	calendar, err := timeutil.NewCalendar(cfg.App.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	var conn *postgres.Connection
	if cfg.Database.URL != "" {
		conn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	} else {
		conn, err = postgres.NewConnection(ctx, cfg.Database.PoolConfig())
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		conn.Close()
	}()

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations")
	migrator := postgres.NewMigrator(conn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if status, serr := migrator.Status(ctx); serr != nil {
		log.Warn("failed to get migration status", logger.Err(serr))
	} else {
		applied := 0
		for _, m := range status {
			if m.IsApplied {
				applied++
			}
		}
		log.Info("migrations completed",
			logger.Int("applied", applied),
			logger.Int("total", len(status)),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional leaderboard cache)
	// ─────────────────────────────────────────────────────────────────────────
	var rankCache query.RankCache
	if cfg.Redis.Enabled {
		log.Info("connecting to Redis")
		cache, cerr := redis.NewCache(cfg.Redis.CacheConfig())
		if cerr != nil {
			log.Warn("failed to connect to Redis, leaderboard caching disabled", logger.Err(cerr))
		} else {
			defer cache.Close()
			rankCache = redis.NewRankCache(cache, cfg.Redis.RankTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	store := postgres.NewStore(conn)
	sessionRepo := postgres.NewSessionRepository(conn)
	achievementRepo := postgres.NewAchievementRepository(conn)
	rankingRepo := postgres.NewRankingRepository(conn)

	checkIn := command.NewCheckInHandler(store, calendar, log)
	checkOut := command.NewCheckOutHandler(store, log)
	awake := query.NewAwakeDurationHandler(sessionRepo)
	rank := query.NewRankHandler(rankingRepo, calendar, rankCache, log)
	achievements := query.NewAchievementsHandler(achievementRepo)
	achRank := query.NewAchievementRankHandler(achievementRepo)
	streakRank := query.NewStreakRankHandler(achievementRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. TELEGRAM BOT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Telegram bot")

	presenter := telegram.NewPresenter(calendar)
	handlers := telegram.NewHandlers(
		checkIn, checkOut,
		awake, rank, achievements, achRank, streakRank,
		presenter, log,
	)

	botConfig := telegram.DefaultBotConfig(cfg.Telegram.Token)
	botConfig.PollTimeout = int(cfg.Telegram.PollTimeout / time.Second)
	botConfig.UpdateBuffer = cfg.Telegram.UpdateBuffer
	botConfig.Debug = cfg.Telegram.Debug

	bot, err := telegram.NewBot(botConfig, handlers, log)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. RUN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("zao bot is running", logger.String("username", bot.Username()))

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("telegram bot error: %w", err)
	}

	log.Info("shutdown completed")
	return nil
}
