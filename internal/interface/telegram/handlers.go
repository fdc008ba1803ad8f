package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ionlz/telegram-zao-bot/internal/application/command"
	"github.com/ionlz/telegram-zao-bot/internal/application/query"
	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/session"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/logger"
)

// rankLimit caps leaderboard replies so they stay readable on phones.
const rankLimit = 20

// Handlers translates chat commands into engine calls and renders the
// results through the presenter.
type Handlers struct {
	checkIn      *command.CheckInHandler
	checkOut     *command.CheckOutHandler
	awake        *query.AwakeDurationHandler
	rank         *query.RankHandler
	achievements *query.AchievementsHandler
	achRank      *query.AchievementRankHandler
	streakRank   *query.StreakRankHandler
	presenter    *Presenter
	log          *logger.Logger
}

// NewHandlers creates the command handler set.
func NewHandlers(
	checkIn *command.CheckInHandler,
	checkOut *command.CheckOutHandler,
	awake *query.AwakeDurationHandler,
	rank *query.RankHandler,
	achievements *query.AchievementsHandler,
	achRank *query.AchievementRankHandler,
	streakRank *query.StreakRankHandler,
	presenter *Presenter,
	log *logger.Logger,
) *Handlers {
	return &Handlers{
		checkIn:      checkIn,
		checkOut:     checkOut,
		awake:        awake,
		rank:         rank,
		achievements: achievements,
		achRank:      achRank,
		streakRank:   streakRank,
		presenter:    presenter,
		log:          log.With(logger.Component("telegram")),
	}
}

// Handle dispatches one command message and returns the reply texts to
// send, in order. A nil slice means no reply.
func (h *Handlers) Handle(ctx context.Context, msg *tgbotapi.Message) []string {
	if msg == nil || !msg.IsCommand() || msg.From == nil {
		return nil
	}

	switch msg.Command() {
	case "start", "help":
		return []string{h.presenter.Help()}
	case "zao":
		return h.handleCheckIn(ctx, msg)
	case "wan":
		return h.handleCheckOut(ctx, msg)
	case "awake":
		return h.handleAwake(ctx, msg)
	case "rank":
		return h.handleRank(ctx, msg)
	case "ach":
		return h.handleAchievements(ctx, msg)
	case "achrank":
		return h.handleAchievementRank(ctx, msg)
	case "year":
		return h.handleYear(msg)
	}
	return nil
}

// eventTime is the command's instant: the message timestamp, not the
// moment the bot got around to processing it.
func eventTime(msg *tgbotapi.Message) time.Time {
	if msg.Date > 0 {
		return time.Unix(int64(msg.Date), 0).UTC()
	}
	return time.Now().UTC()
}

// targetUser is the member a command acts on: the sender, or the author
// of the replied-to message.
func targetUser(msg *tgbotapi.Message) *tgbotapi.User {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return msg.ReplyToMessage.From
	}
	return msg.From
}

func userDisplayName(u *tgbotapi.User) string {
	return session.User{
		ID:        session.UserID(u.ID),
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}.DisplayName()
}

func commandArgs(msg *tgbotapi.Message) []string {
	var args []string
	for _, a := range strings.Fields(msg.CommandArguments()) {
		args = append(args, strings.ToLower(a))
	}
	return args
}

// parseScope extracts the global flag from args and returns the scope
// plus the remaining args.
func parseScope(chatID int64, args []string) (shared.Scope, []string) {
	scope := shared.ChatScope(chatID)
	rest := args[:0:0]
	for _, a := range args {
		if a == "global" || a == "g" {
			scope = shared.GlobalScope()
			continue
		}
		rest = append(rest, a)
	}
	return scope, rest
}

func (h *Handlers) handleCheckIn(ctx context.Context, msg *tgbotapi.Message) []string {
	at := eventTime(msg)
	name := userDisplayName(msg.From)

	res, err := h.checkIn.Handle(ctx, command.CheckInCommand{
		ChatID:    session.ChatID(msg.Chat.ID),
		ChatTitle: msg.Chat.Title,
		ChatType:  msg.Chat.Type,
		UserID:    session.UserID(msg.From.ID),
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		At:        at,
	})
	if err != nil {
		if shared.IsAlreadyOpen(err) {
			return h.replyAlreadyOpen(ctx, msg, name, at)
		}
		h.log.Error("check-in failed", logger.Err(err), logger.ChatID(msg.Chat.ID))
		return []string{h.presenter.StoreTrouble()}
	}

	replies := []string{h.presenter.CheckInOK(name, at, res.Seq)}

	var unlocked []achievement.Kind
	if res.BecameEarliest {
		unlocked = append(unlocked, achievement.KindEarliestOfDay)
	}
	if res.StreakMilestone {
		unlocked = append(unlocked, achievement.KindStreak7)
	}
	if len(unlocked) > 0 {
		replies = append(replies, h.presenter.Unlocked(unlocked...))
	}
	return replies
}

// replyAlreadyOpen fetches the running session so the rejection can say
// when it started and how long the member has been awake.
func (h *Handlers) replyAlreadyOpen(ctx context.Context, msg *tgbotapi.Message, name string, at time.Time) []string {
	res, err := h.awake.Handle(ctx, query.AwakeDurationQuery{
		ChatID: session.ChatID(msg.Chat.ID),
		UserID: session.UserID(msg.From.ID),
		AsOf:   at,
	})
	if err != nil || !res.Open {
		return []string{h.presenter.CheckInAlready(name, at, 0)}
	}
	return []string{h.presenter.CheckInAlready(name, res.CheckIn, res.Duration)}
}

func (h *Handlers) handleCheckOut(ctx context.Context, msg *tgbotapi.Message) []string {
	at := eventTime(msg)
	name := userDisplayName(msg.From)

	res, err := h.checkOut.Handle(ctx, command.CheckOutCommand{
		ChatID:    session.ChatID(msg.Chat.ID),
		ChatTitle: msg.Chat.Title,
		ChatType:  msg.Chat.Type,
		UserID:    session.UserID(msg.From.ID),
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		At:        at,
	})
	if err != nil {
		if shared.IsNoOpenSession(err) {
			return []string{h.presenter.CheckOutNone(name)}
		}
		h.log.Error("check-out failed", logger.Err(err), logger.ChatID(msg.Chat.ID))
		return []string{h.presenter.StoreTrouble()}
	}

	replies := []string{h.presenter.CheckOutOK(name, at, res.Session.CheckIn, res.Duration)}
	if len(res.Granted) > 0 {
		replies = append(replies, h.presenter.Unlocked(res.Granted...))
	}
	return replies
}

func (h *Handlers) handleAwake(ctx context.Context, msg *tgbotapi.Message) []string {
	target := targetUser(msg)
	name := userDisplayName(target)
	at := eventTime(msg)

	res, err := h.awake.Handle(ctx, query.AwakeDurationQuery{
		ChatID: session.ChatID(msg.Chat.ID),
		UserID: session.UserID(target.ID),
		AsOf:   at,
	})
	if err != nil {
		h.log.Error("awake query failed", logger.Err(err), logger.ChatID(msg.Chat.ID))
		return []string{h.presenter.StoreTrouble()}
	}

	switch {
	case !res.Found:
		return []string{h.presenter.AwakeNone(name)}
	case res.Open:
		return []string{h.presenter.AwakeOpen(name, res.Duration, res.CheckIn)}
	default:
		return []string{h.presenter.AwakeLast(name, res.Duration, res.CheckIn)}
	}
}

func (h *Handlers) handleRank(ctx context.Context, msg *tgbotapi.Message) []string {
	scope, rest := parseScope(msg.Chat.ID, commandArgs(msg))
	window := shared.WindowToday
	if len(rest) > 0 {
		switch rest[0] {
		case "all", "total", "overall":
			window = shared.WindowAllTime
		}
	}
	at := eventTime(msg)

	res, err := h.rank.Handle(ctx, query.RankQuery{Scope: scope, Window: window, AsOf: at, Limit: rankLimit})
	if err != nil {
		h.log.Error("rank query failed", logger.Err(err), logger.ChatID(msg.Chat.ID))
		return []string{h.presenter.StoreTrouble()}
	}
	return []string{h.presenter.Rank(scope, window, at, res.Entries)}
}

func (h *Handlers) handleAchievements(ctx context.Context, msg *tgbotapi.Message) []string {
	scope, _ := parseScope(msg.Chat.ID, commandArgs(msg))
	target := targetUser(msg)
	name := userDisplayName(target)

	res, err := h.achievements.Handle(ctx, query.AchievementsQuery{
		Scope:  scope,
		UserID: session.UserID(target.ID),
	})
	if err != nil {
		h.log.Error("achievements query failed", logger.Err(err), logger.ChatID(msg.Chat.ID))
		return []string{h.presenter.StoreTrouble()}
	}
	return []string{h.presenter.Achievements(name, scope.IsGlobal(), res.Counts, res.Streak)}
}

// achRankKinds maps /achrank arguments to achievement kinds. "streak"
// is handled separately since it ranks runs, not counts.
var achRankKinds = map[string]achievement.Kind{
	"daily":    achievement.KindEarliestOfDay,
	"earliest": achievement.KindEarliestOfDay,
	"ontime":   achievement.KindOnTime8h,
	"8h":       achievement.KindOnTime8h,
	"8":        achievement.KindOnTime8h,
	"longday":  achievement.KindLongDay12h,
	"12h":      achievement.KindLongDay12h,
	"12":       achievement.KindLongDay12h,
}

func (h *Handlers) handleAchievementRank(ctx context.Context, msg *tgbotapi.Message) []string {
	scope, rest := parseScope(msg.Chat.ID, commandArgs(msg))
	arg := "daily"
	if len(rest) > 0 {
		arg = rest[0]
	}

	if arg == "streak" || arg == "consecutive" {
		entries, err := h.streakRank.Handle(ctx, query.StreakRankQuery{Scope: scope, Limit: rankLimit})
		if err != nil {
			h.log.Error("streak rank query failed", logger.Err(err), logger.ChatID(msg.Chat.ID))
			return []string{h.presenter.StoreTrouble()}
		}
		return []string{h.presenter.StreakRank(scope.IsGlobal(), entries)}
	}

	kind, ok := achRankKinds[arg]
	if !ok {
		return []string{h.presenter.AchRankHelp()}
	}

	entries, err := h.achRank.Handle(ctx, query.AchievementRankQuery{Scope: scope, Kind: kind, Limit: rankLimit})
	if err != nil {
		h.log.Error("achievement rank query failed", logger.Err(err), logger.ChatID(msg.Chat.ID))
		return []string{h.presenter.StoreTrouble()}
	}
	return []string{h.presenter.AchievementRank(kind, scope.IsGlobal(), entries)}
}

func (h *Handlers) handleYear(msg *tgbotapi.Message) []string {
	width := 0
	if args := commandArgs(msg); len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			width = n
		}
	}
	return []string{h.presenter.YearProgress(eventTime(msg), width)}
}
