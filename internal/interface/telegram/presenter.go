package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/ionlz/telegram-zao-bot/internal/domain/achievement"
	"github.com/ionlz/telegram-zao-bot/internal/domain/ranking"
	"github.com/ionlz/telegram-zao-bot/internal/domain/shared"
	"github.com/ionlz/telegram-zao-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTER
// Renders engine results as chat text. The catalog is Chinese, matching the
// original product's voice.
// ══════════════════════════════════════════════════════════════════════════════

const (
	msgHelp = "📌 指令说明：\n" +
		"/zao 签到\n" +
		"/wan 签退\n" +
		"/awake 查询清醒时长（可回复某人消息后查询 TA）\n" +
		"/rank 今日排行榜（/rank all 总榜；加 global=全局，例如：/rank global 或 /rank all global）\n" +
		"/ach 成就查询（可加 global；也可回复某人消息后 /ach 查询 TA）\n" +
		"/achrank 成就排行榜（daily｜streak｜ontime｜longday；可加 global，例如：/achrank global daily）\n" +
		"/year 年度进度条\n\n" +
		"🕓 说明：本 bot 的“今日”按业务日计算：凌晨 04:00 ~ 次日 04:00。"

	msgCheckInOK       = "🌅 %s ✅ 签到成功：%s（今日第 %d 个）"
	msgCheckInAlready  = "⏱️ %s 你已经签到过了（%s），已清醒 %s。"
	msgCheckOutOK      = "🌙 %s 💤 签退成功：%s\n本次清醒：%s（从 %s 开始）"
	msgCheckOutNone    = "🙋 %s 你还没有签到（/zao）哦。"
	msgAwakeOpen       = "👀 %s 当前已清醒 %s（签到时间：%s）"
	msgAwakeLast       = "📭 %s 当前没有未签退记录，上次清醒 %s（签到时间：%s）。"
	msgAwakeNone       = "📭 %s 当前没有任何记录，先 /zao 签到吧～"
	msgAchUnlocked     = "🎉 解锁成就：%s"
	msgRankHeader      = "📊 %s（统计到 %s）"
	msgRankNoData      = "📊 %s：暂无数据。先 /zao 签到吧～"
	msgRankLine        = "%d. %s - %s %s"
	msgAchHeader       = "🏅 %s 的成就"
	msgAchHeaderGlobal = "🌐🏅 %s 的成就（全局）"
	msgAchLine         = "- %s × %d"
	msgAchNone         = "暂无成就记录，先 /zao 开始吧～"
	msgAchStreak       = "📈 当前“今日最早”连胜：%d 天｜累计最早：%d 天"
	msgAchStreakGlobal = "🌐📈 最强“今日最早”连胜：%d 天｜累计最早：%d 天"
	msgAchRankHelp     = "📊 用法：/achrank daily｜streak｜ontime｜longday"
	msgAchRankEmpty    = "📭 暂无排行榜数据。"
	msgAchRankCount    = "%d. %s - %d"
	msgAchRankStreak   = "%d. %s - %d 天"
	msgStoreTrouble    = "😵 出了点问题，请稍后重试。"

	titleRankToday       = "🏆 今日清醒排行榜"
	titleRankAll         = "🏆 总清醒排行榜"
	titleRankTodayGlobal = "🌐 今日清醒排行榜（全局）"
	titleRankAllGlobal   = "🌐 总清醒排行榜（全局）"
)

// achievementNames maps kinds to their display names.
var achievementNames = map[achievement.Kind]string{
	achievement.KindEarliestOfDay: "🥇 今日最早",
	achievement.KindStreak7:       "🔥 连续最早 7 天",
	achievement.KindOnTime8h:      "⏰ 准点下班",
	achievement.KindLongDay12h:    "💪 辛苦的一天",
}

var achRankTitles = map[achievement.Kind][2]string{
	achievement.KindEarliestOfDay: {"🥇 成就榜：今日最早（累计天数）", "🌐🥇 成就榜：今日最早（全局累计）"},
	achievement.KindOnTime8h:      {"⏰ 成就榜：准点下班（累计次数）", "🌐⏰ 成就榜：准点下班（全局累计）"},
	achievement.KindLongDay12h:    {"💪 成就榜：辛苦的一天（累计次数）", "🌐💪 成就榜：辛苦的一天（全局累计）"},
}

const (
	titleStreakRank       = "🔥 成就榜：连续今日最早（当前连胜）"
	titleStreakRankGlobal = "🌐🔥 成就榜：连续今日最早（全局最强连胜）"
)

// Presenter renders replies. All timestamps are shown in the bot's
// configured timezone.
type Presenter struct {
	calendar *timeutil.Calendar
}

// NewPresenter creates a new Presenter.
func NewPresenter(calendar *timeutil.Calendar) *Presenter {
	return &Presenter{calendar: calendar}
}

// FormatDuration renders a duration as N小时M分S秒, dropping leading
// zero units. Negative durations render as zero.
func FormatDuration(d time.Duration) string {
	sec := int64(d / time.Second)
	if sec < 0 {
		sec = 0
	}
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%d小时%d分%d秒", h, m, s)
	case m > 0:
		return fmt.Sprintf("%d分%d秒", m, s)
	default:
		return fmt.Sprintf("%d秒", s)
	}
}

func (p *Presenter) clock(t time.Time) string {
	return p.calendar.FormatDateTimeStr(t)
}

// Help renders the usage text.
func (p *Presenter) Help() string { return msgHelp }

// CheckInOK renders a successful check-in with today's order.
func (p *Presenter) CheckInOK(name string, at time.Time, seq int) string {
	return fmt.Sprintf(msgCheckInOK, name, p.clock(at), seq)
}

// CheckInAlready renders an already-open rejection with the running
// session's start and duration.
func (p *Presenter) CheckInAlready(name string, checkIn time.Time, awake time.Duration) string {
	return fmt.Sprintf(msgCheckInAlready, name, p.clock(checkIn), FormatDuration(awake))
}

// CheckOutOK renders a successful check-out.
func (p *Presenter) CheckOutOK(name string, at, checkIn time.Time, awake time.Duration) string {
	return fmt.Sprintf(msgCheckOutOK, name, p.clock(at), FormatDuration(awake), p.clock(checkIn))
}

// CheckOutNone renders a check-out attempt with nothing open.
func (p *Presenter) CheckOutNone(name string) string {
	return fmt.Sprintf(msgCheckOutNone, name)
}

// Unlocked renders a "new achievements" announcement.
func (p *Presenter) Unlocked(kinds ...achievement.Kind) string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, achievementNames[k])
	}
	return fmt.Sprintf(msgAchUnlocked, strings.Join(names, "、"))
}

// AwakeOpen renders a running session's duration.
func (p *Presenter) AwakeOpen(name string, awake time.Duration, checkIn time.Time) string {
	return fmt.Sprintf(msgAwakeOpen, name, FormatDuration(awake), p.clock(checkIn))
}

// AwakeLast renders the previous closed session's duration.
func (p *Presenter) AwakeLast(name string, awake time.Duration, checkIn time.Time) string {
	return fmt.Sprintf(msgAwakeLast, name, FormatDuration(awake), p.clock(checkIn))
}

// AwakeNone renders the no-history case.
func (p *Presenter) AwakeNone(name string) string {
	return fmt.Sprintf(msgAwakeNone, name)
}

// StoreTrouble renders a transient failure apology.
func (p *Presenter) StoreTrouble() string { return msgStoreTrouble }

// Rank renders the leaderboard. Open members carry a 🔥 marker, closed
// ones 💤.
func (p *Presenter) Rank(scope shared.Scope, window shared.Window, asOf time.Time, entries []ranking.Entry) string {
	title := rankTitle(scope, window)
	if len(entries) == 0 {
		return fmt.Sprintf(msgRankNoData, title)
	}

	lines := []string{fmt.Sprintf(msgRankHeader, title, p.clock(asOf))}
	for i, e := range entries {
		marker := "💤"
		if e.Open {
			marker = "🔥"
		}
		lines = append(lines, fmt.Sprintf(msgRankLine, i+1, e.DisplayName, FormatDuration(e.Total), marker))
	}
	return strings.Join(lines, "\n")
}

func rankTitle(scope shared.Scope, window shared.Window) string {
	switch {
	case scope.IsGlobal() && window == shared.WindowToday:
		return titleRankTodayGlobal
	case scope.IsGlobal():
		return titleRankAllGlobal
	case window == shared.WindowToday:
		return titleRankToday
	default:
		return titleRankAll
	}
}

// Achievements renders a member's tally plus their streak line.
func (p *Presenter) Achievements(name string, global bool, counts map[achievement.Kind]int, streak *achievement.Streak) string {
	header := msgAchHeader
	if global {
		header = msgAchHeaderGlobal
	}
	lines := []string{fmt.Sprintf(header, name)}

	any := false
	for _, k := range achievement.Kinds {
		if counts[k] > 0 {
			lines = append(lines, fmt.Sprintf(msgAchLine, achievementNames[k], counts[k]))
			any = true
		}
	}
	if !any {
		lines = append(lines, msgAchNone)
	}

	streakLine := msgAchStreak
	if global {
		streakLine = msgAchStreakGlobal
	}
	lines = append(lines, fmt.Sprintf(streakLine, streak.Current, counts[achievement.KindEarliestOfDay]))
	return strings.Join(lines, "\n")
}

// AchievementRank renders one kind's standings.
func (p *Presenter) AchievementRank(kind achievement.Kind, global bool, entries []achievement.RankEntry) string {
	if len(entries) == 0 {
		return msgAchRankEmpty
	}
	titles := achRankTitles[kind]
	title := titles[0]
	if global {
		title = titles[1]
	}
	lines := []string{title}
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf(msgAchRankCount, i+1, e.DisplayName, e.Count))
	}
	return strings.Join(lines, "\n")
}

// StreakRank renders the current streak standings.
func (p *Presenter) StreakRank(global bool, entries []achievement.RankEntry) string {
	if len(entries) == 0 {
		return msgAchRankEmpty
	}
	title := titleStreakRank
	if global {
		title = titleStreakRankGlobal
	}
	lines := []string{title}
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf(msgAchRankStreak, i+1, e.DisplayName, e.Count))
	}
	return strings.Join(lines, "\n")
}

// AchRankHelp renders the /achrank usage hint.
func (p *Presenter) AchRankHelp() string { return msgAchRankHelp }

// yearBarPartials are the eighth-block characters for sub-cell progress.
var yearBarPartials = []string{"", "▏", "▎", "▍", "▌", "▋", "▊", "▉"}

const (
	yearBarDefaultWidth = 20
	yearBarMinWidth     = 8
	yearBarMaxWidth     = 60
)

// YearProgress renders the year progress bar: elapsed days over total
// days with eighth-block resolution. Width outside [8, 60] falls back
// to the default.
func (p *Presenter) YearProgress(now time.Time, width int) string {
	if width < yearBarMinWidth || width > yearBarMaxWidth {
		width = yearBarDefaultWidth
	}

	local := now.In(p.calendar.Location())
	year := local.Year()
	start := time.Date(year, 1, 1, 0, 0, 0, 0, p.calendar.Location())
	end := time.Date(year+1, 1, 1, 0, 0, 0, 0, p.calendar.Location())
	totalDays := int(end.Sub(start).Hours() / 24)
	dayNo := local.YearDay()
	if dayNo > totalDays {
		dayNo = totalDays
	}

	ratio := float64(dayNo) / float64(totalDays)
	totalUnits := width * 8
	filled := int(ratio * float64(totalUnits))
	if filled > totalUnits {
		filled = totalUnits
	}
	fullBlocks := filled / 8
	rem := filled % 8

	bar := strings.Repeat("█", fullBlocks)
	if rem > 0 && fullBlocks < width {
		bar += yearBarPartials[rem]
	}
	// pad by rune count, the partial block is multi-byte
	if pad := width - len([]rune(bar)); pad > 0 {
		bar += strings.Repeat(" ", pad)
	}

	return fmt.Sprintf("%d\n├%s┤ %.2f%%\n%d/%d %s",
		year, bar, ratio*100, dayNo, totalDays, local.Format("2006-01-02"))
}
