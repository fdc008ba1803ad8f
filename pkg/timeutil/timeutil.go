// Package timeutil implements the business-day calendar used by the
// awake-session engine. A business day does not roll over at midnight:
// timestamps with a local wall-clock hour before 04:00 still belong to
// the previous calendar date, so a check-out at 02:30 counts toward the
// same day as the check-in the evening before.
// No external dependencies - uses only standard library.
package timeutil

import (
	"errors"
	"fmt"
	"time"
)

// DayCutoffHour is the local hour at which a new business day starts.
// Hours in [0, DayCutoffHour) belong to the previous calendar date.
const DayCutoffHour = 4

// ErrInvalidTimezone is returned by NewCalendar for an unknown IANA zone.
// This is a configuration error and is fatal at startup.
var ErrInvalidTimezone = errors.New("timeutil: invalid timezone")

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM:SS).
	FormatTime = "15:04:05"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04:05"
)

// DayKey identifies a business day as a calendar date (YYYY-MM-DD) in the
// configured timezone. The zero value is the empty string.
type DayKey string

// IsZero reports whether the key is unset.
func (k DayKey) IsZero() bool {
	return k == ""
}

// String returns the string representation of the day key.
func (k DayKey) String() string {
	return string(k)
}

// Prev returns the business day one calendar date earlier.
// An unparsable key returns the zero DayKey.
func (k DayKey) Prev() DayKey {
	return k.shift(-1)
}

// Next returns the business day one calendar date later.
func (k DayKey) Next() DayKey {
	return k.shift(1)
}

func (k DayKey) shift(days int) DayKey {
	t, err := time.Parse(FormatDate, string(k))
	if err != nil {
		return ""
	}
	return DayKey(t.AddDate(0, 0, days).Format(FormatDate))
}

// ParseDayKey validates a YYYY-MM-DD string and returns it as a DayKey.
func ParseDayKey(s string) (DayKey, error) {
	if _, err := time.Parse(FormatDate, s); err != nil {
		return "", fmt.Errorf("timeutil: invalid day key %q: %w", s, err)
	}
	return DayKey(s), nil
}

// Calendar converts absolute timestamps into business days under the
// 04:00 boundary rule. It is immutable and safe for concurrent use.
type Calendar struct {
	loc *time.Location
}

// NewCalendar builds a Calendar for the given IANA timezone identifier.
func NewCalendar(timezone string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimezone, timezone, err)
	}
	return &Calendar{loc: loc}, nil
}

// NewCalendarIn builds a Calendar from an already resolved location.
func NewCalendarIn(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc}
}

// Location returns the calendar's timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current time in the calendar's timezone.
func (c *Calendar) Now() time.Time {
	return time.Now().In(c.loc)
}

// BusinessDay returns the business day a timestamp belongs to.
// The timestamp may carry any timezone; it is converted to the
// calendar's zone before the cutoff rule is applied.
func (c *Calendar) BusinessDay(t time.Time) DayKey {
	local := t.In(c.loc)
	if local.Hour() < DayCutoffHour {
		local = local.AddDate(0, 0, -1)
	}
	return DayKey(local.Format(FormatDate))
}

// DayStart returns the instant a business day begins (04:00 local).
func (c *Calendar) DayStart(day DayKey) (time.Time, error) {
	t, err := time.ParseInLocation(FormatDate, string(day), c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid day key %q: %w", day, err)
	}
	return t.Add(DayCutoffHour * time.Hour), nil
}

// FormatLocal formats a timestamp in the calendar's timezone.
func (c *Calendar) FormatLocal(t time.Time, layout string) string {
	return t.In(c.loc).Format(layout)
}

// FormatDateTimeStr formats a timestamp as "YYYY-MM-DD HH:MM:SS" local time.
func (c *Calendar) FormatDateTimeStr(t time.Time) string {
	return c.FormatLocal(t, FormatDateTime)
}
