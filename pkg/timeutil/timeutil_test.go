package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCalendar(t *testing.T) {
	cal, err := NewCalendar("Asia/Shanghai")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", cal.Location().String())
}

func TestNewCalendarInvalidTimezone(t *testing.T) {
	_, err := NewCalendar("Not/AZone")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTimezone)
}

func TestBusinessDayCutoff(t *testing.T) {
	cal, err := NewCalendar("Asia/Shanghai")
	require.NoError(t, err)

	loc := cal.Location()
	tests := []struct {
		name string
		at   time.Time
		want DayKey
	}{
		{
			name: "before cutoff belongs to previous date",
			at:   time.Date(2024, 5, 7, 3, 30, 0, 0, loc),
			want: "2024-05-06",
		},
		{
			name: "after cutoff belongs to same date",
			at:   time.Date(2024, 5, 7, 4, 1, 0, 0, loc),
			want: "2024-05-07",
		},
		{
			name: "exactly at cutoff belongs to same date",
			at:   time.Date(2024, 5, 7, 4, 0, 0, 0, loc),
			want: "2024-05-07",
		},
		{
			name: "midnight belongs to previous date",
			at:   time.Date(2024, 5, 7, 0, 0, 0, 0, loc),
			want: "2024-05-06",
		},
		{
			name: "evening belongs to same date",
			at:   time.Date(2024, 5, 7, 23, 59, 59, 0, loc),
			want: "2024-05-07",
		},
		{
			name: "early morning of January 1st belongs to previous year",
			at:   time.Date(2024, 1, 1, 2, 0, 0, 0, loc),
			want: "2023-12-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.BusinessDay(tt.at))
		})
	}
}

func TestBusinessDayConvertsTimezone(t *testing.T) {
	cal, err := NewCalendar("Asia/Shanghai")
	require.NoError(t, err)

	// 19:30 UTC on May 6th is 03:30 on May 7th in Shanghai,
	// which is still business day May 6th.
	at := time.Date(2024, 5, 6, 19, 30, 0, 0, time.UTC)
	assert.Equal(t, DayKey("2024-05-06"), cal.BusinessDay(at))
}

func TestDayKeyPrevNext(t *testing.T) {
	k := DayKey("2024-03-01")
	assert.Equal(t, DayKey("2024-02-29"), k.Prev())
	assert.Equal(t, DayKey("2024-03-02"), k.Next())
	assert.Equal(t, DayKey(""), DayKey("garbage").Prev())
	assert.True(t, DayKey("").IsZero())
}

func TestParseDayKey(t *testing.T) {
	k, err := ParseDayKey("2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, DayKey("2024-05-06"), k)

	_, err = ParseDayKey("06.05.2024")
	assert.Error(t, err)
}

func TestDayStart(t *testing.T) {
	cal, err := NewCalendar("Asia/Shanghai")
	require.NoError(t, err)

	start, err := cal.DayStart("2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 6, 4, 0, 0, 0, cal.Location()), start)

	// The instant just before a day's start belongs to the previous day.
	assert.Equal(t, DayKey("2024-05-05"), cal.BusinessDay(start.Add(-time.Second)))
	assert.Equal(t, DayKey("2024-05-06"), cal.BusinessDay(start))
}
