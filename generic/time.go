package generic

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout       = "2006-01-02"
	ClockLayout      = "15:04:05"
	ShortClockLayout = "15:04"
	RangeLayout      = "2006-01-02 15:04"
)

// =============================================================================
// TIME POINT - A calendar day
// =============================================================================

// TimePoint is a calendar day in UTC. It is comparable and safe as a map key.
type TimePoint struct {
	Time time.Time
}

func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return TimePoint{}, &FormatError{Field: "date", Value: s, Layout: DateLayout}
	}
	return DateOf(t), nil
}

func Today() TimePoint { return DateOf(time.Now()) }

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool       { wd := tp.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }
func (tp TimePoint) String() string        { return tp.Time.Format(DateLayout) }

func (tp TimePoint) MarshalText() ([]byte, error) { return []byte(tp.String()), nil }

func (tp *TimePoint) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// MonthKey renders the YYYY-MM the day belongs to.
func (tp TimePoint) MonthKey() string { return tp.Time.Format("2006-01") }

// At combines the day with a time of day.
func (tp TimePoint) At(c ClockTime) time.Time {
	return tp.Time.Add(time.Duration(c.seconds) * time.Second)
}

func MinTimePoint(a, b TimePoint) TimePoint {
	if a.Before(b) {
		return a
	}
	return b
}

// =============================================================================
// CLOCK TIME - Time of day with second precision
// =============================================================================

// ClockTime is a time of day, stored as seconds since midnight.
type ClockTime struct {
	seconds int
}

func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime{seconds: hour*3600 + minute*60 + second}
}

// ClockOf extracts the time of day from t.
func ClockOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute(), t.Second())
}

// ParseClock accepts HH:MM:SS or HH:MM.
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{ClockLayout, ShortClockLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), nil
		}
	}
	return ClockTime{}, &FormatError{Field: "time", Value: s, Layout: ClockLayout}
}

func (c ClockTime) Hour() int   { return c.seconds / 3600 }
func (c ClockTime) Minute() int { return c.seconds % 3600 / 60 }
func (c ClockTime) Second() int { return c.seconds % 60 }

func (c ClockTime) Before(o ClockTime) bool { return c.seconds < o.seconds }
func (c ClockTime) After(o ClockTime) bool  { return c.seconds > o.seconds }

// Sub returns c - o as a duration; negative when c is earlier.
func (c ClockTime) Sub(o ClockTime) time.Duration {
	return time.Duration(c.seconds-o.seconds) * time.Second
}

// HoursSince returns c - o in hours, unclamped.
func (c ClockTime) HoursSince(o ClockTime) Amount {
	return Hours(decimal.NewFromInt(int64(c.seconds - o.seconds)).Div(decimal.NewFromInt(3600)))
}

// MinutesSince returns c - o in minutes, unclamped.
func (c ClockTime) MinutesSince(o ClockTime) Amount {
	return Minutes(decimal.NewFromInt(int64(c.seconds - o.seconds)).Div(decimal.NewFromInt(60)))
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Short renders HH:MM.
func (c ClockTime) Short() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func MinClock(a, b ClockTime) ClockTime {
	if a.Before(b) {
		return a
	}
	return b
}

// =============================================================================
// MONTH UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

func EndOfMonth(year int, month time.Month) TimePoint {
	return DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}

func DaysInMonth(year int, month time.Month) int { return EndOfMonth(year, month).Day() }
