// Package overtime implements the overtime, meal-allowance and attendance
// calculation for one employee and one month.
//
// The pipeline is strictly sequential:
//
//	classify (calendar.go) -> parse leave (leave.go) -> reconcile each day
//	(reconcile.go) -> summarize the month (summary.go)
//
// Calculator (calculator.go) runs the whole pipeline over an in-memory Dataset.
// The package never performs I/O other than asking a DeductionSource for
// delay-deduction forms.
package overtime

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// DAY TYPE
// =============================================================================

// DayType classifies a date. The values are the labels used in reports.
type DayType string

const (
	DayWorkday          DayType = "工作日"
	DayWeekend          DayType = "周末"
	DayHoliday          DayType = "节假日"
	DayHolidayOnWeekend DayType = "节假日(周末)"
)

// FullHolidayWage is the wage class of a statutory holiday.
const FullHolidayWage = 3

// =============================================================================
// BUSINESS CONSTANTS - negotiated rules, keep literal
// =============================================================================

var (
	WorkdayRate = decimal.NewFromInt(20)
	WeekendRate = decimal.NewFromInt(30)
	HolidayRate = decimal.NewFromInt(60)

	MealAllowance         = generic.Money(decimal.NewFromInt(20))
	WorkdayAllowanceHours = generic.Hours(decimal.NewFromInt(1))
	RestDayAllowanceHours = generic.Hours(decimal.NewFromInt(4))
)

var (
	WorkStart     = generic.NewClockTime(9, 0, 0)
	OvertimeStart = generic.NewClockTime(19, 0, 0)
	LeaveDayStart = generic.NewClockTime(9, 0, 0)
	LeaveDayEnd   = generic.NewClockTime(18, 0, 0)
)

// RemotePunchMarker is appended by the HR system to off-site punch times.
const RemotePunchMarker = "(异地打卡)"

// PayRate returns the hourly overtime rate for the day type.
func PayRate(dt DayType) decimal.Decimal {
	switch dt {
	case DayWorkday:
		return WorkdayRate
	case DayWeekend, DayHolidayOnWeekend:
		return WeekendRate
	case DayHoliday:
		return HolidayRate
	default:
		return decimal.Zero
	}
}

// Allowance returns the meal allowance earned for the given overtime.
func Allowance(dt DayType, overtime generic.Amount) generic.Amount {
	threshold := RestDayAllowanceHours
	if dt == DayWorkday {
		threshold = WorkdayAllowanceHours
	}
	if overtime.GreaterOrEqual(threshold) {
		return MealAllowance
	}
	return MealAllowance.Zero()
}

// =============================================================================
// CHECK TIME - A punch time of day with its remote marker
// =============================================================================

type CheckTime struct {
	Clock  generic.ClockTime `json:"clock"`
	Remote bool              `json:"remote,omitempty"`
}

// ParseCheckTime parses "HH:MM:SS" with an optional remote-punch suffix.
func ParseCheckTime(s string) (CheckTime, error) {
	s = strings.TrimSpace(s)
	remote := strings.HasSuffix(s, RemotePunchMarker)
	clock, err := generic.ParseClock(strings.TrimSuffix(s, RemotePunchMarker))
	if err != nil {
		return CheckTime{}, err
	}
	return CheckTime{Clock: clock, Remote: remote}, nil
}

func (c CheckTime) String() string {
	if c.Remote {
		return c.Clock.String() + RemotePunchMarker
	}
	return c.Clock.String()
}

// =============================================================================
// LEAVE INTERVALS
// =============================================================================

// Interval is a span within one day.
type Interval struct {
	Start generic.ClockTime `json:"start"`
	End   generic.ClockTime `json:"end"`
}

// Hours returns End - Start, unclamped.
func (iv Interval) Hours() generic.Amount { return iv.End.HoursSince(iv.Start) }

func (iv Interval) String() string { return iv.Start.Short() + "-" + iv.End.Short() }

// IntervalMap groups intervals by date, in insertion order per date.
type IntervalMap map[generic.TimePoint][]Interval

func (m IntervalMap) Add(date generic.TimePoint, iv Interval) {
	m[date] = append(m[date], iv)
}

func (m IntervalMap) For(date generic.TimePoint) []Interval { return m[date] }

// First returns the first interval recorded for the date.
func (m IntervalMap) First(date generic.TimePoint) (Interval, bool) {
	ivs := m[date]
	if len(ivs) == 0 {
		return Interval{}, false
	}
	return ivs[0], true
}

// Cancel removes every interval on the date whose start and end both equal iv.
// It returns how many were removed. Intervals are never split.
func (m IntervalMap) Cancel(date generic.TimePoint, iv Interval) int {
	ivs, ok := m[date]
	if !ok {
		return 0
	}
	kept := ivs[:0:0]
	for _, existing := range ivs {
		if existing == iv {
			continue
		}
		kept = append(kept, existing)
	}
	m[date] = kept
	return len(ivs) - len(kept)
}

// TotalHours sums all intervals on the date.
func (m IntervalMap) TotalHours(date generic.TimePoint) generic.Amount {
	total := generic.ZeroAmount(generic.UnitHours)
	for _, iv := range m[date] {
		total = total.Add(iv.Hours())
	}
	return total
}

// LeaveBook holds the three disjoint categories of approved time adjustments.
type LeaveBook struct {
	Annual    IntervalMap
	Personal  IntervalMap
	Deduction IntervalMap
}

func NewLeaveBook() *LeaveBook {
	return &LeaveBook{
		Annual:    make(IntervalMap),
		Personal:  make(IntervalMap),
		Deduction: make(IntervalMap),
	}
}

// =============================================================================
// DAILY ROW
// =============================================================================

// DailyRow is the reconciled result for one punched date. Never mutated once built.
type DailyRow struct {
	Date               generic.TimePoint `json:"date"`
	FirstCheck         CheckTime         `json:"first_check"`
	LastCheck          CheckTime         `json:"last_check"`
	DayType            DayType           `json:"day_type"`
	Rate               decimal.Decimal   `json:"rate"`
	Overtime           generic.Amount    `json:"overtime"`
	OvertimePay        generic.Amount    `json:"overtime_pay"`
	Allowance          generic.Amount    `json:"allowance"`
	Income             generic.Amount    `json:"income"`
	LateMinutes        generic.Amount    `json:"late_minutes"`
	DeductionHours     generic.Amount    `json:"deduction_hours"`
	AnnualLeaveHours   generic.Amount    `json:"annual_leave_hours"`
	PersonalLeaveHours generic.Amount    `json:"personal_leave_hours"`
}
