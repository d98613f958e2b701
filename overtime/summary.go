package overtime

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// MONTHLY SUMMARY
// =============================================================================

// Bucket names used in the personal-leave offset, drained in this order.
const (
	BucketWorkday = "workday"
	BucketWeekend = "weekend"
	BucketHoliday = "holiday"
)

type SummaryInput struct {
	Rows             []DailyRow
	Calendar         Calendar
	Period           generic.Period
	TotalLateCount   int
	TotalLateMinutes int
	Today            generic.TimePoint
}

// DayTypeTotals is the overtime of one bucket before and after the
// personal-leave offset.
type DayTypeTotals struct {
	Hours       generic.Amount `json:"hours"`
	Pay         generic.Amount `json:"pay"`
	ActualHours generic.Amount `json:"actual_hours"`
	ActualPay   generic.Amount `json:"actual_pay"`
}

type Summary struct {
	Period generic.Period `json:"period"`

	TotalOvertimePay  generic.Amount `json:"total_overtime_pay"`
	TotalAllowance    generic.Amount `json:"total_allowance"`
	TotalIncome       generic.Amount `json:"total_income"`
	ActualOvertimePay generic.Amount `json:"actual_overtime_pay"`
	ActualIncome      generic.Amount `json:"actual_income"`

	Workday DayTypeTotals `json:"workday"`
	Weekend DayTypeTotals `json:"weekend"`
	Holiday DayTypeTotals `json:"holiday"`

	PersonalLeaveHours generic.Amount        `json:"personal_leave_hours"`
	Offset             generic.CascadeResult `json:"-"`

	TotalLateCount       int               `json:"total_late_count"`
	TotalLateMinutes     int               `json:"total_late_minutes"`
	LateMinutesRemaining generic.Amount    `json:"late_minutes_remaining"`
	Cutoff               generic.TimePoint `json:"cutoff"`

	RequiredWorkdays int   `json:"required_workdays"`
	ActualWorkdays   int   `json:"actual_workdays"`
	Grade            Grade `json:"grade"`
}

// TotalHours is the overtime across all buckets before the offset.
func (s *Summary) TotalHours() generic.Amount {
	return generic.Sum(generic.UnitHours, s.Workday.Hours, s.Weekend.Hours, s.Holiday.Hours)
}

// ActualHours is the overtime across all buckets after the offset.
func (s *Summary) ActualHours() generic.Amount {
	return generic.Sum(generic.UnitHours, s.Workday.ActualHours, s.Weekend.ActualHours, s.Holiday.ActualHours)
}

// bucket maps a day type to its summary bucket. Holidays on a weekend have
// no bucket: they reach only the month totals, never the per-type hours or
// the actual pay after the offset.
func (s *Summary) bucket(dt DayType) *DayTypeTotals {
	switch dt {
	case DayWorkday:
		return &s.Workday
	case DayWeekend:
		return &s.Weekend
	case DayHoliday:
		return &s.Holiday
	default:
		return nil
	}
}

// Summarize folds the daily rows of one month.
func Summarize(in SummaryInput) (*Summary, error) {
	if len(in.Rows) == 0 {
		return nil, &generic.EmptyDataError{Dataset: "daily rows"}
	}

	hours, money := generic.ZeroAmount(generic.UnitHours), generic.ZeroAmount(generic.UnitYuan)
	s := &Summary{
		Period:             in.Period,
		TotalOvertimePay:   money,
		TotalAllowance:     money,
		TotalIncome:        money,
		Workday:            DayTypeTotals{Hours: hours, Pay: money},
		Weekend:            DayTypeTotals{Hours: hours, Pay: money},
		Holiday:            DayTypeTotals{Hours: hours, Pay: money},
		PersonalLeaveHours: hours,
		TotalLateCount:     in.TotalLateCount,
		TotalLateMinutes:   in.TotalLateMinutes,
		RequiredWorkdays:   in.Calendar.RequiredWorkdays(in.Period),
	}

	latest := in.Rows[0].Date
	for _, row := range in.Rows {
		s.TotalOvertimePay = s.TotalOvertimePay.Add(row.OvertimePay)
		s.TotalAllowance = s.TotalAllowance.Add(row.Allowance)
		s.TotalIncome = s.TotalIncome.Add(row.Income)
		s.PersonalLeaveHours = s.PersonalLeaveHours.Add(row.PersonalLeaveHours)

		if b := s.bucket(row.DayType); b != nil {
			b.Hours = b.Hours.Add(row.Overtime)
			b.Pay = b.Pay.Add(row.OvertimePay)
		}
		if row.DayType == DayWorkday {
			s.ActualWorkdays++
		}
		if row.Date.After(latest) {
			latest = row.Date
		}
	}

	s.applyOffset()
	s.LateMinutesRemaining = drainLateMinutes(in.Rows, in.TotalLateMinutes)
	s.Cutoff = generic.MinTimePoint(latest, in.Today.AddDays(-1))
	s.Grade = GradeFor(s.TotalOvertimePay)

	return s, nil
}

// applyOffset converts personal leave into an overtime reduction, workday
// hours first, then weekend, then holiday.
func (s *Summary) applyOffset() {
	s.Offset = generic.Cascade([]generic.Bucket{
		{Name: BucketWorkday, Priority: 0, Total: s.Workday.Hours},
		{Name: BucketWeekend, Priority: 1, Total: s.Weekend.Hours},
		{Name: BucketHoliday, Priority: 2, Total: s.Holiday.Hours},
	}, s.PersonalLeaveHours)

	for _, alloc := range s.Offset.Allocations {
		var b *DayTypeTotals
		var rate decimal.Decimal
		switch alloc.Name {
		case BucketWorkday:
			b, rate = &s.Workday, WorkdayRate
		case BucketWeekend:
			b, rate = &s.Weekend, WeekendRate
		case BucketHoliday:
			b, rate = &s.Holiday, HolidayRate
		}
		b.ActualHours = alloc.Actual
		b.ActualPay = generic.Money(alloc.Actual.Value.Mul(rate))
	}

	s.ActualOvertimePay = generic.Sum(generic.UnitYuan, s.Workday.ActualPay, s.Weekend.ActualPay, s.Holiday.ActualPay)
	s.ActualIncome = s.ActualOvertimePay.Add(s.TotalAllowance)
}

// =============================================================================
// LATENESS COUNTER
// =============================================================================

// LatenessStep is how much one row takes off the monthly late-minutes
// counter, by the row's own late minutes.
func LatenessStep(late generic.Amount) generic.Amount {
	v := late.Value
	switch {
	case v.GreaterThanOrEqual(decimal.NewFromInt(1)) && v.LessThanOrEqual(decimal.NewFromInt(30)):
		return generic.Minutes(v.Add(decimal.NewFromInt(60)))
	case v.GreaterThan(decimal.NewFromInt(30)) && v.LessThanOrEqual(decimal.NewFromInt(60)):
		return generic.Minutes(v.Add(decimal.NewFromInt(120)))
	case v.GreaterThan(decimal.NewFromInt(60)):
		return generic.NewAmountFromInt(480, generic.UnitMinutes)
	default:
		return generic.ZeroAmount(generic.UnitMinutes)
	}
}

// drainLateMinutes walks the rows in order and takes one step per row off the
// counter until it is exhausted. The result is reported only; it never
// changes pay.
func drainLateMinutes(rows []DailyRow, total int) generic.Amount {
	remaining := generic.NewAmountFromInt(total, generic.UnitMinutes)
	for _, row := range rows {
		if !remaining.IsPositive() {
			break
		}
		switch row.DayType {
		case DayWorkday, DayWeekend, DayHoliday:
			remaining = remaining.Sub(LatenessStep(row.LateMinutes))
		}
	}
	return remaining
}

// =============================================================================
// GRADE
// =============================================================================

// Grade buckets the month's total overtime pay.
type Grade string

const (
	GradeMinimal  Grade = "minimal"   // < 300
	GradeLow      Grade = "low"       // [300, 500)
	GradeModerate Grade = "moderate"  // [500, 1000)
	GradeHigh     Grade = "high"      // [1000, 1500]
	GradeVeryHigh Grade = "very_high" // (1500, 2000)
	GradeCapped   Grade = "capped"    // >= 2000
)

// OvertimePayCap is the pay above which further overtime is considered unpaid.
var OvertimePayCap = generic.Money(decimal.NewFromInt(2000))

func GradeFor(pay generic.Amount) Grade {
	v := pay.Value
	switch {
	case v.LessThan(decimal.NewFromInt(300)):
		return GradeMinimal
	case v.LessThan(decimal.NewFromInt(500)):
		return GradeLow
	case v.LessThan(decimal.NewFromInt(1000)):
		return GradeModerate
	case v.LessThanOrEqual(decimal.NewFromInt(1500)):
		return GradeHigh
	case v.LessThan(OvertimePayCap.Value):
		return GradeVeryHigh
	default:
		return GradeCapped
	}
}

// =============================================================================
// REPORT LINES
// =============================================================================

// SummaryLine is one label/value pair of the printed summary.
type SummaryLine struct {
	Label string `csv:"汇总项目" json:"label"`
	Value string `csv:"信息" json:"value"`
}

func yuan(a generic.Amount) string   { return a.Fixed(2) + " 元" }
func hoursOf(a generic.Amount) string { return a.Fixed(2) + " 小时" }

// Lines renders the summary in report order.
func (s *Summary) Lines() []SummaryLine {
	cutoff := s.Cutoff.String()
	return []SummaryLine{
		{"总加班薪资", yuan(s.TotalOvertimePay)},
		{"实际加班薪资", yuan(s.ActualOvertimePay)},
		{"总餐补", yuan(s.TotalAllowance)},
		{"总工作日加班收入", yuan(s.Workday.Pay)},
		{"总周末加班收入", yuan(s.Weekend.Pay)},
		{"总节假日加班收入", yuan(s.Holiday.Pay)},
		{"总收入", yuan(s.TotalIncome)},
		{"扣减后预计工作日加班收入", yuan(s.Workday.ActualPay)},
		{"扣减后预计周末加班收入", yuan(s.Weekend.ActualPay)},
		{"扣减后预计节假日加班收入", yuan(s.Holiday.ActualPay)},
		{"扣减后预计总加班收入", yuan(s.ActualOvertimePay)},
		{"扣减后预计总收入", yuan(s.ActualIncome)},
		{"总工作日加班时长", hoursOf(s.Workday.Hours)},
		{"总周末加班时长", hoursOf(s.Weekend.Hours)},
		{"总节假日加班时长", hoursOf(s.Holiday.Hours)},
		{"总加班时长", hoursOf(s.TotalHours())},
		{"扣减后预计工作日加班时长", hoursOf(s.Workday.ActualHours)},
		{"扣减后预计周末加班时长", hoursOf(s.Weekend.ActualHours)},
		{"扣减后预计节假日加班时长", hoursOf(s.Holiday.ActualHours)},
		{"扣减后预计总加班时长", hoursOf(s.ActualHours())},
		{fmt.Sprintf("截止到%s的总迟到次数", cutoff), strconv.Itoa(s.TotalLateCount) + " 次"},
		{fmt.Sprintf("截止到%s的总迟到分钟数", cutoff), strconv.Itoa(s.TotalLateMinutes) + " 分钟"},
		{"应出勤天数", strconv.Itoa(s.RequiredWorkdays) + " 天"},
		{"实际出勤天数", strconv.Itoa(s.ActualWorkdays) + " 天"},
	}
}
