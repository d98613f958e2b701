package overtime_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func hours(t *testing.T, want string, got generic.Amount) {
	t.Helper()
	assert.Equal(t, generic.UnitHours, got.Unit)
	assert.True(t, generic.MustParseDecimal(want).Equal(got.Value), "want %s hours, got %s", want, got.Value)
}

func yuan(t *testing.T, want string, got generic.Amount) {
	t.Helper()
	assert.Equal(t, generic.UnitYuan, got.Unit)
	assert.True(t, generic.MustParseDecimal(want).Equal(got.Value), "want %s yuan, got %s", want, got.Value)
}

func minutes(t *testing.T, want string, got generic.Amount) {
	t.Helper()
	assert.Equal(t, generic.UnitMinutes, got.Unit)
	assert.True(t, generic.MustParseDecimal(want).Equal(got.Value), "want %s minutes, got %s", want, got.Value)
}

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestClassify_WeekdayIsWorkday(t *testing.T) {
	cal := overtime.NewCalendar()
	assert.Equal(t, overtime.DayWorkday, cal.Classify(date(2024, time.March, 4))) // Monday
}

func TestClassify_WeekendIsWeekend(t *testing.T) {
	cal := overtime.NewCalendar()
	assert.Equal(t, overtime.DayWeekend, cal.Classify(date(2024, time.March, 2)))
	assert.Equal(t, overtime.DayWeekend, cal.Classify(date(2024, time.March, 3)))
}

func TestClassify_HolidayWinsOverEverything(t *testing.T) {
	// GIVEN: a Saturday that is both a full holiday and, erroneously, a makeup workday
	// THEN: the holiday classification wins
	cal := overtime.NewCalendar()
	sat := date(2024, time.March, 2)
	cal.Holidays[sat] = overtime.FullHolidayWage
	cal.Workdays[sat] = struct{}{}

	assert.Equal(t, overtime.DayHoliday, cal.Classify(sat))
}

func TestClassify_LowerWageClassIsHolidayOnWeekend(t *testing.T) {
	cal := overtime.NewCalendar()
	for wage, d := range map[int]generic.TimePoint{1: date(2024, time.February, 17), 2: date(2024, time.February, 12)} {
		cal.Holidays[d] = wage
		assert.Equal(t, overtime.DayHolidayOnWeekend, cal.Classify(d), "wage class %d", wage)
	}
}

func TestClassify_MakeupWorkdayOverridesWeekend(t *testing.T) {
	cal := overtime.NewCalendar()
	sun := date(2024, time.February, 4)
	cal.Workdays[sun] = struct{}{}

	assert.Equal(t, overtime.DayWorkday, cal.Classify(sun))
}

func TestClassify_IsTotalAndDeterministic(t *testing.T) {
	cal := overtime.NewCalendar()
	cal.Holidays[date(2024, time.May, 1)] = 3
	cal.Workdays[date(2024, time.May, 11)] = struct{}{}

	for _, d := range generic.MonthPeriod(2024, time.May).Days() {
		first := cal.Classify(d)
		assert.Contains(t, []overtime.DayType{
			overtime.DayWorkday, overtime.DayWeekend, overtime.DayHoliday, overtime.DayHolidayOnWeekend,
		}, first)
		assert.Equal(t, first, cal.Classify(d))
	}
}

func TestClassifyString_MalformedDateIsFormatError(t *testing.T) {
	cal := overtime.NewCalendar()
	_, err := cal.ClassifyString("2024/03/01")
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrFormat))

	dt, err := cal.ClassifyString("2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, overtime.DayWeekend, dt)
}

// =============================================================================
// CALENDAR CONSTRUCTION TESTS
// =============================================================================

func TestCalendarForMonth_KeepsOnlyDaysInPeriod(t *testing.T) {
	days := []generic.CalendarDay{
		{Date: date(2024, time.September, 17), Holiday: true, Wage: 3},
		{Date: date(2024, time.September, 14), Holiday: false, Wage: 1},
		{Date: date(2024, time.October, 1), Holiday: true, Wage: 3},
	}

	cal := overtime.CalendarForMonth(days, generic.MonthPeriod(2024, time.September))

	assert.Len(t, cal.Holidays, 1)
	assert.True(t, cal.IsHoliday(date(2024, time.September, 17)))
	assert.True(t, cal.IsMakeupWorkday(date(2024, time.September, 14)))
	assert.False(t, cal.IsHoliday(date(2024, time.October, 1)))
}

func TestRequiredWorkdays_ThirtyDayMonth(t *testing.T) {
	// GIVEN: September 2024 (30 days, 9 weekend days)
	//   - 2 holidays on weekdays
	//   - 6 weekend days overridden as makeup workdays, leaving 3 free weekend days
	// THEN: 30 - 2 - 3 = 25
	cal := overtime.NewCalendar()
	cal.Holidays[date(2024, time.September, 16)] = 3
	cal.Holidays[date(2024, time.September, 17)] = 3
	for _, d := range []int{1, 7, 8, 14, 15, 21} {
		cal.Workdays[date(2024, time.September, d)] = struct{}{}
	}
	period := generic.MonthPeriod(2024, time.September)

	assert.Equal(t, 2, cal.HolidaysIn(period))
	assert.Equal(t, 3, cal.FreeWeekendsIn(period))
	assert.Equal(t, 25, cal.RequiredWorkdays(period))
}

func TestRequiredWorkdays_LeapFebruaryUsesRealLength(t *testing.T) {
	// February 2024 has 29 days and 8 weekend days.
	cal := overtime.NewCalendar()
	assert.Equal(t, 21, cal.RequiredWorkdays(generic.MonthPeriod(2024, time.February)))
}

// =============================================================================
// RATE AND ALLOWANCE TESTS
// =============================================================================

func TestPayRate(t *testing.T) {
	assert.Equal(t, "20", overtime.PayRate(overtime.DayWorkday).String())
	assert.Equal(t, "30", overtime.PayRate(overtime.DayWeekend).String())
	assert.Equal(t, "30", overtime.PayRate(overtime.DayHolidayOnWeekend).String())
	assert.Equal(t, "60", overtime.PayRate(overtime.DayHoliday).String())
}

func TestAllowance_Thresholds(t *testing.T) {
	tests := []struct {
		name     string
		dayType  overtime.DayType
		overtime float64
		want     string
	}{
		{"workday below one hour", overtime.DayWorkday, 0.99, "0"},
		{"workday exactly one hour", overtime.DayWorkday, 1, "20"},
		{"workday long evening", overtime.DayWorkday, 3.5, "20"},
		{"weekend below four hours", overtime.DayWeekend, 3.99, "0"},
		{"weekend exactly four hours", overtime.DayWeekend, 4, "20"},
		{"holiday below four hours", overtime.DayHoliday, 1, "0"},
		{"holiday on weekend four hours", overtime.DayHolidayOnWeekend, 4, "20"},
		{"negative overtime", overtime.DayWorkday, -1, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overtime.Allowance(tt.dayType, generic.NewAmount(tt.overtime, generic.UnitHours))
			yuan(t, tt.want, got)
		})
	}
}
