package overtime

import (
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// CALENDAR - Holidays and makeup workdays for one month
// =============================================================================

// Calendar is the holiday map and workday-override set for the month being
// processed. Built once per run and only read afterwards.
type Calendar struct {
	Holidays map[generic.TimePoint]int      // date -> wage class
	Workdays map[generic.TimePoint]struct{} // weekend dates designated as workdays
}

func NewCalendar() Calendar {
	return Calendar{
		Holidays: make(map[generic.TimePoint]int),
		Workdays: make(map[generic.TimePoint]struct{}),
	}
}

// CalendarForMonth keeps only the days that fall into the period.
func CalendarForMonth(days []generic.CalendarDay, period generic.Period) Calendar {
	cal := NewCalendar()
	for _, d := range days {
		if !period.Contains(d.Date) {
			continue
		}
		if d.Holiday {
			cal.Holidays[d.Date] = d.Wage
		} else {
			cal.Workdays[d.Date] = struct{}{}
		}
	}
	return cal
}

func (c Calendar) IsHoliday(date generic.TimePoint) bool {
	_, ok := c.Holidays[date]
	return ok
}

func (c Calendar) IsMakeupWorkday(date generic.TimePoint) bool {
	_, ok := c.Workdays[date]
	return ok
}

// Classify returns the day type. Holidays win over everything, makeup
// workdays override the weekend rule.
func (c Calendar) Classify(date generic.TimePoint) DayType {
	if wage, ok := c.Holidays[date]; ok {
		if wage == FullHolidayWage {
			return DayHoliday
		}
		return DayHolidayOnWeekend
	}
	if !c.IsMakeupWorkday(date) && date.IsWeekend() {
		return DayWeekend
	}
	return DayWorkday
}

// ClassifyString parses a YYYY-MM-DD date and classifies it.
func (c Calendar) ClassifyString(date string) (DayType, error) {
	d, err := generic.ParseDate(date)
	if err != nil {
		return "", err
	}
	return c.Classify(d), nil
}

// HolidaysIn counts holiday dates inside the period.
func (c Calendar) HolidaysIn(period generic.Period) int {
	n := 0
	for d := range c.Holidays {
		if period.Contains(d) {
			n++
		}
	}
	return n
}

// FreeWeekendsIn counts Saturdays and Sundays in the period that are neither
// holidays nor makeup workdays.
func (c Calendar) FreeWeekendsIn(period generic.Period) int {
	n := 0
	for _, d := range period.Days() {
		if d.IsWeekend() && !c.IsHoliday(d) && !c.IsMakeupWorkday(d) {
			n++
		}
	}
	return n
}

// RequiredWorkdays is days in the period minus holidays minus free weekends.
func (c Calendar) RequiredWorkdays(period generic.Period) int {
	return period.Len() - c.HolidaysIn(period) - c.FreeWeekendsIn(period)
}
