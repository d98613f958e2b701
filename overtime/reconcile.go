package overtime

import (
	"fmt"

	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// DAILY RECONCILER
// =============================================================================

// DayInput is everything known about one punched date.
type DayInput struct {
	Date      generic.TimePoint
	Checks    []CheckTime // sorted by time of day, at least one
	DayType   DayType
	Annual    []Interval
	Personal  []Interval
	Deduction []Interval

	// LateOverride is the late minutes reported by the attendance system for
	// this date. Nil when the report does not mention the date.
	LateOverride *int
}

// Reconcile derives the DailyRow for a single date. It depends on nothing but
// its input.
func Reconcile(in DayInput) (DailyRow, error) {
	if len(in.Checks) == 0 {
		return DailyRow{}, fmt.Errorf("reconcile %s: %w", in.Date, &generic.EmptyDataError{Dataset: "punches"})
	}

	first := in.Checks[0]
	last := in.Checks[len(in.Checks)-1]

	overtime := overtimeHours(first, last, in.DayType)

	// Deductions may push overtime below zero; the negative value is kept and
	// flows into pay.
	deduction := generic.ZeroAmount(generic.UnitHours)
	for _, iv := range in.Deduction {
		deduction = deduction.Add(iv.Hours())
	}
	overtime = overtime.Sub(deduction)

	rate := PayRate(in.DayType)
	pay := generic.Money(overtime.Value.Mul(rate))
	allowance := Allowance(in.DayType, overtime)

	annualHours, first := applyLeave(in.Annual, first)
	personalHours, first := applyLeave(in.Personal, first)

	return DailyRow{
		Date:               in.Date,
		FirstCheck:         first,
		LastCheck:          last,
		DayType:            in.DayType,
		Rate:               rate,
		Overtime:           overtime,
		OvertimePay:        pay,
		Allowance:          allowance,
		Income:             pay.Add(allowance),
		LateMinutes:        lateMinutes(first, in.DayType, in.LateOverride),
		DeductionHours:     deduction,
		AnnualLeaveHours:   annualHours,
		PersonalLeaveHours: personalHours,
	}, nil
}

// overtimeHours is the raw overtime before deductions. Remote punches never
// count. Workdays count from 19:00, other days from the first punch.
func overtimeHours(first, last CheckTime, dt DayType) generic.Amount {
	if last.Remote {
		return generic.ZeroAmount(generic.UnitHours)
	}
	from := first.Clock
	if dt == DayWorkday {
		from = OvertimeStart
	}
	return last.Clock.HoursSince(from).Floor0()
}

// applyLeave uses the first interval of the day: its length is the leave
// taken, and its start replaces the first check when earlier.
func applyLeave(ivs []Interval, first CheckTime) (generic.Amount, CheckTime) {
	if len(ivs) == 0 {
		return generic.ZeroAmount(generic.UnitHours), first
	}
	iv := ivs[0]
	if iv.Start.Before(first.Clock) {
		first = CheckTime{Clock: iv.Start}
	}
	return iv.Hours(), first
}

func lateMinutes(first CheckTime, dt DayType, override *int) generic.Amount {
	zero := generic.ZeroAmount(generic.UnitMinutes)
	if first.Remote || dt != DayWorkday {
		return zero
	}
	if override != nil {
		return generic.NewAmountFromInt(*override, generic.UnitMinutes).Floor0()
	}
	return first.Clock.MinutesSince(WorkStart).Floor0()
}
