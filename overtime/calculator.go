package overtime

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// CALCULATOR - Runs the whole pipeline over one month of data
// =============================================================================

// Dataset is one employee's raw month, fully loaded before any computation.
type Dataset struct {
	EntityID     generic.EntityID      `json:"entity_id"`
	Punches      []PunchRecord         `json:"punches"`
	CalendarDays []generic.CalendarDay `json:"calendar_days"`
	Approvals    []ApprovalRecord      `json:"approvals"`
	Attendance   []AttendanceRecord    `json:"attendance"`
}

// Result is the computed month.
type Result struct {
	EntityID generic.EntityID `json:"entity_id"`
	Period   generic.Period   `json:"period"`
	Rows     []DailyRow       `json:"rows"`
	Summary  *Summary         `json:"summary"`
	Lines    []SummaryLine    `json:"lines"`
	Skipped  []string         `json:"skipped,omitempty"`
}

type Calculator struct {
	Deductions DeductionSource
	Log        logrus.FieldLogger
	Now        func() time.Time
}

func NewCalculator(deductions DeductionSource, log logrus.FieldLogger) *Calculator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Calculator{Deductions: deductions, Log: log, Now: time.Now}
}

// Calculate runs classify -> parse leave -> reconcile -> summarize.
//
// The month is the one of the earliest punch. Empty punch or calendar data,
// malformed dates and failed deduction fetches abort the run; unreadable
// approval ranges are skipped and listed in Result.Skipped.
func (c *Calculator) Calculate(ctx context.Context, ds Dataset) (*Result, error) {
	log := c.Log.WithField("entity_id", ds.EntityID)

	if len(ds.Punches) == 0 {
		return nil, &generic.EmptyDataError{Dataset: "punches"}
	}
	if len(ds.CalendarDays) == 0 {
		return nil, &generic.EmptyDataError{Dataset: "holidays"}
	}

	days, err := GroupPunches(ds.Punches)
	if err != nil {
		return nil, fmt.Errorf("group punches: %w", err)
	}
	period := generic.MonthPeriod(days[0].Date.Year(), days[0].Date.Month())
	log = log.WithField("period", period.Key())

	cal := CalendarForMonth(ds.CalendarDays, period)

	parser := NewLeaveParser(c.Deductions, log)
	book, skipped, err := parser.Parse(ctx, ds.Approvals)
	if err != nil {
		return nil, fmt.Errorf("parse approvals: %w", err)
	}

	lateness, err := ParseAttendance(ds.Attendance)
	if err != nil {
		return nil, fmt.Errorf("parse attendance: %w", err)
	}

	var lateCount, lateMinutes int
	if lateness != nil {
		lateCount, lateMinutes = lateness.TotalCount, lateness.TotalMinutes
	}

	rows := make([]DailyRow, 0, len(days))
	for _, day := range days {
		row, err := Reconcile(DayInput{
			Date:         day.Date,
			Checks:       day.Checks,
			DayType:      cal.Classify(day.Date),
			Annual:       book.Annual.For(day.Date),
			Personal:     book.Personal.For(day.Date),
			Deduction:    book.Deduction.For(day.Date),
			LateOverride: lateness.Override(day.Date),
		})
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	summary, err := Summarize(SummaryInput{
		Rows:             rows,
		Calendar:         cal,
		Period:           period,
		TotalLateCount:   lateCount,
		TotalLateMinutes: lateMinutes,
		Today:            generic.DateOf(c.now()),
	})
	if err != nil {
		return nil, err
	}

	if summary.TotalLateMinutes >= 30 {
		log.WithField("late_minutes", summary.TotalLateMinutes).Warn("monthly late minutes at or above 30")
	}
	log.WithFields(logrus.Fields{
		"rows":         len(rows),
		"overtime_pay": summary.TotalOvertimePay.Fixed(2),
		"grade":        summary.Grade,
		"skipped":      len(skipped),
	}).Info("month calculated")

	result := &Result{
		EntityID: ds.EntityID,
		Period:   period,
		Rows:     rows,
		Summary:  summary,
		Lines:    summary.Lines(),
	}
	for _, s := range skipped {
		result.Skipped = append(result.Skipped, s.Error())
	}
	return result, nil
}

func (c *Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
