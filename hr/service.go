package hr

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// SERVICE - Loads a whole month before anything is computed
// =============================================================================

// MonthSource is the part of the HR system a month load needs.
type MonthSource interface {
	ClockIn(ctx context.Context, period generic.Period) ([]overtime.PunchRecord, error)
	Attendance(ctx context.Context, period generic.Period) ([]overtime.AttendanceRecord, error)
	Approvals(ctx context.Context) ([]overtime.ApprovalRecord, error)
	overtime.DeductionSource
}

// CalendarSource returns the calendar deviations of a year.
type CalendarSource interface {
	Year(ctx context.Context, year int) ([]generic.CalendarDay, error)
}

var (
	_ MonthSource    = (*Client)(nil)
	_ CalendarSource = (*HolidayClient)(nil)
)

type Service struct {
	HR       MonthSource
	Holidays CalendarSource
	Log      logrus.FieldLogger
}

func NewService(hr MonthSource, holidays CalendarSource, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{HR: hr, Holidays: holidays, Log: log}
}

// Load fetches punches, calendar, approvals and attendance for the month.
// Any failed fetch aborts the load.
func (s *Service) Load(ctx context.Context, entityID generic.EntityID, period generic.Period) (overtime.Dataset, error) {
	log := s.Log.WithFields(logrus.Fields{"entity_id": entityID, "period": period.Key()})

	punches, err := s.HR.ClockIn(ctx, period)
	if err != nil {
		return overtime.Dataset{}, err
	}
	if len(punches) == 0 {
		return overtime.Dataset{}, &generic.EmptyDataError{Dataset: "punches"}
	}

	days, err := s.Holidays.Year(ctx, period.Year())
	if err != nil {
		return overtime.Dataset{}, fmt.Errorf("holidays: %w", err)
	}

	approvals, err := s.HR.Approvals(ctx)
	if err != nil {
		return overtime.Dataset{}, err
	}

	attendance, err := s.HR.Attendance(ctx, period)
	if err != nil {
		return overtime.Dataset{}, err
	}

	log.WithFields(logrus.Fields{
		"punches":    len(punches),
		"approvals":  len(approvals),
		"attendance": len(attendance),
	}).Info("month loaded from HR")

	return overtime.Dataset{
		EntityID:     entityID,
		Punches:      punches,
		CalendarDays: days,
		Approvals:    approvals,
		Attendance:   attendance,
	}, nil
}

// Sync loads the month and runs the calculation, fetching deduction forms
// from the HR system as the approvals reference them.
func (s *Service) Sync(ctx context.Context, entityID generic.EntityID, period generic.Period) (*overtime.Result, error) {
	ds, err := s.Load(ctx, entityID, period)
	if err != nil {
		return nil, err
	}
	return overtime.NewCalculator(s.HR, s.Log).Calculate(ctx, ds)
}

// =============================================================================
// ACCOUNTS - One Service per employee, each with its own stored session
// =============================================================================

// Accounts builds the Service of an employee. The configured account falls
// back to the session from the environment; every other employee needs a
// cookie in the store.
type Accounts struct {
	BaseURL  string
	Timeout  time.Duration
	Store    generic.CredentialStore
	Holidays CalendarSource
	Log      logrus.FieldLogger

	Default      generic.EntityID
	DefaultCreds Credentials
}

func (a *Accounts) Service(entityID generic.EntityID) *Service {
	creds := &StoredCredentials{Store: a.Store, EntityID: entityID, Log: a.Log}
	if entityID == a.Default {
		creds.Fallback = a.DefaultCreds
	}
	client := NewClient(a.BaseURL, a.Timeout, creds, a.Log)
	creds.Discover = client
	return NewService(client, a.Holidays, a.Log)
}
