package hr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// LOCAL DATA - A directory of previously saved HR responses
// =============================================================================

// File names inside a local data directory. Only the punch file is required.
const (
	LocalPunchFile      = "data.json"
	LocalHolidayFile    = "holidays.json"
	LocalApprovalFile   = "approvals.json"
	LocalAttendanceFile = "attendance.json"
	LocalDeductionFile  = "deductions.json" // AUTHKEY -> forms
)

// LocalDir loads a month from saved JSON files. When holidays.json is absent
// the calendar comes from Holidays, for the year of the earliest punch.
type LocalDir struct {
	Dir      string
	Holidays CalendarSource
	Log      logrus.FieldLogger
}

// Load returns the dataset and the deduction forms found in the directory.
func (l *LocalDir) Load(ctx context.Context, entityID generic.EntityID) (overtime.Dataset, overtime.StaticDeductions, error) {
	log := l.logger().WithField("dir", l.Dir)
	ds := overtime.Dataset{EntityID: entityID}

	found, err := l.read(LocalPunchFile, &ds.Punches)
	if err != nil {
		return ds, nil, err
	}
	if !found || len(ds.Punches) == 0 {
		return ds, nil, &generic.EmptyDataError{Dataset: "punches"}
	}

	if ds.CalendarDays, err = l.calendar(ctx, ds.Punches); err != nil {
		return ds, nil, err
	}
	if _, err := l.read(LocalApprovalFile, &ds.Approvals); err != nil {
		return ds, nil, err
	}
	if _, err := l.read(LocalAttendanceFile, &ds.Attendance); err != nil {
		return ds, nil, err
	}

	deductions := overtime.StaticDeductions{}
	if _, err := l.read(LocalDeductionFile, &deductions); err != nil {
		return ds, nil, err
	}

	log.WithFields(logrus.Fields{
		"punches":    len(ds.Punches),
		"approvals":  len(ds.Approvals),
		"attendance": len(ds.Attendance),
	}).Info("month loaded from local files")
	return ds, deductions, nil
}

func (l *LocalDir) calendar(ctx context.Context, punches []overtime.PunchRecord) ([]generic.CalendarDay, error) {
	raw, err := os.ReadFile(filepath.Join(l.Dir, LocalHolidayFile))
	if err == nil {
		return ParseHolidayYear(raw)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if l.Holidays == nil {
		return nil, &generic.EmptyDataError{Dataset: "holidays"}
	}
	days, err := overtime.GroupPunches(punches)
	if err != nil {
		return nil, err
	}
	l.logger().Info("no local holiday file, fetching the calendar online")
	return l.Holidays.Year(ctx, days[0].Date.Year())
}

// read decodes the named file into v. A missing file leaves v untouched.
func (l *LocalDir) read(name string, v any) (bool, error) {
	raw, err := os.ReadFile(filepath.Join(l.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (l *LocalDir) logger() logrus.FieldLogger {
	if l.Log == nil {
		return logrus.StandardLogger()
	}
	return l.Log
}
