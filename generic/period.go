package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The month a computation covers
// =============================================================================

// Period is an inclusive range of calendar days.
// Every computation in this system covers exactly one calendar month.
type Period struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// MonthPeriod returns the period spanning the whole calendar month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// ParseMonth parses "YYYY-MM" into its month period.
func ParseMonth(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, &FormatError{Field: "month", Value: s, Layout: "2006-01"}
	}
	return MonthPeriod(t.Year(), t.Month()), nil
}

// Contains returns true if the day is within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period in order.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) Len() int { return int(p.End.Time.Sub(p.Start.Time).Hours()/24) + 1 }

func (p Period) Year() int          { return p.Start.Year() }
func (p Period) Month() time.Month  { return p.Start.Month() }
func (p Period) Key() string        { return p.Start.MonthKey() }
func (p Period) IsZero() bool       { return p.Start.IsZero() && p.End.IsZero() }

func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
	}
	return nil
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
