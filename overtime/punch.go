package overtime

import (
	"sort"
	"strings"

	"github.com/warp/overtime-engine/generic"
)

// PunchRecord is one clock-in entry as delivered by the HR system.
type PunchRecord struct {
	ShiftTerm string `json:"SHIFTTERM"` // YYYY-MM-DD, the shift the punch belongs to
	CardTime  string `json:"CARDTIME"`  // "YYYY-MM-DD HH:MM:SS", optionally followed by the remote marker
}

// Punch is a parsed PunchRecord.
type Punch struct {
	Date  generic.TimePoint
	Check CheckTime
}

// ParsePunch validates both fields. A missing or malformed field is a FormatError.
func ParsePunch(rec PunchRecord) (Punch, error) {
	date, err := generic.ParseDate(rec.ShiftTerm)
	if err != nil {
		return Punch{}, err
	}

	// The date portion of CARDTIME is ignored; the shift date wins.
	card := strings.TrimSpace(rec.CardTime)
	if len(card) < 11 {
		return Punch{}, &generic.FormatError{Field: "CARDTIME", Value: rec.CardTime, Layout: "2006-01-02 15:04:05"}
	}
	check, err := ParseCheckTime(card[11:])
	if err != nil {
		return Punch{}, err
	}
	return Punch{Date: date, Check: check}, nil
}

// DayPunches is every check time recorded for one shift date.
type DayPunches struct {
	Date   generic.TimePoint
	Checks []CheckTime
}

// Earliest returns the first check of the day.
func (d DayPunches) Earliest() CheckTime { return d.Checks[0] }

// Latest returns the last check of the day.
func (d DayPunches) Latest() CheckTime { return d.Checks[len(d.Checks)-1] }

// GroupPunches parses the records and groups them by shift date. Days are
// returned in date order; checks within a day are sorted by time of day.
func GroupPunches(records []PunchRecord) ([]DayPunches, error) {
	byDate := make(map[generic.TimePoint][]CheckTime)
	for _, rec := range records {
		p, err := ParsePunch(rec)
		if err != nil {
			return nil, err
		}
		byDate[p.Date] = append(byDate[p.Date], p.Check)
	}

	days := make([]DayPunches, 0, len(byDate))
	for date, checks := range byDate {
		sort.SliceStable(checks, func(i, j int) bool {
			return checks[i].Clock.Before(checks[j].Clock)
		})
		days = append(days, DayPunches{Date: date, Checks: checks})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days, nil
}
