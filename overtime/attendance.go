package overtime

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// ATTENDANCE REPORT
// =============================================================================

// NumericString accepts a JSON number, a string or null. The HR system is not
// consistent about which one it sends.
type NumericString string

func (n *NumericString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumericString(s)
		return nil
	}
	*n = NumericString(b)
	return nil
}

// Int returns the value when it is made only of digits, 0 otherwise.
func (n NumericString) Int() int {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return 0
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

// AttendanceRecord is one row of the monthly attendance report.
type AttendanceRecord struct {
	Term        string        `json:"TERM"`
	LateMinutes NumericString `json:"LTRM_1"`
	Late        NumericString `json:"LATE"`    // monthly late count, first record only
	LateMin     NumericString `json:"LATEMIN"` // monthly late minutes, first record only
}

// LatenessReport is the parsed attendance report.
type LatenessReport struct {
	Daily        map[generic.TimePoint]int
	TotalCount   int
	TotalMinutes int
}

// Override returns the late minutes reported for the date. A date the report
// does not list was not late. A nil report overrides nothing.
func (r *LatenessReport) Override(date generic.TimePoint) *int {
	if r == nil {
		return nil
	}
	v := r.Daily[date]
	return &v
}

// ParseAttendance sums per-record late minutes by date and reads the monthly
// totals from the first record. Records without a TERM only contribute to
// the totals; a TERM that is not a date is a FormatError. No records means no
// report, and a nil report is returned.
func ParseAttendance(records []AttendanceRecord) (*LatenessReport, error) {
	if len(records) == 0 {
		return nil, nil
	}
	report := &LatenessReport{Daily: make(map[generic.TimePoint]int)}

	report.TotalCount = records[0].Late.Int()
	report.TotalMinutes = records[0].LateMin.Int()

	for _, rec := range records {
		term := strings.TrimSpace(rec.Term)
		if term == "" {
			continue
		}
		if len(term) > len(generic.DateLayout) {
			term = term[:len(generic.DateLayout)]
		}
		date, err := generic.ParseDate(term)
		if err != nil {
			return nil, err
		}
		report.Daily[date] += rec.LateMinutes.Int()
	}
	return report, nil
}
