package overtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// APPROVAL RECORDS
// =============================================================================

// ApprovalRecord is one completed approval flow from the HR system.
type ApprovalRecord struct {
	Abstracts string `json:"ABSTRACTS"` // pipe-delimited summary; [1] category, [3] time range
	AuthKey   string `json:"AUTHKEY"`
}

// Category is the label in field 1 of an approval abstract.
type Category string

const (
	CategoryAnnual       Category = "年假"
	CategoryPersonal     Category = "事假"
	CategoryCancellation Category = "销假申请"
	CategoryDeduction    Category = "延时工时扣减申请"
)

// DeductionForm is one entry of a delay-deduction approval's form list.
type DeductionForm struct {
	CardBeginTime string `json:"CARDBEGINTIME"` // YYYY-MM-DDTHH:MM:SS
	CardEndTime   string `json:"CARDENDTIME"`
}

// DeductionSource fetches the forms attached to a delay-deduction approval.
type DeductionSource interface {
	DeductionForms(ctx context.Context, authKey string) ([]DeductionForm, error)
}

// StaticDeductions serves forms from memory, keyed by AUTHKEY.
type StaticDeductions map[string][]DeductionForm

func (s StaticDeductions) DeductionForms(_ context.Context, authKey string) ([]DeductionForm, error) {
	return s[authKey], nil
}

// =============================================================================
// LEAVE PARSER
// =============================================================================

type LeaveParser struct {
	Deductions DeductionSource
	Log        logrus.FieldLogger
}

func NewLeaveParser(deductions DeductionSource, log logrus.FieldLogger) *LeaveParser {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LeaveParser{Deductions: deductions, Log: log}
}

// Parse turns approval records into per-date intervals.
//
// Records with an unreadable time range are reported, skipped and returned in
// skipped; the remaining records are still processed. A failure to fetch or
// read deduction forms aborts the parse.
func (p *LeaveParser) Parse(ctx context.Context, records []ApprovalRecord) (book *LeaveBook, skipped []error, err error) {
	book = NewLeaveBook()

	for _, rec := range records {
		parts := strings.Split(rec.Abstracts, "|")
		if len(parts) < 2 {
			p.Log.WithField("record", rec.Abstracts).Debug("ignoring approval without a category")
			continue
		}
		cat := Category(parts[1])

		switch cat {
		case CategoryAnnual, CategoryPersonal:
			rng, perr := parseRangeField(rec, parts)
			if perr != nil {
				skipped = append(skipped, p.report(perr))
				continue
			}
			target := book.category(cat)
			for _, day := range rng.split() {
				target.Add(day.date, day.interval)
			}

		case CategoryCancellation:
			rng, perr := parseRangeField(rec, parts)
			if perr != nil {
				skipped = append(skipped, p.report(perr))
				continue
			}
			// Matched against the category of the cancellation record itself;
			// annual and personal leave are never touched by this path.
			removed := 0
			if target := book.category(cat); target != nil {
				for _, day := range rng.days() {
					removed += target.Cancel(day, rng.interval())
				}
			}
			p.Log.WithFields(logrus.Fields{
				"range":   rng.String(),
				"removed": removed,
			}).Debug("cancellation record processed")

		case CategoryDeduction:
			if rec.AuthKey == "" {
				skipped = append(skipped, p.report(&generic.ParseError{Record: rec.Abstracts, Reason: "missing AUTHKEY"}))
				continue
			}
			if err := p.addDeductions(ctx, book, rec.AuthKey); err != nil {
				return nil, skipped, err
			}

		default:
			p.Log.WithField("category", cat).Debug("ignoring approval category")
		}
	}

	return book, skipped, nil
}

func (p *LeaveParser) addDeductions(ctx context.Context, book *LeaveBook, authKey string) error {
	if p.Deductions == nil {
		return fmt.Errorf("deduction approval %s: no deduction source configured", authKey)
	}

	p.Log.WithField("auth_key", authKey).Info("fetching delay-deduction forms")
	forms, err := p.Deductions.DeductionForms(ctx, authKey)
	if err != nil {
		return fmt.Errorf("fetch deduction forms %s: %w", authKey, err)
	}

	for _, f := range forms {
		date, begin, err := splitTimestamp(f.CardBeginTime)
		if err != nil {
			return err
		}
		_, end, err := splitTimestamp(f.CardEndTime)
		if err != nil {
			return err
		}
		book.Deduction.Add(date, Interval{Start: begin, End: end})
	}
	return nil
}

func (p *LeaveParser) report(err error) error {
	p.Log.WithError(err).Warn("skipping approval record")
	return err
}

func (b *LeaveBook) category(cat Category) IntervalMap {
	switch cat {
	case CategoryAnnual:
		return b.Annual
	case CategoryPersonal:
		return b.Personal
	default:
		return nil
	}
}

// =============================================================================
// TIME RANGES
// =============================================================================

var rangeSeparators = []string{" - ", " 至 "}

type leaveRange struct {
	start time.Time
	end   time.Time
}

type dayInterval struct {
	date     generic.TimePoint
	interval Interval
}

func parseRangeField(rec ApprovalRecord, parts []string) (leaveRange, error) {
	if len(parts) < 4 {
		return leaveRange{}, &generic.ParseError{Record: rec.Abstracts, Reason: "missing time range"}
	}
	return ParseRange(parts[3])
}

// ParseRange reads "YYYY-MM-DD HH:MM - YYYY-MM-DD HH:MM" or the same with " 至 ".
func ParseRange(s string) (leaveRange, error) {
	var bounds []string
	for _, sep := range rangeSeparators {
		if strings.Contains(s, sep) {
			bounds = strings.Split(s, sep)
			break
		}
	}
	if len(bounds) != 2 {
		return leaveRange{}, &generic.ParseError{Record: s, Reason: "invalid time range format"}
	}

	start, err := time.Parse(generic.RangeLayout, strings.TrimSpace(bounds[0]))
	if err != nil {
		return leaveRange{}, &generic.ParseError{Record: s, Reason: err.Error()}
	}
	end, err := time.Parse(generic.RangeLayout, strings.TrimSpace(bounds[1]))
	if err != nil {
		return leaveRange{}, &generic.ParseError{Record: s, Reason: err.Error()}
	}
	return leaveRange{start: start, end: end}, nil
}

// days lists every calendar day from the start day to the end day.
func (r leaveRange) days() []generic.TimePoint {
	return generic.Period{Start: generic.DateOf(r.start), End: generic.DateOf(r.end)}.Days()
}

// interval is the range's own start and end time of day.
func (r leaveRange) interval() Interval {
	return Interval{Start: generic.ClockOf(r.start), End: generic.ClockOf(r.end)}
}

// split cuts the range into working-day pieces: the first day runs to 18:00
// at the latest, the last day starts at 09:00, full days in between.
func (r leaveRange) split() []dayInterval {
	first, last := generic.DateOf(r.start), generic.DateOf(r.end)

	var out []dayInterval
	for _, day := range r.days() {
		var iv Interval
		switch {
		case day.Equal(first):
			end := LeaveDayEnd
			if day.Equal(last) {
				end = generic.MinClock(generic.ClockOf(r.end), LeaveDayEnd)
			}
			iv = Interval{Start: generic.ClockOf(r.start), End: end}
		case day.Equal(last):
			iv = Interval{Start: LeaveDayStart, End: generic.ClockOf(r.end)}
		default:
			iv = Interval{Start: LeaveDayStart, End: LeaveDayEnd}
		}
		out = append(out, dayInterval{date: day, interval: iv})
	}
	return out
}

func (r leaveRange) String() string {
	return r.start.Format(generic.RangeLayout) + " - " + r.end.Format(generic.RangeLayout)
}

// splitTimestamp splits "YYYY-MM-DDTHH:MM:SS" into its day and time of day.
func splitTimestamp(ts string) (generic.TimePoint, generic.ClockTime, error) {
	datePart, clockPart, ok := strings.Cut(strings.TrimSpace(ts), "T")
	if !ok {
		return generic.TimePoint{}, generic.ClockTime{}, &generic.FormatError{Field: "timestamp", Value: ts, Layout: "2006-01-02T15:04:05"}
	}
	date, err := generic.ParseDate(datePart)
	if err != nil {
		return generic.TimePoint{}, generic.ClockTime{}, err
	}
	clock, err := generic.ParseClock(clockPart)
	if err != nil {
		return generic.TimePoint{}, generic.ClockTime{}, err
	}
	return date, clock, nil
}
