package overtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestParser(deductions overtime.DeductionSource) (*overtime.LeaveParser, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return overtime.NewLeaveParser(deductions, logger), hook
}

func approval(category overtime.Category, rng string) overtime.ApprovalRecord {
	return overtime.ApprovalRecord{Abstracts: "张三|" + string(category) + "|已通过|" + rng}
}

func clock(h, m int) generic.ClockTime { return generic.NewClockTime(h, m, 0) }

func iv(sh, sm, eh, em int) overtime.Interval {
	return overtime.Interval{Start: clock(sh, sm), End: clock(eh, em)}
}

type failingDeductions struct{ err error }

func (f failingDeductions) DeductionForms(context.Context, string) ([]overtime.DeductionForm, error) {
	return nil, f.err
}

// =============================================================================
// DAY SPLITTING TESTS
// =============================================================================

func TestParse_MultiDayAnnualLeaveIsSplitPerDay(t *testing.T) {
	// GIVEN: Annual leave from Friday 14:00 to Sunday 10:00
	// WHEN: The record is parsed
	// THEN: [14:00,18:00], [09:00,18:00], [09:00,10:00]
	parser, _ := newTestParser(nil)

	book, skipped, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		approval(overtime.CategoryAnnual, "2024-03-01 14:00 - 2024-03-03 10:00"),
	})
	require.NoError(t, err)
	assert.Empty(t, skipped)

	assert.Equal(t, []overtime.Interval{iv(14, 0, 18, 0)}, book.Annual.For(date(2024, time.March, 1)))
	assert.Equal(t, []overtime.Interval{iv(9, 0, 18, 0)}, book.Annual.For(date(2024, time.March, 2)))
	assert.Equal(t, []overtime.Interval{iv(9, 0, 10, 0)}, book.Annual.For(date(2024, time.March, 3)))
	assert.Empty(t, book.Personal)
}

func TestParse_SingleDayLeaveEndsAtEarlierOfEndAndSixPM(t *testing.T) {
	parser, _ := newTestParser(nil)

	book, _, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		approval(overtime.CategoryPersonal, "2024-03-04 09:00 至 2024-03-04 12:00"),
		approval(overtime.CategoryPersonal, "2024-03-05 14:00 至 2024-03-05 20:00"),
	})
	require.NoError(t, err)

	assert.Equal(t, []overtime.Interval{iv(9, 0, 12, 0)}, book.Personal.For(date(2024, time.March, 4)))
	assert.Equal(t, []overtime.Interval{iv(14, 0, 18, 0)}, book.Personal.For(date(2024, time.March, 5)))
}

func TestParse_IntervalsKeepParseOrder(t *testing.T) {
	parser, _ := newTestParser(nil)

	book, _, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		approval(overtime.CategoryAnnual, "2024-03-04 14:00 - 2024-03-04 16:00"),
		approval(overtime.CategoryAnnual, "2024-03-04 09:00 - 2024-03-04 11:00"),
	})
	require.NoError(t, err)

	first, ok := book.Annual.First(date(2024, time.March, 4))
	require.True(t, ok)
	assert.Equal(t, iv(14, 0, 16, 0), first)
}

// =============================================================================
// PARTIAL FAILURE TESTS
// =============================================================================

func TestParse_MalformedRangeIsReportedAndSkipped(t *testing.T) {
	// GIVEN: One record with a slash-separated range between two valid records
	// THEN: The bad record is skipped with a ParseError, the others are kept
	parser, hook := newTestParser(nil)

	book, skipped, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		approval(overtime.CategoryAnnual, "2024-03-04 09:00 - 2024-03-04 12:00"),
		approval(overtime.CategoryAnnual, "2024-03-05 09:00 / 2024-03-05 12:00"),
		approval(overtime.CategoryPersonal, "2024-03-06 09:00 - 2024-03-06 10:00"),
	})
	require.NoError(t, err)

	require.Len(t, skipped, 1)
	assert.True(t, errors.Is(skipped[0], generic.ErrParse))
	assert.True(t, generic.IsRecoverable(skipped[0]))

	assert.Len(t, book.Annual, 1)
	assert.Len(t, book.Personal, 1)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned, "skipped record must be reported")
}

func TestParse_AbstractWithoutCategoryIsLogged(t *testing.T) {
	// GIVEN: An abstract with no pipe-separated category
	parser, hook := newTestParser(nil)

	// WHEN: It is parsed
	book, skipped, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		{Abstracts: "张三", AuthKey: "a1"},
	})

	// THEN: Nothing is recorded and the skip shows up at Debug
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, book.Annual)
	assert.Empty(t, book.Personal)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "张三", entry.Data["record"])
}

func TestParse_UnparseableTimesAreParseErrors(t *testing.T) {
	parser, _ := newTestParser(nil)

	_, skipped, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		approval(overtime.CategoryAnnual, "2024-03-04 9am - 2024-03-04 12:00"),
		{Abstracts: "张三|年假|已通过"},
	})
	require.NoError(t, err)
	assert.Len(t, skipped, 2)
}

func TestParse_OtherCategoriesAreIgnored(t *testing.T) {
	parser, _ := newTestParser(nil)

	book, skipped, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		approval("加班申请", "2024-03-04 19:00 - 2024-03-04 22:00"),
		{Abstracts: "no-pipes"},
	})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, book.Annual)
	assert.Empty(t, book.Personal)
	assert.Empty(t, book.Deduction)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestParse_CancellationRecordLeavesRecordedLeaveInPlace(t *testing.T) {
	// GIVEN: Annual leave followed by a cancellation of the same range
	// THEN: The cancellation is matched against its own category and removes nothing
	parser, _ := newTestParser(nil)

	book, skipped, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		approval(overtime.CategoryAnnual, "2024-03-04 09:00 - 2024-03-04 12:00"),
		approval(overtime.CategoryCancellation, "2024-03-04 09:00 - 2024-03-04 12:00"),
	})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, []overtime.Interval{iv(9, 0, 12, 0)}, book.Annual.For(date(2024, time.March, 4)))
}

func TestIntervalMap_CancelRemovesOnlyExactMatch(t *testing.T) {
	// GIVEN: Three intervals on one date, one of them the target
	// WHEN: Cancelling the exact (start, end)
	// THEN: Only that interval is removed; overlapping ones are not split
	m := make(overtime.IntervalMap)
	d := date(2024, time.March, 4)
	m.Add(d, iv(9, 0, 12, 0))
	m.Add(d, iv(13, 0, 18, 0))
	m.Add(d, iv(9, 0, 18, 0))

	removed := m.Cancel(d, iv(13, 0, 18, 0))

	assert.Equal(t, 1, removed)
	assert.Equal(t, []overtime.Interval{iv(9, 0, 12, 0), iv(9, 0, 18, 0)}, m.For(d))
}

func TestIntervalMap_CancelWithoutMatchIsNoop(t *testing.T) {
	m := make(overtime.IntervalMap)
	d := date(2024, time.March, 4)
	m.Add(d, iv(9, 0, 12, 0))

	assert.Equal(t, 0, m.Cancel(d, iv(9, 0, 11, 0)))
	assert.Equal(t, 0, m.Cancel(date(2024, time.March, 5), iv(9, 0, 12, 0)))
	assert.Equal(t, []overtime.Interval{iv(9, 0, 12, 0)}, m.For(d))
}

// =============================================================================
// DELAY DEDUCTION TESTS
// =============================================================================

func TestParse_DeductionFormsAreKeyedByBeginDate(t *testing.T) {
	parser, _ := newTestParser(overtime.StaticDeductions{
		"auth-1": {
			{CardBeginTime: "2024-03-05T19:00:00", CardEndTime: "2024-03-05T20:30:00"},
			{CardBeginTime: "2024-03-06T21:00:00", CardEndTime: "2024-03-06T21:30:00"},
		},
	})

	book, _, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		{Abstracts: "张三|延时工时扣减申请|已通过", AuthKey: "auth-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, []overtime.Interval{{Start: generic.NewClockTime(19, 0, 0), End: generic.NewClockTime(20, 30, 0)}},
		book.Deduction.For(date(2024, time.March, 5)))
	hours(t, "0.5", book.Deduction.TotalHours(date(2024, time.March, 6)))
}

func TestParse_DeductionFetchFailureAborts(t *testing.T) {
	parser, _ := newTestParser(failingDeductions{err: generic.ErrSessionExpired})

	_, _, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		{Abstracts: "张三|延时工时扣减申请|已通过", AuthKey: "auth-1"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrSessionExpired))
}

func TestParse_MalformedDeductionTimestampIsFormatError(t *testing.T) {
	parser, _ := newTestParser(overtime.StaticDeductions{
		"auth-1": {{CardBeginTime: "2024-03-05 19:00:00", CardEndTime: "2024-03-05T20:00:00"}},
	})

	_, _, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		{Abstracts: "张三|延时工时扣减申请|已通过", AuthKey: "auth-1"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrFormat))
}

func TestParse_DeductionWithoutAuthKeyIsSkipped(t *testing.T) {
	parser, _ := newTestParser(overtime.StaticDeductions{})

	_, skipped, err := parser.Parse(context.Background(), []overtime.ApprovalRecord{
		{Abstracts: "张三|延时工时扣减申请|已通过"},
	})
	require.NoError(t, err)
	assert.Len(t, skipped, 1)
}
