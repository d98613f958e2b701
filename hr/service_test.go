package hr_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/generic/store"
	"github.com/warp/overtime-engine/hr"
	"github.com/warp/overtime-engine/overtime"
)

const holidays2024 = `{
	"code": 0,
	"holiday": {
		"04-04": {"holiday": true, "name": "清明节", "wage": 3, "date": "2024-04-04"},
		"04-07": {"holiday": false, "name": "清明节后补班", "wage": 1, "date": "2024-04-07"},
		"01-01": {"holiday": true, "name": "元旦", "wage": 3, "date": "2024-01-01"}
	}
}`

func newHolidayServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/api/holiday/year/2024" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// =============================================================================
// HOLIDAY TESTS
// =============================================================================

func TestParseHolidayYear(t *testing.T) {
	days, err := hr.ParseHolidayYear([]byte(holidays2024))
	require.NoError(t, err)

	require.Len(t, days, 3)
	assert.Equal(t, generic.NewTimePoint(2024, time.January, 1), days[0].Date)
	assert.Equal(t, generic.NewTimePoint(2024, time.April, 7), days[2].Date)
	assert.False(t, days[2].Holiday)
	assert.Equal(t, 3, days[1].Wage)
	assert.Equal(t, "清明节", days[1].Name)
}

func TestParseHolidayYear_Empty(t *testing.T) {
	for _, body := range []string{`{"holiday":{}}`, `{}`, `not json`} {
		_, err := hr.ParseHolidayYear([]byte(body))
		assert.True(t, errors.Is(err, generic.ErrEmptyData), body)
	}
}

func TestParseHolidayYear_BadDate(t *testing.T) {
	_, err := hr.ParseHolidayYear([]byte(`{"holiday":{"04-04":{"holiday":true,"wage":3,"date":"2024/04/04"}}}`))
	assert.True(t, errors.Is(err, generic.ErrFormat))
}

func TestHolidayClient_CachesYear(t *testing.T) {
	// GIVEN: An empty cache
	srv, hits := newHolidayServer(t, holidays2024)
	mem := store.NewMemory()
	logger, _ := logtest.NewNullLogger()
	client := hr.NewHolidayClient(srv.URL+"/api/holiday/year/", time.Second, mem, logger)

	// WHEN: The same year is requested twice
	first, err := client.Year(context.Background(), 2024)
	require.NoError(t, err)
	second, err := client.Year(context.Background(), 2024)
	require.NoError(t, err)

	// THEN: The API is called once
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, first, second)
}

func TestHolidayClient_UpstreamFailure(t *testing.T) {
	srv, _ := newHolidayServer(t, holidays2024)
	client := hr.NewHolidayClient(srv.URL+"/elsewhere", time.Second, nil, nil)

	_, err := client.Year(context.Background(), 2024)
	assert.Error(t, err)
}

// =============================================================================
// SERVICE TESTS
// =============================================================================

type fakeMonth struct {
	punches []overtime.PunchRecord
	err     error
}

func (f fakeMonth) ClockIn(context.Context, generic.Period) ([]overtime.PunchRecord, error) {
	return f.punches, f.err
}

func (f fakeMonth) Attendance(context.Context, generic.Period) ([]overtime.AttendanceRecord, error) {
	return []overtime.AttendanceRecord{{Term: "2024-04-01", LateMinutes: "5", Late: "1", LateMin: "5"}}, nil
}

func (f fakeMonth) Approvals(context.Context) ([]overtime.ApprovalRecord, error) {
	return []overtime.ApprovalRecord{{Abstracts: "张三|延时工时扣减申请|已通过", AuthKey: "d1"}}, nil
}

func (f fakeMonth) DeductionForms(context.Context, string) ([]overtime.DeductionForm, error) {
	return []overtime.DeductionForm{{CardBeginTime: "2024-04-01T19:00:00", CardEndTime: "2024-04-01T20:00:00"}}, nil
}

type fakeCalendar []generic.CalendarDay

func (f fakeCalendar) Year(context.Context, int) ([]generic.CalendarDay, error) { return f, nil }

func aprilPunches() []overtime.PunchRecord {
	return []overtime.PunchRecord{
		{ShiftTerm: "2024-04-01", CardTime: "2024-04-01 09:05:00"},
		{ShiftTerm: "2024-04-01", CardTime: "2024-04-01 22:00:00"},
	}
}

func TestService_Sync(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	svc := hr.NewService(
		fakeMonth{punches: aprilPunches()},
		fakeCalendar{{Date: generic.NewTimePoint(2024, time.April, 4), Holiday: true, Wage: 3}},
		logger,
	)

	result, err := svc.Sync(context.Background(), "self", generic.MonthPeriod(2024, time.April))
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	// 3h after 19:00, one hour deducted
	assert.Equal(t, "2.00", row.Overtime.Fixed(2))
	assert.Equal(t, "5", row.LateMinutes.Fixed(0))
	assert.Equal(t, generic.EntityID("self"), result.EntityID)
}

func TestService_NoPunches(t *testing.T) {
	svc := hr.NewService(fakeMonth{}, fakeCalendar{}, nil)

	_, err := svc.Load(context.Background(), "self", generic.MonthPeriod(2024, time.April))

	assert.True(t, errors.Is(err, generic.ErrEmptyData))
}

func TestService_FetchFailureAborts(t *testing.T) {
	svc := hr.NewService(fakeMonth{err: generic.ErrSessionExpired}, fakeCalendar{}, nil)

	_, err := svc.Load(context.Background(), "self", generic.MonthPeriod(2024, time.April))

	assert.True(t, errors.Is(err, generic.ErrSessionExpired))
}

// =============================================================================
// LOCAL DIRECTORY TESTS
// =============================================================================

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLocalDir_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, hr.LocalPunchFile, `[{"SHIFTTERM":"2024-04-01","CARDTIME":"2024-04-01 09:05:00"}]`)
	writeFile(t, dir, hr.LocalHolidayFile, holidays2024)
	writeFile(t, dir, hr.LocalDeductionFile, `{"d1":[{"CARDBEGINTIME":"2024-04-01T19:00:00","CARDENDTIME":"2024-04-01T19:15:00"}]}`)

	local := &hr.LocalDir{Dir: dir}
	ds, deductions, err := local.Load(context.Background(), "self")
	require.NoError(t, err)

	assert.Len(t, ds.Punches, 1)
	assert.Len(t, ds.CalendarDays, 3)
	assert.Empty(t, ds.Approvals)
	assert.Empty(t, ds.Attendance)
	assert.Len(t, deductions["d1"], 1)
}

func TestLocalDir_FallsBackToOnlineCalendar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, hr.LocalPunchFile, `[{"SHIFTTERM":"2024-04-01","CARDTIME":"2024-04-01 09:05:00"}]`)

	local := &hr.LocalDir{
		Dir:      dir,
		Holidays: fakeCalendar{{Date: generic.NewTimePoint(2024, time.April, 4), Holiday: true, Wage: 3}},
	}
	ds, _, err := local.Load(context.Background(), "self")
	require.NoError(t, err)
	assert.Len(t, ds.CalendarDays, 1)
}

func TestLocalDir_MissingPunchFile(t *testing.T) {
	local := &hr.LocalDir{Dir: t.TempDir()}

	_, _, err := local.Load(context.Background(), "self")

	assert.True(t, errors.Is(err, generic.ErrEmptyData))
}

func TestLocalDir_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, hr.LocalPunchFile, `{not json`)

	_, _, err := (&hr.LocalDir{Dir: dir}).Load(context.Background(), "self")

	assert.Error(t, err)
}
