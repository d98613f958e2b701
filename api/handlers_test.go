/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Uploaded calculations and report persistence
- HR sync with per-employee syncers
- Report lookup as JSON and CSV
- Credential storage
- Error status mapping
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/report"
	"github.com/warp/overtime-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2024, time.April, 2, 10, 0, 0, 0, time.UTC)

const uploadBody = `{
	"entity_id": "emp-1",
	"punches": [
		{"SHIFTTERM": "2024-03-04", "CARDTIME": "2024-03-04 09:10:00"},
		{"SHIFTTERM": "2024-03-04", "CARDTIME": "2024-03-04 21:00:00"}
	],
	"calendar_days": [{"date": "2024-04-04", "holiday": true, "wage": 3}],
	"approvals": [{"ABSTRACTS": "张三|延时工时扣减申请|已通过", "AUTHKEY": "d1"}],
	"deductions": {"d1": [{"CARDBEGINTIME": "2024-03-04T20:00:00", "CARDENDTIME": "2024-03-04T20:30:00"}]}
}`

// stubSyncer calculates a fixed dataset, as if fetched from HR.
type stubSyncer struct {
	ds  overtime.Dataset
	err error
}

func (s stubSyncer) Sync(ctx context.Context, entityID generic.EntityID, _ generic.Period) (*overtime.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	ds := s.ds
	ds.EntityID = entityID
	calc := overtime.NewCalculator(overtime.StaticDeductions{}, nil)
	calc.Now = func() time.Time { return testNow }
	return calc.Calculate(ctx, ds)
}

func aprilDataset() overtime.Dataset {
	return overtime.Dataset{
		Punches: []overtime.PunchRecord{
			{ShiftTerm: "2024-04-01", CardTime: "2024-04-01 09:00:00"},
			{ShiftTerm: "2024-04-01", CardTime: "2024-04-01 20:00:00"},
		},
		CalendarDays: []generic.CalendarDay{{Date: generic.NewTimePoint(2024, time.April, 4), Holiday: true, Wage: 3}},
	}
}

type testServer struct {
	handler *Handler
	store   *sqlite.Store
	router  http.Handler
}

func newTestServer(t *testing.T, syncer MonthSyncer) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger, _ := logtest.NewNullLogger()
	var syncers SyncerFunc
	if syncer != nil {
		syncers = func(generic.EntityID) MonthSyncer { return syncer }
	}

	h := NewHandler(store, syncers, nil, logger)
	h.Now = func() time.Time { return testNow }
	ids := 0
	h.NewID = func() string { ids++; return fmt.Sprintf("report-%d", ids) }

	return &testServer{handler: h, store: store, router: NewRouter(h, nil)}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// =============================================================================
// CALCULATION TESTS
// =============================================================================

func TestCreateCalculation_StoresReport(t *testing.T) {
	// GIVEN: An uploaded month with an inline deduction form
	srv := newTestServer(t, nil)

	// WHEN: It is posted
	rec := srv.do(t, http.MethodPost, "/api/calculations", uploadBody)

	// THEN: The result is returned and stored
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dto := decode[ReportDTO](t, rec)
	assert.Equal(t, "report-1", dto.ID)
	assert.Equal(t, "2024-03", dto.Month)
	require.Len(t, dto.Result.Rows, 1)
	// 2h after 19:00 minus 0.5h deducted
	assert.Equal(t, "1.50", dto.Result.Rows[0].Overtime.Fixed(2))
	assert.Equal(t, "30.00", dto.Result.Summary.TotalOvertimePay.Fixed(2))

	stored, err := srv.store.LatestReport(context.Background(), "emp-1", generic.MonthPeriod(2024, time.March))
	require.NoError(t, err)
	assert.Equal(t, generic.ReportID("report-1"), stored.ID)
}

func TestCreateCalculation_Validation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := map[string]struct {
		body   string
		status int
	}{
		"malformed json":   {`{`, http.StatusBadRequest},
		"missing entity":   {`{"punches": []}`, http.StatusBadRequest},
		"no punches":       {`{"entity_id": "e", "calendar_days": [{"date":"2024-04-04","holiday":true,"wage":3}]}`, http.StatusUnprocessableEntity},
		"no calendar":      {`{"entity_id": "e", "punches": [{"SHIFTTERM":"2024-03-04","CARDTIME":"2024-03-04 09:00:00"}]}`, http.StatusUnprocessableEntity},
		"bad punch format": {`{"entity_id": "e", "punches": [{"SHIFTTERM":"03/04","CARDTIME":"x"}], "calendar_days": [{"date":"2024-04-04","holiday":true,"wage":3}]}`, http.StatusBadRequest},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/calculations", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// SYNC TESTS
// =============================================================================

func TestSyncMonth(t *testing.T) {
	srv := newTestServer(t, stubSyncer{ds: aprilDataset()})

	rec := srv.do(t, http.MethodPost, "/api/employees/self/months/2024-04/sync", "")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dto := decode[ReportDTO](t, rec)
	assert.Equal(t, "self", dto.EntityID)
	assert.Equal(t, "20.00", dto.Result.Summary.TotalOvertimePay.Fixed(2))
	assert.Equal(t, "20.00", dto.Result.Summary.TotalAllowance.Fixed(2))
}

func TestSyncMonth_Errors(t *testing.T) {
	tests := map[string]struct {
		syncer MonthSyncer
		path   string
		status int
	}{
		"bad month":       {stubSyncer{ds: aprilDataset()}, "/api/employees/self/months/2024-13/sync", http.StatusBadRequest},
		"not configured":  {nil, "/api/employees/self/months/2024-04/sync", http.StatusServiceUnavailable},
		"session expired": {stubSyncer{err: fmt.Errorf("clock-in: %w", generic.ErrSessionExpired)}, "/api/employees/self/months/2024-04/sync", http.StatusUnauthorized},
		"nothing punched": {stubSyncer{err: &generic.EmptyDataError{Dataset: "punches"}}, "/api/employees/self/months/2024-04/sync", http.StatusUnprocessableEntity},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, tt.syncer)
			rec := srv.do(t, http.MethodPost, tt.path, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// REPORT TESTS
// =============================================================================

func TestGetMonth_LatestWins(t *testing.T) {
	srv := newTestServer(t, stubSyncer{ds: aprilDataset()})
	srv.do(t, http.MethodPost, "/api/employees/self/months/2024-04/sync", "")
	srv.handler.Now = func() time.Time { return testNow.Add(time.Hour) }
	srv.do(t, http.MethodPost, "/api/employees/self/months/2024-04/sync", "")

	rec := srv.do(t, http.MethodGet, "/api/employees/self/months/2024-04", "")

	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[ReportDTO](t, rec)
	assert.Equal(t, "report-2", dto.ID)
	assert.Equal(t, "2024-04-01", dto.Result.Rows[0].Date.String())

	list := srv.do(t, http.MethodGet, "/api/employees/self/reports", "")
	require.Equal(t, http.StatusOK, list.Code)
	summaries := decode[[]ReportSummaryDTO](t, list)
	require.Len(t, summaries, 2)
	assert.Equal(t, "report-2", summaries[0].ID)
	assert.Equal(t, "20.00", summaries[0].TotalOvertimePay)
	assert.Equal(t, overtime.GradeFor(generic.NewAmount(20, generic.UnitYuan)), summaries[0].Grade)
}

func TestGetMonth_NotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/employees/self/months/2024-04", "").Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/employees/self/months/april", "").Code)
}

func TestGetMonthCSV(t *testing.T) {
	srv := newTestServer(t, stubSyncer{ds: aprilDataset()})
	srv.do(t, http.MethodPost, "/api/employees/self/months/2024-04/sync", "")

	rec := srv.do(t, http.MethodGet, "/api/employees/self/months/2024-04/csv", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filename*=UTF-8''2024")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte(report.BOM)))
	assert.Contains(t, rec.Body.String(), "2024-04-01,09:00:00,20:00:00,工作日,20,1.00,20.00,20.00,40.00")
}

// =============================================================================
// CREDENTIAL TESTS
// =============================================================================

func TestCredentials_PutAndDelete(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	rec := srv.do(t, http.MethodPut, "/api/employees/self/credentials", `{"cookie": "JSESSIONID=abc", "clock_in_variable": "v1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "JSESSIONID")

	stored, err := srv.store.LoadCredentials(ctx, "self")
	require.NoError(t, err)
	assert.Equal(t, "JSESSIONID=abc", stored.Cookie)
	assert.Equal(t, map[string]string{"clock_in": "v1"}, stored.Endpoints)

	rec = srv.do(t, http.MethodDelete, "/api/employees/self/credentials", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = srv.store.LoadCredentials(ctx, "self")
	assert.True(t, generic.IsNotFound(err))
}

func TestCredentials_CookieRequired(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPut, "/api/employees/self/credentials", `{"clock_in_variable": "v1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// HOLIDAY TESTS
// =============================================================================

type stubCalendar []generic.CalendarDay

func (s stubCalendar) Year(context.Context, int) ([]generic.CalendarDay, error) { return s, nil }

func TestGetHolidays(t *testing.T) {
	srv := newTestServer(t, nil)

	assert.Equal(t, http.StatusServiceUnavailable, srv.do(t, http.MethodGet, "/api/holidays/2024", "").Code)

	srv.handler.Holidays = stubCalendar{{Date: generic.NewTimePoint(2024, time.October, 1), Name: "国庆节", Holiday: true, Wage: 3}}
	rec := srv.do(t, http.MethodGet, "/api/holidays/2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"date":"2024-10-01","name":"国庆节","holiday":true,"wage":3}]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/holidays/next", "").Code)
}
