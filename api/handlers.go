/*
handlers.go - HTTP API handlers for the overtime engine

PURPOSE:
  Exposes the month calculation via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the overtime and hr packages.

ENDPOINTS:
  Calculations:
    POST   /api/calculations                          Calculate an uploaded month

  Employees:
    POST   /api/employees/{id}/months/{month}/sync    Fetch the month from HR and calculate
    GET    /api/employees/{id}/months/{month}         Latest report for the month
    GET    /api/employees/{id}/months/{month}/csv     Latest report as CSV workbook
    GET    /api/employees/{id}/reports                All stored reports, newest first
    PUT    /api/employees/{id}/credentials            Store an HR session cookie
    DELETE /api/employees/{id}/credentials            Forget the HR session

  Holidays:
    GET    /api/holidays/{year}                       Holiday calendar of a year

  Scenarios:
    GET    /api/scenarios                             List demo months
    POST   /api/scenarios/load                        Calculate and store a demo month

  {month} is YYYY-MM.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Load data (upload or HR) and run overtime.Calculator
  4. Persist the result as a new report
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, bad dates
  - 401: HR session expired, a new cookie is needed
  - 404: Nothing stored
  - 422: Empty punch or holiday data
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background month sync
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/hr"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// MonthSyncer fetches a month from the HR system and calculates it.
type MonthSyncer interface {
	Sync(ctx context.Context, entityID generic.EntityID, period generic.Period) (*overtime.Result, error)
}

// SyncerFunc returns the syncer that acts with the employee's own session.
type SyncerFunc func(entityID generic.EntityID) MonthSyncer

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    generic.Store
	Syncers  SyncerFunc
	Holidays hr.CalendarSource
	Log      logrus.FieldLogger

	Now   func() time.Time
	NewID func() string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store generic.Store, syncers SyncerFunc, holidays hr.CalendarSource, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:    store,
		Syncers:  syncers,
		Holidays: holidays,
		Log:      log,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// CreateCalculation calculates an uploaded month and stores the result.
func (h *Handler) CreateCalculation(w http.ResponseWriter, r *http.Request) {
	var req CalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EntityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required", nil)
		return
	}

	calc := overtime.NewCalculator(overtime.StaticDeductions(req.Deductions), h.Log)
	calc.Now = h.Now
	result, err := calc.Calculate(r.Context(), req.Dataset)
	if err != nil {
		writeDomainError(w, "Calculation failed", err)
		return
	}

	rec, err := h.saveResult(r.Context(), result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store report", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportDTO(rec, result))
}

// SyncMonth fetches the month from the HR system, calculates and stores it.
func (h *Handler) SyncMonth(w http.ResponseWriter, r *http.Request) {
	entityID := generic.EntityID(chi.URLParam(r, "id"))
	period, err := generic.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month, want YYYY-MM", err)
		return
	}
	if h.Syncers == nil {
		writeError(w, http.StatusServiceUnavailable, "HR sync is not configured", nil)
		return
	}

	rec, result, err := h.syncAndStore(r.Context(), entityID, period)
	if err != nil {
		writeDomainError(w, "Sync failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportDTO(rec, result))
}

// syncAndStore is shared with the scheduler.
func (h *Handler) syncAndStore(ctx context.Context, entityID generic.EntityID, period generic.Period) (generic.ReportRecord, *overtime.Result, error) {
	result, err := h.Syncers(entityID).Sync(ctx, entityID, period)
	if err != nil {
		return generic.ReportRecord{}, nil, err
	}
	if result.Period.Key() != period.Key() {
		h.Log.WithFields(logrus.Fields{
			"entity_id": entityID,
			"requested": period.Key(),
			"returned":  result.Period.Key(),
		}).Warn("HR returned punches of another month")
	}
	rec, err := h.saveResult(ctx, result)
	if err != nil {
		return generic.ReportRecord{}, nil, err
	}
	return rec, result, nil
}

func (h *Handler) saveResult(ctx context.Context, result *overtime.Result) (generic.ReportRecord, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return generic.ReportRecord{}, err
	}
	rec := generic.ReportRecord{
		ID:        generic.ReportID(h.NewID()),
		EntityID:  result.EntityID,
		Period:    result.Period,
		Payload:   payload,
		CreatedAt: h.Now().UTC(),
	}
	if err := h.Store.SaveReport(ctx, rec); err != nil {
		return generic.ReportRecord{}, err
	}
	return rec, nil
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetMonth returns the latest report for the month.
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	rec, result, ok := h.latest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rec, result))
}

// GetMonthCSV returns the latest report for the month as CSV workbook.
func (h *Handler) GetMonthCSV(w http.ResponseWriter, r *http.Request) {
	_, result, ok := h.latest(w, r)
	if !ok {
		return
	}

	body, err := report.Bytes(result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render report", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(report.FileName(result.Period)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) (generic.ReportRecord, *overtime.Result, bool) {
	entityID := generic.EntityID(chi.URLParam(r, "id"))
	period, err := generic.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month, want YYYY-MM", err)
		return generic.ReportRecord{}, nil, false
	}

	rec, err := h.Store.LatestReport(r.Context(), entityID, period)
	if err != nil {
		writeDomainError(w, "No report for this month", err)
		return generic.ReportRecord{}, nil, false
	}

	var result overtime.Result
	if err := json.Unmarshal(rec.Payload, &result); err != nil {
		writeError(w, http.StatusInternalServerError, "Stored report is corrupt", err)
		return generic.ReportRecord{}, nil, false
	}
	return rec, &result, true
}

// ListReports returns every stored report of the employee, newest first.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	entityID := generic.EntityID(chi.URLParam(r, "id"))

	records, err := h.Store.ListReports(r.Context(), entityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reports", err)
		return
	}

	dtos := make([]ReportSummaryDTO, 0, len(records))
	for _, rec := range records {
		var result overtime.Result
		if err := json.Unmarshal(rec.Payload, &result); err != nil {
			h.Log.WithError(err).WithField("report_id", rec.ID).Warn("skipping unreadable report")
			continue
		}
		dtos = append(dtos, toReportSummaryDTO(rec, &result))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CREDENTIAL HANDLERS
// =============================================================================

// PutCredentials stores the HR session of the employee.
func (h *Handler) PutCredentials(w http.ResponseWriter, r *http.Request) {
	entityID := generic.EntityID(chi.URLParam(r, "id"))

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Cookie == "" {
		writeError(w, http.StatusBadRequest, "cookie is required", nil)
		return
	}

	endpoints := map[string]string{}
	if req.ClockInVariable != "" {
		endpoints[hr.EndpointClockIn] = req.ClockInVariable
	}
	if req.ApprovalVariable != "" {
		endpoints[hr.EndpointApproval] = req.ApprovalVariable
	}
	rec := generic.CredentialRecord{
		EntityID:  entityID,
		Cookie:    req.Cookie,
		Endpoints: endpoints,
		UpdatedAt: h.Now().UTC(),
	}
	if err := h.Store.SaveCredentials(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store credentials", err)
		return
	}

	writeJSON(w, http.StatusOK, CredentialsDTO{
		EntityID:  string(entityID),
		Endpoints: endpoints,
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	})
}

// DeleteCredentials forgets the HR session of the employee.
func (h *Handler) DeleteCredentials(w http.ResponseWriter, r *http.Request) {
	entityID := generic.EntityID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteCredentials(r.Context(), entityID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete credentials", err)
		return
	}
	h.Log.WithField("entity_id", entityID).Info("HR credentials deleted")
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// GetHolidays returns the calendar deviations of a year.
func (h *Handler) GetHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 2000 || year > 2100 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	if h.Holidays == nil {
		writeError(w, http.StatusServiceUnavailable, "Holiday calendar is not configured", nil)
		return
	}

	days, err := h.Holidays.Year(r.Context(), year)
	if err != nil {
		writeDomainError(w, "Failed to load holidays", err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the engine's error taxonomy to a status code.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, generic.ErrEmptyData):
		return http.StatusUnprocessableEntity
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
