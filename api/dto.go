/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. The computed month is
  returned as overtime.Result unchanged; the wrappers here add what the
  store knows about a run (id, creation time).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Calculation:
    CalculationRequest, ReportDTO, ReportSummaryDTO

  Credentials:
    CredentialsRequest, CredentialsDTO

SEE ALSO:
  - handlers.go: Uses these types
  - overtime/calculator.go: Dataset and Result
*/
package api

import (
	"time"

	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// CALCULATIONS
// =============================================================================

// CalculationRequest is a month uploaded for calculation. Deduction forms are
// supplied inline, keyed by the AUTHKEY of their approval.
type CalculationRequest struct {
	overtime.Dataset
	Deductions map[string][]overtime.DeductionForm `json:"deductions,omitempty"`
}

// ReportDTO is a stored calculation.
type ReportDTO struct {
	ID        string           `json:"id"`
	EntityID  string           `json:"entity_id"`
	Month     string           `json:"month"`
	CreatedAt string           `json:"created_at"`
	Result    *overtime.Result `json:"result"`
}

// ReportSummaryDTO is a stored calculation in listings.
type ReportSummaryDTO struct {
	ID                string         `json:"id"`
	Month             string         `json:"month"`
	CreatedAt         string         `json:"created_at"`
	TotalOvertimePay  string         `json:"total_overtime_pay"`
	ActualOvertimePay string         `json:"actual_overtime_pay"`
	TotalAllowance    string         `json:"total_allowance"`
	Grade             overtime.Grade `json:"grade"`
}

func toReportDTO(rec generic.ReportRecord, res *overtime.Result) ReportDTO {
	return ReportDTO{
		ID:        string(rec.ID),
		EntityID:  string(rec.EntityID),
		Month:     rec.Period.Key(),
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		Result:    res,
	}
}

func toReportSummaryDTO(rec generic.ReportRecord, res *overtime.Result) ReportSummaryDTO {
	dto := ReportSummaryDTO{
		ID:        string(rec.ID),
		Month:     rec.Period.Key(),
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
	if res != nil && res.Summary != nil {
		dto.TotalOvertimePay = res.Summary.TotalOvertimePay.Fixed(2)
		dto.ActualOvertimePay = res.Summary.ActualOvertimePay.Fixed(2)
		dto.TotalAllowance = res.Summary.TotalAllowance.Fixed(2)
		dto.Grade = res.Summary.Grade
	}
	return dto
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// CredentialsRequest stores an HR session cookie. Endpoint variables are
// optional; missing ones are discovered on the next sync.
type CredentialsRequest struct {
	Cookie           string `json:"cookie"`
	ClockInVariable  string `json:"clock_in_variable,omitempty"`
	ApprovalVariable string `json:"approval_variable,omitempty"`
}

// CredentialsDTO never echoes the cookie.
type CredentialsDTO struct {
	EntityID  string            `json:"entity_id"`
	Endpoints map[string]string `json:"endpoints"`
	UpdatedAt string            `json:"updated_at"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Month       string `json:"month"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
