/*
scenarios.go - Demo months for testing and demonstrations

PURPOSE:

	Provides pre-built months that run through the full calculation without
	an HR session. Each scenario carries punches, a holiday calendar,
	approvals and deduction forms that exercise one part of the rules.

AVAILABLE SCENARIOS:

	regular-month:  Weekday overtime, a late arrival, no leave
	holiday-month:  Public holiday, weekend and make-up workday
	leave-month:    Annual and personal leave plus a delay deduction

HOW SCENARIOS WORK:
 1. Build the month dataset
 2. Run overtime.Calculator with the scenario's deduction forms
 3. Store the result as a report of the "demo" employee

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "holiday-month"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create a builder function: xxxScenario() scenarioData
 3. Add it to the 'builders' map

SEE ALSO:
  - handlers.go: saveResult
  - overtime/calculator.go: Calculation pipeline
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// DemoEntity owns every report a scenario stores.
const DemoEntity generic.EntityID = "demo"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "regular-month",
		Name:        "Regular Month",
		Description: "Weekday overtime with one late arrival",
		Month:       "2024-03",
	},
	{
		ID:          "holiday-month",
		Name:        "Holiday Month",
		Description: "Qingming holiday at triple wage, weekend work and a make-up workday",
		Month:       "2024-04",
	},
	{
		ID:          "leave-month",
		Name:        "Leave Month",
		Description: "Annual and personal leave plus a delay-deduction approval",
		Month:       "2024-05",
	},
}

type scenarioData struct {
	dataset    overtime.Dataset
	deductions overtime.StaticDeductions
}

var builders = map[string]func() scenarioData{
	"regular-month": regularMonthScenario,
	"holiday-month": holidayMonthScenario,
	"leave-month":   leaveMonthScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario calculates a demo month and stores it as a report.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	build, ok := builders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	data := build()

	calc := overtime.NewCalculator(data.deductions, h.Log)
	calc.Now = h.Now
	result, err := calc.Calculate(r.Context(), data.dataset)
	if err != nil {
		writeDomainError(w, "Scenario calculation failed", err)
		return
	}

	rec, err := h.saveResult(r.Context(), result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store report", err)
		return
	}

	h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusCreated, toReportDTO(rec, result))
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

// workday appends the first and last punch of a shift.
func workday(punches []overtime.PunchRecord, date, in, out string) []overtime.PunchRecord {
	return append(punches,
		overtime.PunchRecord{ShiftTerm: date, CardTime: date + " " + in},
		overtime.PunchRecord{ShiftTerm: date, CardTime: date + " " + out},
	)
}

// officeHours punches every Monday to Friday of the month from 09:00 to 18:00.
func officeHours(year int, month time.Month, skip map[int]bool) []overtime.PunchRecord {
	var punches []overtime.PunchRecord
	for _, d := range generic.MonthPeriod(year, month).Days() {
		if skip[d.Day()] || d.IsWeekend() {
			continue
		}
		punches = workday(punches, d.String(), "09:00:00", "18:00:00")
	}
	return punches
}

func regularMonthScenario() scenarioData {
	// Evenings on the 5th and 12th, and a late arrival on the 20th.
	punches := officeHours(2024, time.March, map[int]bool{5: true, 12: true, 20: true})
	punches = workday(punches, "2024-03-05", "09:00:00", "21:30:00")
	punches = workday(punches, "2024-03-12", "08:55:00", "20:00:00")
	punches = workday(punches, "2024-03-20", "09:17:00", "18:30:00")

	return scenarioData{
		dataset: overtime.Dataset{
			EntityID: DemoEntity,
			Punches:  punches,
			CalendarDays: []generic.CalendarDay{
				{Date: generic.NewTimePoint(2024, time.January, 1), Name: "元旦", Holiday: true, Wage: 3},
			},
		},
	}
}

func holidayMonthScenario() scenarioData {
	punches := officeHours(2024, time.April, map[int]bool{4: true, 5: true})
	punches = workday(punches, "2024-04-04", "10:00:00", "16:00:00") // holiday, triple wage
	punches = workday(punches, "2024-04-07", "09:00:00", "19:00:00") // make-up workday
	punches = workday(punches, "2024-04-13", "10:00:00", "15:30:00") // weekend

	return scenarioData{
		dataset: overtime.Dataset{
			EntityID: DemoEntity,
			Punches:  punches,
			CalendarDays: []generic.CalendarDay{
				{Date: generic.NewTimePoint(2024, time.April, 4), Name: "清明节", Holiday: true, Wage: 3},
				{Date: generic.NewTimePoint(2024, time.April, 5), Name: "清明节", Holiday: true, Wage: 2},
				{Date: generic.NewTimePoint(2024, time.April, 6), Name: "清明节", Holiday: true, Wage: 2},
				{Date: generic.NewTimePoint(2024, time.April, 7), Name: "清明节", Holiday: false, Wage: 1},
			},
		},
	}
}

func leaveMonthScenario() scenarioData {
	punches := officeHours(2024, time.May, map[int]bool{1: true, 2: true, 3: true, 13: true, 21: true, 28: true})
	punches = workday(punches, "2024-05-13", "13:00:00", "20:00:00") // morning annual leave
	punches = workday(punches, "2024-05-21", "09:00:00", "21:00:00") // evening partly deducted
	punches = workday(punches, "2024-05-28", "09:00:00", "19:00:00") // personal leave after lunch

	return scenarioData{
		dataset: overtime.Dataset{
			EntityID: DemoEntity,
			Punches:  punches,
			CalendarDays: []generic.CalendarDay{
				{Date: generic.NewTimePoint(2024, time.May, 1), Name: "劳动节", Holiday: true, Wage: 3},
				{Date: generic.NewTimePoint(2024, time.May, 2), Name: "劳动节", Holiday: true, Wage: 2},
				{Date: generic.NewTimePoint(2024, time.May, 3), Name: "劳动节", Holiday: true, Wage: 2},
				{Date: generic.NewTimePoint(2024, time.May, 11), Name: "劳动节", Holiday: false, Wage: 1},
			},
			Approvals: []overtime.ApprovalRecord{
				{Abstracts: "演示|年假|已通过|2024-05-13 09:00 - 2024-05-13 12:00"},
				{Abstracts: "演示|事假|已通过|2024-05-28 13:00 至 2024-05-28 15:00"},
				{Abstracts: "演示|延时工时扣减申请|已通过", AuthKey: "demo-deduction"},
			},
		},
		deductions: overtime.StaticDeductions{
			"demo-deduction": {
				{CardBeginTime: "2024-05-21T19:00:00", CardEndTime: "2024-05-21T20:00:00"},
			},
		},
	}
}
