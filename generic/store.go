/*
store.go - Persistence interfaces

PURPOSE:
  Defines the interface between the engine and the database. The calculation
  core never touches persistence; only the HR boundary and the API read and
  write through these interfaces. Different implementations can use SQLite
  or in-memory storage.

KEY INTERFACES:
  CredentialStore: HR session cookie and discovered endpoint variables
  CalendarStore:   Holiday calendars cached per year
  ReportStore:     Computed month reports (append-only history)

APPEND-ONLY REPORTS:
  A month can be recomputed any number of times. Each computation is a new
  ReportRecord; LatestReport returns the newest for a month. Old runs are
  kept so a changed number can be explained by diffing two runs.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - hr/session.go: Uses CredentialStore
  - hr/holiday.go: Uses CalendarStore
  - api/handlers.go: Uses ReportStore
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// CREDENTIALS - HR session state
// =============================================================================

// CredentialRecord is the session material needed to call the HR system.
type CredentialRecord struct {
	EntityID  EntityID
	Cookie    string
	Endpoints map[string]string // e.g., "clock_in" -> "5b1c..." URL variable
	UpdatedAt time.Time
}

type CredentialStore interface {
	// LoadCredentials returns ErrNotFound when nothing is stored.
	LoadCredentials(ctx context.Context, entityID EntityID) (CredentialRecord, error)

	// SaveCredentials replaces the stored record.
	SaveCredentials(ctx context.Context, rec CredentialRecord) error

	// DeleteCredentials removes the stored record. Deleting nothing is not an error.
	DeleteCredentials(ctx context.Context, entityID EntityID) error
}

// =============================================================================
// CALENDAR - Holiday / makeup-workday days per year
// =============================================================================

// CalendarDay is a day that deviates from the plain weekday/weekend rule.
// Holiday=true days carry a wage multiplier class; Holiday=false days are
// weekend days designated as makeup workdays.
type CalendarDay struct {
	Date    TimePoint `json:"date"`
	Name    string    `json:"name,omitempty"`
	Holiday bool      `json:"holiday"`
	Wage    int       `json:"wage"`
}

type CalendarStore interface {
	// LoadCalendar returns ErrNotFound when the year is not cached.
	LoadCalendar(ctx context.Context, year int) ([]CalendarDay, error)

	// SaveCalendar replaces the cached days for the year.
	SaveCalendar(ctx context.Context, year int, days []CalendarDay) error
}

// =============================================================================
// REPORTS - Computed month results
// =============================================================================

type ReportRecord struct {
	ID        ReportID
	EntityID  EntityID
	Period    Period
	Payload   []byte // JSON-encoded report
	CreatedAt time.Time
}

type ReportStore interface {
	SaveReport(ctx context.Context, rec ReportRecord) error

	// LatestReport returns the newest report for the month, or ErrNotFound.
	LatestReport(ctx context.Context, entityID EntityID, period Period) (ReportRecord, error)

	// ListReports returns all reports for the entity, newest first.
	ListReports(ctx context.Context, entityID EntityID) ([]ReportRecord, error)
}

// Store is the full persistence surface.
type Store interface {
	CredentialStore
	CalendarStore
	ReportStore
}
