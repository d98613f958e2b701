/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Store (credentials, holiday calendars, month reports)
  using SQLite. The calculation core never sees this package; only the HR
  boundary, the API and the CLI do.

INTERFACES IMPLEMENTED:
  generic.CredentialStore: HR session cookie and endpoint variables
  generic.CalendarStore:   Holiday calendars cached per year
  generic.ReportStore:     Computed month reports

APPEND-ONLY REPORTS:
  - No UPDATE statements on the reports table
  - Recomputing a month inserts a new row
  - LatestReport picks the newest row for the month

KEY TABLES:
  credentials:   One row per employee, replaced on save
  calendar_days: Holiday and makeup-workday dates, replaced per year
  reports:       Month reports, JSON payload

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of the driver.

USAGE:
  store, err := sqlite.New("./data/overtime.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/overtime-engine/generic"
)

// timestampLayout sorts lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements generic.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.HasPrefix(dbPath, ":memory:") {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		entity_id TEXT PRIMARY KEY,
		cookie TEXT NOT NULL,
		endpoints_json TEXT NOT NULL DEFAULT '{}',
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS calendar_days (
		date TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		name TEXT,
		holiday INTEGER NOT NULL,
		wage INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calendar_days_year
		ON calendar_days(year);

	-- Years fetched so far, so an empty year is distinguishable from a missing one
	CREATE TABLE IF NOT EXISTS calendar_years (
		year INTEGER PRIMARY KEY,
		fetched_at TEXT NOT NULL
	);

	-- Month reports (append-only)
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_entity_period
		ON reports(entity_id, period_start, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CREDENTIALS (generic.CredentialStore)
// =============================================================================

func (s *Store) LoadCredentials(ctx context.Context, entityID generic.EntityID) (generic.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := generic.CredentialRecord{EntityID: entityID}
	var endpointsJSON, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT cookie, endpoints_json, updated_at FROM credentials WHERE entity_id = ?",
		string(entityID),
	).Scan(&rec.Cookie, &endpointsJSON, &updatedAt)

	if err == sql.ErrNoRows {
		return generic.CredentialRecord{}, generic.ErrNotFound
	}
	if err != nil {
		return generic.CredentialRecord{}, err
	}

	if err := json.Unmarshal([]byte(endpointsJSON), &rec.Endpoints); err != nil {
		return generic.CredentialRecord{}, fmt.Errorf("decode endpoints for %s: %w", entityID, err)
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

func (s *Store) SaveCredentials(ctx context.Context, rec generic.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	endpoints := rec.Endpoints
	if endpoints == nil {
		endpoints = map[string]string{}
	}
	endpointsJSON, err := json.Marshal(endpoints)
	if err != nil {
		return err
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		INSERT INTO credentials (entity_id, cookie, endpoints_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			cookie = excluded.cookie,
			endpoints_json = excluded.endpoints_json,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		string(rec.EntityID), rec.Cookie, string(endpointsJSON),
		updatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) DeleteCredentials(ctx context.Context, entityID generic.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE entity_id = ?", string(entityID))
	return err
}

// =============================================================================
// CALENDARS (generic.CalendarStore)
// =============================================================================

func (s *Store) LoadCalendar(ctx context.Context, year int) ([]generic.CalendarDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fetchedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT fetched_at FROM calendar_years WHERE year = ?", year,
	).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, generic.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT date, name, holiday, wage FROM calendar_days WHERE year = ? ORDER BY date",
		year,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []generic.CalendarDay
	for rows.Next() {
		var d generic.CalendarDay
		var dateStr string
		var name sql.NullString
		if err := rows.Scan(&dateStr, &name, &d.Holiday, &d.Wage); err != nil {
			return nil, err
		}
		if d.Date, err = generic.ParseDate(dateStr); err != nil {
			return nil, err
		}
		d.Name = name.String
		days = append(days, d)
	}
	return days, rows.Err()
}

// SaveCalendar replaces the year's days in a single transaction.
func (s *Store) SaveCalendar(ctx context.Context, year int, days []generic.CalendarDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_days WHERE year = ?", year); err != nil {
		return err
	}
	for _, d := range days {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO calendar_days (date, year, name, holiday, wage) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(date) DO UPDATE SET
				year = excluded.year,
				name = excluded.name,
				holiday = excluded.holiday,
				wage = excluded.wage`,
			d.Date.String(), year, nullString(d.Name), d.Holiday, d.Wage,
		)
		if err != nil {
			return fmt.Errorf("save calendar day %s: %w", d.Date, err)
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO calendar_years (year, fetched_at) VALUES (?, ?)
		 ON CONFLICT(year) DO UPDATE SET fetched_at = excluded.fetched_at`,
		year, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// =============================================================================
// REPORTS (generic.ReportStore)
// =============================================================================

func (s *Store) SaveReport(ctx context.Context, rec generic.ReportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, entity_id, period_start, period_end, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(rec.ID), string(rec.EntityID),
		rec.Period.Start.String(), rec.Period.End.String(),
		string(rec.Payload),
		createdAt.UTC().Format(timestampLayout),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("report %s already exists", rec.ID)
	}
	return err
}

func (s *Store) LatestReport(ctx context.Context, entityID generic.EntityID, period generic.Period) (generic.ReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports, err := s.queryReports(ctx,
		`SELECT id, entity_id, period_start, period_end, payload, created_at
		 FROM reports
		 WHERE entity_id = ? AND period_start = ? AND period_end = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
		string(entityID), period.Start.String(), period.End.String(),
	)
	if err != nil {
		return generic.ReportRecord{}, err
	}
	if len(reports) == 0 {
		return generic.ReportRecord{}, generic.ErrNotFound
	}
	return reports[0], nil
}

func (s *Store) ListReports(ctx context.Context, entityID generic.EntityID) ([]generic.ReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReports(ctx,
		`SELECT id, entity_id, period_start, period_end, payload, created_at
		 FROM reports
		 WHERE entity_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		string(entityID),
	)
}

func (s *Store) queryReports(ctx context.Context, query string, args ...any) ([]generic.ReportRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []generic.ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rec)
	}
	return reports, rows.Err()
}

func scanReport(rows *sql.Rows) (generic.ReportRecord, error) {
	var rec generic.ReportRecord
	var id, entityID, start, end, payload, createdAt string

	if err := rows.Scan(&id, &entityID, &start, &end, &payload, &createdAt); err != nil {
		return rec, err
	}

	rec.ID = generic.ReportID(id)
	rec.EntityID = generic.EntityID(entityID)
	rec.Payload = []byte(payload)
	rec.CreatedAt, _ = time.Parse(timestampLayout, createdAt)

	var err error
	if rec.Period.Start, err = generic.ParseDate(start); err != nil {
		return rec, err
	}
	if rec.Period.End, err = generic.ParseDate(end); err != nil {
		return rec, err
	}
	return rec, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"credentials", "calendar_days", "calendar_years", "reports"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
