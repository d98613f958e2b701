// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	credentials map[generic.EntityID]generic.CredentialRecord
	calendars   map[int][]generic.CalendarDay
	reports     map[generic.EntityID][]generic.ReportRecord
}

var _ generic.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		credentials: make(map[generic.EntityID]generic.CredentialRecord),
		calendars:   make(map[int][]generic.CalendarDay),
		reports:     make(map[generic.EntityID][]generic.ReportRecord),
	}
}

// =============================================================================
// CREDENTIALS
// =============================================================================

func (m *Memory) LoadCredentials(_ context.Context, entityID generic.EntityID) (generic.CredentialRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.credentials[entityID]
	if !ok {
		return generic.CredentialRecord{}, generic.ErrNotFound
	}
	rec.Endpoints = copyEndpoints(rec.Endpoints)
	return rec, nil
}

func (m *Memory) SaveCredentials(_ context.Context, rec generic.CredentialRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Endpoints = copyEndpoints(rec.Endpoints)
	m.credentials[rec.EntityID] = rec
	return nil
}

func (m *Memory) DeleteCredentials(_ context.Context, entityID generic.EntityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.credentials, entityID)
	return nil
}

func copyEndpoints(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// =============================================================================
// CALENDARS
// =============================================================================

func (m *Memory) LoadCalendar(_ context.Context, year int) ([]generic.CalendarDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	days, ok := m.calendars[year]
	if !ok {
		return nil, generic.ErrNotFound
	}
	return append([]generic.CalendarDay{}, days...), nil
}

func (m *Memory) SaveCalendar(_ context.Context, year int, days []generic.CalendarDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calendars[year] = append([]generic.CalendarDay{}, days...)
	return nil
}

// =============================================================================
// REPORTS (append-only)
// =============================================================================

func (m *Memory) SaveReport(_ context.Context, rec generic.ReportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	reports := m.reports[rec.EntityID]

	// Keep newest first
	i := sort.Search(len(reports), func(i int) bool {
		return !reports[i].CreatedAt.After(rec.CreatedAt)
	})
	reports = append(reports, generic.ReportRecord{})
	copy(reports[i+1:], reports[i:])
	reports[i] = rec
	m.reports[rec.EntityID] = reports
	return nil
}

func (m *Memory) LatestReport(_ context.Context, entityID generic.EntityID, period generic.Period) (generic.ReportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.reports[entityID] {
		if rec.Period.Start.Equal(period.Start) && rec.Period.End.Equal(period.End) {
			return rec, nil
		}
	}
	return generic.ReportRecord{}, generic.ErrNotFound
}

func (m *Memory) ListReports(_ context.Context, entityID generic.EntityID) ([]generic.ReportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]generic.ReportRecord{}, m.reports[entityID]...), nil
}
