/*
scheduler.go - Automated month sync

PURPOSE:
  Periodically fetches the running month from the HR system for the
  configured accounts and stores a fresh report, so the numbers are current
  without anyone pressing a button.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each check syncs the current month
  - The previous month is synced once more after it has ended, so the
    stored report reflects every punch and late approval of that month
  - A previous month already synced after its end is skipped

CONFIGURATION:
  - CheckInterval: How often to check (SYNC_INTERVAL)
  - Enabled: Whether scheduler is active (interval > 0)

USAGE:
  scheduler := NewSyncScheduler(handler, []generic.EntityID{"self"}, time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: SyncMonth endpoint (manual sync)
  - hr/service.go: Service.Sync
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/generic"
)

// SyncScheduler handles automated month syncs.
type SyncScheduler struct {
	Handler       *Handler
	Accounts      []generic.EntityID
	CheckInterval time.Duration
	Enabled       bool
	Log           logrus.FieldLogger

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSyncScheduler creates a new scheduler. A non-positive interval disables it.
func NewSyncScheduler(handler *Handler, accounts []generic.EntityID, interval time.Duration) *SyncScheduler {
	return &SyncScheduler{
		Handler:       handler,
		Accounts:      accounts,
		CheckInterval: interval,
		Enabled:       interval > 0 && handler.Syncers != nil,
		Log:           handler.Log.WithField("component", "scheduler"),
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *SyncScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		ss.Log.Info("disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	ss.Log.WithField("interval", ss.CheckInterval.String()).Info("started")
}

// Stop stops the scheduler.
func (ss *SyncScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		ss.ticker = nil
		ss.Log.Info("stopped")
	}
}

func (ss *SyncScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.checkAndProcess()

	for {
		select {
		case <-ss.ticker.C:
			ss.checkAndProcess()
		case <-ss.stop:
			return
		}
	}
}

// RunNow triggers an immediate check and returns how many months were
// synced and skipped.
func (ss *SyncScheduler) RunNow() (processed, skipped int) {
	return ss.checkAndProcess()
}

func (ss *SyncScheduler) checkAndProcess() (processed, skipped int) {
	ctx := context.Background()
	today := generic.DateOf(ss.Handler.Now())
	current := generic.MonthPeriod(today.Year(), today.Month())
	prevDay := current.Start.AddDays(-1)
	previous := generic.MonthPeriod(prevDay.Year(), prevDay.Month())

	for _, entityID := range ss.Accounts {
		log := ss.Log.WithField("entity_id", entityID)

		done, err := ss.settled(ctx, entityID, previous)
		if err != nil {
			log.WithError(err).Error("checking previous month")
		} else if done {
			skipped++
		} else if ss.sync(ctx, log, entityID, previous) {
			processed++
		}

		if ss.sync(ctx, log, entityID, current) {
			processed++
		}
	}

	if processed > 0 || skipped > 0 {
		ss.Log.WithFields(logrus.Fields{"processed": processed, "skipped": skipped}).Info("check completed")
	}
	return processed, skipped
}

// settled reports whether the month already has a report created after it ended.
func (ss *SyncScheduler) settled(ctx context.Context, entityID generic.EntityID, period generic.Period) (bool, error) {
	rec, err := ss.Handler.Store.LatestReport(ctx, entityID, period)
	if generic.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !rec.CreatedAt.Before(period.End.AddDays(1).Time), nil
}

func (ss *SyncScheduler) sync(ctx context.Context, log logrus.FieldLogger, entityID generic.EntityID, period generic.Period) bool {
	rec, result, err := ss.Handler.syncAndStore(ctx, entityID, period)
	if errors.Is(err, generic.ErrEmptyData) {
		log.WithField("period", period.Key()).Debug("no punches yet")
		return false
	}
	if err != nil {
		log.WithError(err).WithField("period", period.Key()).Error("sync failed")
		return false
	}
	log.WithFields(logrus.Fields{
		"period":       period.Key(),
		"report_id":    rec.ID,
		"overtime_pay": result.Summary.TotalOvertimePay.Fixed(2),
	}).Info("month synced")
	return true
}
