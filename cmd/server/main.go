/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the overtime engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize SQLite store
  3. Wire HR accounts, holiday calendar and API handler
  4. Configure HTTP router
  5. Start the month sync scheduler (SYNC_INTERVAL > 0)
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: APP_PORT or 8080)
  -db      SQLite database path (default: DB_PATH or overtime.db)
           Use ":memory:" for in-memory database
  -env     .env file to load (default: .env)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/api"
	"github.com/warp/overtime-engine/config"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/hr"
	"github.com/warp/overtime-engine/store/sqlite"
)

func main() {
	envFile := flag.String("env", ".env", "Path to .env file")
	port := flag.Int("port", 0, "HTTP server port (overrides APP_PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if *port != 0 {
		cfg.App.Port = *port
	}
	if *dbPath != "" {
		cfg.App.DBPath = *dbPath
	}
	log := cfg.NewLogger()

	// Initialize store
	store, err := sqlite.New(cfg.App.DBPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Wire HR access
	holidays := hr.NewHolidayClient(cfg.Holiday.URL, cfg.HR.Timeout, store, log)
	accounts := &hr.Accounts{
		BaseURL:  cfg.HR.BaseURL,
		Timeout:  cfg.HR.Timeout,
		Store:    store,
		Holidays: holidays,
		Log:      log,
		Default:  generic.EntityID(cfg.HR.Account),
		DefaultCreds: hr.Credentials{
			Cookie:           cfg.HR.Cookie,
			ClockInVariable:  cfg.HR.ClockInVariable,
			ApprovalVariable: cfg.HR.ApprovalVariable,
		},
	}
	syncers := func(id generic.EntityID) api.MonthSyncer { return accounts.Service(id) }

	handler := api.NewHandler(store, syncers, holidays, log)
	router := api.NewRouter(handler, cfg.App.CORSOrigins)

	scheduler := api.NewSyncScheduler(handler, []generic.EntityID{accounts.Default}, cfg.Sync.Interval)
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.HR.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.App.Port, "db": cfg.App.DBPath}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}
