/*
main.go - One-shot command line calculation

PURPOSE:
  Fetches one month from the HR system (or reads it from a directory of saved
  responses), calculates it, writes the CSV workbook and prints the summary.

COMMAND-LINE FLAGS:
  -year, -month        Month to calculate (default: current month)
  -local DIR           Read data.json, holidays.json, approvals.json,
                       attendance.json and deductions.json from DIR
  -out DIR             Where the CSV workbook goes (default: .)
  -db PATH             SQLite database (default: DB_PATH)
  -account ID          Employee the session and report belong to (default: HR_ACCOUNT)
  -cookie VALUE        HR session cookie, stored for later runs
  -clean               Forget the stored session before running
  -delete-sensitive    Forget all sessions, reports and written workbooks, then exit

EXAMPLES:
  overtime -cookie "JSESSIONID=..." -year 2024 -month 3
  overtime -local ./data
  overtime -delete-sensitive

SEE ALSO:
  - hr/service.go: Online month load
  - hr/local.go: Local directory layout
  - report/csv.go: Workbook layout
*/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/config"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/hr"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/report"
	"github.com/warp/overtime-engine/store/sqlite"
)

// firstSupportedYear is the oldest year the HR system keeps punches for.
const firstSupportedYear = 2010

type options struct {
	envFile         string
	year, month     int
	localDir        string
	outDir          string
	dbPath          string
	account         string
	cookie          string
	clean           bool
	deleteSensitive bool
}

func main() {
	now := time.Now()

	var opts options
	flag.StringVar(&opts.envFile, "env", ".env", "Path to .env file")
	flag.IntVar(&opts.year, "year", now.Year(), "Year to calculate")
	flag.IntVar(&opts.month, "month", int(now.Month()), "Month to calculate (1-12)")
	flag.StringVar(&opts.localDir, "local", "", "Read saved HR responses from this directory")
	flag.StringVar(&opts.outDir, "out", ".", "Directory for the CSV workbook")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	flag.StringVar(&opts.account, "account", "", "Employee id (overrides HR_ACCOUNT)")
	flag.StringVar(&opts.cookie, "cookie", "", "HR session cookie (overrides HR_COOKIE)")
	flag.BoolVar(&opts.clean, "clean", false, "Forget the stored HR session before running")
	flag.BoolVar(&opts.deleteSensitive, "delete-sensitive", false, "Delete sessions, reports and workbooks, then exit")
	flag.Parse()

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, now, log); err != nil {
		log.WithError(err).Fatal("Calculation failed")
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, now time.Time, log *logrus.Logger) error {
	if opts.dbPath != "" {
		cfg.App.DBPath = opts.dbPath
	}
	if opts.account != "" {
		cfg.HR.Account = opts.account
	}
	if opts.cookie != "" {
		cfg.HR.Cookie = opts.cookie
	}
	account := generic.EntityID(cfg.HR.Account)

	store, err := sqlite.New(cfg.App.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if opts.deleteSensitive {
		return deleteSensitive(ctx, store, opts.outDir, log)
	}
	if opts.clean {
		if err := store.DeleteCredentials(ctx, account); err != nil {
			return err
		}
		log.WithField("entity_id", account).Info("Stored HR session deleted")
	}
	if cfg.HR.Cookie != "" && storedCookie(ctx, store, account) != cfg.HR.Cookie {
		// A new cookie replaces the stored session; endpoint variables are
		// rediscovered for it.
		err := store.SaveCredentials(ctx, generic.CredentialRecord{
			EntityID:  account,
			Cookie:    cfg.HR.Cookie,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
	}

	holidays := hr.NewHolidayClient(cfg.Holiday.URL, cfg.HR.Timeout, store, log)

	var result *overtime.Result
	if opts.localDir != "" {
		result, err = calculateLocal(ctx, opts.localDir, account, holidays, log)
	} else {
		period := monthPeriod(opts, now, log)
		accounts := &hr.Accounts{
			BaseURL:  cfg.HR.BaseURL,
			Timeout:  cfg.HR.Timeout,
			Store:    store,
			Holidays: holidays,
			Log:      log,
			Default:  account,
			DefaultCreds: hr.Credentials{
				Cookie:           cfg.HR.Cookie,
				ClockInVariable:  cfg.HR.ClockInVariable,
				ApprovalVariable: cfg.HR.ApprovalVariable,
			},
		}
		result, err = accounts.Service(account).Sync(ctx, account, period)
	}
	if err != nil {
		return err
	}

	if err := saveReport(ctx, store, result, now); err != nil {
		return err
	}
	path, err := writeWorkbook(opts.outDir, result)
	if err != nil {
		return err
	}

	printSummary(result)
	log.WithField("file", path).Info("Report written")
	return nil
}

func storedCookie(ctx context.Context, store generic.CredentialStore, account generic.EntityID) string {
	rec, err := store.LoadCredentials(ctx, account)
	if err != nil {
		return ""
	}
	return rec.Cookie
}

// monthPeriod validates -year/-month; out-of-range values fall back to the
// current month.
func monthPeriod(opts options, now time.Time, log logrus.FieldLogger) generic.Period {
	year, month := opts.year, opts.month
	if year < firstSupportedYear || year > now.Year() {
		log.WithField("year", year).Warn("Year out of range, using the current year")
		year = now.Year()
	}
	if month < 1 || month > 12 {
		log.WithField("month", month).Warn("Month out of range, using the current month")
		month = int(now.Month())
	}
	return generic.MonthPeriod(year, time.Month(month))
}

func calculateLocal(ctx context.Context, dir string, account generic.EntityID, holidays hr.CalendarSource, log logrus.FieldLogger) (*overtime.Result, error) {
	local := &hr.LocalDir{Dir: dir, Holidays: holidays, Log: log}
	ds, deductions, err := local.Load(ctx, account)
	if err != nil {
		return nil, err
	}
	log.Warn("Using local data, make sure the holiday file matches its year")
	return overtime.NewCalculator(deductions, log).Calculate(ctx, ds)
}

func saveReport(ctx context.Context, store generic.ReportStore, result *overtime.Result, now time.Time) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return store.SaveReport(ctx, generic.ReportRecord{
		ID:        generic.ReportID(uuid.NewString()),
		EntityID:  result.EntityID,
		Period:    result.Period,
		Payload:   payload,
		CreatedAt: now.UTC(),
	})
}

func writeWorkbook(dir string, result *overtime.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, report.FileName(result.Period))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := report.Write(f, result); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func printSummary(result *overtime.Result) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "汇总项目\t信息")
	for _, line := range result.Lines {
		fmt.Fprintf(tw, "%s\t%s\n", line.Label, line.Value)
	}
	fmt.Fprintf(tw, "评级\t%s\n", result.Summary.Grade)
	tw.Flush()
}

// deleteSensitive removes every stored session and report and the workbooks
// in outDir.
func deleteSensitive(ctx context.Context, store *sqlite.Store, outDir string, log logrus.FieldLogger) error {
	if err := store.Reset(ctx); err != nil {
		return err
	}
	log.Info("Stored sessions and reports deleted")

	matches, err := filepath.Glob(filepath.Join(outDir, "*加班情况详细分析报表.csv"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return err
		}
	}
	log.WithField("files", len(matches)).Info("Workbooks deleted")
	return nil
}
