package hr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// HOLIDAY CALENDAR - Statutory holidays and makeup workdays per year
// =============================================================================

// HolidayClient fetches a year of calendar deviations from the holiday API and
// caches it in a CalendarStore. A cached year is never fetched again.
type HolidayClient struct {
	URL   string // per-year prefix, the year is appended as a path segment
	HTTP  *http.Client
	Store generic.CalendarStore
	Log   logrus.FieldLogger
}

func NewHolidayClient(url string, timeout time.Duration, store generic.CalendarStore, log logrus.FieldLogger) *HolidayClient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HolidayClient{
		URL:   strings.TrimRight(url, "/"),
		HTTP:  &http.Client{Timeout: timeout},
		Store: store,
		Log:   log,
	}
}

// holidayEntry is one "MM-DD" value of the API response.
type holidayEntry struct {
	Holiday bool   `json:"holiday"`
	Name    string `json:"name"`
	Wage    int    `json:"wage"`
	Date    string `json:"date"`
}

type holidayResponse struct {
	Holiday map[string]holidayEntry `json:"holiday"`
}

// Year returns the calendar days of the year, from the cache when present.
func (h *HolidayClient) Year(ctx context.Context, year int) ([]generic.CalendarDay, error) {
	log := h.Log.WithField("year", year)

	if h.Store != nil {
		days, err := h.Store.LoadCalendar(ctx, year)
		if err == nil {
			log.WithField("days", len(days)).Debug("holiday calendar served from cache")
			return days, nil
		}
		if !generic.IsNotFound(err) {
			return nil, fmt.Errorf("load calendar: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL+"/"+strconv.Itoa(year), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch holidays %d: %w", year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch holidays %d: status %d", year, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	days, err := ParseHolidayYear(body)
	if err != nil {
		return nil, err
	}

	if h.Store != nil {
		if err := h.Store.SaveCalendar(ctx, year, days); err != nil {
			return nil, fmt.Errorf("save calendar: %w", err)
		}
	}
	log.WithField("days", len(days)).Info("holiday calendar fetched")
	return days, nil
}

// ParseHolidayYear reads the holiday API response body. Entries are returned
// in date order. A body without any entry is an EmptyDataError; an entry with
// a bad date is a FormatError.
func ParseHolidayYear(body []byte) ([]generic.CalendarDay, error) {
	var resp holidayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &generic.EmptyDataError{Dataset: "holidays"}
	}
	if len(resp.Holiday) == 0 {
		return nil, &generic.EmptyDataError{Dataset: "holidays"}
	}

	days := make([]generic.CalendarDay, 0, len(resp.Holiday))
	for _, e := range resp.Holiday {
		date, err := generic.ParseDate(e.Date)
		if err != nil {
			return nil, err
		}
		days = append(days, generic.CalendarDay{
			Date:    date,
			Name:    e.Name,
			Holiday: e.Holiday,
			Wage:    e.Wage,
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}
