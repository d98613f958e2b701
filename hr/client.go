/*
Package hr is the boundary to the external HR system and the holiday API.

PURPOSE:
  Fetches everything one month's calculation needs and hands it over as an
  overtime.Dataset. Nothing in here computes pay; the overtime package never
  performs I/O itself except through overtime.DeductionSource, which Client
  implements.

ENDPOINTS (all POST, JSON body, session cookie):
  {base}/ajax/function/alist!{clockInVar}.220302   punches for a month
  {base}/ajax/function/alist!{clockInVar}.220398   attendance report for a month
  {base}/ajax/function/alist!{approvalVar}.290104  completed approvals
  {base}/ajax/flowform/formlist!{authKey}          delay-deduction forms

SESSION EXPIRY:
  The HR system answers with a body mentioning "expired" or "No access"
  when the cookie or endpoint variable is stale. Each request is retried
  exactly once after CredentialSource.Refresh; a second expiry is fatal.

SEE ALSO:
  - hr/session.go: CredentialSource implementations
  - hr/holiday.go: Holiday calendar client
  - hr/service.go: Assembles a Dataset
*/
package hr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"

	fnClockIn    = "220302"
	fnAttendance = "220398"
	fnApprovals  = "290104"

	keyClockIn    = "SE0302"
	keyAttendance = "SE0398"
	keyApprovals  = "SW0104"

	// approvalTreeID selects the completed-approvals tree.
	approvalTreeID = 7
)

var expiryMarkers = [][]byte{[]byte("expired"), []byte("No access")}

// Client talks to the HR system.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Creds   CredentialSource
	Log     logrus.FieldLogger
}

var _ overtime.DeductionSource = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, creds CredentialSource, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Creds:   creds,
		Log:     log,
	}
}

// =============================================================================
// REQUEST PAYLOADS
// =============================================================================

type monthParam struct {
	Term string `json:"TERM"`
}

type listRequest struct {
	AppParam any            `json:"appParam"`
	AppFnKey string         `json:"appFnKey"`
	FormData map[string]any `json:"formData"`
}

type approvalRequest struct {
	SearchCols string      `json:"searchcols"`
	Order      string      `json:"order"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
	Total      int         `json:"total"`
	EditType   int         `json:"editType"`
	Form       listRequest `json:"form"`
}

type formListRequest struct {
	FormData map[string]any `json:"formData"`
	BizData  map[string]any `json:"bizData"`
}

type formListResponse struct {
	FormList []struct {
		FormData overtime.DeductionForm `json:"formData"`
	} `json:"formList"`
}

func monthTerm(period generic.Period) monthParam {
	return monthParam{Term: fmt.Sprintf("%04d-%02d-01T00:00:00.000Z", period.Year(), int(period.Month()))}
}

// =============================================================================
// FETCHES
// =============================================================================

// ClockIn returns the raw punches for the month.
func (c *Client) ClockIn(ctx context.Context, period generic.Period) ([]overtime.PunchRecord, error) {
	var out []overtime.PunchRecord
	err := c.call(ctx, "clock-in", func(cr Credentials) string {
		return c.BaseURL + "/ajax/function/alist!" + cr.ClockInVariable + "." + fnClockIn
	}, listRequest{AppParam: monthTerm(period), AppFnKey: keyClockIn, FormData: map[string]any{}}, &out)
	return out, err
}

// Attendance returns the attendance report for the month.
func (c *Client) Attendance(ctx context.Context, period generic.Period) ([]overtime.AttendanceRecord, error) {
	var out []overtime.AttendanceRecord
	err := c.call(ctx, "attendance", func(cr Credentials) string {
		return c.BaseURL + "/ajax/function/alist!" + cr.ClockInVariable + "." + fnAttendance
	}, listRequest{AppParam: monthTerm(period), AppFnKey: keyAttendance, FormData: map[string]any{}}, &out)
	return out, err
}

// Approvals returns every completed approval flow of the user.
func (c *Client) Approvals(ctx context.Context) ([]overtime.ApprovalRecord, error) {
	var out []overtime.ApprovalRecord
	err := c.call(ctx, "approvals", func(cr Credentials) string {
		return c.BaseURL + "/ajax/function/alist!" + cr.ApprovalVariable + "." + fnApprovals
	}, approvalRequest{
		Order: "asc",
		Form: listRequest{
			AppParam: map[string]int{"TREEID": approvalTreeID},
			AppFnKey: keyApprovals,
			FormData: map[string]any{},
		},
	}, &out)
	return out, err
}

// DeductionForms returns the forms attached to a delay-deduction approval.
func (c *Client) DeductionForms(ctx context.Context, authKey string) ([]overtime.DeductionForm, error) {
	var resp formListResponse
	err := c.call(ctx, "deduction forms", func(Credentials) string {
		return c.BaseURL + "/ajax/flowform/formlist!" + authKey
	}, formListRequest{FormData: map[string]any{}, BizData: map[string]any{}}, &resp)
	if err != nil {
		return nil, err
	}

	forms := make([]overtime.DeductionForm, 0, len(resp.FormList))
	for _, f := range resp.FormList {
		forms = append(forms, f.FormData)
	}
	return forms, nil
}

// =============================================================================
// ENDPOINT DISCOVERY
// =============================================================================

var (
	clockInLink  = regexp.MustCompile(`<a[^>]*title="个人考勤查询"[^>]*>`)
	approvalLink = regexp.MustCompile(`<a[^>]*title="流程申请"[^>]*>`)
	hrefVariable = regexp.MustCompile(`href="[^"!]*!([^"]+)"`)
)

// DiscoverEndpoints reads the per-user endpoint variables from the portal
// home page links.
func (c *Client) DiscoverEndpoints(ctx context.Context, cookie string) (clockIn, approval string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return "", "", err
	}
	c.setHeaders(req, cookie)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch portal: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}

	if clockIn, err = linkVariable(body, clockInLink, "个人考勤查询"); err != nil {
		return "", "", err
	}
	if approval, err = linkVariable(body, approvalLink, "流程申请"); err != nil {
		return "", "", err
	}
	c.Log.WithFields(logrus.Fields{"clock_in": clockIn, "approval": approval}).Debug("discovered HR endpoints")
	return clockIn, approval, nil
}

func linkVariable(body []byte, link *regexp.Regexp, title string) (string, error) {
	tag := link.Find(body)
	if tag == nil {
		return "", fmt.Errorf("%w: portal link %q not found", generic.ErrSessionExpired, title)
	}
	m := hrefVariable.FindSubmatch(tag)
	if m == nil {
		return "", fmt.Errorf("portal link %q has no endpoint variable", title)
	}
	return string(m[1]), nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// call POSTs payload and decodes the answer into out, retrying once with
// refreshed credentials when the session has expired.
func (c *Client) call(ctx context.Context, what string, url func(Credentials) string, payload, out any) error {
	creds, err := c.Creds.Credentials(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}

	body, err := c.post(ctx, url(creds), creds.Cookie, payload)
	if err == nil && isExpired(body) {
		c.Log.WithField("request", what).Warn("HR session expired, refreshing once")
		if creds, err = c.Creds.Refresh(ctx, creds); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		body, err = c.post(ctx, url(creds), creds.Cookie, payload)
		if err == nil && isExpired(body) {
			return fmt.Errorf("%s: %w after refresh", what, generic.ErrSessionExpired)
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", what, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url, cookie string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, cookie)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return []byte("No access"), nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HR system returned %d", resp.StatusCode)
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request, cookie string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", c.BaseURL)
	req.Header.Set("Referer", c.BaseURL+"/portal/index")
	req.Header.Set("Cookie", cookie)
}

func isExpired(body []byte) bool {
	for _, m := range expiryMarkers {
		if bytes.Contains(body, m) {
			return true
		}
	}
	return false
}
