package hr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/overtime-engine/generic"
)

// =============================================================================
// CREDENTIALS - Session cookie plus per-user endpoint variables
// =============================================================================

// Endpoint keys stored in generic.CredentialRecord.Endpoints.
const (
	EndpointClockIn  = "clock_in"
	EndpointApproval = "approval"
)

// Credentials is what every HR request needs.
type Credentials struct {
	Cookie           string
	ClockInVariable  string
	ApprovalVariable string
}

func (c Credentials) complete() bool {
	return c.Cookie != "" && c.ClockInVariable != "" && c.ApprovalVariable != ""
}

// CredentialSource hands out the current credentials and can re-acquire them
// once the HR system reports the session as expired.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
	Refresh(ctx context.Context, stale Credentials) (Credentials, error)
}

// StaticCredentials never changes; a refresh always fails.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

func (s StaticCredentials) Refresh(context.Context, Credentials) (Credentials, error) {
	return Credentials{}, fmt.Errorf("%w: static credentials cannot be refreshed", generic.ErrSessionExpired)
}

// =============================================================================
// STORED CREDENTIALS
// =============================================================================

// EndpointDiscoverer finds the per-user endpoint variables for a cookie.
type EndpointDiscoverer interface {
	DiscoverEndpoints(ctx context.Context, cookie string) (clockIn, approval string, err error)
}

// StoredCredentials keeps credentials in a CredentialStore.
//
// The stored record wins over Fallback field by field. Missing endpoint
// variables are discovered from the HR portal and saved. Refresh re-reads the
// store (a newer cookie may have been saved since) and re-discovers the
// endpoint variables; if the cookie is still the stale one the refresh fails.
type StoredCredentials struct {
	Store    generic.CredentialStore
	EntityID generic.EntityID
	Fallback Credentials
	Discover EndpointDiscoverer
	Log      logrus.FieldLogger

	mu sync.Mutex
}

func (s *StoredCredentials) Credentials(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if creds.complete() {
		return creds, nil
	}
	return s.discover(ctx, creds)
}

func (s *StoredCredentials) Refresh(ctx context.Context, stale Credentials) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if creds.Cookie == stale.Cookie {
		return Credentials{}, fmt.Errorf("%w: no newer cookie stored for %s", generic.ErrSessionExpired, s.EntityID)
	}

	s.logger().WithField("entity_id", s.EntityID).Info("refreshing HR session")
	creds.ClockInVariable, creds.ApprovalVariable = "", ""
	return s.discover(ctx, creds)
}

func (s *StoredCredentials) load(ctx context.Context) (Credentials, error) {
	creds := s.Fallback

	rec, err := s.Store.LoadCredentials(ctx, s.EntityID)
	if err != nil && !generic.IsNotFound(err) {
		return Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	if err == nil {
		if rec.Cookie != "" {
			creds.Cookie = rec.Cookie
		}
		if v := rec.Endpoints[EndpointClockIn]; v != "" {
			creds.ClockInVariable = v
		}
		if v := rec.Endpoints[EndpointApproval]; v != "" {
			creds.ApprovalVariable = v
		}
	}

	if creds.Cookie == "" {
		return Credentials{}, fmt.Errorf("%w: no cookie configured for %s", generic.ErrSessionExpired, s.EntityID)
	}
	return creds, nil
}

func (s *StoredCredentials) discover(ctx context.Context, creds Credentials) (Credentials, error) {
	if creds.ClockInVariable == "" || creds.ApprovalVariable == "" {
		if s.Discover == nil {
			return Credentials{}, fmt.Errorf("endpoint variables missing for %s", s.EntityID)
		}
		clockIn, approval, err := s.Discover.DiscoverEndpoints(ctx, creds.Cookie)
		if err != nil {
			return Credentials{}, err
		}
		creds.ClockInVariable, creds.ApprovalVariable = clockIn, approval
	}

	err := s.Store.SaveCredentials(ctx, generic.CredentialRecord{
		EntityID: s.EntityID,
		Cookie:   creds.Cookie,
		Endpoints: map[string]string{
			EndpointClockIn:  creds.ClockInVariable,
			EndpointApproval: creds.ApprovalVariable,
		},
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("save credentials: %w", err)
	}
	return creds, nil
}

func (s *StoredCredentials) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
