/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Calculation and boundary packages wrap these with context.

ERROR CATEGORIES:
  1. Format errors - A date or time string that does not parse. Fatal: upstream
     data is assumed well formed, so a bad timestamp aborts the run.
  2. Parse errors - An approval record whose range text has an unknown shape.
     Recovered: the record is reported and skipped, processing continues.
  3. Empty data errors - A required dataset (punches, holidays) is missing. Fatal.
  4. Session errors - The HR system reports an expired session. Recovered exactly
     once by re-acquiring credentials; a second expiry is fatal.
  5. Store errors - Missing records.

USAGE:
  if errors.Is(err, generic.ErrParse) {
      log.WithError(err).Warn("skipping record")
  }

SEE ALSO:
  - overtime/leave.go: Reports ParseErrors and keeps going
  - hr/client.go: Retries once on ErrSessionExpired
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFormat is returned when a date or time string is malformed.
	ErrFormat = errors.New("malformed date or time")

	// ErrParse is returned when an approval record cannot be interpreted.
	ErrParse = errors.New("unparseable record")

	// ErrEmptyData is returned when a required dataset is empty or missing.
	ErrEmptyData = errors.New("empty dataset")

	// ErrSessionExpired is returned when the HR system rejects the session.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound is returned when a stored record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FormatError describes a value that does not match its expected layout.
type FormatError struct {
	Field  string // e.g., "date", "time", "CARDTIME"
	Value  string
	Layout string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed %s %q (want %s)", e.Field, e.Value, e.Layout)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// ParseError describes an approval record that was skipped.
type ParseError struct {
	Record string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse record %q: %s", e.Record, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// EmptyDataError names the dataset that was empty.
type EmptyDataError struct {
	Dataset string // e.g., "punches", "holidays"
}

func (e *EmptyDataError) Error() string {
	return fmt.Sprintf("%s dataset is empty or malformed", e.Dataset)
}

func (e *EmptyDataError) Unwrap() error { return ErrEmptyData }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRecoverable returns true if the run can continue past the error.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsFatal returns true if the error must abort the run.
func IsFatal(err error) bool {
	return err != nil && !IsRecoverable(err)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to bad input data.
func IsClientError(err error) bool {
	return errors.Is(err, ErrFormat) ||
		errors.Is(err, ErrParse) ||
		errors.Is(err, ErrEmptyData) ||
		errors.Is(err, ErrInvalidPeriod)
}
