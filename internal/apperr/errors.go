// Package apperr defines the sentinel errors shared across Lumen packages.
// Callers match them with errors.Is.
package apperr

import "errors"

// Validation errors are surfaced synchronously to the caller and never retried.
var (
	ErrEmptyName         = errors.New("empty habit name")
	ErrDuplicateName     = errors.New("duplicate habit name")
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrInvalidDateInput  = errors.New("invalid date input")
	ErrInvalidRange      = errors.New("invalid date range")
)

// ErrNotFound marks lookups of unknown habit ids or days.
var ErrNotFound = errors.New("not found")

// ErrUnavailable marks remote persistence failures. These are recovered
// locally (cache fallback + offline queue), not raised to the user.
var ErrUnavailable = errors.New("backend unavailable")
