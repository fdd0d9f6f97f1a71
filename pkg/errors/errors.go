// Package errors defines the failure kinds shared by the review engine,
// the gateways and the HTTP API. Each concrete type matches one sentinel
// through errors.Is, so callers branch on the kind and never on text.
package errors

import (
	"errors"
)

// Forwarded from the standard library so callers need one import.
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// Sentinels. Concrete error types below report which one they match.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("annotation conflict")
	ErrTransient       = errors.New("transient failure")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnavailable     = errors.New("remote unavailable")
	ErrTimeout         = errors.New("timed out")
	ErrClosed          = errors.New("client closed")
)

// IsNotFound reports a missing spreadsheet, sheet or viewer.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidationError reports rejected input.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsStateError reports a command the edit session does not allow right now.
func IsStateError(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsConflict reports that the remote annotation moved under a draft.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsTransient reports a failed fetch or save that may succeed on retry.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// IsUnauthenticated reports a call made without a usable identity.
func IsUnauthenticated(err error) bool { return errors.Is(err, ErrUnauthenticated) }

// IsRateLimited reports a quota rejection from the remote API.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsTimeout reports an operation that ran out of time.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }
