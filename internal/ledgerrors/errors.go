// Package ledgerrors defines the core's error taxonomy (spec.md §7):
// validation, admission, contention, timeout, and persistence failures.
// Every public ledger operation returns an error wrapping one of these
// sentinels so callers (notably internal/httpapi) can classify it with
// errors.Is without parsing message strings.
package ledgerrors

import "github.com/pkg/errors"

// Sentinel error kinds. Wrap these with errors.Wrap to attach a
// user-safe message while keeping errors.Is(err, ErrValidation) etc. working.
var (
	// ErrValidation marks an invariant violated on user input.
	ErrValidation = errors.New("validation error")
	// ErrAdmission marks a capacity or policy rejection.
	ErrAdmission = errors.New("admission error")
	// ErrContention marks a uniqueness conflict on block commit.
	ErrContention = errors.New("contention error")
	// ErrTimeout marks a proof-of-work search that exceeded its deadline.
	ErrTimeout = errors.New("timeout error")
	// ErrPersistence marks a store or cache operational failure.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound marks a missing row the caller expected to exist.
	ErrNotFound = errors.New("not found")
)

// Validation wraps ErrValidation with a human-readable reason.
func Validation(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

// Admission wraps ErrAdmission with a human-readable reason.
func Admission(format string, args ...interface{}) error {
	return errors.Wrapf(ErrAdmission, format, args...)
}

// Contention wraps ErrContention with a human-readable reason.
func Contention(format string, args ...interface{}) error {
	return errors.Wrapf(ErrContention, format, args...)
}

// Timeout wraps ErrTimeout with a human-readable reason.
func Timeout(format string, args ...interface{}) error {
	return errors.Wrapf(ErrTimeout, format, args...)
}

// Persistence wraps ErrPersistence with a human-readable reason.
func Persistence(format string, args ...interface{}) error {
	return errors.Wrapf(ErrPersistence, format, args...)
}

// NotFound wraps ErrNotFound with a human-readable reason.
func NotFound(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}
