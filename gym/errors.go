/*
errors.go - Centralized error taxonomy for the workflow engine

PURPOSE:
  All domain error types in one place. The HTTP layer classifies errors with
  the helpers at the bottom and never inspects store errors directly.

ERROR CATEGORIES:
  1. Not-found errors      - referenced entity missing or inactive
  2. Invalid-state errors  - lifecycle rule violated (already processed,
                             nothing to check out)
  3. Policy violations     - domain rules (minimum dwell before checkout)
  4. Persistence failures  - anything else bubbling up from the store,
                             wrapped with %w at the store boundary

USAGE:
  if errors.Is(err, gym.ErrAlreadyProcessed) { ... }

  var tooSoon *gym.CheckoutTooSoonError
  if errors.As(err, &tooSoon) { ... tooSoon.Elapsed ... }
*/
package gym

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when an employee does not exist or is
	// inactive. Deactivation is checked inside the same transaction as the
	// write that depends on it.
	ErrEmployeeNotFound = errors.New("employee not found or inactive")

	// ErrRequestNotFound is returned when a service request does not exist.
	ErrRequestNotFound = errors.New("service request not found")

	// ErrServiceNotFound is returned when a referenced catalog service
	// does not exist.
	ErrServiceNotFound = errors.New("service not found")

	// ErrUserNotFound is returned when a member lookup finds nothing.
	ErrUserNotFound = errors.New("user not found")

	// ErrAssignmentNotFound is returned when no active assignment matches.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrNoOpenSession is returned on check-out when the employee has no
	// open attendance record to close.
	ErrNoOpenSession = errors.New("no open attendance session")

	// ErrAlreadyProcessed is returned when a request has already left the
	// pending state. Re-processing is an error, never a silent no-op.
	ErrAlreadyProcessed = errors.New("request already processed")

	// ErrCheckoutTooSoon is returned when check-out is attempted before the
	// minimum dwell interval has elapsed.
	ErrCheckoutTooSoon = errors.New("checkout attempted before minimum dwell time")

	// ErrValidation is returned for structurally invalid engine input
	// (empty service set, missing phone).
	ErrValidation = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CheckoutTooSoonError reports how far short of the dwell requirement a
// check-out attempt fell.
type CheckoutTooSoonError struct {
	RecordID int64
	Elapsed  time.Duration
	Required time.Duration
}

func (e *CheckoutTooSoonError) Error() string {
	return fmt.Sprintf("checkout too soon: %s elapsed, %s required", e.Elapsed.Round(time.Second), e.Required)
}

func (e *CheckoutTooSoonError) Unwrap() error { return ErrCheckoutTooSoon }

// AlreadyProcessedError reports the outcome the request already has.
type AlreadyProcessedError struct {
	RequestID int64
	Status    RequestStatus
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("request %d already %s", e.RequestID, e.Status)
}

func (e *AlreadyProcessedError) Unwrap() error { return ErrAlreadyProcessed }

// ValidationError carries the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsNotFound reports whether the error names a missing or inactive entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrAssignmentNotFound)
}

// IsInvalidState reports whether the error is a lifecycle-state violation.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrNoOpenSession) ||
		errors.Is(err, ErrAlreadyProcessed)
}

// IsPolicyViolation reports whether the error is a domain-rule rejection.
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrCheckoutTooSoon)
}

// IsClientError reports whether the caller, not the store, caused the error.
func IsClientError(err error) bool {
	return IsNotFound(err) || IsInvalidState(err) || IsPolicyViolation(err) ||
		errors.Is(err, ErrValidation)
}
