// Package bookingerr is the closed error taxonomy spec.md §7 requires to be
// surfaced identically by the staff HTTP surface and the voice function-call
// surface. It generalizes the teacher's one-sentinel-per-failure-mode
// convention (see DESIGN.md) into a single Code-carrying error type, because
// both gateways need to serialize the same taxonomy two ways: JSON for staff,
// a humanized string for voice.
package bookingerr

import (
	"errors"
	"fmt"
)

// Code is one member of the closed taxonomy. New codes are never added
// silently — each must be accounted for in both gateway's mappings.
type Code string

const (
	// Input errors: reported to the caller, never retried.
	CodeUnparseable      Code = "UNPARSEABLE"
	CodeAmbiguous        Code = "AMBIGUOUS"
	CodeUnknownTimezone  Code = "UNKNOWN_TIMEZONE"
	CodePastInstant      Code = "PAST_INSTANT"
	CodeInvalidDuration  Code = "INVALID_DURATION"
	CodeUnknownFunction  Code = "UNKNOWN_FUNCTION"

	// Business errors: reported; voice gateway may suggest alternatives.
	CodePracticeClosed      Code = "PRACTICE_CLOSED"
	CodeVetUnavailable      Code = "VET_UNAVAILABLE"
	CodeSlotConflict        Code = "SLOT_CONFLICT"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeNoHours             Code = "NO_HOURS"
	CodeNoVetAvailability   Code = "NO_VET_AVAILABILITY"

	// Transient errors: retried internally; surfaced only if retries exhaust.
	CodeSerializationFailure Code = "SERIALIZATION_FAILURE"
	CodeDeadlock             Code = "DEADLOCK"
	CodeTryAgain             Code = "TRY_AGAIN"

	// Infrastructure errors: abort the transaction and propagate.
	CodeStoreUnavailable  Code = "STORE_UNAVAILABLE"
	CodeDeadlineExceeded  Code = "DEADLINE_EXCEEDED"
)

// Error is the single taxonomy error type. Message is a caller-facing
// summary (voice gateways humanize further); Err, when set, is the
// underlying cause for logging and errors.Unwrap.
type Error struct {
	Code       Code
	Message    string
	Err        error
	Candidates any // optional structured payload, e.g. []timeanchor.Resolution for CodeAmbiguous
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error with a caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an *Error carrying an underlying cause.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithCandidates attaches structured alternative-resolution data (used by
// CodeAmbiguous) and returns the same error for chaining at the call site.
func (e *Error) WithCandidates(candidates any) *Error {
	e.Candidates = candidates
	return e
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error, and
// reports whether one was found.
func CodeOf(err error) (Code, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Code, true
	}
	return "", false
}

// IsRetryable reports whether code is in the transient class that §5/§7
// says the caller should retry locally (already exhausted by the time it
// reaches a gateway, but useful for logging/metrics classification).
func IsRetryable(code Code) bool {
	switch code {
	case CodeSerializationFailure, CodeDeadlock:
		return true
	default:
		return false
	}
}

// Class buckets a code into the four reporting classes spec.md §7 names,
// for logging and metrics labels.
type Class string

const (
	ClassInput          Class = "input"
	ClassBusiness       Class = "business"
	ClassTransient      Class = "transient"
	ClassInfrastructure Class = "infrastructure"
	ClassUnknown        Class = "unknown"
)

func ClassOf(code Code) Class {
	switch code {
	case CodeUnparseable, CodeAmbiguous, CodeUnknownTimezone, CodePastInstant, CodeInvalidDuration, CodeUnknownFunction:
		return ClassInput
	case CodePracticeClosed, CodeVetUnavailable, CodeSlotConflict, CodeInvalidTransition, CodeNoHours, CodeNoVetAvailability:
		return ClassBusiness
	case CodeSerializationFailure, CodeDeadlock, CodeTryAgain:
		return ClassTransient
	case CodeStoreUnavailable, CodeDeadlineExceeded:
		return ClassInfrastructure
	default:
		return ClassUnknown
	}
}

// Humanize renders a spoken-friendly fallback message for the voice
// gateway when a caller-facing message was not already supplied by the
// call site. Infrastructure errors always fall back to the same
// callback offer spec.md §7 specifies, regardless of the underlying
// cause, so the caller is never read a raw store error.
func Humanize(code Code) string {
	switch code {
	case CodeNoVetAvailability:
		return "our veterinarians may not have scheduled their hours yet — would you like a callback?"
	case CodeStoreUnavailable, CodeDeadlineExceeded, CodeTryAgain:
		return "our system is temporarily unable to confirm — would you like a callback?"
	default:
		return ""
	}
}
