// Package timeanchor turns the free-form time expressions staff and
// callers use ("tomorrow afternoon", "next Friday at 2", "in 20
// minutes") into concrete UTC instants or windows, anchored to a
// practice's IANA timezone. It never guesses past a reasonable
// confidence threshold: anything it cannot resolve unambiguously comes
// back as a typed error instead of a best-effort instant.
package timeanchor

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnparseable is returned when the expression does not match any
// grammar this package understands.
var ErrUnparseable = errors.New("timeanchor: expression could not be parsed")

// ErrUnknownTimezone is returned when the practice timezone is not a
// loadable IANA zone.
var ErrUnknownTimezone = errors.New("timeanchor: unknown timezone")

// ErrNonexistentLocalTime is returned when the expression names a wall
// clock instant that the local calendar skips entirely, such as
// 2:30 AM on a spring-forward day.
var ErrNonexistentLocalTime = errors.New("timeanchor: local time does not exist (DST gap)")

// AmbiguousError is returned when an expression resolves to more than
// one plausible future instant within the lookahead window and none is
// clearly preferred. Candidates are ordered soonest first.
type AmbiguousError struct {
	Expression string
	Candidates []Resolution
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("timeanchor: %q is ambiguous (%d candidates within lookahead window)", e.Expression, len(e.Candidates))
}

// Is lets errors.Is(err, ErrAmbiguous) match any *AmbiguousError.
func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguous
}

// ErrAmbiguous is the sentinel matched by errors.Is against an
// *AmbiguousError; use errors.As to recover the candidate list.
var ErrAmbiguous = errors.New("timeanchor: expression is ambiguous")

// lookaheadWindow is a 14-day span. Interpret does not read it: no
// expression is rejected for resolving further ahead than this, and the
// one ambiguity Interpret reports (a bare weekday name matching today's
// weekday) has both of its candidates, today and a week later, inside it.
const lookaheadWindow = 14 * 24 * time.Hour
