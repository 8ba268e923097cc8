// Package handlers implements the staff REST handlers and the voice
// function-call handler over the Intent Gateway and Booking
// Coordinator, shaped after the teacher's internal/http/handlers
// package (see DESIGN.md).
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fogonthedowns/helppetai-sbc/internal/bookingerr"
)

// errorResponse is the closed-taxonomy JSON body spec.md §7 requires
// the staff surface to return on every failure.
type errorResponse struct {
	Code       bookingerr.Code `json:"code"`
	Message    string          `json:"message"`
	Candidates any             `json:"candidates,omitempty"`
}

// statusFor maps a bookingerr.Code to the HTTP status spec.md §7 names
// for each reporting class.
func statusFor(code bookingerr.Code) int {
	switch code {
	case bookingerr.CodeUnparseable, bookingerr.CodeAmbiguous, bookingerr.CodeUnknownTimezone,
		bookingerr.CodePastInstant, bookingerr.CodeInvalidDuration, bookingerr.CodeUnknownFunction:
		return http.StatusBadRequest
	case bookingerr.CodeSlotConflict:
		return http.StatusConflict
	case bookingerr.CodeInvalidTransition:
		return http.StatusConflict
	case bookingerr.CodePracticeClosed, bookingerr.CodeVetUnavailable,
		bookingerr.CodeNoHours, bookingerr.CodeNoVetAvailability:
		return http.StatusUnprocessableEntity
	case bookingerr.CodeSerializationFailure, bookingerr.CodeDeadlock, bookingerr.CodeTryAgain:
		return http.StatusServiceUnavailable
	case bookingerr.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case bookingerr.CodeStoreUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the taxonomy JSON body. Errors that are not
// *bookingerr.Error (a bug, not a reachable business outcome) are
// reported as an opaque 500 rather than leaking internals.
func writeError(w http.ResponseWriter, err error) {
	code, ok := bookingerr.CodeOf(err)
	if !ok {
		code = bookingerr.CodeStoreUnavailable
	}
	body := errorResponse{Code: code, Message: err.Error()}
	if be, ok := err.(*bookingerr.Error); ok {
		body.Message = be.Message
		body.Candidates = be.Candidates
	}
	writeJSON(w, statusFor(code), body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
