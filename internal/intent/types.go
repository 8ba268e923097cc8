// Package intent is the Intent Gateway: it unifies the staff-structured
// and voice-natural request shapes onto the Slot Engine and Booking
// Coordinator. Voice payloads are a closed sum type so an unrecognized
// function name fails the same way the teacher's ToolName switch falls
// through to an error response, generalized here into UNKNOWN_FUNCTION
// (see DESIGN.md).
package intent

// FunctionName is one of the three voice function calls spec.md §6
// defines. It is a closed set: IsKnownFunction reports false for
// anything else, and the voice handler rejects such a name with
// bookingerr.CodeUnknownFunction.
type FunctionName string

const (
	FunctionGetAvailableTimes FunctionName = "get_available_times"
	FunctionBookAppointment   FunctionName = "book_appointment"
	FunctionCancelAppointment FunctionName = "cancel_appointment"
)

// GetAvailableTimesArgs is the voice agent's get_available_times call.
type GetAvailableTimesArgs struct {
	DateExpression  string  `json:"date_expression"`
	TimePreference  string  `json:"time_preference"`
	DurationMinutes int     `json:"duration_minutes"`
	PracticeID      string  `json:"practice_id"`
	VetID           *string `json:"vet_id"`
}

// BookAppointmentArgs is the voice agent's book_appointment call.
type BookAppointmentArgs struct {
	DateExpression  string   `json:"date_expression"`
	TimeExpression  string   `json:"time_expression"`
	DurationMinutes int      `json:"duration_minutes"`
	PracticeID      string   `json:"practice_id"`
	OwnerID         string   `json:"owner_id"`
	PetIDs          []string `json:"pet_ids"`
	Title           string   `json:"title"`
	CreatedByUserID string   `json:"created_by_user_id"`
}

// CancelAppointmentArgs is the voice agent's cancel_appointment call.
type CancelAppointmentArgs struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}
