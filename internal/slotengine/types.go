// Package slotengine intersects practice hours, per-vet availability,
// and the complement of existing appointments to enumerate bookable
// slots of a requested duration within a UTC window.
package slotengine

import (
	"context"
	"time"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
)

// Reason explains why Compute returned no slots. It is only ever set
// on an empty result — the Slot Engine never fails on business
// conditions, only on infrastructure errors.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNoHours           Reason = "NO_HOURS"
	ReasonNoVetAvailability Reason = "NO_VET_AVAILABILITY"
)

// Preference narrows results to a local time-of-day band.
type Preference string

const (
	PreferenceNone      Preference = ""
	PreferenceMorning   Preference = "morning"
	PreferenceAfternoon Preference = "afternoon"
	PreferenceEvening   Preference = "evening"
)

// Slot is one bookable instant for one vet.
type Slot struct {
	VetUserID      string                        `json:"vet_user_id"`
	StartAt        time.Time                     `json:"start_at_utc"`
	EndAt          time.Time                     `json:"end_at_utc"`
	Classification availability.AvailabilityType `json:"classification"`
}

// Query describes a slot search.
type Query struct {
	PracticeID     string
	Timezone       string
	VetUserID      *string
	Window         availability.Window
	SlotMinutes    int
	TimePreference Preference
}

// Result is the outcome of Compute.
type Result struct {
	Slots  []Slot `json:"slots"`
	Reason Reason `json:"reason,omitempty"`
}

// Source is the per-entity read surface the engine needs. It is
// satisfied by *availability.Store and by
// *availability.PracticeHoursCache (for the practice-hours leg) — the
// engine depends on this narrow interface rather than a concrete
// store type so it never needs to know which one is wired in.
type Source interface {
	GetPracticeHours(ctx context.Context, practiceID string, localDate time.Time) (*availability.PracticeHours, error)
	ListVetAvailability(ctx context.Context, practiceID string, vetID *string, window availability.Window) ([]availability.VetAvailability, error)
	ListAppointments(ctx context.Context, practiceID string, vetID *string, window availability.Window, includeStatuses []availability.AppointmentStatus) ([]availability.Appointment, error)
}
