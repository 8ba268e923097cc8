// Package availability persists practice hours, per-vet availability
// windows, and appointments as timezone-aware UTC instants, and
// provides the range queries the Slot Engine and Booking Coordinator
// build on. Appointments are the only "busy" source of truth —
// availability is always computed, never dually written.
package availability

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityType classifies a VetAvailability window. AVAILABLE and
// EMERGENCY_ONLY are positive (they add bookable time); UNAVAILABLE
// and SURGERY_BLOCK are negative (they subtract from it).
type AvailabilityType string

const (
	Available     AvailabilityType = "AVAILABLE"
	EmergencyOnly AvailabilityType = "EMERGENCY_ONLY"
	SurgeryBlock  AvailabilityType = "SURGERY_BLOCK"
	Unavailable   AvailabilityType = "UNAVAILABLE"
)

// IsPositive reports whether the window type adds bookable time.
func (t AvailabilityType) IsPositive() bool {
	return t == Available || t == EmergencyOnly
}

// AppointmentStatus is the appointment lifecycle state.
type AppointmentStatus string

const (
	Scheduled  AppointmentStatus = "SCHEDULED"
	Confirmed  AppointmentStatus = "CONFIRMED"
	InProgress AppointmentStatus = "IN_PROGRESS"
	Completed  AppointmentStatus = "COMPLETED"
	Cancelled  AppointmentStatus = "CANCELLED"
	NoShow     AppointmentStatus = "NO_SHOW"
)

// NonTerminalStatuses is the set of statuses that count as "busy" for
// conflict checks.
var NonTerminalStatuses = []AppointmentStatus{Scheduled, Confirmed, InProgress}

// TerminalStatuses is the complement: appointments in these states
// never block a slot or a new booking.
var TerminalStatuses = []AppointmentStatus{Completed, Cancelled, NoShow}

// IsTerminal reports whether status can accept no further transitions
// (COMPLETED, CANCELLED, NO_SHOW).
func (s AppointmentStatus) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// Practice is the stable tenant this system schedules for. SBC treats
// it as externally owned and immutable except for Timezone.
type Practice struct {
	ID       string `json:"id"`
	Timezone string `json:"timezone"`
}

// PracticeHours is one record for a (practice, weekday, effective
// range). A nil OpenTimeLocal/CloseTimeLocal pair means the practice is
// closed that weekday within the effective range.
type PracticeHours struct {
	ID             uuid.UUID    `json:"id"`
	PracticeID     string       `json:"practice_id"`
	Weekday        time.Weekday `json:"weekday"`
	OpenTimeLocal  *WallClock   `json:"open_time_local"`
	CloseTimeLocal *WallClock   `json:"close_time_local"`
	EffectiveFrom  time.Time    `json:"effective_from"`  // UTC date, truncated to midnight
	EffectiveUntil time.Time    `json:"effective_until"` // UTC date, truncated to midnight
	IsActive       bool         `json:"is_active"`
}

// IsClosed reports whether the record represents a closed weekday.
func (h PracticeHours) IsClosed() bool {
	return h.OpenTimeLocal == nil || h.CloseTimeLocal == nil
}

// Covers reports whether the practice is open across the entire
// half-open UTC interval [start, end) in the practice's timezone.
func (h PracticeHours) Covers(loc *time.Location, start, end time.Time) bool {
	if h.IsClosed() {
		return false
	}
	localStart := start.In(loc)
	y, m, d := localStart.Date()
	openUTC := h.OpenTimeLocal.OnDate(loc, y, m, d)
	closeUTC := h.CloseTimeLocal.OnDate(loc, y, m, d)
	return !start.Before(openUTC) && !end.After(closeUTC)
}

// WallClock is a practice-local time of day, independent of any
// specific calendar date or DST offset until anchored with OnDate.
type WallClock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// OnDate anchors the wall-clock time to a specific local calendar date
// in loc and returns the resulting UTC instant.
func (w WallClock) OnDate(loc *time.Location, year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, w.Hour, w.Minute, 0, 0, loc).UTC()
}

func (w WallClock) String() string {
	return time.Date(0, 1, 1, w.Hour, w.Minute, 0, 0, time.UTC).Format("15:04")
}

// ParseWallClock parses an "HH:MM" string into a WallClock.
func ParseWallClock(s string) (WallClock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return WallClock{}, err
	}
	return WallClock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// VetAvailability is one concrete window in which a named
// veterinarian is available (or explicitly blocked).
type VetAvailability struct {
	ID               uuid.UUID        `json:"id"`
	PracticeID       string           `json:"practice_id"`
	VetUserID        string           `json:"vet_user_id"`
	StartAt          time.Time        `json:"start_at"` // UTC
	EndAt            time.Time        `json:"end_at"`   // UTC, strictly > StartAt
	AvailabilityType AvailabilityType `json:"availability_type"`
	IsActive         bool             `json:"is_active"`
}

// Overlaps reports whether the window's [StartAt, EndAt) intersects
// [start, end).
func (v VetAvailability) Overlaps(start, end time.Time) bool {
	return v.StartAt.Before(end) && start.Before(v.EndAt)
}

// Encloses reports whether [StartAt, EndAt) fully contains [start, end).
func (v VetAvailability) Encloses(start, end time.Time) bool {
	return !v.StartAt.After(start) && !v.EndAt.Before(end)
}

// Appointment is the sole "busy" source of truth for scheduling.
type Appointment struct {
	ID                uuid.UUID         `json:"id"`
	PracticeID        string            `json:"practice_id"`
	AssignedVetUserID *string           `json:"assigned_vet_user_id,omitempty"`
	AppointmentAt     time.Time         `json:"appointment_at"` // UTC
	DurationMinutes   int               `json:"duration_minutes"`
	Status            AppointmentStatus `json:"status"`
	PetOwnerID        string            `json:"pet_owner_id"`
	Pets              []string          `json:"pets"`
	Title             string            `json:"title"`
	Notes             string            `json:"notes,omitempty"`
	CreatedByUserID   string            `json:"created_by_user_id"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// End returns the exclusive end of the appointment's occupied interval.
func (a Appointment) End() time.Time {
	return a.AppointmentAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether the appointment's occupied interval
// intersects [start, end).
func (a Appointment) Overlaps(start, end time.Time) bool {
	return a.AppointmentAt.Before(end) && start.Before(a.End())
}

// IsNonTerminal reports whether the appointment currently counts as
// busy for conflict checks.
func (a Appointment) IsNonTerminal() bool {
	return !a.Status.IsTerminal()
}

// VoiceAgent binds a phone number to a practice and its default
// interpretation timezone. Read-only from the SBC's view.
type VoiceAgent struct {
	ID              uuid.UUID `json:"id"`
	PracticeID      string    `json:"practice_id"`
	PhoneNumber     string    `json:"phone_number"`
	DefaultTimezone string    `json:"default_timezone"`
}

// Window is a half-open UTC interval used throughout range queries.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
