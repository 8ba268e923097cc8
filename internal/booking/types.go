// Package booking is the Booking Coordinator: it validates and mutates
// appointments inside a single transaction so availability can never drift
// from the appointments that actually occupy it (spec.md §4.4).
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
)

// CreateInput is everything Create needs to validate-and-insert one
// appointment.
type CreateInput struct {
	PracticeID        string
	VetUserID         *string
	AppointmentAt     time.Time // UTC
	DurationMinutes   int
	PetOwnerID        string
	Pets              []string
	Title             string
	Notes             string
	CreatedByUserID   string
	EmergencyOverride bool
}

// ReschedulePatch describes the fields Reschedule may change. Nil fields
// are left unchanged.
type ReschedulePatch struct {
	NewAt       *time.Time
	NewDuration *int
	NewVetID    *string
}

// Notifier is the narrow interface the Booking Coordinator depends on to
// optionally trigger a synchronous "slot is gone, want an alternative?"
// callback after an emergency-override conflict. It never blocks
// commit — failures are logged, not retried (spec.md §5's "non-idempotent
// external calls are never retried by the SBC" rule) — and the coordinator
// never depends on a concrete transport, generalizing the teacher's
// BookingAdapter-style interface segregation (see DESIGN.md).
type Notifier interface {
	NotifySlotConflict(ctx context.Context, appt availability.Appointment, conflictingWith []availability.Appointment) error
}

// EventPublisher persists domain events after commit. It is satisfied by
// *events.OutboxStore; the Booking Coordinator never emits events before
// its transaction commits.
type EventPublisher interface {
	Insert(ctx context.Context, aggregateID string, eventType string, payload any) (uuid.UUID, error)
}

// noopNotifier is used when no Notifier is wired; it never blocks.
type noopNotifier struct{}

func (noopNotifier) NotifySlotConflict(ctx context.Context, appt availability.Appointment, conflictingWith []availability.Appointment) error {
	return nil
}

// noopPublisher is used when no EventPublisher is wired (e.g. unit tests
// exercising coordinator logic without an outbox).
type noopPublisher struct{}

func (noopPublisher) Insert(ctx context.Context, aggregateID, eventType string, payload any) (uuid.UUID, error) {
	return uuid.Nil, nil
}
