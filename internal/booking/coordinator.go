package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
	"github.com/fogonthedowns/helppetai-sbc/internal/bookingerr"
	"github.com/fogonthedowns/helppetai-sbc/internal/config"
	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

// AppointmentEvent is the payload shape spec.md §6 requires every
// appointment.* event to carry.
type AppointmentEvent struct {
	AppointmentID     uuid.UUID `json:"appointment_id"`
	PracticeID        string    `json:"practice_id"`
	VetUserID         *string   `json:"vet_user_id,omitempty"`
	AppointmentAtUTC  time.Time `json:"appointment_at_utc"`
	DurationMinutes   int       `json:"duration_minutes"`
	Status            string    `json:"status"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Coordinator is the Booking Coordinator: the single write path for
// appointments. Every mutation runs inside one transaction so
// availability can never drift from what is actually booked
// (spec.md §4.4).
type Coordinator struct {
	store    *availability.Store
	strategy config.LockStrategy
	notifier Notifier
	events   EventPublisher
	logger   *logging.Logger
	tracer   trace.Tracer
}

// New constructs a Coordinator. notifier and events may be nil, in
// which case no-op implementations are used.
func New(store *availability.Store, strategy config.LockStrategy, notifier Notifier, events EventPublisher, logger *logging.Logger) *Coordinator {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &Coordinator{
		store:    store,
		strategy: strategy,
		notifier: notifier,
		events:   events,
		logger:   logger,
		tracer:   otel.Tracer("sbc.internal.booking"),
	}
}

// begin opens the transaction the configured lock strategy calls for.
// The default serializable strategy opens at Serializable isolation so
// Postgres itself detects two concurrent creates racing the same
// vet/time and aborts one with a serialization failure (retried by
// withRetry); the advisory strategy opens a plain read-committed
// transaction and relies on acquirePredicateLock instead.
func (c *Coordinator) begin(ctx context.Context) (pgx.Tx, error) {
	if c.strategy == config.LockStrategyAdvisory {
		return c.store.Begin(ctx)
	}
	return c.store.BeginSerializable(ctx)
}

// Create implements spec.md §4.4's five-step create protocol within a
// single transaction, retried on serialization failure/deadlock per
// the configured lock strategy.
func (c *Coordinator) Create(ctx context.Context, in CreateInput) (*availability.Appointment, error) {
	ctx, span := c.tracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("sbc.practice_id", in.PracticeID),
		attribute.Int("sbc.duration_minutes", in.DurationMinutes),
	)

	if in.DurationMinutes <= 0 {
		err := bookingerr.New(bookingerr.CodeInvalidDuration, "duration must be positive")
		span.RecordError(err)
		return nil, err
	}

	var created *availability.Appointment
	err := withRetry(ctx, c.strategy, func(tx pgx.Tx) error {
		t0 := in.AppointmentAt
		t1 := t0.Add(time.Duration(in.DurationMinutes) * time.Minute)

		if c.strategy == config.LockStrategyAdvisory {
			if err := acquirePredicateLock(ctx, tx, in.PracticeID, in.VetUserID, t0); err != nil {
				return err
			}
		}

		practice, err := c.store.GetPractice(ctx, in.PracticeID)
		if err != nil {
			return translateLookupErr(err)
		}
		loc, err := time.LoadLocation(practice.Timezone)
		if err != nil {
			return bookingerr.Wrap(bookingerr.CodeUnknownTimezone, err, "practice has an invalid timezone")
		}

		conflictNote := ""
		if !in.EmergencyOverride {
			hours, err := c.store.GetPracticeHours(ctx, in.PracticeID, t0.In(loc))
			if err != nil {
				if err == availability.ErrNoPracticeHours {
					return bookingerr.New(bookingerr.CodeNoHours, "practice has no hours configured for that day")
				}
				return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not load practice hours")
			}
			if !hours.Covers(loc, t0, t1) {
				return bookingerr.New(bookingerr.CodePracticeClosed, "practice is closed for the requested time")
			}

			if in.VetUserID != nil {
				windows, err := c.store.ListVetAvailability(ctx, in.PracticeID, in.VetUserID, availability.Window{Start: t0, End: t1})
				if err != nil {
					return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not load vet availability")
				}
				if !anyPositiveEncloses(windows, t0, t1) {
					return bookingerr.New(bookingerr.CodeVetUnavailable, "vet is not available for the requested time")
				}
			}
		}

		conflicts, err := c.store.ListAppointmentsForUpdate(ctx, tx, in.PracticeID, in.VetUserID, availability.Window{Start: t0, End: t1}, availability.NonTerminalStatuses, nil)
		if err != nil {
			return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not check for conflicts")
		}
		if len(conflicts) > 0 {
			if !in.EmergencyOverride {
				return bookingerr.New(bookingerr.CodeSlotConflict, "the requested time is already booked")
			}
			conflictNote = "EMERGENCY_OVERRIDE: booked despite conflicting appointment(s)"
			if err := c.notifier.NotifySlotConflict(ctx, availability.Appointment{PracticeID: in.PracticeID, AssignedVetUserID: in.VetUserID, AppointmentAt: t0, DurationMinutes: in.DurationMinutes}, conflicts); err != nil {
				c.logger.Error("booking: notify slot conflict failed", "error", err)
			}
		}

		notes := in.Notes
		if conflictNote != "" {
			if notes != "" {
				notes = notes + "; " + conflictNote
			} else {
				notes = conflictNote
			}
		}

		appt := &availability.Appointment{
			PracticeID:        in.PracticeID,
			AssignedVetUserID: in.VetUserID,
			AppointmentAt:     t0,
			DurationMinutes:   in.DurationMinutes,
			Status:            availability.Scheduled,
			PetOwnerID:        in.PetOwnerID,
			Pets:              in.Pets,
			Title:             in.Title,
			Notes:             notes,
			CreatedByUserID:   in.CreatedByUserID,
		}
		if err := c.store.InsertAppointment(ctx, tx, appt); err != nil {
			return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not insert appointment")
		}
		created = appt
		return nil
	}, c.begin)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.publish(ctx, "appointment.created", created)
	return created, nil
}

// Reschedule re-validates the patched interval against steps 2-4 of
// the create protocol, excluding the appointment itself from the
// conflict set, and updates it in place (spec.md §4.4).
func (c *Coordinator) Reschedule(ctx context.Context, id uuid.UUID, patch ReschedulePatch, emergencyOverride bool) (*availability.Appointment, error) {
	ctx, span := c.tracer.Start(ctx, "booking.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("sbc.appointment_id", id.String()))

	var updated *availability.Appointment
	err := withRetry(ctx, c.strategy, func(tx pgx.Tx) error {
		current, err := c.store.GetAppointmentForUpdate(ctx, tx, id)
		if err != nil {
			return translateLookupErr(err)
		}
		if current.Status.IsTerminal() {
			return bookingerr.New(bookingerr.CodeInvalidTransition, "cannot reschedule a terminal appointment")
		}

		t0 := current.AppointmentAt
		if patch.NewAt != nil {
			t0 = *patch.NewAt
		}
		duration := current.DurationMinutes
		if patch.NewDuration != nil {
			duration = *patch.NewDuration
		}
		if duration <= 0 {
			return bookingerr.New(bookingerr.CodeInvalidDuration, "duration must be positive")
		}
		t1 := t0.Add(time.Duration(duration) * time.Minute)

		vetID := current.AssignedVetUserID
		if patch.NewVetID != nil {
			vetID = patch.NewVetID
		}

		if c.strategy == config.LockStrategyAdvisory {
			if err := acquirePredicateLock(ctx, tx, current.PracticeID, vetID, t0); err != nil {
				return err
			}
		}

		practice, err := c.store.GetPractice(ctx, current.PracticeID)
		if err != nil {
			return translateLookupErr(err)
		}
		loc, err := time.LoadLocation(practice.Timezone)
		if err != nil {
			return bookingerr.Wrap(bookingerr.CodeUnknownTimezone, err, "practice has an invalid timezone")
		}

		if !emergencyOverride {
			hours, err := c.store.GetPracticeHours(ctx, current.PracticeID, t0.In(loc))
			if err != nil {
				if err == availability.ErrNoPracticeHours {
					return bookingerr.New(bookingerr.CodeNoHours, "practice has no hours configured for that day")
				}
				return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not load practice hours")
			}
			if !hours.Covers(loc, t0, t1) {
				return bookingerr.New(bookingerr.CodePracticeClosed, "practice is closed for the requested time")
			}

			if vetID != nil {
				windows, err := c.store.ListVetAvailability(ctx, current.PracticeID, vetID, availability.Window{Start: t0, End: t1})
				if err != nil {
					return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not load vet availability")
				}
				if !anyPositiveEncloses(windows, t0, t1) {
					return bookingerr.New(bookingerr.CodeVetUnavailable, "vet is not available for the requested time")
				}
			}
		}

		conflicts, err := c.store.ListAppointmentsForUpdate(ctx, tx, current.PracticeID, vetID, availability.Window{Start: t0, End: t1}, availability.NonTerminalStatuses, &id)
		if err != nil {
			return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not check for conflicts")
		}
		if len(conflicts) > 0 && !emergencyOverride {
			return bookingerr.New(bookingerr.CodeSlotConflict, "the requested time is already booked")
		}

		if err := c.store.UpdateAppointment(ctx, tx, id, availability.AppointmentPatch{
			AppointmentAt:     &t0,
			DurationMinutes:   &duration,
			AssignedVetUserID: vetID,
		}); err != nil {
			return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not update appointment")
		}

		current.AppointmentAt = t0
		current.DurationMinutes = duration
		current.AssignedVetUserID = vetID
		updated = current
		return nil
	}, c.begin)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.publish(ctx, "appointment.rescheduled", updated)
	return updated, nil
}

// Cancel transitions an appointment to CANCELLED. Cancelling an
// already-cancelled appointment is idempotent (spec.md §8).
func (c *Coordinator) Cancel(ctx context.Context, id uuid.UUID, reason string) (*availability.Appointment, error) {
	ctx, span := c.tracer.Start(ctx, "booking.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("sbc.appointment_id", id.String()))

	var result *availability.Appointment
	err := withRetry(ctx, c.strategy, func(tx pgx.Tx) error {
		current, err := c.store.GetAppointmentForUpdate(ctx, tx, id)
		if err != nil {
			return translateLookupErr(err)
		}
		if current.Status == availability.Cancelled {
			result = current
			return nil
		}
		if current.Status.IsTerminal() {
			return bookingerr.New(bookingerr.CodeInvalidTransition, "cannot cancel a terminal appointment")
		}

		notes := current.Notes
		if reason != "" {
			if notes != "" {
				notes = notes + "; cancelled: " + reason
			} else {
				notes = "cancelled: " + reason
			}
		}
		if err := c.store.UpdateAppointment(ctx, tx, id, availability.AppointmentPatch{Notes: &notes}); err != nil {
			return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not record cancellation reason")
		}
		if err := c.store.TransitionStatus(ctx, tx, id, availability.Cancelled); err != nil {
			return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not cancel appointment")
		}

		current.Status = availability.Cancelled
		current.Notes = notes
		result = current
		return nil
	}, c.begin)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.publish(ctx, "appointment.cancelled", result)
	return result, nil
}

// allowedTransitions is the state machine spec.md §4.4 defines: forward
// lifecycle progress, plus a cancel/no-show escape from any
// non-terminal state.
var allowedTransitions = map[availability.AppointmentStatus][]availability.AppointmentStatus{
	availability.Scheduled:  {availability.Confirmed, availability.InProgress, availability.Cancelled, availability.NoShow},
	availability.Confirmed:  {availability.InProgress, availability.Cancelled, availability.NoShow},
	availability.InProgress: {availability.Completed, availability.Cancelled, availability.NoShow},
}

// Transition moves an appointment through the lifecycle state machine.
// Terminal states reject any further transition with
// bookingerr.CodeInvalidTransition (spec.md §4.4).
func (c *Coordinator) Transition(ctx context.Context, id uuid.UUID, newStatus availability.AppointmentStatus) (*availability.Appointment, error) {
	ctx, span := c.tracer.Start(ctx, "booking.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("sbc.appointment_id", id.String()),
		attribute.String("sbc.new_status", string(newStatus)),
	)

	var result *availability.Appointment
	err := withRetry(ctx, c.strategy, func(tx pgx.Tx) error {
		current, err := c.store.GetAppointmentForUpdate(ctx, tx, id)
		if err != nil {
			return translateLookupErr(err)
		}

		allowed := allowedTransitions[current.Status]
		ok := false
		for _, s := range allowed {
			if s == newStatus {
				ok = true
				break
			}
		}
		if !ok {
			return bookingerr.New(bookingerr.CodeInvalidTransition, "appointment cannot move from "+string(current.Status)+" to "+string(newStatus))
		}

		if err := c.store.TransitionStatus(ctx, tx, id, newStatus); err != nil {
			return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not transition appointment")
		}
		current.Status = newStatus
		result = current
		return nil
	}, c.begin)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.publish(ctx, "appointment.status_changed", result)
	return result, nil
}

func (c *Coordinator) publish(ctx context.Context, eventType string, appt *availability.Appointment) {
	if appt == nil {
		return
	}
	payload := AppointmentEvent{
		AppointmentID:    appt.ID,
		PracticeID:       appt.PracticeID,
		VetUserID:        appt.AssignedVetUserID,
		AppointmentAtUTC: appt.AppointmentAt,
		DurationMinutes:  appt.DurationMinutes,
		Status:           string(appt.Status),
		UpdatedAt:        appt.UpdatedAt,
	}
	if _, err := c.events.Insert(ctx, appt.ID.String(), eventType, payload); err != nil {
		c.logger.Error("booking: publish event failed", "event_type", eventType, "error", err)
	}
}

func anyPositiveEncloses(windows []availability.VetAvailability, start, end time.Time) bool {
	for _, w := range windows {
		if w.AvailabilityType.IsPositive() && w.Encloses(start, end) {
			return true
		}
	}
	return false
}

func translateLookupErr(err error) error {
	switch err {
	case availability.ErrAppointmentNotFound:
		return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "appointment not found")
	case availability.ErrPracticeNotFound:
		return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "practice not found")
	default:
		return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "lookup failed")
	}
}
