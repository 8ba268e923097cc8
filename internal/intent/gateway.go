package intent

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
	"github.com/fogonthedowns/helppetai-sbc/internal/booking"
	"github.com/fogonthedowns/helppetai-sbc/internal/bookingerr"
	"github.com/fogonthedowns/helppetai-sbc/internal/slotengine"
	"github.com/fogonthedowns/helppetai-sbc/internal/timeanchor"
)

// LocalisedSlot is a Slot Engine result rendered into the practice's
// local timezone for voice responses, alongside the raw UTC instants a
// subsequent book_appointment call needs.
type LocalisedSlot struct {
	VetUserID      string                        `json:"vet_user_id"`
	StartLocal     string                        `json:"start_local"`
	EndLocal       string                        `json:"end_local"`
	StartAtUTC     time.Time                     `json:"start_at_utc"`
	EndAtUTC       time.Time                     `json:"end_at_utc"`
	Classification availability.AvailabilityType `json:"classification"`
}

// VoiceSlotsResult is what FindSlotsVoice returns.
type VoiceSlotsResult struct {
	Slots   []LocalisedSlot
	Reason  slotengine.Reason
	Message string
}

// BookVoiceResult is what BookVoice returns on success.
type BookVoiceResult struct {
	AppointmentID    uuid.UUID
	ConfirmationText string
}

// Gateway is the Intent Gateway: the two-shape API (staff-structured vs
// voice-natural) unifying onto the Slot Engine and Booking Coordinator
// (spec.md §4.5).
type Gateway struct {
	store       *availability.Store
	engine      *slotengine.Engine
	coordinator *booking.Coordinator
}

// New constructs a Gateway.
func New(store *availability.Store, engine *slotengine.Engine, coordinator *booking.Coordinator) *Gateway {
	return &Gateway{store: store, engine: engine, coordinator: coordinator}
}

// FindSlotsStaff is a thin passthrough to the Slot Engine for callers
// that already have a concrete UTC window (spec.md §4.5).
func (g *Gateway) FindSlotsStaff(ctx context.Context, practiceID string, vetID *string, window availability.Window, slotMinutes int, preference slotengine.Preference) (slotengine.Result, error) {
	practice, err := g.store.GetPractice(ctx, practiceID)
	if err != nil {
		return slotengine.Result{}, translateErr(err)
	}
	return g.engine.Compute(ctx, slotengine.Query{
		PracticeID:     practiceID,
		Timezone:       practice.Timezone,
		VetUserID:      vetID,
		Window:         window,
		SlotMinutes:    slotMinutes,
		TimePreference: preference,
	})
}

// FindSlotsVoice interprets a free-form expression against the
// practice's timezone, calls the Slot Engine over the resolved window,
// and localizes every slot back into spoken-friendly text (spec.md
// §4.5).
func (g *Gateway) FindSlotsVoice(ctx context.Context, practiceID, expression string, slotMinutes int, preference slotengine.Preference, vetID *string) (VoiceSlotsResult, error) {
	practice, err := g.store.GetPractice(ctx, practiceID)
	if err != nil {
		return VoiceSlotsResult{}, translateErr(err)
	}
	loc, err := time.LoadLocation(practice.Timezone)
	if err != nil {
		return VoiceSlotsResult{}, bookingerr.Wrap(bookingerr.CodeUnknownTimezone, err, "practice has an invalid timezone")
	}

	res, err := timeanchor.Interpret(expression, practice.Timezone, time.Now().UTC())
	if err != nil {
		return VoiceSlotsResult{}, translateInterpretErr(err)
	}

	window := availability.Window{Start: res.Start, End: res.End}
	if res.Kind == timeanchor.Point {
		window.End = res.Start.Add(time.Duration(slotMinutes) * time.Minute)
	}

	result, err := g.engine.Compute(ctx, slotengine.Query{
		PracticeID:     practiceID,
		Timezone:       practice.Timezone,
		VetUserID:      vetID,
		Window:         window,
		SlotMinutes:    slotMinutes,
		TimePreference: preference,
	})
	if err != nil {
		return VoiceSlotsResult{}, bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not compute available slots")
	}

	out := VoiceSlotsResult{Reason: result.Reason}
	for _, s := range result.Slots {
		out.Slots = append(out.Slots, LocalisedSlot{
			VetUserID:      s.VetUserID,
			StartLocal:     timeanchor.Localize(pointResolution(s.StartAt, loc), timeanchor.StyleFull),
			EndLocal:       timeanchor.Localize(pointResolution(s.EndAt, loc), timeanchor.StyleTimeOnly),
			StartAtUTC:     s.StartAt,
			EndAtUTC:       s.EndAt,
			Classification: s.Classification,
		})
	}
	if len(out.Slots) == 0 {
		out.Message = humanizeReason(result.Reason)
	}
	return out, nil
}

// BookVoice interprets a date/time expression to a single instant (not
// a window), delegates to the Booking Coordinator, and produces a
// spoken confirmation on success (spec.md §4.5).
func (g *Gateway) BookVoice(ctx context.Context, in BookAppointmentArgs, vetID *string, emergencyOverride, allowPast bool) (*BookVoiceResult, error) {
	practice, err := g.store.GetPractice(ctx, in.PracticeID)
	if err != nil {
		return nil, translateErr(err)
	}
	loc, err := time.LoadLocation(practice.Timezone)
	if err != nil {
		return nil, bookingerr.Wrap(bookingerr.CodeUnknownTimezone, err, "practice has an invalid timezone")
	}

	expression := in.DateExpression + " " + in.TimeExpression
	res, err := timeanchor.Interpret(expression, practice.Timezone, time.Now().UTC())
	if err != nil {
		return nil, translateInterpretErr(err)
	}
	if res.Kind != timeanchor.Point {
		return nil, g.ambiguousBookingErr(ctx, practice, loc, res, in, vetID)
	}
	if !allowPast && res.Start.Before(time.Now().UTC()) {
		return nil, bookingerr.New(bookingerr.CodePastInstant, "that time has already passed")
	}

	duration := in.DurationMinutes
	if duration <= 0 {
		return nil, bookingerr.New(bookingerr.CodeInvalidDuration, "duration must be positive")
	}

	appt, err := g.coordinator.Create(ctx, booking.CreateInput{
		PracticeID:        in.PracticeID,
		VetUserID:         vetID,
		AppointmentAt:     res.Start,
		DurationMinutes:   duration,
		PetOwnerID:        in.OwnerID,
		Pets:              in.PetIDs,
		Title:             in.Title,
		CreatedByUserID:   in.CreatedByUserID,
		EmergencyOverride: emergencyOverride,
	})
	if err != nil {
		return nil, err
	}

	confirmation := timeanchor.Localize(pointResolution(appt.AppointmentAt, loc), timeanchor.StyleFull)
	return &BookVoiceResult{
		AppointmentID:    appt.ID,
		ConfirmationText: "Booked for " + confirmation,
	}, nil
}

// maxAmbiguousCandidates bounds how many sampled slots an ambiguous
// BookVoice response carries, so a bare "next week" doesn't return
// every open slot across the whole window.
const maxAmbiguousCandidates = 5

// ambiguousBookingErr samples bookable slots across the unresolved
// window res covers and attaches them as CodeAmbiguous's candidates,
// so a caller who said "Tuesday" with no time gets back a handful of
// concrete daytime slots to choose from rather than the bare
// unresolved window. If slot enumeration itself fails, it falls back
// to returning the window as the only candidate.
func (g *Gateway) ambiguousBookingErr(ctx context.Context, practice *availability.Practice, loc *time.Location, res timeanchor.Resolution, in BookAppointmentArgs, vetID *string) error {
	slotMinutes := in.DurationMinutes
	if slotMinutes <= 0 {
		slotMinutes = 30
	}

	result, err := g.engine.Compute(ctx, slotengine.Query{
		PracticeID:  in.PracticeID,
		Timezone:    practice.Timezone,
		VetUserID:   vetID,
		Window:      availability.Window{Start: res.Start, End: res.End},
		SlotMinutes: slotMinutes,
	})
	if err != nil || len(result.Slots) == 0 {
		return bookingerr.New(bookingerr.CodeAmbiguous, "could not resolve the requested time to a single instant").
			WithCandidates([]timeanchor.Resolution{res})
	}

	slots := result.Slots
	if len(slots) > maxAmbiguousCandidates {
		slots = slots[:maxAmbiguousCandidates]
	}
	candidates := make([]LocalisedSlot, 0, len(slots))
	for _, s := range slots {
		candidates = append(candidates, LocalisedSlot{
			VetUserID:      s.VetUserID,
			StartLocal:     timeanchor.Localize(pointResolution(s.StartAt, loc), timeanchor.StyleFull),
			EndLocal:       timeanchor.Localize(pointResolution(s.EndAt, loc), timeanchor.StyleTimeOnly),
			StartAtUTC:     s.StartAt,
			EndAtUTC:       s.EndAt,
			Classification: s.Classification,
		})
	}
	return bookingerr.New(bookingerr.CodeAmbiguous, "could not resolve the requested time to a single instant; here are some open slots").
		WithCandidates(candidates)
}

// CancelVoice cancels an appointment on behalf of a voice caller.
func (g *Gateway) CancelVoice(ctx context.Context, args CancelAppointmentArgs) (*availability.Appointment, error) {
	id, err := uuid.Parse(args.AppointmentID)
	if err != nil {
		return nil, bookingerr.Wrap(bookingerr.CodeUnparseable, err, "appointment id is not valid")
	}
	return g.coordinator.Cancel(ctx, id, args.Reason)
}

func pointResolution(t time.Time, loc *time.Location) timeanchor.Resolution {
	utc := t.UTC()
	return timeanchor.Resolution{Kind: timeanchor.Point, Start: utc, End: utc, Location: loc}
}

func humanizeReason(reason slotengine.Reason) string {
	switch reason {
	case slotengine.ReasonNoHours:
		return "The practice is closed during the requested time."
	case slotengine.ReasonNoVetAvailability:
		return bookingerr.Humanize(bookingerr.CodeNoVetAvailability)
	default:
		return "No slots are available for the requested time."
	}
}

func translateErr(err error) error {
	switch err {
	case availability.ErrPracticeNotFound:
		return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "practice not found")
	case availability.ErrVoiceAgentNotFound:
		return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "voice agent not found")
	default:
		return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "lookup failed")
	}
}

func translateInterpretErr(err error) error {
	switch {
	case err == timeanchor.ErrUnknownTimezone:
		return bookingerr.Wrap(bookingerr.CodeUnknownTimezone, err, "unknown timezone")
	case err == timeanchor.ErrUnparseable, err == timeanchor.ErrNonexistentLocalTime:
		return bookingerr.Wrap(bookingerr.CodeUnparseable, err, "could not understand the requested time")
	default:
		var ambiguous *timeanchor.AmbiguousError
		if errors.As(err, &ambiguous) {
			return bookingerr.New(bookingerr.CodeAmbiguous, "that could mean more than one time").WithCandidates(ambiguous.Candidates)
		}
		return bookingerr.Wrap(bookingerr.CodeUnparseable, err, "could not understand the requested time")
	}
}
