package slotengine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
	"github.com/fogonthedowns/helppetai-sbc/internal/timeanchor"
)

const defaultSlotMinutes = 30

// Engine computes bookable slots against a Source.
type Engine struct {
	source Source
	tracer trace.Tracer
}

// New constructs an Engine over source.
func New(source Source) *Engine {
	return &Engine{source: source, tracer: otel.Tracer("sbc.internal.slotengine")}
}

// Compute enumerates bookable slots for q. It fails only when
// q.Timezone does not load or the Source returns an infrastructure
// error; every business condition
// (practice closed every covered day, no vet availability) comes back
// as an empty Result with a Reason instead.
func (e *Engine) Compute(ctx context.Context, q Query) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "slotengine.compute")
	defer span.End()
	span.SetAttributes(
		attribute.String("sbc.practice_id", q.PracticeID),
		attribute.Int("sbc.slot_minutes", q.SlotMinutes),
	)

	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		err = fmt.Errorf("slotengine: load timezone %q: %w", q.Timezone, err)
		span.RecordError(err)
		return Result{}, err
	}
	slotMinutes := q.SlotMinutes
	if slotMinutes <= 0 {
		slotMinutes = defaultSlotMinutes
	}
	slotDuration := time.Duration(slotMinutes) * time.Minute

	dates := localDatesIn(q.Window, loc)

	openByDate := make(map[civilDate]interval, len(dates))
	for _, d := range dates {
		hours, err := e.source.GetPracticeHours(ctx, q.PracticeID, d.asUTCMidnight())
		if err != nil {
			if errors.Is(err, availability.ErrNoPracticeHours) {
				continue
			}
			err = fmt.Errorf("slotengine: get practice hours: %w", err)
			span.RecordError(err)
			return Result{}, err
		}
		if hours.IsClosed() {
			continue
		}
		openStart := hours.OpenTimeLocal.OnDate(loc, d.year, d.month, d.day)
		openEnd := hours.CloseTimeLocal.OnDate(loc, d.year, d.month, d.day)
		clamped := clampInterval(interval{Start: openStart, End: openEnd}, q.Window)
		if clamped.empty() {
			continue
		}
		openByDate[d] = clamped
	}
	if len(openByDate) == 0 {
		return Result{Reason: ReasonNoHours}, nil
	}

	avail, err := e.source.ListVetAvailability(ctx, q.PracticeID, q.VetUserID, q.Window)
	if err != nil {
		err = fmt.Errorf("slotengine: list vet availability: %w", err)
		span.RecordError(err)
		return Result{}, err
	}
	vets := vetsWithPositiveAvailability(avail)
	if len(vets) == 0 {
		return Result{Reason: ReasonNoVetAvailability}, nil
	}

	appointments, err := e.source.ListAppointments(ctx, q.PracticeID, q.VetUserID, q.Window, availability.NonTerminalStatuses)
	if err != nil {
		err = fmt.Errorf("slotengine: list appointments: %w", err)
		span.RecordError(err)
		return Result{}, err
	}

	var slots []Slot
	for _, vetID := range vets {
		positive, negative := splitByType(avail, vetID)
		busy := appointmentIntervals(appointments, vetID)

		for _, d := range dates {
			openInterval, ok := openByDate[d]
			if !ok {
				continue
			}

			positiveForDate := clampAll(positive, openInterval)
			free := subtractIntervals(unionByType(positiveForDate, availability.Available, availability.EmergencyOnly), unionIntervals(clampAll(negative, openInterval)))
			free = subtractIntervals(free, unionIntervals(clampAll(busy, openInterval)))

			if q.TimePreference != PreferenceNone {
				pref, ok := timeanchor.PartialDayWindow(string(q.TimePreference), loc, d.year, d.month, d.day)
				if !ok {
					continue
				}
				free = intersectIntervals(free, []interval{{Start: pref.Start, End: pref.End}})
			}

			slots = append(slots, enumerateGrid(vetID, free, slotDuration, positiveForDate, loc, d)...)
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].StartAt.Equal(slots[j].StartAt) {
			return slots[i].StartAt.Before(slots[j].StartAt)
		}
		return slots[i].VetUserID < slots[j].VetUserID
	})

	if len(slots) == 0 {
		return Result{Reason: ReasonNoVetAvailability}, nil
	}
	return Result{Slots: slots}, nil
}

// classifiedInterval pairs an interval with the availability type that
// produced it, so grid enumeration can annotate each slot.
type classifiedInterval struct {
	interval
	Type availability.AvailabilityType
}

func clampAll(ivs []classifiedInterval, bound interval) []classifiedInterval {
	out := make([]classifiedInterval, 0, len(ivs))
	for _, iv := range ivs {
		c := clampInterval(iv.interval, availability.Window{Start: bound.Start, End: bound.End})
		if !c.empty() {
			out = append(out, classifiedInterval{interval: c, Type: iv.Type})
		}
	}
	return out
}

func unionByType(ivs []classifiedInterval, types ...availability.AvailabilityType) []interval {
	wanted := make(map[availability.AvailabilityType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	var plain []interval
	for _, iv := range ivs {
		if wanted[iv.Type] {
			plain = append(plain, iv.interval)
		}
	}
	return unionIntervals(plain)
}

func splitByType(avail []availability.VetAvailability, vetID string) (positive, negative []classifiedInterval) {
	for _, v := range avail {
		if v.VetUserID != vetID {
			continue
		}
		ci := classifiedInterval{interval: interval{Start: v.StartAt, End: v.EndAt}, Type: v.AvailabilityType}
		if v.AvailabilityType.IsPositive() {
			positive = append(positive, ci)
		} else {
			negative = append(negative, ci)
		}
	}
	return positive, negative
}

func appointmentIntervals(appointments []availability.Appointment, vetID string) []classifiedInterval {
	var out []classifiedInterval
	for _, a := range appointments {
		if a.AssignedVetUserID == nil || *a.AssignedVetUserID != vetID {
			continue
		}
		if !a.IsNonTerminal() {
			continue
		}
		out = append(out, classifiedInterval{interval: interval{Start: a.AppointmentAt, End: a.End()}})
	}
	return out
}

func vetsWithPositiveAvailability(avail []availability.VetAvailability) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range avail {
		if !v.AvailabilityType.IsPositive() {
			continue
		}
		if !seen[v.VetUserID] {
			seen[v.VetUserID] = true
			out = append(out, v.VetUserID)
		}
	}
	sort.Strings(out)
	return out
}

// enumerateGrid walks slotDuration-sized positions aligned to local
// midnight within free, keeping only those fully enclosed. Each slot
// is annotated with the classification of whichever positive interval
// contains it, preferring AVAILABLE over EMERGENCY_ONLY when both
// cover the same instant.
func enumerateGrid(vetID string, free []interval, slotDuration time.Duration, positive []classifiedInterval, loc *time.Location, d civilDate) []Slot {
	midnight := time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
	var out []Slot
	for _, span := range free {
		// Align the first candidate start to the grid from local
		// midnight, not from span.Start, so slots line up consistently
		// across availability windows that don't start on the hour.
		offset := span.Start.Sub(midnight)
		remainder := offset % slotDuration
		start := span.Start
		if remainder != 0 {
			start = span.Start.Add(slotDuration - remainder)
		}
		for !start.Add(slotDuration).After(span.End) {
			end := start.Add(slotDuration)
			out = append(out, Slot{
				VetUserID:      vetID,
				StartAt:        start,
				EndAt:          end,
				Classification: classificationAt(positive, start, end),
			})
			start = start.Add(slotDuration)
		}
	}
	return out
}

// classificationAt prefers AVAILABLE over EMERGENCY_ONLY when a slot
// is covered by both (spec.md's documented tie-break).
func classificationAt(positive []classifiedInterval, start, end time.Time) availability.AvailabilityType {
	best := availability.EmergencyOnly
	found := false
	for _, iv := range positive {
		if !iv.Start.After(start) && !iv.End.Before(end) {
			found = true
			if iv.Type == availability.Available {
				return availability.Available
			}
		}
	}
	if !found {
		return availability.Available
	}
	return best
}

func clampInterval(iv interval, bound availability.Window) interval {
	start := iv.Start
	if bound.Start.After(start) {
		start = bound.Start
	}
	end := iv.End
	if bound.End.Before(end) {
		end = bound.End
	}
	return interval{Start: start, End: end}
}
