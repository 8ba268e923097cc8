package timeanchor

import (
	"errors"
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestInterpretUnknownTimezone(t *testing.T) {
	_, err := Interpret("today", "Not/AZone", time.Now())
	if !errors.Is(err, ErrUnknownTimezone) {
		t.Fatalf("expected ErrUnknownTimezone, got %v", err)
	}
}

func TestInterpretUnparseable(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	_, err := Interpret("whenever works I guess", "America/Denver", now)
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}
}

func TestInterpretToday(t *testing.T) {
	loc := mustLoc(t, "America/Denver")
	// 2026-03-04 10:00 MST (UTC-7)
	now := time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)

	res, err := Interpret("today", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != Window {
		t.Fatalf("expected window, got %s", res.Kind)
	}
	wantStart := time.Date(2026, 3, 4, 0, 0, 0, 0, loc)
	if !res.Start.Equal(wantStart.UTC()) {
		t.Fatalf("expected start %v, got %v", wantStart, res.Start)
	}
	wantEnd := time.Date(2026, 3, 5, 0, 0, 0, 0, loc)
	if !res.End.Equal(wantEnd.UTC()) {
		t.Fatalf("expected end %v, got %v", wantEnd, res.End)
	}
}

func TestInterpretTomorrowAfternoon(t *testing.T) {
	loc := mustLoc(t, "America/Denver")
	now := time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)

	res, err := Interpret("tomorrow afternoon", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != Window {
		t.Fatalf("expected window, got %s", res.Kind)
	}
	wantStart := time.Date(2026, 3, 5, 12, 0, 0, 0, loc)
	wantEnd := time.Date(2026, 3, 5, 17, 0, 0, 0, loc)
	if !res.Start.Equal(wantStart.UTC()) || !res.End.Equal(wantEnd.UTC()) {
		t.Fatalf("expected [%v,%v), got [%v,%v)", wantStart, wantEnd, res.Start, res.End)
	}
}

func TestInterpretNextFridayUnambiguous(t *testing.T) {
	// 2026-03-04 is a Wednesday.
	now := time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)

	res, err := Interpret("friday", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != Window {
		t.Fatalf("expected window, got %s", res.Kind)
	}
	loc := mustLoc(t, "America/Denver")
	wantStart := time.Date(2026, 3, 6, 0, 0, 0, 0, loc)
	if !res.Start.Equal(wantStart.UTC()) {
		t.Fatalf("expected friday 2026-03-06, got %v", res.Start.In(loc))
	}
}

func TestInterpretBareWeekdayTodayIsAmbiguous(t *testing.T) {
	// 2026-03-06 is a Friday.
	now := time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC)

	_, err := Interpret("friday", "America/Denver", now)
	var ambErr *AmbiguousError
	if !errors.As(err, &ambErr) {
		t.Fatalf("expected AmbiguousError, got %v", err)
	}
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected errors.Is to match ErrAmbiguous")
	}
	if len(ambErr.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ambErr.Candidates))
	}
}

func TestInterpretNextFridayExplicitSkipsToday(t *testing.T) {
	// 2026-03-06 is a Friday; "next friday" should mean 2026-03-13.
	now := time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC)
	loc := mustLoc(t, "America/Denver")

	res, err := Interpret("next friday", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantStart := time.Date(2026, 3, 13, 0, 0, 0, 0, loc)
	if !res.Start.Equal(wantStart.UTC()) {
		t.Fatalf("expected 2026-03-13, got %v", res.Start.In(loc))
	}
}

func TestInterpretFridayAtTime(t *testing.T) {
	now := time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)
	loc := mustLoc(t, "America/Denver")

	res, err := Interpret("friday at 2:30pm", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != Point {
		t.Fatalf("expected point, got %s", res.Kind)
	}
	want := time.Date(2026, 3, 6, 14, 30, 0, 0, loc)
	if !res.Start.Equal(want.UTC()) {
		t.Fatalf("expected %v, got %v", want, res.Start.In(loc))
	}
}

func TestInterpretRelativeMinutes(t *testing.T) {
	now := time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)

	res, err := Interpret("in 20 minutes", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != Point {
		t.Fatalf("expected point, got %s", res.Kind)
	}
	if !res.Start.Equal(now.Add(20 * time.Minute)) {
		t.Fatalf("expected %v, got %v", now.Add(20*time.Minute), res.Start)
	}
}

func TestInterpretISODateTime(t *testing.T) {
	now := time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)
	loc := mustLoc(t, "America/Denver")

	res, err := Interpret("2026-10-15 14:30", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 10, 15, 14, 30, 0, 0, loc)
	if !res.Start.Equal(want.UTC()) {
		t.Fatalf("expected %v, got %v", want, res.Start.In(loc))
	}
}

func TestInterpretMonthDayRollsToNextYear(t *testing.T) {
	// "today" is after Jan 10 in 2026, so "january 10" must mean 2027.
	now := time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)
	loc := mustLoc(t, "America/Denver")

	res, err := Interpret("january 10", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2027, 1, 10, 0, 0, 0, 0, loc)
	if !res.Start.Equal(want.UTC()) {
		t.Fatalf("expected %v, got %v", want, res.Start.In(loc))
	}
}

func TestInterpretMonthDayWithTime(t *testing.T) {
	now := time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)
	loc := mustLoc(t, "America/Denver")

	res, err := Interpret("Oct 3 at 9 PM", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != Point {
		t.Fatalf("expected point, got %s", res.Kind)
	}
	want := time.Date(2026, 10, 3, 21, 0, 0, 0, loc)
	if !res.Start.Equal(want.UTC()) {
		t.Fatalf("expected %v, got %v", want, res.Start.In(loc))
	}
}

func TestInterpretSpringForwardGapIsNonexistentLocalTime(t *testing.T) {
	// America/Denver springs forward at 2026-03-08 02:00 -> 03:00.
	now := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)

	_, err := Interpret("2026-03-08 02:30", "America/Denver", now)
	if !errors.Is(err, ErrNonexistentLocalTime) {
		t.Fatalf("expected ErrNonexistentLocalTime, got %v", err)
	}
}

func TestInterpretFallBackAmbiguousWallClockRoundTrips(t *testing.T) {
	// America/Denver falls back at 2026-11-01 02:00 -> 01:00, so 1:30 AM
	// occurs twice. Whichever UTC instant wins, it must localize back to
	// the same wall-clock reading that was requested.
	now := time.Date(2026, 10, 25, 17, 0, 0, 0, time.UTC)

	res, err := Interpret("2026-11-01 01:30", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loc := mustLoc(t, "America/Denver")
	local := res.Start.In(loc)
	if local.Hour() != 1 || local.Minute() != 30 {
		t.Fatalf("expected localized wall clock 1:30, got %02d:%02d", local.Hour(), local.Minute())
	}
}

func TestInterpretPartialDayOnlyRollsToTomorrowWhenPassed(t *testing.T) {
	// 6 PM local: "morning" (ends at noon) must roll to tomorrow.
	loc := mustLoc(t, "America/Denver")
	now := time.Date(2026, 3, 4, 1, 0, 0, 0, time.UTC) // 2026-03-03 18:00 MST
	res, err := Interpret("morning", "America/Denver", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantStart := time.Date(2026, 3, 4, 6, 0, 0, 0, loc)
	if !res.Start.Equal(wantStart.UTC()) {
		t.Fatalf("expected tomorrow's morning start %v, got %v", wantStart, res.Start.In(loc))
	}
}
