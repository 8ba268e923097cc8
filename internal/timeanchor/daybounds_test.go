package timeanchor

import (
	"testing"
	"time"
)

func TestDayBoundsOrdinaryDayIs24Hours(t *testing.T) {
	loc := mustLoc(t, "America/Denver")
	res := DayBounds(loc, 2026, time.March, 4)
	if got := res.Duration(); got != 24*time.Hour {
		t.Fatalf("expected 24h window, got %s", got)
	}
}

func TestDayBoundsSpringForwardDayIs23Hours(t *testing.T) {
	loc := mustLoc(t, "America/Denver")
	// America/Denver springs forward on 2026-03-08.
	res := DayBounds(loc, 2026, time.March, 8)
	if got := res.Duration(); got != 23*time.Hour {
		t.Fatalf("expected 23h window on spring-forward day, got %s", got)
	}
}

func TestDayBoundsFallBackDayIs25Hours(t *testing.T) {
	loc := mustLoc(t, "America/Denver")
	// America/Denver falls back on 2026-11-01.
	res := DayBounds(loc, 2026, time.November, 1)
	if got := res.Duration(); got != 25*time.Hour {
		t.Fatalf("expected 25h window on fall-back day, got %s", got)
	}
}
