package timeanchor

import "time"

// Kind distinguishes a resolution that names one exact instant from
// one that names a span of time a caller meant loosely ("Friday
// afternoon" covers several bookable instants).
type Kind int

const (
	// Point means Start and End are equal; the expression named an
	// exact instant.
	Point Kind = iota
	// Window means the expression named a span; End is exclusive.
	Window
)

func (k Kind) String() string {
	if k == Point {
		return "point"
	}
	return "window"
}

// Resolution is what Interpret returns: a UTC instant or span, plus
// the practice-local zone it was resolved against so callers can
// render it back to a human without reloading the location.
type Resolution struct {
	Kind Kind

	// Start and End are always UTC. For a Point, Start == End.
	Start time.Time
	End   time.Time

	// Location is the IANA zone the expression was anchored against.
	Location *time.Location
}

// Duration reports the span covered by the resolution (zero for a
// Point).
func (r Resolution) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Local returns Start and End converted into the resolution's zone,
// useful for logging and for building the window bounds other
// components need in local terms.
func (r Resolution) Local() (start, end time.Time) {
	return r.Start.In(r.Location), r.End.In(r.Location)
}

func pointResolution(t time.Time, loc *time.Location) Resolution {
	utc := t.UTC()
	return Resolution{Kind: Point, Start: utc, End: utc, Location: loc}
}

func windowResolution(start, end time.Time, loc *time.Location) Resolution {
	return Resolution{Kind: Window, Start: start.UTC(), End: end.UTC(), Location: loc}
}
