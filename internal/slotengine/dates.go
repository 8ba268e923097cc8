package slotengine

import (
	"time"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
)

// civilDate is a calendar date with no attached time or zone offset
// until anchored via asUTCMidnight or a WallClock.OnDate call.
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func (d civilDate) asUTCMidnight() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// localDatesIn enumerates every local calendar date that intersects
// window when window is projected into loc, inclusive of the date
// containing window.End's instant-minus-a-nanosecond (since window is
// half-open).
func localDatesIn(window availability.Window, loc *time.Location) []civilDate {
	if !window.Start.Before(window.End) {
		return nil
	}
	startLocal := window.Start.In(loc)
	endLocal := window.End.In(loc).Add(-time.Nanosecond)

	y, m, d := startLocal.Date()
	cursor := time.Date(y, m, d, 0, 0, 0, 0, loc)
	endY, endM, endD := endLocal.Date()
	last := time.Date(endY, endM, endD, 0, 0, 0, 0, loc)

	var out []civilDate
	for !cursor.After(last) {
		cy, cm, cd := cursor.Date()
		out = append(out, civilDate{year: cy, month: cm, day: cd})
		cursor = cursor.AddDate(0, 0, 1)
	}
	return out
}
