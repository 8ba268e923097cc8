package timeanchor

import "time"

// DayBounds returns the UTC window covering local calendar day
// (year, month, day) in loc, from local midnight (inclusive) to the
// following local midnight (exclusive). The window width is 23, 24, or
// 25 hours across a DST transition because it is computed from the two
// local midnights directly rather than by adding 24h to the start.
func DayBounds(loc *time.Location, year int, month time.Month, day int) Resolution {
	start := time.Date(year, month, day, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return windowResolution(start, end, loc)
}

// DayBoundsFor is DayBounds for the calendar date of localNow (already
// in loc).
func DayBoundsFor(localNow time.Time) Resolution {
	y, m, d := localNow.Date()
	return DayBounds(localNow.Location(), y, m, d)
}

// timeOfDayWindow names the local clock-hour ranges "morning",
// "afternoon", and "evening" resolve to. Ranges are half-open
// [start, end).
type timeOfDayWindow struct {
	name      string
	startHour int
	endHour   int
}

var partialDayWindows = map[string]timeOfDayWindow{
	"morning":   {name: "morning", startHour: 6, endHour: 12},
	"afternoon": {name: "afternoon", startHour: 12, endHour: 17},
	"evening":   {name: "evening", startHour: 17, endHour: 21},
}

// intersectDayWithPartial narrows a full-day window down to the named
// time-of-day band on that same calendar date.
func intersectDayWithPartial(day Resolution, partial timeOfDayWindow) Resolution {
	localStart, _ := day.Local()
	y, m, d := localStart.Date()
	loc := day.Location
	start := time.Date(y, m, d, partial.startHour, 0, 0, 0, loc)
	end := time.Date(y, m, d, partial.endHour, 0, 0, 0, loc)
	return windowResolution(start, end, loc)
}

// PartialDayWindow returns the UTC window for the named time-of-day
// band ("morning", "afternoon", "evening") on the given local calendar
// date in loc. Exported so other components (the Slot Engine's
// time_preference filter) can apply the exact same local-hour bands
// Interpret uses for "tomorrow morning"-style expressions, instead of
// re-declaring the hour ranges.
func PartialDayWindow(name string, loc *time.Location, year int, month time.Month, day int) (Resolution, bool) {
	pw, ok := partialDayWindows[name]
	if !ok {
		return Resolution{}, false
	}
	return intersectDayWithPartial(DayBounds(loc, year, month, day), pw), true
}
