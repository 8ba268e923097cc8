package timeanchor

import "time"

// Style controls how Localize renders a resolution back into text for
// staff screens or voice responses.
type Style int

const (
	// StyleFull renders a full date and time, e.g. "Fri, Oct 3 at 2:00 PM".
	StyleFull Style = iota
	// StyleTimeOnly renders just the clock time, e.g. "2:00 PM", for
	// responses where the date was already established by context.
	StyleTimeOnly
	// StyleDateOnly renders just the calendar date, e.g. "Fri, Oct 3".
	StyleDateOnly
)

// Localize renders a Resolution's Start instant in the resolution's
// own zone. Window resolutions are rendered from their Start; callers
// that need the End as well should call Localize twice.
func Localize(r Resolution, style Style) string {
	local := r.Start.In(r.Location)
	switch style {
	case StyleTimeOnly:
		return formatClock(local)
	case StyleDateOnly:
		return formatDate(local)
	default:
		return formatDate(local) + " at " + formatClock(local)
	}
}

func formatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

func formatDate(t time.Time) string {
	return t.Format("Mon, Jan 2")
}
