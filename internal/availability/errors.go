package availability

import "errors"

// ErrNoPracticeHours is returned by GetPracticeHours when no hours
// record covers the requested weekday and date at all (as opposed to a
// record that exists but marks the weekday closed).
var ErrNoPracticeHours = errors.New("availability: no practice hours record for date")

// ErrAppointmentNotFound is returned when an appointment id does not
// resolve to a row.
var ErrAppointmentNotFound = errors.New("availability: appointment not found")

// ErrPracticeNotFound is returned when a practice id does not resolve to a
// row.
var ErrPracticeNotFound = errors.New("availability: practice not found")

// ErrVoiceAgentNotFound is returned when an inbound phone number does not
// resolve to a registered voice agent.
var ErrVoiceAgentNotFound = errors.New("availability: voice agent not found")
