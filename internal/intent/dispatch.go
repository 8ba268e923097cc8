package intent

import "github.com/fogonthedowns/helppetai-sbc/internal/bookingerr"

// IsKnownFunction reports whether name is one of the three voice
// function calls spec.md §6 defines. Any other name is rejected with
// bookingerr.CodeUnknownFunction, the same way the teacher's ToolName
// switch falls through to an error response for a tool it does not
// recognize (see DESIGN.md).
func IsKnownFunction(name string) bool {
	switch FunctionName(name) {
	case FunctionGetAvailableTimes, FunctionBookAppointment, FunctionCancelAppointment:
		return true
	default:
		return false
	}
}

// ErrUnknownFunction is returned by callers that route on FunctionName
// and find a name outside the closed set.
func ErrUnknownFunction(name string) error {
	return bookingerr.New(bookingerr.CodeUnknownFunction, "unrecognized voice function: "+name)
}
