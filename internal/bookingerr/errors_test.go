package bookingerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOfFindsWrappedError(t *testing.T) {
	inner := New(CodeSlotConflict, "vet already booked")
	wrapped := fmt.Errorf("create: %w", inner)

	code, ok := CodeOf(wrapped)
	if !ok || code != CodeSlotConflict {
		t.Fatalf("expected CodeSlotConflict, got %q ok=%v", code, ok)
	}
}

func TestCodeOfMissesPlainError(t *testing.T) {
	_, ok := CodeOf(errors.New("boom"))
	if ok {
		t.Fatalf("expected no code for a plain error")
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("pool closed")
	err := Wrap(CodeStoreUnavailable, cause, "store down")
	if !errors.Is(err, cause) {
		t.Fatalf("expected Unwrap to expose cause")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(CodeSerializationFailure) {
		t.Fatalf("expected serialization failure to be retryable")
	}
	if !IsRetryable(CodeDeadlock) {
		t.Fatalf("expected deadlock to be retryable")
	}
	if IsRetryable(CodeSlotConflict) {
		t.Fatalf("business errors are never retryable")
	}
}

func TestClassOfCoversEveryCode(t *testing.T) {
	all := []Code{
		CodeUnparseable, CodeAmbiguous, CodeUnknownTimezone, CodePastInstant, CodeInvalidDuration, CodeUnknownFunction,
		CodePracticeClosed, CodeVetUnavailable, CodeSlotConflict, CodeInvalidTransition, CodeNoHours, CodeNoVetAvailability,
		CodeSerializationFailure, CodeDeadlock, CodeTryAgain,
		CodeStoreUnavailable, CodeDeadlineExceeded,
	}
	for _, c := range all {
		if ClassOf(c) == ClassUnknown {
			t.Fatalf("code %q has no class mapping", c)
		}
	}
}

func TestWithCandidatesAttachesPayload(t *testing.T) {
	err := New(CodeAmbiguous, "friday is ambiguous").WithCandidates([]string{"friday 9am", "next friday 9am"})
	candidates, ok := err.Candidates.([]string)
	if !ok || len(candidates) != 2 {
		t.Fatalf("expected candidates to round-trip, got %#v", err.Candidates)
	}
}

func TestHumanizeMatchesSpecCallbackWording(t *testing.T) {
	if got := Humanize(CodeNoVetAvailability); got != "our veterinarians may not have scheduled their hours yet — would you like a callback?" {
		t.Fatalf("unexpected NO_VET_AVAILABILITY wording: %q", got)
	}
	for _, c := range []Code{CodeStoreUnavailable, CodeDeadlineExceeded, CodeTryAgain} {
		if got := Humanize(c); got != "our system is temporarily unable to confirm — would you like a callback?" {
			t.Fatalf("unexpected %s wording: %q", c, got)
		}
	}
	if got := Humanize(CodeSlotConflict); got != "" {
		t.Fatalf("expected no canned humanization for business codes, got %q", got)
	}
}

func TestErrorMessageFormatting(t *testing.T) {
	withMessage := New(CodePracticeClosed, "practice is closed at that time")
	if got := withMessage.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}

	bare := &Error{Code: CodeNoHours}
	if got := bare.Error(); got != string(CodeNoHours) {
		t.Fatalf("expected bare code string, got %q", got)
	}
}
