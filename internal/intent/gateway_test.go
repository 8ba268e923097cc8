package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
	"github.com/fogonthedowns/helppetai-sbc/internal/bookingerr"
	"github.com/fogonthedowns/helppetai-sbc/internal/slotengine"
	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

func TestIsKnownFunction(t *testing.T) {
	if !IsKnownFunction("get_available_times") {
		t.Fatalf("expected get_available_times to be known")
	}
	if IsKnownFunction("transfer_call") {
		t.Fatalf("expected transfer_call to be unknown")
	}
}

func TestFindSlotsVoiceRejectsUnknownTimezone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := availability.New(mock, logging.Default())
	engine := slotengine.New(store)
	gw := New(store, engine, nil)

	mock.ExpectQuery("SELECT id, timezone FROM practices").WithArgs("practice-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "timezone"}).AddRow("practice-1", "Not/AZone"))

	_, err = gw.FindSlotsVoice(context.Background(), "practice-1", "tomorrow morning", 30, slotengine.PreferenceNone, nil)
	code, ok := bookingerr.CodeOf(err)
	if !ok || code != bookingerr.CodeUnknownTimezone {
		t.Fatalf("expected CodeUnknownTimezone, got %v", err)
	}
}

func TestFindSlotsVoiceUnparseableExpression(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := availability.New(mock, logging.Default())
	engine := slotengine.New(store)
	gw := New(store, engine, nil)

	mock.ExpectQuery("SELECT id, timezone FROM practices").WithArgs("practice-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "timezone"}).AddRow("practice-1", "America/Los_Angeles"))

	_, err = gw.FindSlotsVoice(context.Background(), "practice-1", "asdfasdf not a time", 30, slotengine.PreferenceNone, nil)
	code, ok := bookingerr.CodeOf(err)
	if !ok || code != bookingerr.CodeUnparseable {
		t.Fatalf("expected CodeUnparseable, got %v", err)
	}
}

func TestBookVoiceRejectsPastInstant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := availability.New(mock, logging.Default())
	engine := slotengine.New(store)
	gw := New(store, engine, nil)

	mock.ExpectQuery("SELECT id, timezone FROM practices").WithArgs("practice-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "timezone"}).AddRow("practice-1", "UTC"))

	past := time.Now().UTC().AddDate(0, 0, -10)
	dateExpr := past.Format("2006-01-02")

	_, err = gw.BookVoice(context.Background(), BookAppointmentArgs{
		DateExpression:  dateExpr,
		TimeExpression:  "09:00",
		DurationMinutes: 30,
		PracticeID:      "practice-1",
		OwnerID:         "owner-1",
		PetIDs:          []string{"pet-1"},
		Title:           "Checkup",
		CreatedByUserID: "staff-1",
	}, nil, false, false)

	code, ok := bookingerr.CodeOf(err)
	if !ok || code != bookingerr.CodePastInstant {
		t.Fatalf("expected CodePastInstant, got %v", err)
	}
}

func TestBookVoiceAmbiguousDaySuggestsSlotCandidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := availability.New(mock, logging.Default())
	engine := slotengine.New(store)
	gw := New(store, engine, nil)

	mock.ExpectQuery("SELECT id, timezone FROM practices").WithArgs("practice-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "timezone"}).AddRow("practice-1", "UTC"))

	mock.ExpectQuery("SELECT id, practice_id, weekday").
		WillReturnRows(pgxmock.NewRows([]string{"id", "practice_id", "weekday", "open_time_local", "close_time_local", "effective_from", "effective_until", "is_active"}).
			AddRow(uuid.New(), "practice-1", 0, "00:00", "23:30", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC), true))

	mock.ExpectQuery("SELECT id, practice_id, vet_user_id").
		WillReturnRows(pgxmock.NewRows([]string{"id", "practice_id", "vet_user_id", "start_at", "end_at", "availability_type", "is_active"}).
			AddRow(uuid.New(), "practice-1", "vet-1", time.Now().UTC().AddDate(0, 0, -1), time.Now().UTC().AddDate(0, 0, 3), "AVAILABLE", true))

	mock.ExpectQuery("SELECT id, practice_id, assigned_vet_user_id").
		WillReturnRows(pgxmock.NewRows([]string{"id", "practice_id", "assigned_vet_user_id", "appointment_at", "duration_minutes", "status", "pet_owner_id", "pets", "title", "notes", "created_by_user_id", "created_at", "updated_at"}))

	_, err = gw.BookVoice(context.Background(), BookAppointmentArgs{
		DateExpression:  "tomorrow",
		TimeExpression:  "",
		DurationMinutes: 30,
		PracticeID:      "practice-1",
		OwnerID:         "owner-1",
		PetIDs:          []string{"pet-1"},
		Title:           "Checkup",
		CreatedByUserID: "staff-1",
	}, nil, false, true)

	code, ok := bookingerr.CodeOf(err)
	if !ok || code != bookingerr.CodeAmbiguous {
		t.Fatalf("expected CodeAmbiguous, got %v", err)
	}

	var be *bookingerr.Error
	if !errors.As(err, &be) {
		t.Fatalf("expected *bookingerr.Error, got %T", err)
	}
	slots, ok := be.Candidates.([]LocalisedSlot)
	if !ok || len(slots) == 0 {
		t.Fatalf("expected sampled slot candidates, got %#v", be.Candidates)
	}
	if slots[0].VetUserID != "vet-1" {
		t.Fatalf("unexpected candidate: %+v", slots[0])
	}
}
