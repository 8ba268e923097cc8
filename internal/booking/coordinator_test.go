package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
	"github.com/fogonthedowns/helppetai-sbc/internal/bookingerr"
	"github.com/fogonthedowns/helppetai-sbc/internal/config"
	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

func newTestCoordinator(t *testing.T) (pgxmock.PgxPoolIface, *Coordinator) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	store := availability.New(mock, logging.Default())
	coord := New(store, config.LockStrategySerializable, nil, nil, logging.Default())
	return mock, coord
}

func TestCoordinatorCreateSucceeds(t *testing.T) {
	mock, coord := newTestCoordinator(t)
	defer mock.Close()

	vetID := "vet-1"
	at := time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC) // Wednesday, practice timezone UTC

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, timezone FROM practices").WithArgs("practice-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "timezone"}).AddRow("practice-1", "UTC"))
	mock.ExpectQuery("SELECT id, practice_id, weekday").
		WithArgs("practice-1", int(time.Wednesday), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "practice_id", "weekday", "open_time_local", "close_time_local", "effective_from", "effective_until", "is_active"}).
			AddRow(uuid.New(), "practice-1", int(time.Wednesday), "09:00", "17:00", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), true))
	mock.ExpectQuery("SELECT id, practice_id, vet_user_id").
		WillReturnRows(pgxmock.NewRows([]string{"id", "practice_id", "vet_user_id", "start_at", "end_at", "availability_type", "is_active"}).
			AddRow(uuid.New(), "practice-1", vetID, at.Add(-time.Hour), at.Add(2*time.Hour), "AVAILABLE", true))
	mock.ExpectQuery("SELECT id, practice_id, assigned_vet_user_id").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "practice_id", "assigned_vet_user_id", "appointment_at", "duration_minutes",
			"status", "pet_owner_id", "pets", "title", "notes", "created_by_user_id", "created_at", "updated_at",
		}))
	mock.ExpectExec("INSERT INTO appointments").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	appt, err := coord.Create(context.Background(), CreateInput{
		PracticeID:      "practice-1",
		VetUserID:       &vetID,
		AppointmentAt:   at,
		DurationMinutes: 30,
		PetOwnerID:      "owner-1",
		Pets:            []string{"pet-1"},
		Title:           "Checkup",
		CreatedByUserID: "staff-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != availability.Scheduled {
		t.Fatalf("expected SCHEDULED, got %v", appt.Status)
	}
}

func TestCoordinatorCreateSlotConflict(t *testing.T) {
	mock, coord := newTestCoordinator(t)
	defer mock.Close()

	vetID := "vet-1"
	at := time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, timezone FROM practices").WithArgs("practice-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "timezone"}).AddRow("practice-1", "UTC"))
	mock.ExpectQuery("SELECT id, practice_id, weekday").
		WithArgs("practice-1", int(time.Wednesday), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "practice_id", "weekday", "open_time_local", "close_time_local", "effective_from", "effective_until", "is_active"}).
			AddRow(uuid.New(), "practice-1", int(time.Wednesday), "09:00", "17:00", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), true))
	mock.ExpectQuery("SELECT id, practice_id, vet_user_id").
		WillReturnRows(pgxmock.NewRows([]string{"id", "practice_id", "vet_user_id", "start_at", "end_at", "availability_type", "is_active"}).
			AddRow(uuid.New(), "practice-1", vetID, at.Add(-time.Hour), at.Add(2*time.Hour), "AVAILABLE", true))
	mock.ExpectQuery("SELECT id, practice_id, assigned_vet_user_id").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "practice_id", "assigned_vet_user_id", "appointment_at", "duration_minutes",
			"status", "pet_owner_id", "pets", "title", "notes", "created_by_user_id", "created_at", "updated_at",
		}).AddRow(uuid.New(), "practice-1", vetID, at, 30, "SCHEDULED", "owner-2", []string{"pet-2"}, "Existing", "", "staff-1", time.Now(), time.Now()))
	mock.ExpectRollback()

	_, err := coord.Create(context.Background(), CreateInput{
		PracticeID:      "practice-1",
		VetUserID:       &vetID,
		AppointmentAt:   at,
		DurationMinutes: 30,
		PetOwnerID:      "owner-1",
		Pets:            []string{"pet-1"},
		Title:           "Checkup",
		CreatedByUserID: "staff-1",
	})

	code, ok := bookingerr.CodeOf(err)
	if !ok || code != bookingerr.CodeSlotConflict {
		t.Fatalf("expected CodeSlotConflict, got %v (code=%v)", err, code)
	}
}

func TestCoordinatorCancelIsIdempotent(t *testing.T) {
	mock, coord := newTestCoordinator(t)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, practice_id, assigned_vet_user_id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "practice_id", "assigned_vet_user_id", "appointment_at", "duration_minutes",
			"status", "pet_owner_id", "pets", "title", "notes", "created_by_user_id", "created_at", "updated_at",
		}).AddRow(id, "practice-1", (*string)(nil), time.Now(), 30, "CANCELLED", "owner-1", []string{"pet-1"}, "Checkup", "", "staff-1", time.Now(), time.Now()))
	mock.ExpectCommit()

	appt, err := coord.Cancel(context.Background(), id, "no longer needed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != availability.Cancelled {
		t.Fatalf("expected CANCELLED, got %v", appt.Status)
	}
}

func TestCoordinatorTransitionRejectsFromTerminal(t *testing.T) {
	mock, coord := newTestCoordinator(t)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, practice_id, assigned_vet_user_id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "practice_id", "assigned_vet_user_id", "appointment_at", "duration_minutes",
			"status", "pet_owner_id", "pets", "title", "notes", "created_by_user_id", "created_at", "updated_at",
		}).AddRow(id, "practice-1", (*string)(nil), time.Now(), 30, "COMPLETED", "owner-1", []string{"pet-1"}, "Checkup", "", "staff-1", time.Now(), time.Now()))
	mock.ExpectRollback()

	_, err := coord.Transition(context.Background(), id, availability.Cancelled)
	code, ok := bookingerr.CodeOf(err)
	if !ok || code != bookingerr.CodeInvalidTransition {
		t.Fatalf("expected CodeInvalidTransition, got %v", err)
	}
}

func TestCoordinatorCreateRejectsNonPositiveDuration(t *testing.T) {
	_, coord := newTestCoordinator(t)

	_, err := coord.Create(context.Background(), CreateInput{
		PracticeID:      "practice-1",
		AppointmentAt:   time.Now(),
		DurationMinutes: 0,
	})
	code, ok := bookingerr.CodeOf(err)
	if !ok || code != bookingerr.CodeInvalidDuration {
		t.Fatalf("expected CodeInvalidDuration, got %v", err)
	}
}
