package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
	"github.com/fogonthedowns/helppetai-sbc/internal/booking"
	"github.com/fogonthedowns/helppetai-sbc/internal/config"
	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

func newTestStaff(t *testing.T) (pgxmock.PgxPoolIface, *Staff) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	store := availability.New(mock, logging.Default())
	coord := booking.New(store, config.LockStrategySerializable, nil, nil, logging.Default())
	return mock, NewStaff(store, coord, nil, nil, logging.Default())
}

func TestGetSlotsRequiresPracticeID(t *testing.T) {
	_, staff := newTestStaff(t)
	req := httptest.NewRequest(http.MethodGet, "/scheduling/slots", nil)
	rec := httptest.NewRecorder()
	staff.GetSlots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetSlotsRejectsBadWindow(t *testing.T) {
	_, staff := newTestStaff(t)
	req := httptest.NewRequest(http.MethodGet, "/scheduling/slots?practice_id=practice-1&from_utc=nope&to_utc=nope&slot_minutes=30", nil)
	rec := httptest.NewRecorder()
	staff.GetSlots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateAppointmentRejectsMalformedBody(t *testing.T) {
	_, staff := newTestStaff(t)
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	staff.CreateAppointment(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateAppointmentSucceeds(t *testing.T) {
	mock, staff := newTestStaff(t)
	defer mock.Close()

	at := time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC) // Wednesday

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, timezone FROM practices").WithArgs("practice-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "timezone"}).AddRow("practice-1", "UTC"))
	mock.ExpectQuery("SELECT id, practice_id, weekday").
		WillReturnRows(pgxmock.NewRows([]string{"id", "practice_id", "weekday", "open_time_local", "close_time_local", "effective_from", "effective_until", "is_active"}).
			AddRow(uuid.New(), "practice-1", int(time.Wednesday), "09:00", "17:00", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), true))
	mock.ExpectQuery("SELECT id, practice_id, vet_user_id").
		WillReturnRows(pgxmock.NewRows([]string{"id", "practice_id", "vet_user_id", "start_at", "end_at", "availability_type", "is_active"}).
			AddRow(uuid.New(), "practice-1", "vet-1", at.Add(-time.Hour), at.Add(2*time.Hour), "AVAILABLE", true))
	mock.ExpectQuery("SELECT id, practice_id, assigned_vet_user_id").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "practice_id", "assigned_vet_user_id", "appointment_at", "duration_minutes",
			"status", "pet_owner_id", "pets", "title", "notes", "created_by_user_id", "created_at", "updated_at",
		}))
	mock.ExpectExec("INSERT INTO appointments").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	body := `{"practice_id":"practice-1","vet_user_id":"vet-1","appointment_at_utc":"2026-03-04T16:00:00Z","duration_minutes":30,"pet_owner_id":"owner-1","pets":["pet-1"],"title":"Checkup","created_by_user_id":"staff-1"}`
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	staff.CreateAppointment(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCancelAppointmentRejectsInvalidID(t *testing.T) {
	_, staff := newTestStaff(t)
	r := chi.NewRouter()
	r.Delete("/appointments/{id}", staff.CancelAppointment)

	req := httptest.NewRequest(http.MethodDelete, "/appointments/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPatchAppointmentTransitionsStatus(t *testing.T) {
	mock, staff := newTestStaff(t)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, practice_id, assigned_vet_user_id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "practice_id", "assigned_vet_user_id", "appointment_at", "duration_minutes",
			"status", "pet_owner_id", "pets", "title", "notes", "created_by_user_id", "created_at", "updated_at",
		}).AddRow(id, "practice-1", (*string)(nil), time.Now(), 30, "SCHEDULED", "owner-1", []string{"pet-1"}, "Checkup", "", "staff-1", time.Now(), time.Now()))
	mock.ExpectExec("UPDATE appointments").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	r := chi.NewRouter()
	r.Patch("/appointments/{id}", staff.PatchAppointment)

	req := httptest.NewRequest(http.MethodPatch, "/appointments/"+id.String(), bytes.NewBufferString(`{"status":"CONFIRMED"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
