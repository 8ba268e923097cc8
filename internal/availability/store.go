package availability

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

// Store is the pgx-backed Availability Store. Read operations run
// directly against the pool; write operations accept an explicit
// Querier so the Booking Coordinator can run them inside its own
// transaction.
type Store struct {
	db     DB
	logger *logging.Logger
}

// New constructs a Store over db.
func New(db DB, logger *logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Begin opens a read-committed transaction for the Booking
// Coordinator's protocol, used under the advisory lock strategy where
// the predicate lock itself (not the isolation level) serializes
// conflicting creates.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.db.Begin(ctx)
}

// BeginSerializable opens a transaction at Serializable isolation, used
// under the default lock strategy so two concurrent conflict checks for
// the same vet/time cannot both read zero conflicts and commit
// (spec.md §4.4/§5; spec.md §8 Invariant 1 and Scenario B).
func (s *Store) BeginSerializable(ctx context.Context) (pgx.Tx, error) {
	return s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
}

// GetPractice loads the practice's id and IANA timezone. Practice rows are
// owned and edited by an external practice-management system (spec.md §3);
// the SBC only ever reads the timezone, which Time Anchor needs to
// interpret voice expressions and localize responses.
func (s *Store) GetPractice(ctx context.Context, practiceID string) (*Practice, error) {
	const q = `SELECT id, timezone FROM practices WHERE id = $1`
	row := s.db.QueryRow(ctx, q, practiceID)
	var p Practice
	if err := row.Scan(&p.ID, &p.Timezone); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPracticeNotFound
		}
		return nil, fmt.Errorf("availability: get practice: %w", err)
	}
	return &p, nil
}

// GetVoiceAgent resolves the practice a voice call belongs to from the
// phone number the call arrived on (spec.md §6: "each call carries
// practice_id derived from the inbound phone number").
func (s *Store) GetVoiceAgent(ctx context.Context, phoneNumber string) (*VoiceAgent, error) {
	const q = `SELECT id, practice_id, phone_number, default_timezone FROM voice_agents WHERE phone_number = $1`
	row := s.db.QueryRow(ctx, q, phoneNumber)
	var v VoiceAgent
	if err := row.Scan(&v.ID, &v.PracticeID, &v.PhoneNumber, &v.DefaultTimezone); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrVoiceAgentNotFound
		}
		return nil, fmt.Errorf("availability: get voice agent: %w", err)
	}
	return &v, nil
}

// GetPracticeHours resolves the single active record for the weekday
// of localDate (already a local calendar date) whose effective range
// covers it. Returns ErrNoPracticeHours if no record applies at all;
// a returned record with IsClosed() true means the weekday is covered
// but the practice is closed.
func (s *Store) GetPracticeHours(ctx context.Context, practiceID string, localDate time.Time) (*PracticeHours, error) {
	const q = `
		SELECT id, practice_id, weekday, open_time_local, close_time_local,
		       effective_from, effective_until, is_active
		FROM practice_hours
		WHERE practice_id = $1
		  AND weekday = $2
		  AND is_active = true
		  AND effective_from <= $3
		  AND effective_until >= $3
		ORDER BY effective_from DESC
		LIMIT 1`

	row := s.db.QueryRow(ctx, q, practiceID, int(localDate.Weekday()), localDate)

	var (
		id                           uuid.UUID
		pid                          string
		weekday                      int
		openTime, closeTime          pgtype.Text
		effectiveFrom, effectiveUntil time.Time
		isActive                     bool
	)
	if err := row.Scan(&id, &pid, &weekday, &openTime, &closeTime, &effectiveFrom, &effectiveUntil, &isActive); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoPracticeHours
		}
		return nil, fmt.Errorf("availability: get practice hours: %w", err)
	}

	hours := &PracticeHours{
		ID:             id,
		PracticeID:     pid,
		Weekday:        time.Weekday(weekday),
		EffectiveFrom:  effectiveFrom,
		EffectiveUntil: effectiveUntil,
		IsActive:       isActive,
	}
	if openTime.Valid && closeTime.Valid {
		open, err := ParseWallClock(openTime.String)
		if err != nil {
			return nil, fmt.Errorf("availability: parse open_time_local: %w", err)
		}
		close, err := ParseWallClock(closeTime.String)
		if err != nil {
			return nil, fmt.Errorf("availability: parse close_time_local: %w", err)
		}
		hours.OpenTimeLocal = &open
		hours.CloseTimeLocal = &close
	}
	return hours, nil
}

// ListVetAvailability returns active windows overlapping window for
// the given practice, optionally restricted to one vet.
func (s *Store) ListVetAvailability(ctx context.Context, practiceID string, vetID *string, window Window) ([]VetAvailability, error) {
	const q = `
		SELECT id, practice_id, vet_user_id, start_at, end_at, availability_type, is_active
		FROM vet_availability
		WHERE practice_id = $1
		  AND is_active = true
		  AND start_at < $2
		  AND end_at > $3
		  AND ($4::text IS NULL OR vet_user_id = $4)
		ORDER BY vet_user_id, start_at`

	rows, err := s.db.Query(ctx, q, practiceID, window.End, window.Start, vetID)
	if err != nil {
		return nil, fmt.Errorf("availability: list vet availability: %w", err)
	}
	defer rows.Close()

	var out []VetAvailability
	for rows.Next() {
		var v VetAvailability
		var availType string
		if err := rows.Scan(&v.ID, &v.PracticeID, &v.VetUserID, &v.StartAt, &v.EndAt, &availType, &v.IsActive); err != nil {
			return nil, fmt.Errorf("availability: scan vet availability: %w", err)
		}
		v.AvailabilityType = AvailabilityType(availType)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability: iterate vet availability: %w", err)
	}
	return out, nil
}

// ListAppointments returns appointments intersecting window, filtered
// to includeStatuses. A nil vetID returns appointments across all vets
// in the practice.
func (s *Store) ListAppointments(ctx context.Context, practiceID string, vetID *string, window Window, includeStatuses []AppointmentStatus) ([]Appointment, error) {
	return s.listAppointments(ctx, s.db, practiceID, vetID, window, includeStatuses, nil, false)
}

// ListAppointmentsForUpdate is ListAppointments run against an explicit
// Querier (typically an open transaction) with a row-level lock on the
// matched rows, used by the Booking Coordinator's conflict check so a
// concurrent create/reschedule against an overlapping interval blocks
// until this transaction commits or rolls back (spec.md §4.4/§5).
// excludeID, when set, omits that appointment from the result (used by
// reschedule).
func (s *Store) ListAppointmentsForUpdate(ctx context.Context, q Querier, practiceID string, vetID *string, window Window, includeStatuses []AppointmentStatus, excludeID *uuid.UUID) ([]Appointment, error) {
	return s.listAppointments(ctx, q, practiceID, vetID, window, includeStatuses, excludeID, true)
}

func (s *Store) listAppointments(ctx context.Context, q Querier, practiceID string, vetID *string, window Window, includeStatuses []AppointmentStatus, excludeID *uuid.UUID, forUpdate bool) ([]Appointment, error) {
	statuses := make([]string, 0, len(includeStatuses))
	for _, st := range includeStatuses {
		statuses = append(statuses, string(st))
	}

	query := `
		SELECT id, practice_id, assigned_vet_user_id, appointment_at, duration_minutes,
		       status, pet_owner_id, pets, title, notes, created_by_user_id, created_at, updated_at
		FROM appointments
		WHERE practice_id = $1
		  AND appointment_at < $2
		  AND appointment_at + (duration_minutes || ' minutes')::interval > $3
		  AND ($4::text IS NULL OR assigned_vet_user_id = $4)
		  AND ($5::text[] IS NULL OR status = ANY($5))
		  AND ($6::uuid IS NULL OR id != $6)
		ORDER BY appointment_at`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var excludeArg any
	if excludeID != nil {
		excludeArg = *excludeID
	}
	var statusArg any
	if len(statuses) > 0 {
		statusArg = statuses
	}

	rows, err := q.Query(ctx, query, practiceID, window.End, window.Start, vetID, statusArg, excludeArg)
	if err != nil {
		return nil, fmt.Errorf("availability: list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability: iterate appointments: %w", err)
	}
	return out, nil
}

// AppointmentCursor identifies a position in the appointment_at, id
// keyset ordering ListAppointmentsPage paginates over. The zero value
// starts from the beginning of the window.
type AppointmentCursor struct {
	AppointmentAt time.Time
	ID            uuid.UUID
}

// EncodeCursor renders c as the opaque token clients pass back as the
// next page's cursor query parameter.
func (c AppointmentCursor) EncodeCursor() string {
	raw := c.AppointmentAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token
// decodes to the zero AppointmentCursor.
func DecodeCursor(token string) (AppointmentCursor, error) {
	if token == "" {
		return AppointmentCursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return AppointmentCursor{}, fmt.Errorf("availability: decode cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return AppointmentCursor{}, fmt.Errorf("availability: decode cursor: malformed token")
	}
	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return AppointmentCursor{}, fmt.Errorf("availability: decode cursor: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return AppointmentCursor{}, fmt.Errorf("availability: decode cursor: %w", err)
	}
	return AppointmentCursor{AppointmentAt: at, ID: id}, nil
}

// ListAppointmentsPage is ListAppointments with keyset pagination over
// (appointment_at, id), for staff-facing listings over windows wide
// enough to return more rows than a client wants in one response. It
// fetches one row past limit to determine nextCursor without a second
// round trip.
func (s *Store) ListAppointmentsPage(ctx context.Context, practiceID string, vetID *string, window Window, includeStatuses []AppointmentStatus, limit int, after AppointmentCursor) ([]Appointment, string, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	statuses := make([]string, 0, len(includeStatuses))
	for _, st := range includeStatuses {
		statuses = append(statuses, string(st))
	}
	var statusArg any
	if len(statuses) > 0 {
		statusArg = statuses
	}

	const query = `
		SELECT id, practice_id, assigned_vet_user_id, appointment_at, duration_minutes,
		       status, pet_owner_id, pets, title, notes, created_by_user_id, created_at, updated_at
		FROM appointments
		WHERE practice_id = $1
		  AND appointment_at < $2
		  AND appointment_at + (duration_minutes || ' minutes')::interval > $3
		  AND ($4::text IS NULL OR assigned_vet_user_id = $4)
		  AND ($5::text[] IS NULL OR status = ANY($5))
		  AND (appointment_at, id) > ($6, $7)
		ORDER BY appointment_at, id
		LIMIT $8`

	rows, err := s.db.Query(ctx, query, practiceID, window.End, window.Start, vetID, statusArg,
		after.AppointmentAt, after.ID, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("availability: list appointments page: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("availability: iterate appointments page: %w", err)
	}

	var nextCursor string
	if len(out) > limit {
		last := out[limit-1]
		nextCursor = AppointmentCursor{AppointmentAt: last.AppointmentAt, ID: last.ID}.EncodeCursor()
		out = out[:limit]
	}
	return out, nextCursor, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows, letting
// scanAppointment serve QueryRow and Query call sites alike.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (Appointment, error) {
	var (
		a                  Appointment
		assignedVet        pgtype.Text
		status             string
		pets               []string
	)
	if err := row.Scan(
		&a.ID, &a.PracticeID, &assignedVet, &a.AppointmentAt, &a.DurationMinutes,
		&status, &a.PetOwnerID, &pets, &a.Title, &a.Notes, &a.CreatedByUserID,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return Appointment{}, fmt.Errorf("availability: scan appointment: %w", err)
	}
	a.Status = AppointmentStatus(status)
	a.Pets = pets
	if assignedVet.Valid {
		v := assignedVet.String
		a.AssignedVetUserID = &v
	}
	return a, nil
}

// GetAppointmentForUpdate loads an appointment with a row lock, for
// use inside the Booking Coordinator's reschedule/cancel/transition
// protocol.
func (s *Store) GetAppointmentForUpdate(ctx context.Context, q Querier, id uuid.UUID) (*Appointment, error) {
	const query = `
		SELECT id, practice_id, assigned_vet_user_id, appointment_at, duration_minutes,
		       status, pet_owner_id, pets, title, notes, created_by_user_id, created_at, updated_at
		FROM appointments
		WHERE id = $1
		FOR UPDATE`

	row := q.QueryRow(ctx, query, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("availability: get appointment for update: %w", err)
	}
	return &a, nil
}

// InsertAppointment inserts a new appointment row within q (normally an
// open transaction) and stamps CreatedAt/UpdatedAt/ID if unset.
func (s *Store) InsertAppointment(ctx context.Context, q Querier, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	const query = `
		INSERT INTO appointments (
			id, practice_id, assigned_vet_user_id, appointment_at, duration_minutes,
			status, pet_owner_id, pets, title, notes, created_by_user_id, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err := q.Exec(ctx, query,
		a.ID, a.PracticeID, a.AssignedVetUserID, a.AppointmentAt, a.DurationMinutes,
		string(a.Status), a.PetOwnerID, a.Pets, a.Title, a.Notes, a.CreatedByUserID,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("availability: insert appointment: %w", err)
	}
	return nil
}

// AppointmentPatch describes a partial update to an appointment. Nil
// fields are left unchanged.
type AppointmentPatch struct {
	AppointmentAt   *time.Time
	DurationMinutes *int
	AssignedVetUserID *string
	Notes           *string
}

// UpdateAppointment applies patch to the appointment within q.
func (s *Store) UpdateAppointment(ctx context.Context, q Querier, id uuid.UUID, patch AppointmentPatch) error {
	const query = `
		UPDATE appointments
		SET appointment_at = COALESCE($2, appointment_at),
		    duration_minutes = COALESCE($3, duration_minutes),
		    assigned_vet_user_id = COALESCE($4, assigned_vet_user_id),
		    notes = COALESCE($5, notes),
		    updated_at = $6
		WHERE id = $1`

	_, err := q.Exec(ctx, query, id, patch.AppointmentAt, patch.DurationMinutes, patch.AssignedVetUserID, patch.Notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("availability: update appointment: %w", err)
	}
	return nil
}

// TransitionStatus moves an appointment to newStatus within q.
func (s *Store) TransitionStatus(ctx context.Context, q Querier, id uuid.UUID, newStatus AppointmentStatus) error {
	const query = `UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1`
	_, err := q.Exec(ctx, query, id, string(newStatus), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("availability: transition status: %w", err)
	}
	return nil
}
