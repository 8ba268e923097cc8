package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
	"github.com/fogonthedowns/helppetai-sbc/internal/booking"
	"github.com/fogonthedowns/helppetai-sbc/internal/bookingerr"
	"github.com/fogonthedowns/helppetai-sbc/internal/intent"
	"github.com/fogonthedowns/helppetai-sbc/internal/observability/metrics"
	"github.com/fogonthedowns/helppetai-sbc/internal/slotengine"
	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

// Staff implements the staff-structured REST surface spec.md §6
// defines: slot search over an explicit UTC window, and full
// appointment CRUD routed through the Booking Coordinator so every
// mutation goes through the same single-transaction protocol the voice
// surface uses.
type Staff struct {
	store       *availability.Store
	coordinator *booking.Coordinator
	gateway     *intent.Gateway
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
}

// NewStaff constructs a Staff handler set. metrics may be nil.
func NewStaff(store *availability.Store, coordinator *booking.Coordinator, gateway *intent.Gateway, bookingMetrics *metrics.BookingMetrics, logger *logging.Logger) *Staff {
	return &Staff{store: store, coordinator: coordinator, gateway: gateway, metrics: bookingMetrics, logger: logger}
}

// fail writes err as the taxonomy JSON body and records it against the
// errors_total metric, labeled by code and reporting class.
func (h *Staff) fail(w http.ResponseWriter, err error) {
	if code, ok := bookingerr.CodeOf(err); ok {
		h.metrics.ObserveError(code)
	}
	writeError(w, err)
}

// GetSlots handles GET /scheduling/slots?practice_id=&vet_id=&from_utc=&to_utc=&slot_minutes=&preference=
func (h *Staff) GetSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	practiceID := q.Get("practice_id")
	if practiceID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "practice_id is required"})
		return
	}

	from, err := time.Parse(time.RFC3339, q.Get("from_utc"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "from_utc must be RFC3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to_utc"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "to_utc must be RFC3339"})
		return
	}

	slotMinutes, err := strconv.Atoi(q.Get("slot_minutes"))
	if err != nil || slotMinutes <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeInvalidDuration, Message: "slot_minutes must be a positive integer"})
		return
	}

	var vetID *string
	if v := q.Get("vet_id"); v != "" {
		vetID = &v
	}

	result, err := h.gateway.FindSlotsStaff(r.Context(), practiceID, vetID, availability.Window{Start: from.UTC(), End: to.UTC()}, slotMinutes, slotengine.Preference(q.Get("preference")))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// createAppointmentRequest is the staff surface's booking request body.
type createAppointmentRequest struct {
	PracticeID        string   `json:"practice_id"`
	VetUserID         *string  `json:"vet_user_id"`
	AppointmentAtUTC  string   `json:"appointment_at_utc"`
	DurationMinutes   int      `json:"duration_minutes"`
	PetOwnerID        string   `json:"pet_owner_id"`
	Pets              []string `json:"pets"`
	Title             string   `json:"title"`
	Notes             string   `json:"notes"`
	CreatedByUserID   string   `json:"created_by_user_id"`
	EmergencyOverride bool     `json:"emergency_override"`
}

// CreateAppointment handles POST /appointments.
func (h *Staff) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "invalid request body"})
		return
	}

	at, err := time.Parse(time.RFC3339, req.AppointmentAtUTC)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "appointment_at_utc must be RFC3339"})
		return
	}

	appt, err := h.coordinator.Create(r.Context(), booking.CreateInput{
		PracticeID:        req.PracticeID,
		VetUserID:         req.VetUserID,
		AppointmentAt:     at.UTC(),
		DurationMinutes:   req.DurationMinutes,
		PetOwnerID:        req.PetOwnerID,
		Pets:              req.Pets,
		Title:             req.Title,
		Notes:             req.Notes,
		CreatedByUserID:   req.CreatedByUserID,
		EmergencyOverride: req.EmergencyOverride,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	h.metrics.ObserveAppointment("create", string(appt.Status))
	writeJSON(w, http.StatusCreated, appt)
}

// patchAppointmentRequest covers both reschedule and status-transition
// patches; callers set only the fields they intend to change.
type patchAppointmentRequest struct {
	NewAppointmentAtUTC *string `json:"appointment_at_utc"`
	NewDurationMinutes  *int    `json:"duration_minutes"`
	NewVetUserID        *string `json:"vet_user_id"`
	NewStatus           *string `json:"status"`
	EmergencyOverride   bool    `json:"emergency_override"`
}

// PatchAppointment handles PATCH /appointments/{id}. A status field
// requests a pure state transition; any of the reschedule fields
// requests Reschedule. When status is present the reschedule fields
// are ignored; a body carrying both is not rejected.
func (h *Staff) PatchAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "id must be a valid uuid"})
		return
	}

	var req patchAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "invalid request body"})
		return
	}

	if req.NewStatus != nil {
		appt, err := h.coordinator.Transition(r.Context(), id, availability.AppointmentStatus(*req.NewStatus))
		if err != nil {
			h.fail(w, err)
			return
		}
		h.metrics.ObserveAppointment("transition", string(appt.Status))
		writeJSON(w, http.StatusOK, appt)
		return
	}

	patch := booking.ReschedulePatch{NewDuration: req.NewDurationMinutes, NewVetID: req.NewVetUserID}
	if req.NewAppointmentAtUTC != nil {
		at, err := time.Parse(time.RFC3339, *req.NewAppointmentAtUTC)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "appointment_at_utc must be RFC3339"})
			return
		}
		utc := at.UTC()
		patch.NewAt = &utc
	}

	appt, err := h.coordinator.Reschedule(r.Context(), id, patch, req.EmergencyOverride)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.metrics.ObserveAppointment("reschedule", string(appt.Status))
	writeJSON(w, http.StatusOK, appt)
}

// CancelAppointment handles DELETE /appointments/{id}?reason=
func (h *Staff) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "id must be a valid uuid"})
		return
	}
	appt, err := h.coordinator.Cancel(r.Context(), id, r.URL.Query().Get("reason"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.metrics.ObserveAppointment("cancel", string(appt.Status))
	writeJSON(w, http.StatusOK, appt)
}

// appointmentsPage is the response envelope for GET /appointments,
// carrying the opaque cursor for the next page alongside the results.
type appointmentsPage struct {
	Appointments []availability.Appointment `json:"appointments"`
	NextCursor   string                     `json:"next_cursor,omitempty"`
}

// ListAppointments handles GET /appointments?practice_id=&vet_id=&from_utc=&to_utc=&status=&limit=&cursor=
func (h *Staff) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	practiceID := q.Get("practice_id")
	if practiceID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "practice_id is required"})
		return
	}
	from, err := time.Parse(time.RFC3339, q.Get("from_utc"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "from_utc must be RFC3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to_utc"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "to_utc must be RFC3339"})
		return
	}

	var vetID *string
	if v := q.Get("vet_id"); v != "" {
		vetID = &v
	}

	statuses := availability.NonTerminalStatuses
	if s := q.Get("status"); s != "" {
		statuses = []availability.AppointmentStatus{availability.AppointmentStatus(s)}
	}

	limit := 50
	if limitStr := q.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	cursor, err := availability.DecodeCursor(q.Get("cursor"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: bookingerr.CodeUnparseable, Message: "cursor is malformed"})
		return
	}

	appts, nextCursor, err := h.store.ListAppointmentsPage(r.Context(), practiceID, vetID, availability.Window{Start: from.UTC(), End: to.UTC()}, statuses, limit, cursor)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentsPage{Appointments: appts, NextCursor: nextCursor})
}
