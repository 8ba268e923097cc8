package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
	"github.com/fogonthedowns/helppetai-sbc/internal/bookingerr"
	"github.com/fogonthedowns/helppetai-sbc/internal/intent"
	"github.com/fogonthedowns/helppetai-sbc/internal/observability/metrics"
	"github.com/fogonthedowns/helppetai-sbc/internal/slotengine"
	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

// Voice implements the single voice function-call endpoint spec.md §6
// defines: the voice agent's tool-call runtime posts a function name
// plus its arguments, and gets back a result shaped for the agent to
// speak. One endpoint dispatching on a function-name field follows the
// teacher's voice_ai_handler.go ToolName switch (see DESIGN.md), rather
// than one URL route per function.
type Voice struct {
	gateway *intent.Gateway
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewVoice constructs a Voice handler. bookingMetrics may be nil.
func NewVoice(gateway *intent.Gateway, bookingMetrics *metrics.BookingMetrics, logger *logging.Logger) *Voice {
	return &Voice{gateway: gateway, metrics: bookingMetrics, logger: logger}
}

// functionCallRequest is the voice agent's tool-call envelope.
// Args is deferred as raw JSON because its shape depends on Name.
type functionCallRequest struct {
	ToolCallID string          `json:"tool_call_id"`
	Name       string          `json:"name"`
	Args       json.RawMessage `json:"args"`
}

// functionCallResponse is always returned with HTTP 200: the voice
// agent's runtime expects a spoken-friendly result or error message in
// the body, not an HTTP error status, so it can relay either straight
// to the caller without branching on transport status codes.
type functionCallResponse struct {
	ToolCallID string `json:"tool_call_id"`
	Success    bool   `json:"success"`
	Result     any    `json:"result,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
}

// HandleFunctionCall handles POST /voice/function-call.
func (h *Voice) HandleFunctionCall(w http.ResponseWriter, r *http.Request) {
	var req functionCallRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusOK, functionCallResponse{Success: false, Message: "could not understand the request", Code: string(bookingerr.CodeUnparseable)})
		return
	}

	if !intent.IsKnownFunction(req.Name) {
		writeJSON(w, http.StatusOK, h.failure(req.ToolCallID, intent.ErrUnknownFunction(req.Name)))
		return
	}

	switch intent.FunctionName(req.Name) {
	case intent.FunctionGetAvailableTimes:
		h.getAvailableTimes(w, r, req)
	case intent.FunctionBookAppointment:
		h.bookAppointment(w, r, req)
	case intent.FunctionCancelAppointment:
		h.cancelAppointment(w, r, req)
	}
}

func (h *Voice) getAvailableTimes(w http.ResponseWriter, r *http.Request, req functionCallRequest) {
	var args intent.GetAvailableTimesArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		writeJSON(w, http.StatusOK, h.failure(req.ToolCallID, bookingerr.Wrap(bookingerr.CodeUnparseable, err, "could not read get_available_times arguments")))
		return
	}

	slotMinutes := args.DurationMinutes
	if slotMinutes <= 0 {
		slotMinutes = 30
	}

	result, err := h.gateway.FindSlotsVoice(r.Context(), args.PracticeID, args.DateExpression+" "+args.TimePreference, slotMinutes, slotengine.Preference(args.TimePreference), args.VetID)
	if err != nil {
		writeJSON(w, http.StatusOK, h.failure(req.ToolCallID, err))
		return
	}

	message := result.Message
	if message == "" {
		message = "Found available times."
	}
	writeJSON(w, http.StatusOK, functionCallResponse{ToolCallID: req.ToolCallID, Success: true, Result: result.Slots, Message: message})
}

func (h *Voice) bookAppointment(w http.ResponseWriter, r *http.Request, req functionCallRequest) {
	var args intent.BookAppointmentArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		writeJSON(w, http.StatusOK, h.failure(req.ToolCallID, bookingerr.Wrap(bookingerr.CodeUnparseable, err, "could not read book_appointment arguments")))
		return
	}

	result, err := h.gateway.BookVoice(r.Context(), args, nil, false, false)
	if err != nil {
		writeJSON(w, http.StatusOK, h.failure(req.ToolCallID, err))
		return
	}
	h.metrics.ObserveAppointment("create", string(availability.Scheduled))
	writeJSON(w, http.StatusOK, functionCallResponse{ToolCallID: req.ToolCallID, Success: true, Result: result, Message: result.ConfirmationText})
}

func (h *Voice) cancelAppointment(w http.ResponseWriter, r *http.Request, req functionCallRequest) {
	var args intent.CancelAppointmentArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		writeJSON(w, http.StatusOK, h.failure(req.ToolCallID, bookingerr.Wrap(bookingerr.CodeUnparseable, err, "could not read cancel_appointment arguments")))
		return
	}

	appt, err := h.gateway.CancelVoice(r.Context(), args)
	if err != nil {
		writeJSON(w, http.StatusOK, h.failure(req.ToolCallID, err))
		return
	}
	h.metrics.ObserveAppointment("cancel", string(appt.Status))
	writeJSON(w, http.StatusOK, functionCallResponse{ToolCallID: req.ToolCallID, Success: true, Result: appt, Message: "Your appointment has been cancelled."})
}

func (h *Voice) failure(toolCallID string, err error) functionCallResponse {
	code, ok := bookingerr.CodeOf(err)
	message := err.Error()
	if be, isErr := err.(*bookingerr.Error); isErr {
		message = be.Message
	}
	if !ok {
		code = bookingerr.CodeStoreUnavailable
	}
	if bookingerr.ClassOf(code) == bookingerr.ClassInfrastructure {
		if humanized := bookingerr.Humanize(code); humanized != "" {
			message = humanized
		}
	}
	h.metrics.ObserveError(code)
	return functionCallResponse{ToolCallID: toolCallID, Success: false, Message: message, Code: string(code)}
}
