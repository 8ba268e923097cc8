// Package httpapi assembles the chi router for both HTTP surfaces spec.md
// §6 defines: the staff-structured REST surface and the voice
// function-call surface, each under its own request deadline (spec.md
// §5), plus the operational endpoints (health, readiness, metrics).
// The middleware stack and route-grouping convention follow the
// teacher's internal/api/router/router.go (see DESIGN.md).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fogonthedowns/helppetai-sbc/internal/availability"
	"github.com/fogonthedowns/helppetai-sbc/internal/booking"
	"github.com/fogonthedowns/helppetai-sbc/internal/httpapi/handlers"
	sbcmiddleware "github.com/fogonthedowns/helppetai-sbc/internal/httpapi/middleware"
	"github.com/fogonthedowns/helppetai-sbc/internal/intent"
	"github.com/fogonthedowns/helppetai-sbc/internal/observability/metrics"
	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

// Config wires the dependencies router.New needs. All fields except
// Logger are required for a fully functional server; nil Pool/Redis
// only degrade the /ready checks, matching the teacher's
// readinessHandler which skips a dependency check it wasn't given.
type Config struct {
	Logger      *logging.Logger
	Store       *availability.Store
	Gateway     *intent.Gateway
	Coordinator *booking.Coordinator

	Pool  *pgxpool.Pool
	Redis *redis.Client

	Metrics        *metrics.BookingMetrics
	MetricsHandler http.Handler

	CORSAllowedOrigins   []string
	VoiceRequestDeadline time.Duration
	StaffRequestDeadline time.Duration
}

// New builds the complete HTTP handler: chi's standard middleware
// stack, then the public/voice/staff route groups, mirroring the
// teacher's r.Group(...) layering (see DESIGN.md).
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	r.Use(sbcmiddleware.RequestLogger(logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(sbcmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler)
		public.Get("/ready", readinessHandler(cfg))
		if cfg.MetricsHandler != nil {
			public.Get("/metrics", cfg.MetricsHandler.ServeHTTP)
		}
	})

	voiceHandler := handlers.NewVoice(cfg.Gateway, cfg.Metrics, logger)
	r.Group(func(voice chi.Router) {
		voice.Use(sbcmiddleware.Deadline(cfg.VoiceRequestDeadline))
		voice.Post("/voice/function-call", voiceHandler.HandleFunctionCall)
	})

	staffHandler := handlers.NewStaff(cfg.Store, cfg.Coordinator, cfg.Gateway, cfg.Metrics, logger)
	r.Group(func(staff chi.Router) {
		staff.Use(sbcmiddleware.Deadline(cfg.StaffRequestDeadline))
		staff.Get("/scheduling/slots", staffHandler.GetSlots)
		staff.Get("/appointments", staffHandler.ListAppointments)
		staff.Post("/appointments", staffHandler.CreateAppointment)
		staff.Patch("/appointments/{id}", staffHandler.PatchAppointment)
		staff.Delete("/appointments/{id}", staffHandler.CancelAppointment)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// readinessHandler pings the database and, when wired, Redis, modeled
// directly on the teacher's readinessHandler (see DESIGN.md): it
// builds a per-dependency checks map and returns 503 if any dependency
// is unhealthy, 200 otherwise.
func readinessHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true

		if cfg.Pool != nil {
			if err := cfg.Pool.Ping(ctx); err != nil {
				checks["database"] = err.Error()
				ready = false
			} else {
				checks["database"] = "ok"
			}
		}

		if cfg.Redis != nil {
			if err := cfg.Redis.Ping(ctx).Err(); err != nil {
				checks["redis"] = err.Error()
				ready = false
			} else {
				checks["redis"] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ready": ready, "checks": checks})
	}
}
