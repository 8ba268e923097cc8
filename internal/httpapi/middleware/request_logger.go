package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fogonthedowns/helppetai-sbc/internal/tenancy"
	"github.com/fogonthedowns/helppetai-sbc/pkg/logging"
)

// RequestLogger emits structured logs for every HTTP request and stamps a
// correlation id (minted when the caller didn't send one) into the request
// context, so an infrastructure-error log line anywhere downstream can be
// tied back to the originating call per spec.md §7's propagation policy.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-Id")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			ctx := tenancy.WithCorrelationID(r.Context(), reqID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-Id", reqID)

			logger.Info("request started",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
				"remote_ip", r.RemoteAddr,
			)
			next.ServeHTTP(w, r)
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
