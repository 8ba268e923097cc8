package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline wraps every request in a context.WithTimeout bound to d. The
// voice function-call surface and the staff HTTP surface carry different
// deadlines (spec.md §5: 8s voice hard limit, 30s staff), so the router
// applies this per route group rather than once globally.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
