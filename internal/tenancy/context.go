// Package tenancy carries request-scoped identifiers — the practice a
// call is scoped to, and a correlation id for log correlation — through
// context.Context instead of process-global state.
package tenancy

import "context"

type ctxKey string

const (
	practiceKey    ctxKey = "sbc.practice_id"
	correlationKey ctxKey = "sbc.correlation_id"
)

// WithPracticeID stores the practice id in context.
func WithPracticeID(ctx context.Context, practiceID string) context.Context {
	return context.WithValue(ctx, practiceKey, practiceID)
}

// PracticeIDFromContext extracts the practice id if present.
func PracticeIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(practiceKey)
	if val == nil {
		return "", false
	}
	practiceID, ok := val.(string)
	return practiceID, ok && practiceID != ""
}

// WithCorrelationID stores a correlation id (request id) in context so
// infrastructure-error log lines can be tied back to the originating call.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationKey, correlationID)
}

// CorrelationIDFromContext extracts the correlation id if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(correlationKey)
	if val == nil {
		return "", false
	}
	correlationID, ok := val.(string)
	return correlationID, ok && correlationID != ""
}
