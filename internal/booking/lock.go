package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fogonthedowns/helppetai-sbc/internal/bookingerr"
	"github.com/fogonthedowns/helppetai-sbc/internal/config"
)

// sqlStateSerializationFailure and sqlStateDeadlockDetected are the
// Postgres error codes spec.md §4.4/§5 say must be retried rather than
// surfaced directly.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// maxRetries and retryBackoffs implement spec.md §5's "deadlocks are
// retried up to three times with 10/40/160ms jittered backoff" rule.
const maxRetries = 3

var retryBackoffs = []time.Duration{10 * time.Millisecond, 40 * time.Millisecond, 160 * time.Millisecond}

// acquirePredicateLock takes the explicit predicate lock spec.md §4.4/§5
// describes as the alternative to serializable isolation: an advisory
// lock keyed on (vet_id, floor(appointment_at/hour)). The lock is
// transaction-scoped (pg_advisory_xact_lock) so it releases automatically
// on commit or rollback. A nil vetID (unassigned appointment) locks on the
// practice id and hour bucket instead, since there is no per-vet key to
// serialize on.
func acquirePredicateLock(ctx context.Context, tx pgx.Tx, practiceID string, vetID *string, at time.Time) error {
	key := lockKey(practiceID, vetID, at)
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key)
	if err != nil {
		return fmt.Errorf("booking: acquire predicate lock: %w", err)
	}
	return nil
}

func lockKey(practiceID string, vetID *string, at time.Time) string {
	bucket := at.UTC().Unix() / 3600
	subject := practiceID
	if vetID != nil {
		subject = *vetID
	}
	return fmt.Sprintf("sbc:booking:%s:%d", subject, bucket)
}

// withRetry runs fn under the configured lock strategy, retrying up to
// maxRetries times on a serialization failure or deadlock with jittered
// backoff, and surfacing bookingerr.CodeTryAgain if retries are exhausted
// (spec.md §7: "if retries exhausted, surfaced as TRY_AGAIN").
func withRetry(ctx context.Context, strategy config.LockStrategy, fn func(tx pgx.Tx) error, begin func(context.Context) (pgx.Tx, error)) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBackoffs[attempt-1]
			jittered := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			select {
			case <-time.After(jittered):
			case <-ctx.Done():
				return bookingerr.Wrap(bookingerr.CodeDeadlineExceeded, ctx.Err(), "deadline exceeded during retry backoff")
			}
		}

		tx, err := begin(ctx)
		if err != nil {
			return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, err, "could not open transaction")
		}

		runErr := func() (err error) {
			defer func() {
				if err != nil {
					_ = tx.Rollback(ctx)
				}
			}()
			return fn(tx)
		}()

		if runErr == nil {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				if isRetryableTransactionError(commitErr) {
					lastErr = commitErr
					continue
				}
				return bookingerr.Wrap(bookingerr.CodeStoreUnavailable, commitErr, "commit failed")
			}
			return nil
		}

		if isRetryableTransactionError(runErr) {
			lastErr = runErr
			continue
		}
		return runErr
	}

	code := bookingerr.CodeTryAgain
	return bookingerr.Wrap(code, lastErr, "transaction conflict retries exhausted")
}

// isRetryableTransactionError reports whether err is a Postgres
// serialization failure or deadlock, both of which spec.md §5 requires
// the coordinator to retry locally rather than surface immediately.
func isRetryableTransactionError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	var be *bookingerr.Error
	if errors.As(err, &be) {
		return be.Code == bookingerr.CodeSerializationFailure || be.Code == bookingerr.CodeDeadlock
	}
	return false
}
