package availability

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx's pool/tx surface the store needs. It is
// satisfied by both *pgxpool.Pool and pgx.Tx, so read methods can run
// directly against the pool while write methods run against the
// Booking Coordinator's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB additionally supports opening a transaction, for the Booking
// Coordinator's create/reschedule/cancel/transition protocol. BeginTx
// is required (not just Begin) so the coordinator can request
// Serializable isolation for the default lock strategy (spec.md §4.4/§5).
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}
