package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the minimal query surface shared by *pgxpool.Pool, pgx.Tx and
// the pgxmock pool. Repositories depend on this interface so the same code
// runs inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBTX extends Querier with transaction support. Satisfied by *pgxpool.Pool,
// pgx.Tx (nested transactions become savepoints) and pgxmock.PgxPoolIface.
type DBTX interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}
