package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the query surface the repositories run on. *pgxpool.Pool,
// pgx.Tx and pgxmock pools all satisfy it, so the same repository code is
// used inside and outside transactions.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a Database that can open transactions (pools, not txs).
type TxBeginner interface {
	Database
	Begin(ctx context.Context) (pgx.Tx, error)
}
