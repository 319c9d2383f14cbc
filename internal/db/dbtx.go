// Package db defines the minimal executor interface shared by every
// hand-rolled SQL store in this module. There is no sqlc-generated layer
// here (see DESIGN.md); stores write raw SQL directly against DBTX, which is
// satisfied by both *pgxpool.Pool and pgx.Tx so the same store code works
// inside and outside a transaction.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx, and pgx.Conn.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
