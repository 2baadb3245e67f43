package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txKey carries the active transaction through context.Context.
type txKey struct{}

// Querier is the query surface shared by the pool and a transaction, letting
// repositories run the same code inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// TxRunner runs callbacks inside a transaction that is committed when the
// callback returns nil and rolled back otherwise.
type TxRunner struct {
	Pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{Pool: pool}
}

// WithinTx runs fn inside a transaction. The transaction is reachable inside
// fn through PgxTx(ctx) or GetQuerier.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return pgx.BeginFunc(ctx, r.Pool, func(tx pgx.Tx) error {
		ctx = context.WithValue(ctx, txKey{}, tx)
		return fn(ctx)
	})
}

// WithinTxWithOptions is WithinTx with explicit transaction options.
func (r *TxRunner) WithinTxWithOptions(ctx context.Context, txOptions pgx.TxOptions, fn func(ctx context.Context) error) error {
	return pgx.BeginTxFunc(ctx, r.Pool, txOptions, func(tx pgx.Tx) error {
		ctx = context.WithValue(ctx, txKey{}, tx)
		return fn(ctx)
	})
}

// PgxTx extracts the active transaction from the context, if any.
func PgxTx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// GetQuerier returns the context's transaction when present, the pool otherwise.
func (r *TxRunner) GetQuerier(ctx context.Context) Querier {
	if tx, ok := PgxTx(ctx); ok {
		return tx
	}
	return r.Pool
}
