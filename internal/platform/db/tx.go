package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	txKey    contextKey = "db_tx"
	localKey contextKey = "db_local_tx"
)

// Queryable is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type Queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Transactor runs fn so that every store call made with the context it
// receives commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Conn returns the transaction bound to ctx, or the pool when there is none.
func Conn(ctx context.Context, pool *pgxpool.Pool) Queryable {
	if tx, ok := ctx.Value(txKey).(pgx.Tx); ok && tx != nil {
		return tx
	}
	return pool
}

// PoolTransactor implements Transactor on a pgx pool.
type PoolTransactor struct {
	pool *pgxpool.Pool
}

func NewPoolTransactor(pool *pgxpool.Pool) *PoolTransactor {
	return &PoolTransactor{pool: pool}
}

func (t *PoolTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// localTx collects undo steps registered by in-memory repositories.
type localTx struct {
	undo []func()
}

// LocalTransactor serializes in-memory "transactions" and replays registered
// undo steps in reverse order when fn fails.
type LocalTransactor struct {
	mu sync.Mutex
}

func NewLocalTransactor() *LocalTransactor {
	return &LocalTransactor{}
}

func (t *LocalTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(localKey).(*localTx); ok {
		return fn(ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ltx := &localTx{}
	if err := fn(context.WithValue(ctx, localKey, ltx)); err != nil {
		for i := len(ltx.undo) - 1; i >= 0; i-- {
			ltx.undo[i]()
		}
		return err
	}
	return nil
}

// OnRollback registers undo for the local transaction bound to ctx. Outside a
// transaction it is a no-op.
func OnRollback(ctx context.Context, undo func()) {
	if ltx, ok := ctx.Value(localKey).(*localTx); ok {
		ltx.undo = append(ltx.undo, undo)
	}
}
