// Package postgres is the storage backend on PostgreSQL. A unit of work is a
// READ COMMITTED transaction; stock is decremented with a conditional UPDATE
// so two transactions can never jointly push a product below zero.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"coffee-eshop-go/internal/order/tx"
)

type DB struct {
	pool *pgxpool.Pool
}

var _ tx.UnitOfWork = (*DB)(nil)

func Open(ctx context.Context, connString string) (*DB, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, st tx.Stores) error) error {
	return db.inTx(ctx, func(ctx context.Context, q querier) error {
		return fn(ctx, &pgTx{q: q})
	})
}

func (db *DB) inTx(ctx context.Context, fn func(ctx context.Context, q querier) error) error {
	t, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = t.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := t.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// querier is the subset of pgx.Tx and *pgxpool.Pool the stores need.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTx struct {
	q querier
}

func (t *pgTx) Inventory() tx.Inventory { return inventoryStore{t.q} }
func (t *pgTx) Basket() tx.Basket       { return basketStore{t.q} }
func (t *pgTx) Orders() tx.Orders       { return orderStore{t.q} }
func (t *pgTx) Catalog() tx.Catalog     { return catalogStore{t.q} }
func (t *pgTx) Clients() tx.Clients     { return clientStore{t.q} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
