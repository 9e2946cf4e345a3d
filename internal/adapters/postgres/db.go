package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"caseguard/internal/ports"
)

// querier is the subset of pgx satisfied by both the pool and a transaction,
// so every repository method works in either scope.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements ports.Store over a querier.
type Store struct {
	q   querier
	log zerolog.Logger
}

// DB is the pool-backed store plus transaction support.
type DB struct {
	Store
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, url string, log zerolog.Logger) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &DB{Store: Store{q: pool, log: log}, pool: pool}, nil
}

func (db *DB) Close() { db.pool.Close() }

// InTx runs fn against a transaction-scoped store. Any error rolls the whole
// transaction back, including the enforcement re-check and audit write on
// the confirm path.
func (db *DB) InTx(ctx context.Context, fn func(ports.Store) error) (err error) {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()
	err = fn(&Store{q: tx, log: db.log})
	return err
}
