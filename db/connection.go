package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"people/config"
)

//go:embed schema.sql
var schema string

// PgxIface is the part of *pgxpool.Pool the repository needs; pgxmock
// implements it in tests.
type PgxIface interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	Ping(context.Context) error
	Close()
}

// Connect opens the pool and waits for the database to answer a ping,
// retrying with exponential backoff until cfg.StartupTimeout elapses.
func Connect(ctx context.Context, cfg config.DBConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("db.Connect: parse config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	poolConfig.MinConns = cfg.MaxConnections
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdle

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("db.Connect: %w", err)
	}

	if err := waitFor(ctx, "postgres", cfg.StartupTimeout, log, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db.Connect: %w", err)
	}

	log.Info().Int32("max_connections", cfg.MaxConnections).Msg("database connected")

	return pool, nil
}

// Migrate creates the people table and its indexes when missing.
func Migrate(ctx context.Context, conn PgxIface) error {
	if _, err := conn.Exec(ctx, schema); err != nil {
		return &StorageError{Op: "migrate", Err: err}
	}

	return nil
}

func waitFor(ctx context.Context, name string, timeout time.Duration, log zerolog.Logger, ping func(context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = timeout

	return backoff.RetryNotify(
		func() error { return ping(ctx) },
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			log.Warn().Err(err).Str("backend", name).Dur("retry_in", next).Msg("backend not ready")
		},
	)
}
