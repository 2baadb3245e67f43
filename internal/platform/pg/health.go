package pg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"buildingops/pkg/retry"
)

// WaitForDB blocks until the database at dsn answers a ping, retrying with
// exponential backoff. Used at startup so the service survives the database
// coming up after it.
func WaitForDB(ctx context.Context, dsn string, timeout time.Duration, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg := retry.Config{
		MaxAttempts:  12,
		InitialDelay: time.Second,
		MaxDelay:     15 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		OnRetry: func(attempt int, err error, nextDelay time.Duration) {
			if log != nil {
				log.Warn("database not ready", "attempt", attempt, "next_try_in", nextDelay, "err", err)
			}
		},
	}
	return retry.Do(ctx, cfg, func(ctx context.Context) error {
		return ping(ctx, dsn, 5*time.Second)
	})
}

// HealthCheckPool verifies an existing pool end to end: a ping plus one
// trivial query.
func HealthCheckPool(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("pool is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pool ping failed: %w", err)
	}

	var result int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("simple query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected query result: got %d, want 1", result)
	}
	return nil
}

func ping(ctx context.Context, dsn string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
