package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// TxQuerier is implemented by both pgxpool.Pool and pgx.Tx.
// Repository methods that need transaction support should accept TxQuerier.
type TxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PoolOptions sizes the pool and bounds connection attempts.
// Zero values keep the pgxpool defaults.
type PoolOptions struct {
	MaxConns   int32
	MinConns   int32
	MaxRetries int
}

// NewPool creates a PostgreSQL connection pool with retry logic.
// Retries with exponential backoff: 1s, 2s, 4s, 8s, 16s (total ~31s before failure).
func NewPool(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 && opts.MinConns <= poolCfg.MaxConns {
		poolCfg.MinConns = opts.MinConns
	}

	// Ensure at least one attempt even if MaxRetries is 0
	attempts := opts.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var pool *pgxpool.Pool
	for attempt := 0; attempt < attempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			pingErr := pool.Ping(ctx)
			if pingErr == nil {
				log.Info().
					Int32("max_conns", poolCfg.MaxConns).
					Str("database", poolCfg.ConnConfig.Database).
					Msg("database connection established")
				return pool, nil
			}
			pool.Close()
			err = fmt.Errorf("ping failed: %w", pingErr)
		}

		if attempt == attempts-1 {
			break
		}

		backoff := time.Duration(1<<attempt) * time.Second
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", attempts).
			Dur("next_retry_in", backoff).
			Msg("database connection failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempts, err)
}
