package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// storePoolMaxConns bounds the pool. Writes are already serialized by the
// account service, so extra connections would only sit idle.
const storePoolMaxConns = 4

// NewPostgresPool opens the pool for STORE_DRIVER=postgres. The URL comes
// from DATABASE_URL; pool_max_conns in the URL is honoured up to
// storePoolMaxConns. The pool is pinged before it is returned so a bad DSN
// fails at startup instead of on the first login.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = min(poolCfg.MaxConns, storePoolMaxConns)
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "zh-portal"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open user store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reach user store database: %w", err)
	}
	return pool, nil
}
