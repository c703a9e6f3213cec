// Package database opens and migrates the PostgreSQL pool behind the
// postgres storage medium.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NewPostgresPool creates a pgx connection pool for PostgreSQL.
func NewPostgresPool(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	// The medium only ever does single-row reads and upserts.
	config.MaxConns = 4
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("PostgreSQL connection pool established",
		zap.String("host", config.ConnConfig.Host),
		zap.String("database", config.ConnConfig.Database),
	)
	return pool, nil
}
