package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMedium stores keys in the kv_store table created by the embedded
// migrations in pkg/database.
type PostgresMedium struct {
	pool *pgxpool.Pool
}

// NewPostgresMedium wraps a migrated pool.
func NewPostgresMedium(pool *pgxpool.Pool) *PostgresMedium {
	return &PostgresMedium{pool: pool}
}

func (m *PostgresMedium) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `SELECT value FROM kv_store WHERE key = $1`
	var v string
	err := m.pool.QueryRow(ctx, q, key).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select %s: %w", key, err)
	}
	return v, true, nil
}

func (m *PostgresMedium) Set(ctx context.Context, key, value string) error {
	const q = `INSERT INTO kv_store (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := m.pool.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (m *PostgresMedium) Remove(ctx context.Context, key string) error {
	if _, err := m.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
