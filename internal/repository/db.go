package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the initial schema migration.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id                 TEXT PRIMARY KEY,
			email              TEXT NOT NULL UNIQUE,
			password           TEXT NOT NULL,
			role               TEXT NOT NULL DEFAULT 'user',
			is_premium         BOOLEAN NOT NULL DEFAULT FALSE,
			premium_expires_at TIMESTAMPTZ,
			free_usage_count   INT NOT NULL DEFAULT 0 CHECK (free_usage_count >= 0),
			total_usage_count  INT NOT NULL DEFAULT 0,
			customer_id        TEXT,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS orders (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL REFERENCES users(id),
			session_id        TEXT,
			provider_order_id TEXT,
			amount            BIGINT NOT NULL DEFAULT 0,
			currency          TEXT NOT NULL DEFAULT 'USD',
			status            TEXT NOT NULL DEFAULT 'pending',
			plan_type         TEXT NOT NULL,
			metadata          TEXT,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
		CREATE INDEX IF NOT EXISTS idx_orders_session_id ON orders(session_id);
		CREATE INDEX IF NOT EXISTS idx_orders_provider_order_id ON orders(provider_order_id);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
