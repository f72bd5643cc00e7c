// Package database implements the PostgreSQL persistence layer.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool with production pool settings and
// verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	cfg.MaxConns = 25
	cfg.MinConns = 5
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = &MetricsTracer{}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations applies the schema. Statements are idempotent so this is safe
// to run on every startup.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS astrology_records (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			birth_date DATE NOT NULL,
			birth_time VARCHAR(10) NOT NULL,
			gender VARCHAR(10) NOT NULL,
			lunar_date VARCHAR(50),
			preview_result_zh TEXT,
			preview_result_en TEXT,
			full_result_zh TEXT,
			full_result_en TEXT,
			is_purchased BOOLEAN NOT NULL DEFAULT FALSE,
			shopify_order_id VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_email_created ON astrology_records(email, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_records_purchased_created ON astrology_records(is_purchased, created_at)`,
		// Webhook dedupe: a Shopify order id may mark at most one record.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_records_shopify_order_id
			ON astrology_records(shopify_order_id) WHERE shopify_order_id IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			image_url VARCHAR(500),
			redirect_url VARCHAR(500),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_name ON products(name)`,
		`CREATE TABLE IF NOT EXISTS translation_pairs (
			id BIGSERIAL PRIMARY KEY,
			chinese_text TEXT NOT NULL,
			english_text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS site_config (
			id BIGSERIAL PRIMARY KEY,
			config_key VARCHAR(100) UNIQUE NOT NULL,
			config_value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}
