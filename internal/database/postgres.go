package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/config"
)

func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxPoolSize > 0 {
		db.SetMaxOpenConns(int(cfg.MaxPoolSize))
	}
	if cfg.MinPoolSize > 0 {
		db.SetMaxIdleConns(int(cfg.MinPoolSize))
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info("connected to postgres")
	return db, nil
}

// MigratePostgres creates the tables the postgres repositories use. Statements are idempotent.
func MigratePostgres(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'customer',
		avatar_url TEXT NOT NULL DEFAULT '',
		avatar_key TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		parent_id TEXT REFERENCES categories(id),
		level INT NOT NULL DEFAULT 0,
		sort_order INT NOT NULL DEFAULT 0,
		image TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		translations JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS categories_parent_idx ON categories (parent_id)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(14,2) NOT NULL,
		compare_at_price NUMERIC(14,2),
		stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		category_id TEXT NOT NULL REFERENCES categories(id),
		images TEXT[] NOT NULL DEFAULT '{}',
		tags TEXT[] NOT NULL DEFAULT '{}',
		featured BOOLEAN NOT NULL DEFAULT FALSE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		translations JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS products_category_idx ON products (category_id, active)`,
	`CREATE TABLE IF NOT EXISTS wishlists (
		id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (owner_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		owner_id TEXT PRIMARY KEY,
		items JSONB NOT NULL DEFAULT '[]',
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE SEQUENCE IF NOT EXISTS order_number_seq START 1001`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		number BIGINT NOT NULL UNIQUE,
		owner_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		items JSONB NOT NULL,
		currency TEXT NOT NULL,
		exchange_rate NUMERIC(18,8) NOT NULL,
		subtotal NUMERIC(14,2) NOT NULL,
		shipping NUMERIC(14,2) NOT NULL,
		total NUMERIC(14,2) NOT NULL,
		address JSONB NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_owner_idx ON orders (owner_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS addresses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		line1 TEXT NOT NULL,
		line2 TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL,
		postal_code TEXT NOT NULL,
		country TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS addresses_user_idx ON addresses (user_id)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS translations (
		id TEXT PRIMARY KEY,
		locale TEXT NOT NULL,
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (locale, namespace, key)
	)`,
}
