package database

import (
	"context"
	"fmt"
)

// schema is applied in order; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS prices (
		symbol     TEXT NOT NULL,
		trade_date DATE NOT NULL,
		adj_close  DOUBLE PRECISION NOT NULL CHECK (adj_close > 0),
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS portfolio_runs (
		run_id     TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		spec_hash  TEXT NOT NULL,
		technique  TEXT NOT NULL,
		result     JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS portfolio_runs_created_at_idx ON portfolio_runs (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id      TEXT PRIMARY KEY,
		run_id        TEXT NOT NULL,
		symbol        TEXT NOT NULL,
		side          TEXT NOT NULL,
		qty           INTEGER NOT NULL CHECK (qty > 0),
		order_type    TEXT NOT NULL,
		time_in_force TEXT NOT NULL,
		status        TEXT NOT NULL,
		broker_id     TEXT NOT NULL DEFAULT '',
		reason        TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_run_id_idx ON orders (run_id)`,
}

// Migrate creates the tables used by the market data, run and order repositories
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
