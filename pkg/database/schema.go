package database

import (
	"context"
	"fmt"
)

// schema 평가 대상 매물과 평가 결과
// listings.status: pending → appraised (재평가 시 다시 pending)
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS kantei`,
	`CREATE TABLE IF NOT EXISTS kantei.listings (
		listing_id   TEXT PRIMARY KEY,
		record       JSONB NOT NULL,
		status       TEXT NOT NULL DEFAULT 'pending',
		source       TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		appraised_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_status ON kantei.listings (status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS kantei.appraisals (
		listing_id              TEXT NOT NULL,
		config_hash             TEXT NOT NULL,
		run_id                  UUID NOT NULL,
		current_estimated_value BIGINT NOT NULL,
		grade                   TEXT NOT NULL,
		profit_bucket           TEXT NOT NULL,
		implied_gain_amount     BIGINT NOT NULL,
		implied_gain_ratio      DOUBLE PRECISION NOT NULL,
		forecast_10y            JSONB NOT NULL,
		risk_factors            JSONB NOT NULL,
		positive_factors        JSONB NOT NULL,
		features                JSONB NOT NULL,
		appraised_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (listing_id, config_hash)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appraisals_grade ON kantei.appraisals (grade, appraised_at DESC)`,
}

// EnsureSchema creates the kantei schema and tables when missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
