package postgresql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      VARCHAR(50) NOT NULL,
		password_hash TEXT NOT NULL,
		role          VARCHAR(20) NOT NULL DEFAULT 'operator',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT users_username_key UNIQUE (username)
	)`,
	`CREATE TABLE IF NOT EXISTS motorcycles (
		plate_number TEXT NOT NULL,
		region       VARCHAR(100) NOT NULL,
		blacklisted  BOOLEAN NOT NULL DEFAULT FALSE,
		expired      BOOLEAN NOT NULL DEFAULT FALSE,
		violations   BOOLEAN NOT NULL DEFAULT FALSE,
		last_seen_at TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT motorcycles_plate_number_key UNIQUE (plate_number)
	)`,
	`CREATE TABLE IF NOT EXISTS scan_events (
		event_id        UUID PRIMARY KEY,
		source          VARCHAR(20) NOT NULL,
		device_id       VARCHAR(100),
		provider        VARCHAR(20) NOT NULL,
		detected_plate  TEXT,
		detected_region VARCHAR(100),
		confidence      REAL NOT NULL DEFAULT 0,
		matched         BOOLEAN NOT NULL DEFAULT FALSE,
		blacklisted     BOOLEAN NOT NULL DEFAULT FALSE,
		expired         BOOLEAN NOT NULL DEFAULT FALSE,
		violations      BOOLEAN NOT NULL DEFAULT FALSE,
		image_key       TEXT,
		annotated_key   TEXT,
		error_message   TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_events_plate_created ON scan_events (detected_plate, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_events_created ON scan_events (created_at DESC)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgresql.Migrate: %w", err)
		}
	}
	return nil
}
