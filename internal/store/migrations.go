package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS forecast_cells (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    variable TEXT NOT NULL,
    valid_period_hrs TEXT NOT NULL,
    y_index INTEGER NOT NULL,
    x_index INTEGER NOT NULL,
    value REAL NOT NULL,
    longitude REAL,
    latitude REAL,
    issued_at DATETIME NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(variable, issued_at, valid_period_hrs, y_index, x_index)
);

CREATE TABLE IF NOT EXISTS ingest_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    source TEXT NOT NULL,
    issuance TEXT NOT NULL,
    probe_url TEXT,
    http_status INTEGER,
    qpf_reason TEXT,
    pop12_reason TEXT,
    rows_tidied INTEGER,
    rows_stored INTEGER,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    error_message TEXT
);
`,
	},
	{
		Version:     2,
		Description: "Index for latest-issuance lookups",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_forecast_cells_variable_issued
    ON forecast_cells(variable, issued_at DESC);
`,
	},
}

// Migrate applies any outstanding schema migrations in version order.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := s.migrationApplied(m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		start := time.Now()
		if _, err := s.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		log.Printf("store: applied migration %d (%s) in %s", m.Version, m.Description, time.Since(start))
	}
	return nil
}

func (s *Store) migrationApplied(version int) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
