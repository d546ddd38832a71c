package store

import (
	"database/sql"
	"time"

	"github.com/shellcast/shellcast/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping reports whether the underlying database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// InsertForecastCells loads one tidy pass into forecast_cells. Re-loading the
// same run is a no-op thanks to the uniqueness constraint. Returns the number
// of rows actually stored.
func (s *Store) InsertForecastCells(cells []models.ForecastCell) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO forecast_cells (variable, valid_period_hrs, y_index, x_index, value, longitude, latitude, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(variable, issued_at, valid_period_hrs, y_index, x_index) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for _, c := range cells {
		res, err := stmt.Exec(c.Variable, c.ValidPeriod, c.YIndex, c.XIndex, c.Value, c.Longitude, c.Latitude, c.IssuedAt)
		if err != nil {
			return stored, err
		}
		if n, err := res.RowsAffected(); err == nil {
			stored += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stored, nil
}

// LatestIssuance returns the most recent issuance time loaded for a variable.
// The second return is false when nothing has been loaded yet.
func (s *Store) LatestIssuance(variable string) (time.Time, bool, error) {
	var issued time.Time
	err := s.db.QueryRow(`
		SELECT issued_at FROM forecast_cells
		WHERE variable = ?
		ORDER BY issued_at DESC
		LIMIT 1
	`, variable).Scan(&issued)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return issued, true, nil
}

// GetForecastCells returns one run's stored rows for a variable, ordered by
// accumulation window then grid position.
func (s *Store) GetForecastCells(variable string, issuedAt time.Time) ([]models.ForecastCell, error) {
	rows, err := s.db.Query(`
		SELECT id, variable, valid_period_hrs, y_index, x_index, value, longitude, latitude, issued_at, created_at
		FROM forecast_cells
		WHERE variable = ? AND issued_at = ?
		ORDER BY valid_period_hrs ASC, y_index ASC, x_index ASC
	`, variable, issuedAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cells []models.ForecastCell
	for rows.Next() {
		var c models.ForecastCell
		if err := rows.Scan(&c.ID, &c.Variable, &c.ValidPeriod, &c.YIndex, &c.XIndex, &c.Value, &c.Longitude, &c.Latitude, &c.IssuedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// CountForecastCells returns the number of stored rows for one run.
func (s *Store) CountForecastCells(variable string, issuedAt time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM forecast_cells WHERE variable = ? AND issued_at = ?
	`, variable, issuedAt).Scan(&count)
	return count, err
}
