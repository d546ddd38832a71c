package store

import (
	"database/sql"
	"time"
)

// IngestRun represents a single pipeline attempt for auditing: one probe of
// the upstream server plus the tidy outcomes of both variables.
type IngestRun struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  sql.NullTime
	Source      string // "sco"
	Issuance    string // "YYYY-MM-DD HH:MM" issuance timestamp queried
	ProbeURL    sql.NullString
	HTTPStatus  sql.NullInt64
	QPFReason   sql.NullString
	PoP12Reason sql.NullString
	RowsTidied  sql.NullInt64
	RowsStored  sql.NullInt64
	Success     bool
	ErrorMsg    sql.NullString
}

// StartIngestRun creates a new ingest run record and returns it.
func (s *Store) StartIngestRun(source, issuance string) (*IngestRun, error) {
	run := &IngestRun{
		StartedAt: time.Now().UTC(),
		Source:    source,
		Issuance:  issuance,
	}

	result, err := s.db.Exec(`
		INSERT INTO ingest_runs (started_at, source, issuance, success)
		VALUES (?, ?, ?, FALSE)
	`, run.StartedAt, run.Source, run.Issuance)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteIngestRun updates the ingest run with its results.
func (s *Store) CompleteIngestRun(run *IngestRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE ingest_runs SET
			finished_at = ?,
			probe_url = ?,
			http_status = ?,
			qpf_reason = ?,
			pop12_reason = ?,
			rows_tidied = ?,
			rows_stored = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.ProbeURL, run.HTTPStatus, run.QPFReason, run.PoP12Reason,
		run.RowsTidied, run.RowsStored, run.Success, run.ErrorMsg, run.ID)
	return err
}

// RecentIngestRuns returns the most recent runs, newest first.
func (s *Store) RecentIngestRuns(limit int) ([]IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, source, issuance, probe_url, http_status,
		       qpf_reason, pop12_reason, rows_tidied, rows_stored, success, error_message
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []IngestRun
	for rows.Next() {
		var r IngestRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.Issuance, &r.ProbeURL,
			&r.HTTPStatus, &r.QPFReason, &r.PoP12Reason, &r.RowsTidied, &r.RowsStored, &r.Success, &r.ErrorMsg); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
