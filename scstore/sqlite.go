package scstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store. It opens a single database file,
// creating the run_records table on first use, and enables WAL mode so a
// status console can read concurrently with a driver process writing.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at path.
// Pass ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("scstore: open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("scstore: enable wal: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("scstore: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS run_records (
	run_id        TEXT PRIMARY KEY,
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL,
	reason        TEXT NOT NULL,
	supersteps    INTEGER NOT NULL,
	messages_sent INTEGER NOT NULL,
	messages_recv INTEGER NOT NULL
)`

// SaveRun implements Store.
func (s *SQLiteStore) SaveRun(ctx context.Context, record RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_records (run_id, started_at, finished_at, reason, supersteps, messages_sent, messages_recv)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			reason = excluded.reason,
			supersteps = excluded.supersteps,
			messages_sent = excluded.messages_sent,
			messages_recv = excluded.messages_recv`,
		record.RunID, record.StartedAt.Format(time.RFC3339Nano), record.FinishedAt.Format(time.RFC3339Nano), record.Reason,
		record.Supersteps, record.MessagesSent, record.MessagesRecv)
	if err != nil {
		return fmt.Errorf("scstore: save run: %w", err)
	}
	return nil
}

// LoadRun implements Store.
func (s *SQLiteStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, reason, supersteps, messages_sent, messages_recv
		FROM run_records WHERE run_id = ?`, runID)
	var r RunRecord
	var startedAt, finishedAt string
	err := row.Scan(&r.RunID, &startedAt, &finishedAt, &r.Reason, &r.Supersteps, &r.MessagesSent, &r.MessagesRecv)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, ErrNotFound
		}
		return RunRecord{}, fmt.Errorf("scstore: load run: %w", err)
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return RunRecord{}, fmt.Errorf("scstore: parse started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return RunRecord{}, fmt.Errorf("scstore: parse finished_at: %w", err)
	}
	return r, nil
}

// ListRuns implements Store.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT run_id, started_at, finished_at, reason, supersteps, messages_sent, messages_recv
		FROM run_records ORDER BY finished_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scstore: list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var startedAt, finishedAt string
		if err := rows.Scan(&r.RunID, &startedAt, &finishedAt, &r.Reason, &r.Supersteps, &r.MessagesSent, &r.MessagesRecv); err != nil {
			return nil, fmt.Errorf("scstore: scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("scstore: parse started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("scstore: parse finished_at: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }
