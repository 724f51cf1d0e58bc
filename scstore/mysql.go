package scstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed Store for sharing run history across
// multiple driver processes in a distributed deployment.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection pool against dsn (see
// github.com/go-sql-driver/mysql for the DSN format) and creates the
// run_records table if it does not already exist. dsn must include
// parseTime=true so DATETIME columns scan directly into time.Time.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("scstore: open mysql: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("scstore: ping mysql: %w", err)
	}
	if _, err := db.Exec(mysqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("scstore: migrate: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS run_records (
	run_id        VARCHAR(255) PRIMARY KEY,
	started_at    DATETIME(6) NOT NULL,
	finished_at   DATETIME(6) NOT NULL,
	reason        VARCHAR(64) NOT NULL,
	supersteps    BIGINT NOT NULL,
	messages_sent BIGINT UNSIGNED NOT NULL,
	messages_recv BIGINT UNSIGNED NOT NULL
) ENGINE=InnoDB`

// SaveRun implements Store.
func (s *MySQLStore) SaveRun(ctx context.Context, record RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_records (run_id, started_at, finished_at, reason, supersteps, messages_sent, messages_recv)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			started_at = VALUES(started_at),
			finished_at = VALUES(finished_at),
			reason = VALUES(reason),
			supersteps = VALUES(supersteps),
			messages_sent = VALUES(messages_sent),
			messages_recv = VALUES(messages_recv)`,
		record.RunID, record.StartedAt, record.FinishedAt, record.Reason,
		record.Supersteps, record.MessagesSent, record.MessagesRecv)
	if err != nil {
		return fmt.Errorf("scstore: save run: %w", err)
	}
	return nil
}

// LoadRun implements Store.
func (s *MySQLStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, reason, supersteps, messages_sent, messages_recv
		FROM run_records WHERE run_id = ?`, runID)
	var r RunRecord
	if err := row.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Reason, &r.Supersteps, &r.MessagesSent, &r.MessagesRecv); err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, ErrNotFound
		}
		return RunRecord{}, fmt.Errorf("scstore: load run: %w", err)
	}
	return r, nil
}

// ListRuns implements Store.
func (s *MySQLStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
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
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Reason, &r.Supersteps, &r.MessagesSent, &r.MessagesRecv); err != nil {
			return nil, fmt.Errorf("scstore: scan run: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close implements Store.
func (s *MySQLStore) Close() error { return s.db.Close() }
