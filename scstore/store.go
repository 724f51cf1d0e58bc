// Package scstore provides persistence for completed signal/collect runs,
// grounded on the teacher's graph/store package (Store interface plus
// in-memory, SQLite and MySQL implementations), narrowed from full
// step-by-step checkpointing down to the run-summary/termination-reason
// record this engine actually needs to survive a process restart.
package scstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run ID does not exist.
var ErrNotFound = errors.New("scstore: not found")

// RunRecord is the persisted summary of one completed Coordinator.Execute
// call, keyed by a caller-chosen run ID.
type RunRecord struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Reason       string // TerminationReason.String()
	Supersteps   int
	MessagesSent uint64
	MessagesRecv uint64
}

// Store persists RunRecords and retrieves them by run ID.
//
// Implementations:
//   - MemStore (memory.go): testing and single-process use.
//   - SQLiteStore (sqlite.go): single-file persistence, zero setup.
//   - MySQLStore (mysql.go): shared persistence across multiple driver
//     processes in a distributed deployment.
type Store interface {
	// SaveRun persists or overwrites the record for record.RunID.
	SaveRun(ctx context.Context, record RunRecord) error

	// LoadRun retrieves the record for runID. Returns ErrNotFound if no
	// such run was ever saved.
	LoadRun(ctx context.Context, runID string) (RunRecord, error)

	// ListRuns returns every persisted run, most recently finished first,
	// up to limit records (0 means unlimited).
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// Close releases any resources held by the store.
	Close() error
}
