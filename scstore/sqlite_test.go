package scstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSQLiteStoreSaveLoadRoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rec := RunRecord{
		RunID:        "run-1",
		StartedAt:    time.Now().Add(-time.Second).UTC(),
		FinishedAt:   time.Now().UTC(),
		Reason:       "Converged",
		Supersteps:   5,
		MessagesSent: 42,
		MessagesRecv: 42,
	}
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.LoadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if got.RunID != rec.RunID || got.Reason != rec.Reason || got.Supersteps != rec.Supersteps {
		t.Fatalf("LoadRun = %+v, want %+v", got, rec)
	}
}

func TestSQLiteStoreSaveRunUpserts(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rec := RunRecord{RunID: "run-1", Reason: "Converged", Supersteps: 1}
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	rec.Reason = "TimeLimitReached"
	rec.Supersteps = 2
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun (update): %v", err)
	}

	got, err := s.LoadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if got.Reason != "TimeLimitReached" || got.Supersteps != 2 {
		t.Fatalf("LoadRun after upsert = %+v, want Reason=TimeLimitReached Supersteps=2", got)
	}
}

func TestSQLiteStoreLoadMissingReturnsErrNotFound(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	_, err = s.LoadRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadRun error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreListRunsOrdering(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	base := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		s.SaveRun(ctx, RunRecord{RunID: id, FinishedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	records, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(records) != 3 || records[0].RunID != "c" {
		t.Fatalf("ListRuns order = %v, want most-recent first", records)
	}
}
