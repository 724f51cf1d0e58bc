package scstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemStoreSaveLoadRoundTrip(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	rec := RunRecord{
		RunID:        "run-1",
		StartedAt:    time.Now().Add(-time.Second),
		FinishedAt:   time.Now(),
		Reason:       "Converged",
		Supersteps:   7,
		MessagesSent: 100,
		MessagesRecv: 100,
	}
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := s.LoadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if got != rec {
		t.Fatalf("LoadRun = %+v, want %+v", got, rec)
	}
}

func TestMemStoreLoadMissingReturnsErrNotFound(t *testing.T) {
	s := NewMemStore()
	_, err := s.LoadRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadRun error = %v, want ErrNotFound", err)
	}
}

func TestMemStoreListRunsOrderedByFinishedAtDesc(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		s.SaveRun(ctx, RunRecord{RunID: id, FinishedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	records, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(records) != 3 || records[0].RunID != "c" || records[2].RunID != "a" {
		t.Fatalf("ListRuns order = %v, want [c b a]", records)
	}
}

func TestMemStoreListRunsRespectsLimit(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		s.SaveRun(ctx, RunRecord{RunID: id, FinishedAt: time.Now().Add(time.Duration(i) * time.Minute)})
	}
	records, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListRuns(limit=2) returned %d records, want 2", len(records))
	}
}

func TestMemStoreCloseIsNoOp(t *testing.T) {
	s := NewMemStore()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
