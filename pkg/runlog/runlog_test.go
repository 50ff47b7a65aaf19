package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginComplete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := s.Begin(ctx, Run{ID: "r1", Trigger: "http", StartedAt: start}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusRunning || got.FinishedAt != nil || got.CandidateR2 != nil {
		t.Fatalf("started run = %+v", got)
	}
	if !got.StartedAt.Equal(start) {
		t.Fatalf("StartedAt = %v, want %v", got.StartedAt, start)
	}

	finished := start.Add(90 * time.Second)
	cand := 0.91
	err = s.Complete(ctx, Run{
		ID:          "r1",
		FinishedAt:  &finished,
		Status:      StatusAccepted,
		CandidateR2: &cand,
		Version:     "20240301T100000Z-r1",
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err = s.Get(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusAccepted || got.Version != "20240301T100000Z-r1" || got.Trigger != "http" {
		t.Fatalf("completed run = %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Fatalf("FinishedAt = %v", got.FinishedAt)
	}
	if got.CandidateR2 == nil || *got.CandidateR2 != cand || got.DeployedR2 != nil {
		t.Fatalf("scores = %v / %v", got.CandidateR2, got.DeployedR2)
	}
}

func TestFailedRunKeepsStageAndKind(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	if err := s.Begin(ctx, Run{ID: "r2", Trigger: "schedule", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	err := s.Complete(ctx, Run{ID: "r2", Status: StatusFailed, Stage: "validation", ErrorKind: "schema_validation", Message: "missing column Gpu"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "r2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Stage != "validation" || got.ErrorKind != "schema_validation" || got.Message != "missing column Gpu" {
		t.Fatalf("failed run = %+v", got)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.Begin(ctx, Run{ID: id, Trigger: "cli", StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("Recent(2) = %+v", runs)
	}
	runs, err = s.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("Recent(0) returned %d runs", len(runs))
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get err = %v", err)
	}
	if err := s.Complete(ctx, Run{ID: "missing", Status: StatusFailed}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Complete err = %v", err)
	}
}
