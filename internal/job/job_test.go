// =============================================================================
// FILE: internal/job/job_test.go
// PURPOSE: Exercises the state machine's allowed transitions, capability
//          derivation, and cross-job exclusivity groups (spec.md §4.E/§4.F).
// =============================================================================

package job

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gbmm/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// simpleJob runs until told to stop or pause, incrementing a counter.
type simpleJob struct {
	started    chan struct{}
	iterations int
}

func (j *simpleJob) Run(ctx context.Context, tok *Token) error {
	close(j.started)
	for {
		if tok.ShouldStop() {
			tok.CompleteStop()
			return nil
		}
		if tok.ShouldPause() {
			tok.CompletePause()
			return nil
		}
		j.iterations++
		if j.iterations > 100 {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
}

func (j *simpleJob) Resume(ctx context.Context, tok *Token, record *store.JobRecord) error {
	return j.Run(ctx, tok)
}

func newSimpleJobTag(t *testing.T, group string) string {
	t.Helper()
	tag := t.Name()
	Register(tag, func() Job { return &simpleJob{started: make(chan struct{})} }, group)
	return tag
}

func TestStartRunsAndCompletes(t *testing.T) {
	db := openTestDB(t)
	m := NewManager(db, nil)
	tag := newSimpleJobTag(t, "")

	id, err := m.Start(context.Background(), tag)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		rec, err := m.Get(context.Background(), id)
		if err == nil && (rec.State == Complete || rec.State == Failed) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never completed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPauseAndResume(t *testing.T) {
	db := openTestDB(t)
	m := NewManager(db, nil)
	tag := t.Name()
	Register(tag, func() Job {
		return &simpleJob{started: make(chan struct{}), iterations: -1000} // never hits the 100 cap on its own
	}, "")

	id, err := m.Start(context.Background(), tag)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if err := m.Pause(id); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		rec, err := m.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if rec.State == Paused {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never paused")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := m.Resume(context.Background(), id); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	rec, err := m.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get after resume: %v", err)
	}
	if rec.State != Running {
		t.Fatalf("expected Running after Resume, got %v", rec.State)
	}
}

func TestStopFromPausedArchivesImmediately(t *testing.T) {
	db := openTestDB(t)
	m := NewManager(db, nil)
	tag := t.Name()
	Register(tag, func() Job {
		return &simpleJob{started: make(chan struct{}), iterations: -1000}
	}, "")

	id, err := m.Start(context.Background(), tag)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := m.Pause(id); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		rec, _ := m.Get(context.Background(), id)
		if rec != nil && rec.State == Paused {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never paused")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := m.Stop(context.Background(), id); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := m.get(id); !errors.Is(err, ErrAlreadyArchived) {
		t.Fatalf("expected job removed from in-flight table after stop-from-paused, err = %v", err)
	}
}

func TestDoubleStopRejected(t *testing.T) {
	db := openTestDB(t)
	m := NewManager(db, nil)
	tag := t.Name()
	Register(tag, func() Job { return blockingJob{} }, "")

	id, err := m.Start(context.Background(), tag)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if err := m.Stop(context.Background(), id); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := m.Stop(context.Background(), id); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition on second Stop, got %v", err)
	}
}

// blockingJob never checks its Token, so it stays Running for the whole
// sleep regardless of how many Stop requests are recorded against it --
// giving a wide, non-flaky window for a second Stop call to race the first.
type blockingJob struct{}

func (blockingJob) Run(ctx context.Context, tok *Token) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func TestCrossJobExclusivity(t *testing.T) {
	db := openTestDB(t)
	m := NewManager(db, nil)
	group := t.Name() + "-group"
	tagA := t.Name() + "-a"
	tagB := t.Name() + "-b"
	Register(tagA, func() Job { return &simpleJob{started: make(chan struct{}), iterations: -1000} }, group)
	Register(tagB, func() Job { return &simpleJob{started: make(chan struct{}), iterations: -1000} }, group)

	if _, err := m.Start(context.Background(), tagA); err != nil {
		t.Fatalf("Start tagA: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := m.Start(context.Background(), tagB); !errors.Is(err, ErrExclusivityConflict) {
		t.Fatalf("expected ErrExclusivityConflict starting a second job in the same group, got %v", err)
	}
}

func TestPauseNonPauseableRejected(t *testing.T) {
	db := openTestDB(t)
	m := NewManager(db, nil)
	tag := t.Name()

	// runOnlyJob implements only Run, so Register derives Pauseable=false.
	Register(tag, func() Job { return runOnlyJob{} }, "")

	id, err := m.Start(context.Background(), tag)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if err := m.Pause(id); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition pausing a non-pauseable job, got %v", err)
	}
}

type runOnlyJob struct{}

func (runOnlyJob) Run(ctx context.Context, tok *Token) error {
	time.Sleep(50 * time.Millisecond)
	return nil
}
