package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"identiscope/internal/observability/logging"
)

func TestScheduler_RunsJobsAndSurvivesFailures(t *testing.T) {
	var ok, failing, panicking atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(logging.Discard(),
		Job{Name: "ok", Interval: 5 * time.Millisecond, RunOnStart: true, Run: func(context.Context) error {
			ok.Add(1)
			return nil
		}},
		Job{Name: "failing", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
			failing.Add(1)
			return errors.New("db down")
		}},
	)
	s.Add(Job{Name: "panicking", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
		panicking.Add(1)
		panic("boom")
	}})
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ok.Load() >= 3 && failing.Load() >= 2 && panicking.Load() >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	s.Wait()

	if ok.Load() < 3 || failing.Load() < 2 || panicking.Load() < 2 {
		t.Fatalf("jobs did not keep running: ok=%d failing=%d panicking=%d", ok.Load(), failing.Load(), panicking.Load())
	}
}

func TestScheduler_JobNeverOverlapsItself(t *testing.T) {
	var running, overlaps, runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	s := New(logging.Discard(), Job{Name: "slow", Interval: time.Millisecond, Timeout: time.Second, Run: func(context.Context) error {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		runs.Add(1)
		return nil
	}})
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	s.Wait()

	if runs.Load() == 0 || overlaps.Load() != 0 {
		t.Fatalf("expected sequential runs, got runs=%d overlaps=%d", runs.Load(), overlaps.Load())
	}
}

func TestScheduler_RejectsInvalidJob(t *testing.T) {
	s := New(nil, Job{Name: "bad"})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for job without run func")
	}
}
