// Package scheduler runs background jobs on fixed intervals. Each job has its
// own goroutine, so a job never overlaps with itself, and a failing run is
// logged without stopping the schedule.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"identiscope/internal/observability/logging"
)

type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero means the interval.
	Timeout    time.Duration
	RunOnStart bool
	Run        func(ctx context.Context) error
}

type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
	wg     sync.WaitGroup
}

func New(logger *slog.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, logger: logging.OrDefault(logger)}
}

func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches every job and returns immediately. Jobs stop when ctx is
// cancelled; Wait blocks until they have.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		if job.Run == nil || job.Interval <= 0 {
			return errors.New("scheduler: job " + job.Name + " needs a run func and a positive interval")
		}
	}
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()
	if job.RunOnStart {
		s.runOnce(ctx, job)
	}
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = job.Interval
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("scheduled job panicked", "job", job.Name, "panic", rec)
		}
	}()

	started := time.Now()
	if err := job.Run(runCtx); err != nil {
		s.logger.Error("scheduled job failed", "job", job.Name, "duration_ms", time.Since(started).Milliseconds(), "err", err)
		return
	}
	s.logger.Debug("scheduled job finished", "job", job.Name, "duration_ms", time.Since(started).Milliseconds())
}
