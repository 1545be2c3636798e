// Package detached runs fire-and-forget work whose outcome the caller never
// observes. Failures are logged and counted, never returned.
package detached

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"identiscope/internal/observability/logging"
	"identiscope/internal/observability/metrics"
)

type Task func(ctx context.Context) error

type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	Logger      *slog.Logger
}

type job struct {
	name string
	task Task
}

// Runner is a bounded worker queue. Go never blocks: when the queue is full,
// closed, or the runner is nil, the task runs inline as a best-effort call.
type Runner struct {
	queue   chan job
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewRunner(cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 5 * time.Second
	}
	r := &Runner{
		queue:   make(chan job, cfg.QueueSize),
		timeout: cfg.TaskTimeout,
		logger:  logging.OrDefault(cfg.Logger),
	}
	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
	return r
}

func (r *Runner) Go(name string, task Task) {
	if task == nil {
		return
	}
	if r == nil {
		runInline(slog.Default(), 5*time.Second, job{name: name, task: task})
		return
	}
	r.mu.RLock()
	if !r.closed {
		select {
		case r.queue <- job{name: name, task: task}:
			r.mu.RUnlock()
			return
		default:
		}
	}
	r.mu.RUnlock()
	runInline(r.logger, r.timeout, job{name: name, task: task})
}

// Close stops accepting work and waits for queued tasks until ctx is done.
func (r *Runner) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) work() {
	defer r.wg.Done()
	for j := range r.queue {
		runInline(r.logger, r.timeout, j)
	}
}

func runInline(logger *slog.Logger, timeout time.Duration, j job) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			metrics.DetachedTasksTotal.WithLabelValues(j.name, "panic").Inc()
			logger.Error("detached task panicked", "task", j.name, "panic", rec)
		}
	}()
	if err := j.task(ctx); err != nil {
		metrics.DetachedTasksTotal.WithLabelValues(j.name, "error").Inc()
		logger.Warn("detached task failed", "task", j.name, "err", err)
		return
	}
	metrics.DetachedTasksTotal.WithLabelValues(j.name, "ok").Inc()
}
