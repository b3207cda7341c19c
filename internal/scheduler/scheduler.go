package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/market-data/internal/metrics"
)

// TaskFunc is the body of a periodic task.
type TaskFunc func(ctx context.Context) error

// Task is one periodic job.
type Task struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // per-run deadline, 0 = none
	Run      TaskFunc
}

// TaskStatus is a point-in-time view of one task.
type TaskStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      int64         `json:"runs"`
	Failures  int64         `json:"failures"`
	LastRun   time.Time     `json:"lastRun,omitzero"`
	LastError string        `json:"lastError,omitempty"`
}

type taskState struct {
	Task

	mu       sync.Mutex
	runs     int64
	failures int64
	lastRun  time.Time
	lastErr  error
}

// Scheduler runs tasks on their own intervals.
type Scheduler struct {
	tasks   []*taskState
	metrics *metrics.Metrics
	logger  *slog.Logger

	paused  atomic.Bool
	started atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler.
func New(tasks []Task, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	states := make([]*taskState, 0, len(tasks))
	for _, t := range tasks {
		states = append(states, &taskState{Task: t})
	}

	return &Scheduler{
		tasks:   states,
		metrics: m,
		logger:  logger,
	}
}

// Start launches one goroutine per task. The first run happens after one
// interval.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, t := range s.tasks {
		if t.Interval <= 0 {
			return fmt.Errorf("task %q: interval must be positive", t.Name)
		}
		if t.Run == nil {
			return fmt.Errorf("task %q: no run function", t.Name)
		}
	}
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(t)
	}

	s.logger.Info("scheduler started", "tasks", len(s.tasks))
	return nil
}

// Stop cancels in-flight runs and waits for the task goroutines.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause makes every task skip its ticks.
func (s *Scheduler) Pause() {
	if s.paused.CompareAndSwap(false, true) {
		s.logger.Info("scheduler paused")
	}
}

// Resume re-enables ticks.
func (s *Scheduler) Resume() {
	if s.paused.CompareAndSwap(true, false) {
		s.logger.Info("scheduler resumed")
	}
}

// Paused reports whether the scheduler is paused.
func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// Status returns the state of every task in registration order.
func (s *Scheduler) Status() []TaskStatus {
	out := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		t.mu.Lock()
		st := TaskStatus{
			Name:     t.Name,
			Interval: t.Interval,
			Runs:     t.runs,
			Failures: t.failures,
			LastRun:  t.lastRun,
		}
		if t.lastErr != nil {
			st.LastError = t.lastErr.Error()
		}
		t.mu.Unlock()
		out = append(out, st)
	}
	return out
}

func (s *Scheduler) loop(t *taskState) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.paused.Load() {
				s.logger.Debug("task skipped, scheduler paused", "task", t.Name)
				continue
			}
			s.runTask(t)
		}
	}
}

// runTask executes one run and records the outcome. Panics are converted to
// errors.
func (s *Scheduler) runTask(t *taskState) {
	ctx := s.ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := safeRun(ctx, t.Run)
	elapsed := time.Since(start)

	t.mu.Lock()
	t.runs++
	t.lastRun = start
	t.lastErr = err
	if err != nil {
		t.failures++
	}
	t.mu.Unlock()

	s.metrics.RecordTask(t.Name, elapsed, err)

	if err != nil {
		s.logger.Error("task failed", "task", t.Name, "err", err, "duration", elapsed)
		return
	}
	s.logger.Debug("task complete", "task", t.Name, "duration", elapsed)
}

func safeRun(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
