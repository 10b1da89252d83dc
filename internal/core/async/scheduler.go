package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a recurring job registered with the Scheduler.
type Task struct {
	Name       string
	Interval   time.Duration
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Scheduler runs registered tasks on their own tickers until stopped.
// A run still in progress when the next tick fires makes that tick a no-op.
type Scheduler struct {
	logger *slog.Logger
	tasks  []Task

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger}
}

// Register adds a task. Tasks added after Start are picked up on the next Start.
func (s *Scheduler) Register(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

// Start launches every registered task. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	s.logger.Info("scheduler started", "tasks", len(s.tasks))
}

// Stop cancels the tasks and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()
	var busy atomic.Bool

	fire := func() {
		if !busy.CompareAndSwap(false, true) {
			s.logger.Warn("scheduler.skip_overlap", "task", t.Name)
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer busy.Store(false)
			s.runOnce(ctx, t)
		}()
	}

	if t.RunOnStart {
		fire()
	}
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fire()
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "task", t.Name, "panic", r)
		}
	}()
	if err := t.Run(ctx); err != nil {
		s.logger.Error("scheduled task failed", "task", t.Name, "error", err)
		return
	}
	s.logger.Debug("scheduler.ran", "task", t.Name, "elapsed_ms", time.Since(start).Milliseconds())
}
