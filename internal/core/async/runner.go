package async

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
)

// Runner executes one unit of work on its own goroutine under a hard deadline.
// The caller is answered with ErrTimeout margin before the full budget runs
// out, and the task context is cancelled so transactions inside it roll back.
type Runner struct {
	budget time.Duration
	margin time.Duration
	logger *slog.Logger
}

func NewRunner(budget, margin time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if budget <= 0 {
		budget = 70 * time.Second
	}
	if margin < 0 || margin >= budget {
		margin = 0
	}
	return &Runner{budget: budget, margin: margin, logger: logger}
}

// Deadline is the time a task may run before the caller sees a timeout.
func (r *Runner) Deadline() time.Duration { return r.budget - r.margin }

// Run calls fn with a context detached from ctx except for identity and
// request id. Cancelling ctx also cancels the task.
func Run[T any](ctx context.Context, r *Runner, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	taskCtx, cancel := context.WithTimeout(common.Detach(ctx), r.Deadline())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("task panicked", "task", name, "panic", p)
				done <- outcome{err: fmt.Errorf("%s: %w: panic: %v", name, common.ErrInternal, p)}
			}
		}()
		v, err := fn(taskCtx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && taskCtx.Err() == context.DeadlineExceeded {
			return zero, r.timeout(name, start)
		}
		return o.val, o.err
	case <-taskCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, r.timeout(name, start)
	}
}

func (r *Runner) timeout(name string, start time.Time) error {
	r.logger.Error("task timed out", "task", name, "elapsed_ms", time.Since(start).Milliseconds(), "deadline", r.Deadline())
	return common.NewAppError("TIMEOUT", fmt.Sprintf("%s did not finish within %s", name, r.Deadline()), common.ErrTimeout)
}
