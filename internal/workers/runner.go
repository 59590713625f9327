package workers

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"passrelay/internal/platform/metrics"
)

// WriteTimeout bounds the bookkeeping writes a task makes after its own work.
const WriteTimeout = 5 * time.Second

// WriteContext returns a context for those writes. It keeps ctx's values but
// not its deadline, so a task that ran out of time can still record that.
func WriteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), WriteTimeout)
}

// Runner executes fire-and-forget tasks after the HTTP response has been
// written. Tasks are tracked so shutdown can wait for them.
type Runner struct {
	wg      sync.WaitGroup
	timeout time.Duration
	metrics metrics.Recorder
	logger  zerolog.Logger
}

// NewRunner bounds each task by timeout; zero means no deadline.
func NewRunner(timeout time.Duration, rec metrics.Recorder) *Runner {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Runner{
		timeout: timeout,
		metrics: rec,
		logger:  log.With().Str("component", "background").Logger(),
	}
}

// Go runs task on its own goroutine. The task context keeps ctx's values but
// not its cancellation, so it outlives the request that started it.
func (r *Runner) Go(ctx context.Context, name string, task func(ctx context.Context)) {
	taskCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc = func() {}
	if r.timeout > 0 {
		taskCtx, cancel = context.WithTimeout(taskCtx, r.timeout)
	}

	r.wg.Add(1)
	r.metrics.BackgroundTaskStarted()
	go func() {
		defer r.wg.Done()
		defer r.metrics.BackgroundTaskFinished()
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error().
					Str("task", name).
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in background task")
			}
		}()
		task(taskCtx)
	}()
}

// Flush waits for running tasks for at most timeout. It reports whether all
// tasks finished; tasks still running afterwards are abandoned.
func (r *Runner) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		r.logger.Warn().Dur("timeout", timeout).Msg("Background tasks still running at shutdown")
		return false
	}
}
