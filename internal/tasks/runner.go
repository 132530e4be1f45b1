// Package tasks runs fire-and-forget side effects on a bounded worker pool.
// A task's failure is only ever logged.
package tasks

import (
	"context"
	"sync"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/panjf2000/ants/v2"
)

// DefaultPoolSize is used when a size below 1 is requested.
const DefaultPoolSize = 4

// Runner owns the pool. Tasks run with a background context so they outlive
// the request that started them.
type Runner struct {
	pool   *ants.Pool
	wg     sync.WaitGroup
	logger *log.Logger
}

type antsLogger struct {
	l *log.Logger
}

func (a antsLogger) Printf(format string, args ...interface{}) {
	a.l.Debugf(format, args...)
}

// New creates a runner with size workers.
func New(size int, l *log.Logger) (*Runner, error) {
	if size < 1 {
		size = DefaultPoolSize
	}
	lg := logger.OrDefault(l, "tasks")

	pool, err := ants.NewPool(size,
		ants.WithLogger(antsLogger{lg}),
		ants.WithPanicHandler(func(p interface{}) {
			lg.Error("task panicked", "panic", p)
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Runner{pool: pool, logger: lg}, nil
}

// Go schedules fn. If the pool no longer accepts work the task is dropped
// and logged.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	err := r.pool.Submit(func() {
		defer r.wg.Done()
		if err := fn(context.Background()); err != nil {
			r.logger.Warn("background task failed", "task", name, "err", err)
			return
		}
		r.logger.Debug("background task done", "task", name)
	})
	if err != nil {
		r.wg.Done()
		r.logger.Warn("background task dropped", "task", name, "err", err)
	}
}

// Wait blocks until every scheduled task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Running reports the number of busy workers.
func (r *Runner) Running() int {
	return r.pool.Running()
}

// Release waits for outstanding tasks and closes the pool.
func (r *Runner) Release() {
	r.Wait()
	r.pool.Release()
}
