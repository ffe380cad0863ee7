package janitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Task removes expired state and reports how many entries it dropped.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Sweep adapts an in-memory sweep function (session log, response cache) to a Task.
func Sweep(name string, fn func() int) Task {
	return Task{Name: name, Run: func(context.Context) (int, error) { return fn(), nil }}
}

// Worker runs its tasks on a fixed interval.
type Worker struct {
	tasks  []Task
	every  time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker. If interval is <= 0, it defaults to one minute.
func NewWorker(interval time.Duration, tasks ...Task) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		tasks:  tasks,
		every:  interval,
		logger: slog.Default().With("component", "janitor"),
	}
}

// Run sweeps until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("sweep failed", "error", err)
		}
	}
}

// RunOnce runs every task once and returns the total number of entries
// removed. A failing task does not stop the others.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, t := range w.tasks {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := t.Run(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		if n > 0 {
			w.logger.Debug("swept", "task", t.Name, "removed", n)
		}
		total += n
	}
	return total, errors.Join(errs...)
}
