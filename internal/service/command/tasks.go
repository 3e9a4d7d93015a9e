package command

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Task is a fire-and-forget background job whose completion can still be observed.
type Task struct {
	name string
	done chan struct{}
	err  error
}

// Done is closed when the task finishes.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the task's error. It is only meaningful after Done is closed.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

// Tasks runs background jobs detached from the caller's cancellation so the
// host can flush them on shutdown.
type Tasks struct {
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewTasks creates an empty task group.
func NewTasks(logger zerolog.Logger) *Tasks {
	return &Tasks{logger: logger}
}

// Go starts fn in the background. ctx values are kept but its cancellation
// is not, so a finished request does not abort its publishes.
func (g *Tasks) Go(ctx context.Context, name string, fn func(ctx context.Context) error) *Task {
	t := &Task{name: name, done: make(chan struct{})}
	ctx = context.WithoutCancel(ctx)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer close(t.done)

		t.err = fn(ctx)
		if t.err != nil {
			g.logger.Warn().Err(t.err).Str("task", name).Msg("Background task failed")
		}
	}()
	return t
}

// Flush waits for every started task or for ctx to end.
func (g *Tasks) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
