package reconcile

import "context"

// Task is the pending outcome of one asynchronous gateway call.
type Task struct {
	done chan struct{}
	err  error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed once the call's result has been applied or discarded.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err is valid after Done is closed.
func (t *Task) Err() error { return t.err }

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
