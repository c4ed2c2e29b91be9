// Package async provides deferred results for background work.
package async

import "context"

// Task is a deferred result computed on a background goroutine. A
// task completes exactly once; its value and error are immutable
// afterwards and safe to read from any number of waiters.
type Task[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// Go runs fn on a new goroutine and returns its deferred result. The
// caller's goroutine never blocks.
func Go[T any](fn func() (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.result, t.err = fn()
	}()
	return t
}

// GoErr runs an error-only fn as a task with no value.
func GoErr(fn func() error) *Task[struct{}] {
	return Go(func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// Await blocks until the task completes or ctx is canceled. On
// cancellation the wait is abandoned; the work itself keeps running
// and can be awaited again.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel that is closed when the task completes.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}
