package async

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by AwaitWithTimeout when the future did not complete in time.
var ErrTimeout = errors.New("async: operation timed out waiting for future completion")

// Future represents the result of an asynchronous computation.
type Future[T any] struct {
	result T
	err    error
	done   chan struct{}
}

// Go runs fn on a new goroutine and returns its Future.
// The context is handed to fn untouched; cancelling it does not abort fn.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.result, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns an already completed Future.
func Resolved[T any](result T, err error) *Future[T] {
	f := &Future[T]{result: result, err: err, done: make(chan struct{})}
	close(f.done)
	return f
}

// Done returns a channel that is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await waits for the asynchronous function to complete and returns its result and error.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.result, f.err
}

// AwaitContext waits for completion or for ctx to be done, whichever comes first.
// Giving up on the wait does not stop the computation.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout waits for the asynchronous function to complete with a timeout.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		var zero T
		return zero, ErrTimeout
	}
}

// IsComplete checks if the asynchronous function is complete without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
