package utils

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrWorkersStopped rejects tasks submitted after their workers were stopped.
var ErrWorkersStopped = errors.New("workers stopped")

// Future is the eventual result of a task started with Submit.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) settle(value T, err error) {
	f.once.Do(func() {
		f.value, f.err = value, err
		close(f.done)
	})
}

// Done is closed once the task has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking; ok is false while the task is still running.
func (f *Future[T]) Result() (value T, ok bool, err error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		var zero T
		return zero, false, nil
	}
}

// Rejected returns a future that already failed with err.
func Rejected[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(zero, err)
	return f
}

// Submit runs task on one of w's goroutines. A panic inside task rejects the future, as does
// submitting after w was stopped.
func Submit[T any](w *Workers, task func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	started := w.Go(func(ctx context.Context) {
		var zero T
		defer func() {
			if r := recover(); r != nil {
				f.settle(zero, errors.Errorf("task panicked: %v", r))
			}
		}()
		value, err := task(ctx)
		f.settle(value, err)
	})
	if !started {
		return Rejected[T](ErrWorkersStopped)
	}
	return f
}
