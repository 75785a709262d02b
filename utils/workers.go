package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// Workers runs tasks on goroutines sharing one context, which Stop cancels.
type Workers struct {
	ctx    context.Context
	cancel func()

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

// NewWorkers returns running Workers with no tasks.
func NewWorkers() *Workers {
	ctx, cancel := context.WithCancel(context.Background())
	return &Workers{ctx: ctx, cancel: cancel}
}

// Go starts fn on its own goroutine and reports whether it did. Once Stop has been called no
// new task is started.
func (w *Workers) Go(fn func(ctx context.Context)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	w.running.Add(1)
	goutils.PanicCapturingGo(func() {
		defer w.running.Done()
		fn(w.ctx)
	})
	return true
}

// Stop cancels the shared context and waits for running tasks to return. Tasks calling Go
// while Stop waits are refused rather than blocked. Stop may be called more than once.
func (w *Workers) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	w.cancel()
	w.running.Wait()
}

// Stopped reports whether Stop has been called.
func (w *Workers) Stopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// Context is cancelled by Stop.
func (w *Workers) Context() context.Context {
	return w.ctx
}
