package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestSubmitResolves(t *testing.T) {
	sw := NewWorkers()
	defer sw.Stop()

	f := Submit(sw, func(ctx context.Context) (int, error) { return 7, nil })
	v, err := f.Wait(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 7)

	v, ok, err := f.Result()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 7)
}

func TestSubmitRejects(t *testing.T) {
	sw := NewWorkers()
	defer sw.Stop()

	boom := errors.New("boom")
	_, err := Submit(sw, func(ctx context.Context) (string, error) { return "", boom }).Wait(context.Background())
	test.That(t, err, test.ShouldEqual, boom)

	_, err = Submit(sw, func(ctx context.Context) (string, error) { panic("bad payload") }).Wait(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad payload")
}

func TestFuturePending(t *testing.T) {
	sw := NewWorkers()
	release := make(chan struct{})
	f := Submit(sw, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	_, ok, _ := f.Result()
	test.That(t, ok, test.ShouldBeFalse)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	test.That(t, err, test.ShouldEqual, context.DeadlineExceeded)

	close(release)
	<-f.Done()
	sw.Stop()
}

func TestSubmitAfterStop(t *testing.T) {
	sw := NewWorkers()
	sw.Stop()

	_, err := Submit(sw, func(ctx context.Context) (int, error) { return 1, nil }).Wait(context.Background())
	test.That(t, err, test.ShouldEqual, ErrWorkersStopped)
}

func TestSubmitWhileStopping(t *testing.T) {
	sw := NewWorkers()
	inner := make(chan *Future[int], 1)
	Submit(sw, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		// submitting from a task that Stop is waiting on must not block Stop
		inner <- Submit(sw, func(context.Context) (int, error) { return 2, nil })
		return 1, nil
	})

	stopped := make(chan struct{})
	go func() {
		sw.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	test.That(t, sw.Stopped(), test.ShouldBeTrue)
	_, err := (<-inner).Wait(context.Background())
	test.That(t, err, test.ShouldEqual, ErrWorkersStopped)
	sw.Stop()
}

func TestWorkersRecoverPanics(t *testing.T) {
	sw := NewWorkers()
	test.That(t, sw.Go(func(context.Context) { panic("worker") }), test.ShouldBeTrue)
	sw.Stop()
	test.That(t, sw.Go(func(context.Context) {}), test.ShouldBeFalse)
	test.That(t, sw.Context().Err(), test.ShouldEqual, context.Canceled)
}
