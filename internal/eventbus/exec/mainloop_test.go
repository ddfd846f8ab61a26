// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package exec

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/eventbus/internal/metrics"
)

func stopLoop(t *testing.T, l *MainLoop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Stop(ctx))
}

func TestMainLoop_SequentialExecution(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := NewMainLoop(WithName("seq-test"))
	require.NoError(t, l.Start())
	defer stopLoop(t, l)

	var (
		mu     sync.Mutex
		result []int
		wg     sync.WaitGroup
	)
	wg.Add(100)
	for i := 0; i < 100; i++ {
		val := i
		require.NoError(t, l.Execute(func() {
			mu.Lock()
			result = append(result, val)
			mu.Unlock()
			wg.Done()
		}))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, result, 100)
	for i, v := range result {
		assert.Equal(t, i, v)
	}
}

func TestMainLoop_NeverOverlaps(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := NewMainLoop(WithName("overlap-test"))
	require.NoError(t, l.Start())
	defer stopLoop(t, l)

	var (
		inFlight atomic.Int32
		maxSeen  atomic.Int32
		wg       sync.WaitGroup
	)
	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			_ = l.Execute(func() {
				defer wg.Done()
				cur := inFlight.Add(1)
				if cur > maxSeen.Load() {
					maxSeen.Store(cur)
				}
				time.Sleep(time.Millisecond)
				inFlight.Add(-1)
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestMainLoop_ExecuteDoesNotWait(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := NewMainLoop(WithName("nowait-test"))
	require.NoError(t, l.Start())
	defer stopLoop(t, l)

	release := make(chan struct{})
	ran := make(chan struct{})
	require.NoError(t, l.Execute(func() {
		<-release
		close(ran)
	}))

	// Execute returned while the task is still blocked.
	select {
	case <-ran:
		t.Fatal("task finished before release")
	default:
	}
	close(release)
	<-ran
}

func TestMainLoop_SurvivesPanic(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var panics atomic.Int32
	l := NewMainLoop(
		WithName("panic-test"),
		WithPanicHandler(func(executor string, recovered any, stack []byte) {
			assert.Equal(t, "panic-test", executor)
			assert.Equal(t, "boom", recovered)
			assert.NotEmpty(t, stack)
			panics.Add(1)
		}),
	)
	require.NoError(t, l.Start())
	defer stopLoop(t, l)

	done := make(chan struct{})
	require.NoError(t, l.Execute(func() { panic("boom") }))
	require.NoError(t, l.Execute(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not continue after a panicking task")
	}
	assert.Equal(t, int32(1), panics.Load())
}

func TestMainLoop_StopDrainsQueue(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := NewMainLoop(WithName("drain-test"))
	var count atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Execute(func() { count.Add(1) }))
	}
	require.Equal(t, 10, l.Len())

	require.NoError(t, l.Start())
	stopLoop(t, l)

	assert.Equal(t, int32(10), count.Load())
	assert.ErrorIs(t, l.Execute(func() {}), ErrStopped)
}

func TestMainLoop_RunOnCallerGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := NewMainLoop(WithName("run-test"))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Execute(func() { cancel() }))
	err := l.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, l.Run(context.Background()), ErrAlreadyRunning)
	assert.ErrorIs(t, l.Start(), ErrAlreadyRunning)
	assert.ErrorIs(t, l.Execute(func() {}), ErrStopped)
}

func TestMainLoop_StopWithoutStart(t *testing.T) {
	l := NewMainLoop(WithName("never-ran-test"))
	discarded := metrics.MainTasksDiscardedTotal.WithLabelValues("never-ran-test")
	before := testutil.ToFloat64(discarded)

	var ran atomic.Bool
	require.NoError(t, l.Execute(func() { ran.Store(true) }))
	require.NoError(t, l.Execute(func() { ran.Store(true) }))
	require.NoError(t, l.Stop(context.Background()))

	assert.Equal(t, 0, l.Len())
	assert.False(t, ran.Load())
	assert.Equal(t, before+2, testutil.ToFloat64(discarded))
	assert.ErrorIs(t, l.Execute(func() {}), ErrStopped)
}

func TestMainLoop_DiscardDropsQueuedTasks(t *testing.T) {
	l := NewMainLoop(WithName("discard-test"))
	discarded := metrics.MainTasksDiscardedTotal.WithLabelValues("discard-test")
	before := testutil.ToFloat64(discarded)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Execute(func() { t.Error("discarded task ran") }))
	}
	// the path Run takes when its context ends with work still queued
	l.discard("context done")

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, before+3, testutil.ToFloat64(discarded))
	assert.ErrorIs(t, l.Execute(func() {}), ErrStopped)

	l.discard("context done")
	assert.Equal(t, before+3, testutil.ToFloat64(discarded), "empty queue is not counted")
}

func TestMainLoop_NilTask(t *testing.T) {
	l := NewMainLoop()
	assert.ErrorIs(t, l.Execute(nil), ErrNilTask)
}
