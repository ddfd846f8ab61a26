// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package exec

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/eventbus/internal/metrics"
)

// BackgroundPool is an elastic worker pool. A task is handed to an idle
// worker when one is waiting, otherwise a new worker is started. Workers exit
// after the idle timeout. Tasks carry no ordering guarantee.
type BackgroundPool struct {
	s settings

	handoff chan func()
	quit    chan struct{}
	wg      sync.WaitGroup

	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once

	live atomic.Int64
	idle atomic.Int64
}

// NewBackgroundPool creates an empty pool. Workers are spawned on demand.
func NewBackgroundPool(opts ...Option) *BackgroundPool {
	return &BackgroundPool{
		s:       newSettings("background", opts),
		handoff: make(chan func()),
		quit:    make(chan struct{}),
	}
}

// Execute hands task to a worker and returns without waiting for it.
func (p *BackgroundPool) Execute(task func()) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrStopped
	}

	select {
	case p.handoff <- task:
		return nil
	default:
	}

	p.wg.Add(1)
	p.live.Add(1)
	metrics.AddBackgroundWorkers(p.s.name, 1)
	go p.worker(task)
	return nil
}

// Workers returns the number of live worker goroutines.
func (p *BackgroundPool) Workers() int {
	return int(p.live.Load())
}

// Idle returns the number of workers waiting for a task.
func (p *BackgroundPool) Idle() int {
	return int(p.idle.Load())
}

func (p *BackgroundPool) worker(task func()) {
	defer func() {
		p.live.Add(-1)
		metrics.AddBackgroundWorkers(p.s.name, -1)
		p.wg.Done()
	}()

	idle := time.NewTimer(p.s.idleTimeout)
	defer idle.Stop()

	for {
		runSafely(p.s.name, task, p.s.panicHandler)

		idle.Reset(p.s.idleTimeout)
		p.idle.Add(1)
		select {
		case task = <-p.handoff:
			p.idle.Add(-1)
			idle.Stop()
		case <-idle.C:
			p.idle.Add(-1)
			return
		case <-p.quit:
			p.idle.Add(-1)
			return
		}
	}
}

// Stop rejects new tasks and waits for running tasks to finish or for ctx to
// be done.
func (p *BackgroundPool) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.quit)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
