// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package exec

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/eventbus/internal/log"
	"github.com/ManuGH/eventbus/internal/metrics"
)

// MainLoop is a single serial execution context. Tasks run one at a time in
// the order they were submitted. The queue is unbounded so Execute never
// blocks the submitter.
type MainLoop struct {
	s settings

	mu     sync.Mutex
	queue  []func()
	closed bool
	warned bool

	wake     chan struct{}
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once

	running atomic.Bool
}

// NewMainLoop creates a loop. Nothing runs until Start or Run is called;
// tasks submitted before that are kept in order.
func NewMainLoop(opts ...Option) *MainLoop {
	return &MainLoop{
		s:    newSettings("main", opts),
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Name returns the loop name used in logs and metrics.
func (l *MainLoop) Name() string {
	return l.s.name
}

// Execute appends task to the queue.
func (l *MainLoop) Execute(task func()) error {
	if task == nil {
		return ErrNilTask
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrStopped
	}
	l.queue = append(l.queue, task)
	depth := len(l.queue)
	warn := l.s.warnDepth > 0 && depth >= l.s.warnDepth && !l.warned
	if warn {
		l.warned = true
	}
	l.mu.Unlock()

	metrics.SetMainQueueDepth(l.s.name, depth)
	if warn {
		logger := log.WithComponent("eventbus.exec")
		logger.Warn().
			Str(log.FieldExecutor, l.s.name).
			Int(log.FieldQueueDepth, depth).
			Msg("main loop queue is backing up")
	}

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of queued tasks.
func (l *MainLoop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Start runs the loop on a new goroutine.
func (l *MainLoop) Start() error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	go func() { _ = l.loop(context.Background()) }()
	return nil
}

// Run executes queued tasks on the calling goroutine until ctx is done or
// Stop is called. A host uses it to dedicate its main goroutine to the loop.
func (l *MainLoop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return l.loop(ctx)
}

func (l *MainLoop) loop(ctx context.Context) error {
	defer close(l.done)
	for {
		if task, ok := l.next(); ok {
			runSafely(l.s.name, task, l.s.panicHandler)
			continue
		}
		select {
		case <-l.wake:
		case <-l.quit:
			// Stop closed the queue; finish what was accepted before it.
			for {
				task, ok := l.next()
				if !ok {
					return nil
				}
				runSafely(l.s.name, task, l.s.panicHandler)
			}
		case <-ctx.Done():
			l.discard("context done")
			return ctx.Err()
		}
	}
}

func (l *MainLoop) next() (func(), bool) {
	l.mu.Lock()
	if len(l.queue) == 0 {
		l.mu.Unlock()
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	depth := len(l.queue)
	if depth < l.s.warnDepth/2 {
		l.warned = false
	}
	l.mu.Unlock()

	metrics.SetMainQueueDepth(l.s.name, depth)
	return task, true
}

func (l *MainLoop) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// discard closes the loop and drops whatever is still queued, logging and
// counting the dropped tasks.
func (l *MainLoop) discard(reason string) {
	l.mu.Lock()
	l.closed = true
	n := len(l.queue)
	l.queue = nil
	l.mu.Unlock()

	metrics.SetMainQueueDepth(l.s.name, 0)
	if n == 0 {
		return
	}
	metrics.AddMainTasksDiscarded(l.s.name, n)
	logger := log.WithComponent("eventbus.exec")
	logger.Warn().
		Str(log.FieldExecutor, l.s.name).
		Int(log.FieldQueueDepth, n).
		Str("reason", reason).
		Msg("main loop ended with queued tasks; discarded")
}

// Stop rejects new tasks, lets the loop drain what is already queued and
// waits for it to exit or for ctx to be done. Stopping a loop that never ran
// discards its queue; discarded tasks are logged and counted.
func (l *MainLoop) Stop(ctx context.Context) error {
	l.close()
	l.quitOnce.Do(func() { close(l.quit) })

	if !l.running.Load() {
		l.discard("loop never ran")
		return nil
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
