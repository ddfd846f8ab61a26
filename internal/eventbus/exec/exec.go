// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package exec

import (
	"errors"
	"runtime/debug"
	"time"

	"github.com/ManuGH/eventbus/internal/log"
	"github.com/ManuGH/eventbus/internal/metrics"
)

var (
	// ErrStopped is returned when a task is submitted to a stopped executor.
	ErrStopped = errors.New("exec: executor stopped")

	// ErrAlreadyRunning is returned when a main loop is run twice.
	ErrAlreadyRunning = errors.New("exec: loop already running")

	// ErrNilTask is returned when a nil task is submitted.
	ErrNilTask = errors.New("exec: nil task")
)

// Executor runs tasks on an execution context. Execute must not wait for the
// task to finish unless the executor runs tasks on the caller's goroutine.
type Executor interface {
	Execute(task func()) error
}

// Func adapts a host scheduling primitive (for example a UI toolkit's
// "run on main thread" call) to the Executor interface.
type Func func(task func())

// Execute implements Executor.
func (f Func) Execute(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	f(task)
	return nil
}

// PanicHandler is called when a task panics inside an executor. It receives
// the executor name, the recovered value and the stack at the panic site.
type PanicHandler func(executor string, recovered any, stack []byte)

// Option configures an executor.
type Option func(*settings)

type settings struct {
	name         string
	panicHandler PanicHandler
	idleTimeout  time.Duration
	warnDepth    int
}

const (
	// DefaultIdleTimeout is how long an idle background worker waits for
	// work before it exits.
	DefaultIdleTimeout = 60 * time.Second
	// DefaultWarnDepth is the main loop queue depth that triggers a
	// backlog warning.
	DefaultWarnDepth = 1024
)

func newSettings(name string, opts []Option) settings {
	s := settings{
		name:         name,
		panicHandler: logPanic,
		idleTimeout:  DefaultIdleTimeout,
		warnDepth:    DefaultWarnDepth,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithName sets the executor name used in logs and metric labels.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithPanicHandler replaces the default logging panic handler.
func WithPanicHandler(h PanicHandler) Option {
	return func(s *settings) {
		if h != nil {
			s.panicHandler = h
		}
	}
}

// WithIdleTimeout sets how long a background worker waits for work before
// it exits. Only BackgroundPool uses it.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithQueueWarnDepth sets the main loop queue depth at which a warning is
// logged. Zero disables the warning.
func WithQueueWarnDepth(depth int) Option {
	return func(s *settings) {
		if depth >= 0 {
			s.warnDepth = depth
		}
	}
}

// runSafely runs task and converts a panic into a PanicHandler call so the
// calling goroutine survives.
func runSafely(name string, task func(), h PanicHandler) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncExecutorPanic(name)
			if h == nil {
				return
			}
			stack := debug.Stack()
			func() {
				// a panicking panic handler must not take the worker down either
				defer func() { _ = recover() }()
				h(name, r, stack)
			}()
		}
	}()
	task()
}

func logPanic(executor string, recovered any, stack []byte) {
	logger := log.WithComponent("eventbus.exec")
	logger.Error().
		Str(log.FieldExecutor, executor).
		Interface("panic", recovered).
		Bytes("stack", stack).
		Msg("task panicked")
}
