// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/eventbus/internal/eventbus/exec"
	"github.com/ManuGH/eventbus/internal/log"
	"github.com/ManuGH/eventbus/internal/metrics"
	"github.com/ManuGH/eventbus/internal/telemetry"
)

const tracerName = "github.com/ManuGH/eventbus/internal/eventbus"

// Bus routes posted messages to registered handlers.
type Bus struct {
	name     string
	registry *Registry
	matching TypeMatching
	reporter ErrorReporter
	tracer   trace.Tracer
	logger   zerolog.Logger

	posting    exec.Executor
	main       exec.Executor
	background exec.Executor

	// owned executors are stopped by Close
	mainLoop *exec.MainLoop
	pool     *exec.BackgroundPool

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	posted    atomic.Uint64
	unmatched atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	stale     atomic.Uint64
	rejected  atomic.Uint64
}

// Stats is a point-in-time view of the bus counters.
type Stats struct {
	Subscribers int
	Posted      uint64
	Unmatched   uint64
	Delivered   uint64
	Failed      uint64
	Stale       uint64
	Rejected    uint64

	MainQueueDepth    int
	BackgroundWorkers int
}

// New creates a bus. Unless WithMainExecutor or WithHostedMainLoop is given,
// the bus starts its own main loop goroutine.
func New(opts ...Option) *Bus {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	b := &Bus{
		name:     o.name,
		registry: NewRegistry(),
		matching: o.matching,
		reporter: o.reporter,
		logger: log.Derive(func(c *zerolog.Context) {
			*c = c.Str(log.FieldComponent, "eventbus").Str("bus", o.name)
		}),
	}
	if b.reporter == nil {
		b.reporter = NewLogReporter(b.logger)
	}

	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	b.tracer = tp.Tracer(tracerName)

	b.posting = exec.NewImmediate(exec.WithName(o.name + ".posting"))
	b.pool = exec.NewBackgroundPool(
		exec.WithName(o.name+".background"),
		exec.WithIdleTimeout(o.idleTimeout),
	)
	b.background = b.pool

	if o.mainExecutor != nil {
		b.main = o.mainExecutor
	} else {
		b.mainLoop = exec.NewMainLoop(
			exec.WithName(o.name+".main"),
			exec.WithQueueWarnDepth(o.warnDepth),
		)
		if !o.hostedMainLoop {
			// a fresh loop cannot already be running
			_ = b.mainLoop.Start()
		}
		b.main = b.mainLoop
	}
	return b
}

var (
	defaultBus  *Bus
	defaultOnce sync.Once
)

// Default returns the process-wide bus, creating it on first use. It is
// never closed.
func Default() *Bus {
	defaultOnce.Do(func() {
		defaultBus = New(WithName("default"))
	})
	return defaultBus
}

// MainLoop returns the bus-owned main loop, or nil when Main handlers run on
// a host executor.
func (b *Bus) MainLoop() *exec.MainLoop {
	return b.mainLoop
}

// Register discovers the handlers of subscriber and adds it to the bus.
// Invalid handlers are reported and skipped; the returned error joins those
// diagnostics. A subscriber registered twice keeps its first registration.
func (b *Bus) Register(subscriber any) error {
	ctx := context.Background()
	subName := typeName(reflect.TypeOf(subscriber))

	if b.closed.Load() {
		return ErrBusClosed
	}
	if !hasIdentity(subscriber) {
		err := &RegistrationError{Subscriber: subName, Err: ErrInvalidSubscriber}
		metrics.IncRegistration("invalid")
		b.reporter.Report(ctx, err)
		return err
	}
	if b.registry.Registered(subscriber) {
		return b.rejectDuplicate(ctx, subName)
	}

	handlers, diags := discover(subscriber)
	for _, d := range diags {
		b.reporter.Report(ctx, d)
	}

	entry, err := b.registry.Register(subscriber, handlers)
	if errors.Is(err, ErrAlreadyRegistered) {
		// lost a race with a concurrent Register of the same subscriber
		return errors.Join(append(diags, b.rejectDuplicate(ctx, subName))...)
	}
	if err != nil {
		regErr := &RegistrationError{Subscriber: subName, Err: err}
		b.reporter.Report(ctx, regErr)
		return errors.Join(append(diags, regErr)...)
	}

	result := "ok"
	if len(diags) > 0 {
		result = "partial"
	}
	metrics.IncRegistration(result)
	metrics.AddRegisteredSubscribers(1)

	b.logger.Debug().
		Str(log.FieldEntryID, entry.ID()).
		Str(log.FieldSubscriber, subName).
		Int("handlers", len(handlers)).
		Int("rejected", len(diags)).
		Msg("subscriber registered")

	return errors.Join(diags...)
}

func (b *Bus) rejectDuplicate(ctx context.Context, subName string) error {
	err := &RegistrationError{Subscriber: subName, Err: ErrAlreadyRegistered}
	metrics.IncRegistration("duplicate")
	b.reporter.Report(ctx, err)
	return err
}

// Unregister removes subscriber. Unknown subscribers are ignored.
// Invocations already queued for it are skipped.
func (b *Bus) Unregister(subscriber any) {
	entry, ok := b.registry.Unregister(subscriber)
	if !ok {
		return
	}
	metrics.AddRegisteredSubscribers(-1)
	b.logger.Debug().
		Str(log.FieldEntryID, entry.ID()).
		Str(log.FieldSubscriber, typeName(reflect.TypeOf(subscriber))).
		Msg("subscriber unregistered")
}

// IsRegistered reports whether subscriber is currently registered.
func (b *Bus) IsRegistered(subscriber any) bool {
	return b.registry.Registered(subscriber)
}

// Post delivers msg to every matching handler. Posting handlers have run
// when Post returns; Main and Background handlers are only scheduled.
func (b *Bus) Post(msg any) {
	b.PostContext(context.Background(), msg)
}

// PostContext is Post with a context for tracing and error reports. The
// context is not used for cancellation.
func (b *Bus) PostContext(ctx context.Context, msg any) {
	if ctx == nil {
		ctx = context.Background()
	}
	msgType := reflect.TypeOf(msg)

	ctx, span := b.tracer.Start(ctx, "eventbus.post",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(telemetry.PostAttributes(b.name, typeName(msgType))...),
	)
	defer span.End()

	n, err := b.dispatch(ctx, msg, msgType)
	span.SetAttributes(telemetry.Targets(n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (b *Bus) dispatch(ctx context.Context, msg any, msgType reflect.Type) (int, error) {
	if b.closed.Load() {
		b.reporter.Report(ctx, ErrBusClosed)
		return 0, ErrBusClosed
	}
	if msg == nil {
		b.reporter.Report(ctx, ErrNilMessage)
		return 0, ErrNilMessage
	}

	b.posted.Add(1)
	metrics.IncPost()

	targets := b.registry.Match(msgType, b.matching)
	if len(targets) == 0 {
		b.unmatched.Add(1)
		metrics.IncUnmatchedPost()
		return 0, nil
	}

	for _, t := range targets {
		b.route(ctx, t, msg, msgType)
	}
	return len(targets), nil
}

func (b *Bus) route(ctx context.Context, t Target, msg any, msgType reflect.Type) {
	mode := t.Handler.mode
	ex := b.executorFor(mode)
	if err := ex.Execute(func() { b.invoke(ctx, t, msg, msgType) }); err != nil {
		b.rejected.Add(1)
		metrics.IncHandlerFailure(mode.String(), "rejected")
		b.reporter.Report(ctx, b.invocationError(t, msgType, fmt.Errorf("schedule: %w", err)))
	}
}

func (b *Bus) executorFor(mode ThreadMode) exec.Executor {
	switch mode {
	case Main:
		return b.main
	case Background:
		return b.background
	default:
		return b.posting
	}
}

func (b *Bus) invoke(ctx context.Context, t Target, msg any, msgType reflect.Type) {
	mode := t.Handler.mode.String()
	if !t.Entry.Active() {
		b.stale.Add(1)
		metrics.IncStaleSkip(mode)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.failed.Add(1)
			metrics.IncHandlerFailure(mode, "panic")
			err := b.invocationError(t, msgType, ErrHandlerPanic)
			err.Panic = r
			err.Stack = debug.Stack()
			// only records while a Posting handler runs inside the post span
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				attrs := append(
					telemetry.InvocationAttributes(err.EntryID, err.Subscriber, err.Handler, mode),
					telemetry.ErrorAttributes("panic")...,
				)
				span.RecordError(err, trace.WithAttributes(attrs...))
			}
			b.reporter.Report(ctx, err)
		}
	}()

	t.Handler.invoke(msg)
	b.delivered.Add(1)
	metrics.IncDelivery(mode)
}

func (b *Bus) invocationError(t Target, msgType reflect.Type, err error) *InvocationError {
	return &InvocationError{
		EntryID:     t.Entry.ID(),
		Subscriber:  typeName(reflect.TypeOf(t.Entry.Subscriber())),
		Handler:     t.Handler.name,
		MessageType: typeName(msgType),
		Mode:        t.Handler.mode,
		Err:         err,
	}
}

// Closed reports whether Close has been called.
func (b *Bus) Closed() bool {
	return b.closed.Load()
}

// Stats returns the current counters.
func (b *Bus) Stats() Stats {
	s := Stats{
		Subscribers:       b.registry.Len(),
		Posted:            b.posted.Load(),
		Unmatched:         b.unmatched.Load(),
		Delivered:         b.delivered.Load(),
		Failed:            b.failed.Load(),
		Stale:             b.stale.Load(),
		Rejected:          b.rejected.Load(),
		BackgroundWorkers: b.pool.Workers(),
	}
	if b.mainLoop != nil {
		s.MainQueueDepth = b.mainLoop.Len()
	}
	return s
}

// Close rejects further posts and registrations, then stops the bus-owned
// executors. Queued Main handlers run before the main loop exits. Close is
// bounded by ctx and idempotent.
func (b *Bus) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		var errs []error
		if b.mainLoop != nil {
			if err := b.mainLoop.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("stop main loop: %w", err))
			}
		}
		if err := b.pool.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop background pool: %w", err))
		}
		b.closeErr = errors.Join(errs...)
		b.logger.Debug().Err(b.closeErr).Msg("bus closed")
	})
	return b.closeErr
}
