// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/ManuGH/eventbus/internal/eventbus/exec"
)

type recorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *recorder) Report(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

func newTestBus(t *testing.T, opts ...Option) (*Bus, *recorder) {
	t.Helper()
	rec := &recorder{}
	b := New(append([]Option{WithName(t.Name()), WithErrorReporter(rec)}, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, b.Close(ctx))
	})
	return b, rec
}

// funcSubscriber lists a fixed set of handlers.
type funcSubscriber struct {
	handlers []Handler
}

func (s *funcSubscriber) EventHandlers() []Handler { return s.handlers }

func subscriber(handlers ...Handler) *funcSubscriber {
	return &funcSubscriber{handlers: handlers}
}

func TestBus_PostingHandlerRunsBeforePostReturns(t *testing.T) {
	b, _ := newTestBus(t)

	var got []string
	require.NoError(t, b.Register(subscriber(On(func(s string) { got = append(got, s) }))))

	b.Post("a")
	assert.Equal(t, []string{"a"}, got)
	b.Post("b")
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestBus_NoDeliveryAfterUnregister(t *testing.T) {
	b, _ := newTestBus(t)

	var calls int
	sub := subscriber(On(func(string) { calls++ }))
	require.NoError(t, b.Register(sub))

	b.Post("x")
	b.Unregister(sub)
	b.Post("y")

	assert.Equal(t, 1, calls)
	assert.False(t, b.IsRegistered(sub))
	b.Unregister(sub) // unknown subscribers are ignored
}

func TestBus_UnmatchedPostIsNoop(t *testing.T) {
	b, rec := newTestBus(t)
	require.NoError(t, b.Register(subscriber(On(func(int) { t.Error("int handler called") }))))

	require.NotPanics(t, func() { b.Post("nobody listens") })

	s := b.Stats()
	assert.Equal(t, uint64(1), s.Posted)
	assert.Equal(t, uint64(1), s.Unmatched)
	assert.Equal(t, uint64(0), s.Delivered)
	assert.Empty(t, rec.Errors())
}

func TestBus_MainHandlersRunSeriallyInOrder(t *testing.T) {
	b, _ := newTestBus(t)

	var (
		got     []int
		running atomic.Int32
		overlap atomic.Bool
	)
	require.NoError(t, b.Register(subscriber(On(func(n int) {
		if running.Add(1) > 1 {
			overlap.Store(true)
		}
		got = append(got, n)
		running.Add(-1)
	}, Mode(Main)))))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			b.Post(i)
		}
	}()
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Close(ctx)) // drains the main queue

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
	assert.False(t, overlap.Load())
}

func TestBus_PostDoesNotWaitForMainHandlers(t *testing.T) {
	b, _ := newTestBus(t)

	release := make(chan struct{})
	done := make(chan struct{})
	require.NoError(t, b.Register(subscriber(On(func(string) {
		<-release
		close(done)
	}, Mode(Main)))))

	returned := make(chan struct{})
	go func() {
		b.Post("block")
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Post waited for a Main handler")
	}
	close(release)
	<-done
}

func TestBus_BackgroundHandlersRunConcurrently(t *testing.T) {
	b, _ := newTestBus(t)

	// each handler blocks until both have started, so a single post only
	// completes if its two Background invocations overlap
	var started sync.WaitGroup
	started.Add(2)
	done := make(chan string, 2)
	handler := func(name string) Handler {
		return On(func(int) {
			started.Done()
			started.Wait()
			done <- name
		}, Mode(Background), Named(name))
	}
	require.NoError(t, b.Register(subscriber(handler("first"), handler("second"))))

	b.Post(1)

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case name := <-done:
			got[name] = true
		case <-time.After(2 * time.Second):
			t.Fatal("background handlers did not run concurrently")
		}
	}
	assert.Equal(t, map[string]bool{"first": true, "second": true}, got)
}

func TestBus_DuplicateRegistrationDeliversOnce(t *testing.T) {
	b, rec := newTestBus(t)

	var calls int
	sub := subscriber(On(func(string) { calls++ }))
	require.NoError(t, b.Register(sub))

	err := b.Register(sub)
	require.ErrorIs(t, err, ErrAlreadyRegistered)
	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "*eventbus.funcSubscriber", regErr.Subscriber)

	b.Post("once")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, b.Stats().Subscribers)
	require.Len(t, rec.Errors(), 1)
	assert.ErrorIs(t, rec.Errors()[0], ErrAlreadyRegistered)
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	b, rec := newTestBus(t)

	var got []string
	first := subscriber(On(func(s string) { got = append(got, "first:"+s) }))
	broken := subscriber(On(func(string) { panic("handler failed") }, Named("broken")))
	last := subscriber(On(func(s string) { got = append(got, "last:"+s) }))
	for _, s := range []*funcSubscriber{first, broken, last} {
		require.NoError(t, b.Register(s))
	}

	require.NotPanics(t, func() { b.Post("m") })
	assert.Equal(t, []string{"first:m", "last:m"}, got)

	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrHandlerPanic)

	var invErr *InvocationError
	require.ErrorAs(t, errs[0], &invErr)
	assert.Equal(t, "broken", invErr.Handler)
	assert.Equal(t, "string", invErr.MessageType)
	assert.Equal(t, Posting, invErr.Mode)
	assert.Equal(t, "handler failed", invErr.Panic)
	assert.NotEmpty(t, invErr.Stack)
	assert.Nil(t, invErr.PanicError())

	s := b.Stats()
	assert.Equal(t, uint64(2), s.Delivered)
	assert.Equal(t, uint64(1), s.Failed)
}

func TestBus_PanicInBackgroundHandlerIsReported(t *testing.T) {
	b, rec := newTestBus(t)

	boom := errors.New("boom")
	require.NoError(t, b.Register(subscriber(On(func(int) { panic(boom) }, Mode(Background)))))
	b.Post(1)

	require.Eventually(t, func() bool { return len(rec.Errors()) == 1 }, 2*time.Second, 5*time.Millisecond)
	var invErr *InvocationError
	require.ErrorAs(t, rec.Errors()[0], &invErr)
	assert.Equal(t, Background, invErr.Mode)
	assert.ErrorIs(t, invErr.PanicError(), boom)
}

// Two screens: text shown immediately, user rendered on the main loop.
func TestBus_ScenarioTextAndUser(t *testing.T) {
	b, rec := newTestBus(t, WithHostedMainLoop())

	var (
		text  string
		users []User
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, b.Register(subscriber(On(func(s string) { text = s }))))
	require.NoError(t, b.Register(subscriber(On(func(u User) {
		users = append(users, u)
		cancel()
	}, Mode(Main)))))

	posted := make(chan struct{})
	go func() {
		defer close(posted)
		b.Post("111")
		b.Post(User{Name: "123"})
	}()
	<-posted

	assert.Equal(t, "111", text)
	assert.Empty(t, users, "Main handler must wait for the main loop")

	// the test goroutine plays the main thread
	err := b.MainLoop().Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []User{{Name: "123"}}, users)
	assert.Empty(t, rec.Errors())
}

func TestBus_ScenarioInvalidHandlerSkipped(t *testing.T) {
	b, rec := newTestBus(t)

	screen := &scannedScreen{}
	err := b.Register(screen)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParamCount)
	assert.ErrorIs(t, err, ErrHasReturnValue)
	assert.True(t, b.IsRegistered(screen))
	assert.Len(t, rec.Errors(), 2)

	b.Post("x")
	assert.Equal(t, []string{"x"}, screen.texts)
}

func TestBus_InvalidSubscriber(t *testing.T) {
	b, rec := newTestBus(t)

	err := b.Register(User{Name: "by value"})
	require.ErrorIs(t, err, ErrInvalidSubscriber)
	assert.Len(t, rec.Errors(), 1)
	assert.Equal(t, 0, b.Stats().Subscribers)
}

func TestBus_StatelessSubscriberIsRejected(t *testing.T) {
	b, rec := newTestBus(t)

	err := b.Register(new(stateless))
	require.ErrorIs(t, err, ErrInvalidSubscriber)
	assert.Len(t, rec.Errors(), 1)
	assert.False(t, b.IsRegistered(new(stateless)))
}

func TestBus_InterfaceHandlerReceivesImplementations(t *testing.T) {
	b, _ := newTestBus(t)

	var greetings []string
	require.NoError(t, b.Register(subscriber(On(func(g greeter) {
		greetings = append(greetings, g.Greeting())
	}))))

	b.Post(User{Name: "ana"})
	b.Post("not a greeter")
	assert.Equal(t, []string{"hi ana"}, greetings)
}

func TestBus_ExactMatching(t *testing.T) {
	b, _ := newTestBus(t, WithTypeMatching(MatchExact))

	var viaInterface, viaType int
	require.NoError(t, b.Register(subscriber(
		On(func(greeter) { viaInterface++ }),
		On(func(User) { viaType++ }),
	)))

	b.Post(User{})
	assert.Equal(t, 0, viaInterface)
	assert.Equal(t, 1, viaType)
}

func TestBus_StaleMainInvocationIsSkipped(t *testing.T) {
	b, _ := newTestBus(t, WithHostedMainLoop())

	var calls atomic.Int32
	sub := subscriber(On(func(string) { calls.Add(1) }, Mode(Main)))
	require.NoError(t, b.Register(sub))

	b.Post("queued")
	b.Unregister(sub)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.MainLoop().Execute(cancel))
	require.ErrorIs(t, b.MainLoop().Run(ctx), context.Canceled)

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, uint64(1), b.Stats().Stale)
}

func TestBus_HandlersMayReenter(t *testing.T) {
	b, _ := newTestBus(t)

	var (
		late     []string
		lateSub  = subscriber(On(func(s string) { late = append(late, s) }))
		self     *funcSubscriber
		selfHits int
	)
	self = subscriber(On(func(n int) {
		selfHits++
		assert.NoError(t, b.Register(lateSub))
		b.Post("from handler")
		b.Unregister(self)
	}))
	require.NoError(t, b.Register(self))

	done := make(chan struct{})
	go func() {
		b.Post(1)
		b.Post(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reentrant post deadlocked")
	}

	assert.Equal(t, 1, selfHits)
	assert.Equal(t, []string{"from handler"}, late)
}

type tick struct{ n int }

func TestBus_ConcurrentChurnDoesNotDisturbStableSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	const (
		posters    = 8
		postsEach  = 200
		churners   = 8
		churnsEach = 200
	)

	rec := &recorder{}
	b := New(WithName(t.Name()), WithErrorReporter(rec), WithHostedMainLoop())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, b.Close(ctx))
	}()

	var stable atomic.Int64
	stableSub := subscriber(On(func(tick) { stable.Add(1) }))
	require.NoError(t, b.Register(stableSub))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < churners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < churnsEach; j++ {
				sub := subscriber(On(func(tick) {}), On(func(string) {}))
				assert.NoError(t, b.Register(sub))
				b.Unregister(sub)
			}
		}()
	}
	for i := 0; i < posters; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			<-start
			for j := 0; j < postsEach; j++ {
				b.Post(tick{n: id*postsEach + j})
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(posters*postsEach), stable.Load())
	assert.Empty(t, rec.Errors())
	assert.Equal(t, 1, b.Stats().Subscribers)
	assert.True(t, b.IsRegistered(stableSub))
}

func TestBus_NilMessage(t *testing.T) {
	b, rec := newTestBus(t)

	b.Post(nil)
	require.Len(t, rec.Errors(), 1)
	assert.ErrorIs(t, rec.Errors()[0], ErrNilMessage)
	assert.Equal(t, uint64(0), b.Stats().Posted)
}

func TestBus_HostMainExecutor(t *testing.T) {
	var queued []func()
	host := exec.Func(func(task func()) { queued = append(queued, task) })
	b, _ := newTestBus(t, WithMainExecutor(host))
	assert.Nil(t, b.MainLoop())

	var got string
	require.NoError(t, b.Register(subscriber(On(func(s string) { got = s }, Mode(Main)))))

	b.Post("ui")
	require.Len(t, queued, 1)
	assert.Empty(t, got)

	queued[0]()
	assert.Equal(t, "ui", got)
}

func TestBus_ClosedBusRejectsWork(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &recorder{}
	b := New(WithName("closed-test"), WithErrorReporter(rec))
	require.NoError(t, b.Register(subscriber(On(func(string) {}, Mode(Background)))))
	b.Post("warm up the pool")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Close(ctx))
	require.NoError(t, b.Close(ctx))

	assert.ErrorIs(t, b.Register(subscriber()), ErrBusClosed)
	b.Post("late")
	errs := rec.Errors()
	require.NotEmpty(t, errs)
	assert.ErrorIs(t, errs[len(errs)-1], ErrBusClosed)
	assert.Equal(t, 0, b.Stats().BackgroundWorkers)
}

func TestBus_PostContextRecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	b, rec := newTestBus(t, WithTracerProvider(tp))

	require.NoError(t, b.Register(subscriber(
		On(func(string) {}),
		On(func(string) { panic("traced") }),
	)))
	b.PostContext(context.Background(), "traced message")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "eventbus.post", span.Name())
	assert.Contains(t, span.Attributes(), attribute.String("eventbus.message_type", "string"))
	assert.Contains(t, span.Attributes(), attribute.Int("eventbus.targets", 2))
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "exception", span.Events()[0].Name)
	assert.Contains(t, span.Events()[0].Attributes, attribute.String("error.type", "panic"))
	assert.Contains(t, span.Events()[0].Attributes, attribute.String("eventbus.thread_mode", "posting"))
	assert.Len(t, rec.Errors(), 1)
}

func TestDefault_ReturnsSameBus(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.NotNil(t, Default().MainLoop())
}
