// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventbus

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/eventbus/internal/config"
	"github.com/ManuGH/eventbus/internal/eventbus/exec"
)

// Option configures a Bus.
type Option func(*options)

type options struct {
	name           string
	matching       TypeMatching
	reporter       ErrorReporter
	mainExecutor   exec.Executor
	hostedMainLoop bool
	idleTimeout    time.Duration
	warnDepth      int
	tracerProvider trace.TracerProvider
}

func defaultOptions() options {
	return options{
		name:        "eventbus",
		matching:    MatchAssignable,
		idleTimeout: exec.DefaultIdleTimeout,
		warnDepth:   exec.DefaultWarnDepth,
	}
}

// WithName sets the bus name used for executor names and log fields.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithTypeMatching selects how message types are matched to handlers.
func WithTypeMatching(m TypeMatching) Option {
	return func(o *options) { o.matching = m }
}

// WithErrorReporter replaces the default LogReporter.
func WithErrorReporter(r ErrorReporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithMainExecutor runs Main handlers on a host-provided executor instead of
// a bus-owned MainLoop. The bus does not stop it on Close.
func WithMainExecutor(e exec.Executor) Option {
	return func(o *options) { o.mainExecutor = e }
}

// WithHostedMainLoop makes the bus create its MainLoop without starting it.
// The host must call MainLoop().Run on the goroutine it dedicates to Main
// handlers.
func WithHostedMainLoop() Option {
	return func(o *options) { o.hostedMainLoop = true }
}

// WithBackgroundIdleTimeout sets how long idle background workers linger.
func WithBackgroundIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleTimeout = d
		}
	}
}

// WithMainQueueWarnDepth sets the main queue depth that triggers a warning.
func WithMainQueueWarnDepth(depth int) Option {
	return func(o *options) {
		if depth >= 0 {
			o.warnDepth = depth
		}
	}
}

// WithTracerProvider sets the provider for PostContext spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// OptionsFromConfig translates the bus section of cfg. Call config.Validate
// first; an unknown matching name falls back to MatchAssignable.
func OptionsFromConfig(cfg config.Config) []Option {
	matching, _ := ParseTypeMatching(cfg.Bus.TypeMatching)
	return []Option{
		WithTypeMatching(matching),
		WithBackgroundIdleTimeout(cfg.Bus.BackgroundIdleTimeout),
		WithMainQueueWarnDepth(cfg.Bus.MainQueueWarnDepth),
	}
}
