// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventbus

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ManuGH/eventbus/internal/log"
)

// ErrorReporter receives every non-fatal problem the bus detects:
// RegistrationErrors, InvocationErrors and rejected posts. Report may be
// called from any goroutine.
type ErrorReporter interface {
	Report(ctx context.Context, err error)
}

// ReporterFunc adapts a function to ErrorReporter.
type ReporterFunc func(ctx context.Context, err error)

// Report implements ErrorReporter.
func (f ReporterFunc) Report(ctx context.Context, err error) {
	f(ctx, err)
}

// LogReporter writes reports as structured zerolog events.
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter creates a reporter writing to logger.
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report implements ErrorReporter.
func (r *LogReporter) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.WithContext(ctx, r.logger)

	var regErr *RegistrationError
	var invErr *InvocationError
	switch {
	case errors.As(err, &invErr):
		evt := logger.Error().
			Err(invErr.Err).
			Str(log.FieldEntryID, invErr.EntryID).
			Str(log.FieldSubscriber, invErr.Subscriber).
			Str(log.FieldHandler, invErr.Handler).
			Str(log.FieldMessageType, invErr.MessageType).
			Str(log.FieldThreadMode, invErr.Mode.String())
		if invErr.Panic != nil {
			evt = evt.Interface("panic", invErr.Panic).Bytes("stack", invErr.Stack)
			evt.Msg("handler panicked")
			return
		}
		evt.Msg("handler invocation not scheduled")
	case errors.As(err, &regErr):
		evt := logger.Warn().
			Err(regErr.Err).
			Str(log.FieldSubscriber, regErr.Subscriber)
		if regErr.Handler != "" {
			evt.Str(log.FieldHandler, regErr.Handler).Msg("invalid handler skipped")
			return
		}
		if errors.Is(regErr.Err, ErrAlreadyRegistered) {
			evt.Msg("subscriber is already registered")
			return
		}
		evt.Msg("subscriber rejected")
	default:
		logger.Warn().Err(err).Msg("event bus error")
	}
}
