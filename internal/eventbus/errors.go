// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventbus

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSubscriber is returned when a subscriber has no reference identity (nil or not a pointer).
	ErrInvalidSubscriber = errors.New("eventbus: subscriber must be a non-nil pointer")

	// ErrAlreadyRegistered is returned when a subscriber is registered twice.
	ErrAlreadyRegistered = errors.New("eventbus: subscriber is already registered")

	// ErrInvalidParamCount is returned for handlers that do not take exactly one parameter.
	ErrInvalidParamCount = errors.New("eventbus: handler must take exactly one parameter")

	// ErrHasReturnValue is returned for handlers that return values.
	ErrHasReturnValue = errors.New("eventbus: handler must not return a value")

	// ErrNotAFunc is returned when a handler is built from something that is not a function.
	ErrNotAFunc = errors.New("eventbus: handler is not a function")

	// ErrNilHandler is returned for handlers without a callback.
	ErrNilHandler = errors.New("eventbus: handler callback is nil")

	// ErrInvalidThreadMode is returned for unknown thread modes.
	ErrInvalidThreadMode = errors.New("eventbus: invalid thread mode")

	// ErrInvalidTypeMatching is returned for unknown type matching rules.
	ErrInvalidTypeMatching = errors.New("eventbus: invalid type matching")

	// ErrNilMessage is reported when nil is posted.
	ErrNilMessage = errors.New("eventbus: message is nil")

	// ErrHandlerPanic matches InvocationErrors caused by a panicking handler.
	ErrHandlerPanic = errors.New("eventbus: handler panicked")

	// ErrBusClosed is returned when the bus is used after Close.
	ErrBusClosed = errors.New("eventbus: bus is closed")
)

// RegistrationError describes a problem found while registering a subscriber.
// Handler is empty when the problem concerns the subscriber as a whole.
type RegistrationError struct {
	Subscriber string
	Handler    string
	Err        error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	if e.Handler == "" {
		return fmt.Sprintf("register %s: %v", e.Subscriber, e.Err)
	}
	return fmt.Sprintf("register %s: handler %s: %v", e.Subscriber, e.Handler, e.Err)
}

// Unwrap returns the underlying error.
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// InvocationError describes a handler invocation that did not complete.
type InvocationError struct {
	EntryID     string
	Subscriber  string
	Handler     string
	MessageType string
	Mode        ThreadMode

	// Err is the scheduling error, or ErrHandlerPanic for panics.
	Err error

	// Panic is the recovered value when the handler panicked.
	Panic any

	// Stack is the stack trace at the panic site.
	Stack []byte
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("invoke %s.%s(%s) on %s: %v: %v",
			e.Subscriber, e.Handler, e.MessageType, e.Mode, e.Err, e.Panic)
	}
	return fmt.Sprintf("invoke %s.%s(%s) on %s: %v",
		e.Subscriber, e.Handler, e.MessageType, e.Mode, e.Err)
}

// Unwrap returns the underlying error.
func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrHandlerPanic and the invocation panicked.
func (e *InvocationError) Is(target error) bool {
	return target == ErrHandlerPanic && e.Panic != nil
}

// PanicError returns the panic value as an error when it is one.
func (e *InvocationError) PanicError() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}
