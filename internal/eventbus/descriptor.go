// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventbus

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Handler describes one message handler: the message type it accepts, the
// thread mode it runs on and the callback. Handlers are immutable once built.
type Handler struct {
	name    string
	msgType reflect.Type
	mode    ThreadMode
	invoke  func(msg any)

	// err is a construction problem; the registry reports it and skips the handler.
	err error
}

// HandlerOption configures a Handler at construction time.
type HandlerOption func(*Handler)

// Mode sets the thread mode. The default is Posting.
func Mode(m ThreadMode) HandlerOption {
	return func(h *Handler) { h.mode = m }
}

// Named overrides the handler name used in logs and errors.
func Named(name string) HandlerOption {
	return func(h *Handler) {
		if name != "" {
			h.name = name
		}
	}
}

// On builds a handler for messages assignable to T.
func On[T any](fn func(T), opts ...HandlerOption) Handler {
	rt := reflect.TypeFor[T]()
	h := Handler{msgType: rt}
	if fn == nil {
		h.err = ErrNilHandler
	} else {
		h.name = funcName(reflect.ValueOf(fn))
		h.invoke = func(msg any) {
			if v, ok := msg.(T); ok {
				fn(v)
				return
			}
			// assignable but not identical, e.g. []byte delivered to a named slice type
			fn(reflect.ValueOf(msg).Convert(rt).Interface().(T))
		}
	}
	return h.apply(opts)
}

// Func builds a handler from an arbitrary function value. The function must
// take exactly one parameter and return nothing. The returned Handler carries
// the error as well, so providers may ignore it and let Register report it.
func Func(fn any, opts ...HandlerOption) (Handler, error) {
	if fn == nil {
		h := Handler{err: ErrNilHandler}
		return h.apply(opts), ErrNilHandler
	}
	v := reflect.ValueOf(fn)
	h := newFuncHandler(funcName(v), v).apply(opts)
	return h, h.err
}

func newFuncHandler(name string, v reflect.Value) Handler {
	h := Handler{name: name}
	if v.Kind() != reflect.Func {
		h.err = fmt.Errorf("%w: %s", ErrNotAFunc, v.Type())
		return h
	}
	if v.IsNil() {
		h.err = ErrNilHandler
		return h
	}

	t := v.Type()
	switch {
	case t.NumIn() != 1 || t.IsVariadic():
		h.err = fmt.Errorf("%w: %s", ErrInvalidParamCount, t)
		return h
	case t.NumOut() != 0:
		h.err = fmt.Errorf("%w: %s", ErrHasReturnValue, t)
		return h
	}

	in := t.In(0)
	h.msgType = in
	h.invoke = func(msg any) {
		arg := reflect.ValueOf(msg)
		if !arg.Type().AssignableTo(in) {
			arg = arg.Convert(in)
		}
		v.Call([]reflect.Value{arg})
	}
	return h
}

func (h Handler) apply(opts []HandlerOption) Handler {
	for _, opt := range opts {
		if opt != nil {
			opt(&h)
		}
	}
	if h.err == nil && !h.mode.Valid() {
		h.err = fmt.Errorf("%w: %d", ErrInvalidThreadMode, int(h.mode))
	}
	return h
}

// Name returns the handler name.
func (h Handler) Name() string { return h.name }

// MessageType returns the declared parameter type.
func (h Handler) MessageType() reflect.Type { return h.msgType }

// Mode returns the thread mode.
func (h Handler) Mode() ThreadMode { return h.mode }

// Err returns the construction error, if any.
func (h Handler) Err() error { return h.err }

func (h Handler) accepts(msgType reflect.Type, rule TypeMatching) bool {
	return h.invoke != nil && rule.Accepts(h.msgType, msgType)
}

// funcName returns the short name of a function value, without the package path.
func funcName(v reflect.Value) string {
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return ""
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
