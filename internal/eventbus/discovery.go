// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventbus

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

// HandlerProvider is implemented by subscribers that list their handlers
// explicitly. It takes precedence over the method scan.
type HandlerProvider interface {
	EventHandlers() []Handler
}

// ThreadModer lets a scanned subscriber assign thread modes by method name.
// Methods it does not list run in Posting mode.
type ThreadModer interface {
	ThreadModes() map[string]ThreadMode
}

const handlerMethodPrefix = "On"

// discover returns the valid handlers of subscriber and one RegistrationError
// per rejected handler. Scanned methods come in lexical name order.
func discover(subscriber any) ([]Handler, []error) {
	subName := typeName(reflect.TypeOf(subscriber))

	var candidates []Handler
	if p, ok := subscriber.(HandlerProvider); ok {
		candidates = p.EventHandlers()
	} else {
		candidates = scanMethods(subscriber)
	}

	handlers := make([]Handler, 0, len(candidates))
	var diags []error
	for i, h := range candidates {
		if h.err == nil && h.invoke == nil {
			h.err = ErrNilHandler
		}
		if h.err != nil {
			name := h.name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			diags = append(diags, &RegistrationError{Subscriber: subName, Handler: name, Err: h.err})
			continue
		}
		handlers = append(handlers, h)
	}
	return handlers, diags
}

func scanMethods(subscriber any) []Handler {
	v := reflect.ValueOf(subscriber)
	t := v.Type()

	var modes map[string]ThreadMode
	if tm, ok := subscriber.(ThreadModer); ok {
		modes = tm.ThreadModes()
	}

	var out []Handler
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !isHandlerMethod(m.Name) {
			continue
		}
		h := newFuncHandler(m.Name, v.Method(i))
		if mode, ok := modes[m.Name]; ok {
			h = h.apply([]HandlerOption{Mode(mode)})
		}
		out = append(out, h)
	}
	return out
}

// isHandlerMethod matches "On" followed by an upper-case letter, so OnLogin
// is a handler and Once is not.
func isHandlerMethod(name string) bool {
	if len(name) <= len(handlerMethodPrefix) || name[:len(handlerMethodPrefix)] != handlerMethodPrefix {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name[len(handlerMethodPrefix):])
	return unicode.IsUpper(r)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
