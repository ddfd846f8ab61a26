// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package eventbus implements an in-process publish/subscribe bus with typed
// handlers.
//
// A subscriber is any pointer. Its handlers are either listed explicitly by
// implementing HandlerProvider:
//
//	func (s *Screen) EventHandlers() []eventbus.Handler {
//		return []eventbus.Handler{
//			eventbus.On(s.showText),
//			eventbus.On(s.showUser, eventbus.Mode(eventbus.Main)),
//		}
//	}
//
// or found by scanning its exported methods named On<Something> that take
// one parameter and return nothing. A scanned subscriber may implement
// ThreadModer to pick modes per method.
//
// Post routes a message to every handler whose parameter type accepts the
// message's dynamic type, in registration order. Posting handlers run before
// Post returns, Main handlers run one at a time on the bus's main loop and
// Background handlers run concurrently on an elastic pool.
//
// Handlers report failure by panicking. The panic is recovered, wrapped in an
// InvocationError and passed to the bus's ErrorReporter; other handlers are
// unaffected.
package eventbus
