// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the event bus.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the bus.
const (
	// Post attributes
	BusNameKey     = "eventbus.name"
	MessageTypeKey = "eventbus.message_type"
	TargetsKey     = "eventbus.targets"

	// Invocation attributes
	EntryIDKey    = "eventbus.entry_id"
	SubscriberKey = "eventbus.subscriber"
	HandlerKey    = "eventbus.handler"
	ThreadModeKey = "eventbus.thread_mode"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// PostAttributes creates the attributes of a post span.
func PostAttributes(bus, messageType string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if bus != "" {
		attrs = append(attrs, attribute.String(BusNameKey, bus))
	}
	return append(attrs, attribute.String(MessageTypeKey, messageType))
}

// Targets reports how many handlers a post was routed to.
func Targets(n int) attribute.KeyValue {
	return attribute.Int(TargetsKey, n)
}

// InvocationAttributes describes a single handler invocation.
func InvocationAttributes(entryID, subscriber, handler, mode string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EntryIDKey, entryID),
		attribute.String(SubscriberKey, subscriber),
		attribute.String(HandlerKey, handler),
		attribute.String(ThreadModeKey, mode),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
