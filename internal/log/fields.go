// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService       = "service"
	FieldComponent     = "component"
	FieldCorrelationID = "correlation_id"
	FieldEntryID       = "entry_id"

	// Dispatch fields
	FieldSubscriber  = "subscriber"
	FieldHandler     = "handler"
	FieldMessageType = "message_type"
	FieldThreadMode  = "thread_mode"
	FieldTargets     = "targets"

	// Executor fields
	FieldExecutor   = "executor"
	FieldQueueDepth = "queue_depth"
	FieldWorkers    = "workers"

	// Tracing fields
	FieldTraceID = "trace_id"
	FieldSpanID  = "span_id"
)
