// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package exec provides the execution contexts used by the event bus.
//
//   - Immediate runs a task on the submitting goroutine.
//   - MainLoop runs tasks one at a time, in submission order, on a single
//     goroutine. A host can run the loop on its own main goroutine via Run.
//   - BackgroundPool runs tasks on an elastic set of workers that grow under
//     load and retire when idle.
//
// Every executor recovers panics escaping a task so that its goroutine keeps
// serving later tasks. Func adapts a host-provided scheduler.
package exec
