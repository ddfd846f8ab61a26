// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package exec

// Immediate runs every task synchronously on the goroutine that calls Execute.
type Immediate struct {
	s settings
}

// NewImmediate creates an executor for the posting goroutine.
func NewImmediate(opts ...Option) *Immediate {
	return &Immediate{s: newSettings("posting", opts)}
}

// Execute runs task before returning.
func (i *Immediate) Execute(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	runSafely(i.s.name, task, i.s.panicHandler)
	return nil
}
