// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventbus

import (
	"fmt"
	"strings"
)

// ThreadMode selects the execution context a handler runs on.
type ThreadMode int

const (
	// Posting runs the handler on the goroutine that called Post, before Post returns.
	Posting ThreadMode = iota
	// Main runs the handler on the bus's single serial main context.
	Main
	// Background runs the handler on the elastic worker pool.
	Background
)

// String returns the lower-case mode name.
func (m ThreadMode) String() string {
	switch m {
	case Posting:
		return "posting"
	case Main:
		return "main"
	case Background:
		return "background"
	default:
		return fmt.Sprintf("ThreadMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared modes.
func (m ThreadMode) Valid() bool {
	return m >= Posting && m <= Background
}

// ParseThreadMode parses a mode name. "immediate" is accepted as an alias of
// "posting".
func ParseThreadMode(s string) (ThreadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "posting", "immediate", "":
		return Posting, nil
	case "main":
		return Main, nil
	case "background":
		return Background, nil
	default:
		return Posting, fmt.Errorf("%w: %q", ErrInvalidThreadMode, s)
	}
}
