// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventbus

import (
	"fmt"
	"reflect"
	"strings"
)

// TypeMatching decides which handlers receive a message.
type TypeMatching int

const (
	// MatchAssignable delivers a message to every handler whose declared type
	// the message is assignable to, so interface handlers see all implementers.
	MatchAssignable TypeMatching = iota
	// MatchExact delivers only to handlers declared for the message's exact type.
	MatchExact
)

// String returns the config name of the rule.
func (m TypeMatching) String() string {
	switch m {
	case MatchAssignable:
		return "assignable"
	case MatchExact:
		return "exact"
	default:
		return fmt.Sprintf("TypeMatching(%d)", int(m))
	}
}

// ParseTypeMatching parses "assignable" or "exact". Empty selects the default.
func ParseTypeMatching(s string) (TypeMatching, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "assignable":
		return MatchAssignable, nil
	case "exact":
		return MatchExact, nil
	default:
		return MatchAssignable, fmt.Errorf("%w: %q", ErrInvalidTypeMatching, s)
	}
}

// Accepts reports whether a handler declared for handlerType receives a
// message of msgType.
func (m TypeMatching) Accepts(handlerType, msgType reflect.Type) bool {
	if handlerType == nil || msgType == nil {
		return false
	}
	if m == MatchExact {
		return handlerType == msgType
	}
	return msgType.AssignableTo(handlerType)
}
