// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type envCase[T any] struct {
	name         string
	key          string
	defaultValue T
	envValue     string
	envSet       bool
	want         T
}

func runEnvCases[T any](t *testing.T, parse func(string, T) T, tests []envCase[T]) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, parse(tt.key, tt.defaultValue))
		})
	}
}

func TestParseString(t *testing.T) {
	runEnvCases(t, ParseString, []envCase[string]{
		{name: "environment variable set", key: "EVENTBUS_TEST_STRING", defaultValue: "default", envValue: "from-env", envSet: true, want: "from-env"},
		{name: "environment variable not set", key: "EVENTBUS_TEST_STRING_UNSET", defaultValue: "default", want: "default"},
		{name: "environment variable empty", key: "EVENTBUS_TEST_STRING_EMPTY", defaultValue: "default", envSet: true, want: "default"},
		{name: "sensitive variable", key: "EVENTBUS_TEST_PASSWORD", defaultValue: "default", envValue: "secret123", envSet: true, want: "secret123"},
	})
}

func TestParseInt(t *testing.T) {
	runEnvCases(t, ParseInt, []envCase[int]{
		{name: "valid integer", key: "EVENTBUS_TEST_INT", defaultValue: 42, envValue: "100", envSet: true, want: 100},
		{name: "invalid integer", key: "EVENTBUS_TEST_INT_INVALID", defaultValue: 42, envValue: "not-a-number", envSet: true, want: 42},
		{name: "empty string", key: "EVENTBUS_TEST_INT_EMPTY", defaultValue: 42, envSet: true, want: 42},
		{name: "not set", key: "EVENTBUS_TEST_INT_UNSET", defaultValue: 42, want: 42},
	})
}

func TestParseDuration(t *testing.T) {
	runEnvCases(t, ParseDuration, []envCase[time.Duration]{
		{name: "valid duration", key: "EVENTBUS_TEST_DURATION", defaultValue: time.Second, envValue: "250ms", envSet: true, want: 250 * time.Millisecond},
		{name: "invalid duration", key: "EVENTBUS_TEST_DURATION_INVALID", defaultValue: time.Second, envValue: "soon", envSet: true, want: time.Second},
		{name: "not set", key: "EVENTBUS_TEST_DURATION_UNSET", defaultValue: time.Second, want: time.Second},
	})
}

func TestParseBool(t *testing.T) {
	runEnvCases(t, ParseBool, []envCase[bool]{
		{name: "true", key: "EVENTBUS_TEST_BOOL", defaultValue: false, envValue: "true", envSet: true, want: true},
		{name: "numeric", key: "EVENTBUS_TEST_BOOL_NUM", defaultValue: true, envValue: "0", envSet: true, want: false},
		{name: "invalid", key: "EVENTBUS_TEST_BOOL_INVALID", defaultValue: true, envValue: "yes please", envSet: true, want: true},
		{name: "not set", key: "EVENTBUS_TEST_BOOL_UNSET", defaultValue: false, want: false},
	})
}

func TestParseFloat(t *testing.T) {
	runEnvCases(t, ParseFloat, []envCase[float64]{
		{name: "valid float", key: "EVENTBUS_TEST_FLOAT", defaultValue: 1.0, envValue: "0.25", envSet: true, want: 0.25},
		{name: "invalid float", key: "EVENTBUS_TEST_FLOAT_INVALID", defaultValue: 1.0, envValue: "most", envSet: true, want: 1.0},
		{name: "not set", key: "EVENTBUS_TEST_FLOAT_UNSET", defaultValue: 1.0, want: 1.0},
	})
}

func TestParseString_MasksSensitiveValues(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	t.Setenv("EVENTBUS_TEST_TOKEN", "s3cr3t")
	got := parseStringWithLogger(logger, "EVENTBUS_TEST_TOKEN", "")

	assert.Equal(t, "s3cr3t", got)
	assert.NotContains(t, buf.String(), "s3cr3t")
	assert.Contains(t, buf.String(), `"sensitive":true`)
}
