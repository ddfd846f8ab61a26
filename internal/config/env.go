// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/eventbus/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix is the prefix of every environment variable the loader reads.
const EnvPrefix = "EVENTBUS_"

// Environment variables overriding file values.
const (
	EnvLogLevel              = EnvPrefix + "LOG_LEVEL"
	EnvLogService            = EnvPrefix + "LOG_SERVICE"
	EnvTypeMatching          = EnvPrefix + "TYPE_MATCHING"
	EnvBackgroundIdleTimeout = EnvPrefix + "BACKGROUND_IDLE_TIMEOUT"
	EnvMainQueueWarnDepth    = EnvPrefix + "MAIN_QUEUE_WARN_DEPTH"
	EnvMetricsListen         = EnvPrefix + "METRICS_LISTEN"
	EnvTracingEnabled        = EnvPrefix + "TRACING_ENABLED"
	EnvTracingExporter       = EnvPrefix + "TRACING_EXPORTER"
	EnvTracingEndpoint       = EnvPrefix + "OTLP_ENDPOINT"
	EnvTracingSamplingRate   = EnvPrefix + "TRACING_SAMPLING_RATE"
	EnvTracingEnvironment    = EnvPrefix + "ENVIRONMENT"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

// parseStringWithLogger reads an environment variable with custom logger.
func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	switch {
	case !exists:
		logDefault(logger, key, "", func(e *zerolog.Event) *zerolog.Event { return e.Str("default", defaultValue) })
		return defaultValue
	case value == "":
		logDefault(logger, key, " (environment variable is empty)", func(e *zerolog.Event) *zerolog.Event { return e.Str("default", defaultValue) })
		return defaultValue
	case isSensitive(key):
		// For sensitive vars, just log that it was set
		logger.Debug().
			Str("key", key).
			Str("source", "environment").
			Bool("sensitive", true).
			Msg("using environment variable")
	default:
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
	}
	return value
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, "integer", strconv.Atoi, (*zerolog.Event).Int)
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables and logs the choice.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, "duration", time.ParseDuration, (*zerolog.Event).Dur)
}

// ParseBool reads a boolean ("true", "1", "false", ...) from environment variable
// or returns default value.
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, "boolean", strconv.ParseBool, (*zerolog.Event).Bool)
}

// ParseFloat reads a float from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	parse := func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
	return parseEnv(key, defaultValue, "float", parse, (*zerolog.Event).Float64)
}

// parseEnv implements the typed parsers: environment value when it parses,
// default otherwise, with the chosen source logged.
func parseEnv[T any](
	key string,
	defaultValue T,
	kind string,
	parse func(string) (T, error),
	field func(*zerolog.Event, string, T) *zerolog.Event,
) T {
	logger := log.WithComponent("config")
	withDefault := func(e *zerolog.Event) *zerolog.Event { return field(e, "default", defaultValue) }

	v, ok := os.LookupEnv(key)
	if !ok {
		logDefault(logger, key, "", withDefault)
		return defaultValue
	}
	if v == "" {
		logDefault(logger, key, " (environment variable is empty)", withDefault)
		return defaultValue
	}
	parsed, err := parse(v)
	if err != nil {
		withDefault(logger.Warn().
			Str("key", key).
			Str("value", v)).
			Msg("invalid " + kind + " in environment variable, using default")
		return defaultValue
	}
	field(logger.Debug().Str("key", key), "value", parsed).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}

func logDefault(logger zerolog.Logger, key, reason string, withDefault func(*zerolog.Event) *zerolog.Event) {
	withDefault(logger.Debug().Str("key", key)).
		Str("source", "default").
		Msg("using default value" + reason)
}

func isSensitive(key string) bool {
	lowerKey := strings.ToLower(key)
	return strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "password")
}
