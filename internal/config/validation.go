// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"time"

	"github.com/ManuGH/eventbus/internal/validate"
)

// Validate validates a Config using the centralized validation package
func Validate(cfg Config) error {
	v := validate.New()

	v.LogLevel("log.level", cfg.Log.Level)
	v.NotEmpty("log.service", cfg.Log.Service)

	v.OneOf("bus.type_matching", cfg.Bus.TypeMatching,
		[]string{TypeMatchingAssignable, TypeMatchingExact})
	v.DurationRange("bus.background_idle_timeout", cfg.Bus.BackgroundIdleTimeout,
		time.Millisecond, 24*time.Hour)
	v.NonNegative("bus.main_queue_warn_depth", cfg.Bus.MainQueueWarnDepth)

	// Metrics endpoint is optional
	if cfg.Metrics.ListenAddr != "" {
		v.ListenAddr("metrics.listen_addr", cfg.Metrics.ListenAddr)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("tracing.exporter", cfg.Tracing.Exporter,
			[]string{TracingExporterGRPC, TracingExporterHTTP})
		v.NotEmpty("tracing.endpoint", cfg.Tracing.Endpoint)
		v.Custom("tracing.sampling_rate", cfg.Tracing.SamplingRate, func(value any) error {
			if r := value.(float64); r < 0 || r > 1 {
				return errors.New("must be between 0.0 and 1.0")
			}
			return nil
		})
	}

	return v.Err()
}
