// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Type matching names accepted in bus.type_matching.
const (
	TypeMatchingAssignable = "assignable"
	TypeMatchingExact      = "exact"
)

// Defaults for the bus section.
const (
	DefaultBackgroundIdleTimeout = 60 * time.Second
	DefaultMainQueueWarnDepth    = 1024
)

// Config is the complete event bus configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Bus     BusConfig     `yaml:"bus"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// BusConfig configures dispatch and the executors.
type BusConfig struct {
	// TypeMatching is "assignable" (interface handlers receive implementations) or "exact".
	TypeMatching string `yaml:"type_matching"`
	// BackgroundIdleTimeout is how long an idle background worker lingers.
	BackgroundIdleTimeout time.Duration `yaml:"background_idle_timeout"`
	// MainQueueWarnDepth logs a warning when the main queue grows past it. Zero disables.
	MainQueueWarnDepth int `yaml:"main_queue_warn_depth"`
}

// MetricsConfig configures the optional metrics endpoint.
type MetricsConfig struct {
	// ListenAddr enables /metrics and /healthz when set, e.g. ":9090".
	ListenAddr string `yaml:"listen_addr"`
}

// Tracing exporters accepted in tracing.exporter.
const (
	TracingExporterGRPC = "grpc"
	TracingExporterHTTP = "http"
)

// TracingConfig configures OTLP span export. Post spans are only exported
// when Enabled is set.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	// Exporter is "grpc" or "http".
	Exporter string `yaml:"exporter"`
	// Endpoint is the collector address, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`
	// SamplingRate is the fraction of traces kept, 0.0 to 1.0.
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

// Defaults returns the configuration used when neither file nor environment
// set a value.
func Defaults() Config {
	return Config{
		Log: LogConfig{
			Level:   "info",
			Service: "eventbus",
		},
		Bus: BusConfig{
			TypeMatching:          TypeMatchingAssignable,
			BackgroundIdleTimeout: DefaultBackgroundIdleTimeout,
			MainQueueWarnDepth:    DefaultMainQueueWarnDepth,
		},
		Tracing: TracingConfig{
			Exporter:     TracingExporterGRPC,
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "development",
		},
	}
}

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	ConsumedEnvKeys map[string]struct{} // keys read during the last Load
}

// NewLoader creates a new configuration loader. An empty path skips the file.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.normalize()

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing. Keys missing
// from the file keep their current value.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %q (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *Config) {
	cfg.Log.Level = l.envString(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Service = l.envString(EnvLogService, cfg.Log.Service)
	cfg.Bus.TypeMatching = l.envString(EnvTypeMatching, cfg.Bus.TypeMatching)
	cfg.Bus.BackgroundIdleTimeout = l.envDuration(EnvBackgroundIdleTimeout, cfg.Bus.BackgroundIdleTimeout)
	cfg.Bus.MainQueueWarnDepth = l.envInt(EnvMainQueueWarnDepth, cfg.Bus.MainQueueWarnDepth)
	cfg.Metrics.ListenAddr = l.envString(EnvMetricsListen, cfg.Metrics.ListenAddr)

	cfg.Tracing.Enabled = l.envBool(EnvTracingEnabled, cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvTracingSamplingRate, cfg.Tracing.SamplingRate)
	cfg.Tracing.Environment = l.envString(EnvTracingEnvironment, cfg.Tracing.Environment)
}

func (c *Config) normalize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Bus.TypeMatching = strings.ToLower(strings.TrimSpace(c.Bus.TypeMatching))
	c.Metrics.ListenAddr = strings.TrimSpace(c.Metrics.ListenAddr)
	c.Tracing.Exporter = strings.ToLower(strings.TrimSpace(c.Tracing.Exporter))
	c.Tracing.Endpoint = strings.TrimSpace(c.Tracing.Endpoint)
}
