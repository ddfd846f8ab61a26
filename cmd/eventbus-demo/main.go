// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// eventbus-demo registers two screens on an event bus and posts to them from
// a worker goroutine, with the process's main goroutine acting as the UI
// thread.
//
// Usage:
//
//	eventbus-demo [-config eventbus.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/eventbus/internal/config"
	"github.com/ManuGH/eventbus/internal/eventbus"
	"github.com/ManuGH/eventbus/internal/log"
	"github.com/ManuGH/eventbus/internal/telemetry"
	"github.com/ManuGH/eventbus/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	log.Configure(log.Config{Level: "info", Service: "eventbus-demo"})
	logger := log.WithComponent("demo")

	// Load configuration with precedence: ENV > File > Defaults
	path := strings.TrimSpace(*configPath)
	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	log.Reconfigure(log.Config{Level: cfg.Log.Level, Service: cfg.Log.Service})
	logger = log.WithComponent("demo")
	logger.Info().
		Str("event", "config.loaded").
		Str("type_matching", cfg.Bus.TypeMatching).
		Msg("starting demo")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holder := config.NewHolder(cfg, path)
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Str("event", "config.watcher_failed").Msg("config hot reload disabled")
	}
	defer holder.Stop()
	go applyLogReloads(ctx, holder)

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: version.Version,
		Environment:    cfg.Tracing.Environment,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "telemetry.init_failed").Msg("failed to initialize tracing")
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracing did not shut down cleanly")
		}
	}()
	if cfg.Tracing.Enabled {
		logger.Info().
			Str("endpoint", cfg.Tracing.Endpoint).
			Float64("sampling_rate", cfg.Tracing.SamplingRate).
			Msg("tracing initialized")
	}

	if err := run(ctx, cfg, os.Stdout, eventbus.WithTracerProvider(tel.TracerProvider())); err != nil {
		logger.Error().Err(err).Msg("demo failed")
		stop()
		_ = tel.Shutdown(context.Background())
		os.Exit(1)
	}
}

// applyLogReloads switches the log level and service name whenever the
// config file is reloaded.
func applyLogReloads(ctx context.Context, holder *config.Holder) {
	updates := make(chan config.Config, 1)
	holder.RegisterListener(updates)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-updates:
			log.Reconfigure(log.Config{Level: cfg.Log.Level, Service: cfg.Log.Service})
		}
	}
}
