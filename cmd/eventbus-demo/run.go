// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/eventbus/internal/config"
	"github.com/ManuGH/eventbus/internal/eventbus"
	"github.com/ManuGH/eventbus/internal/log"
)

// run plays the two-screen scenario. The calling goroutine becomes the main
// loop, so Main handlers run on it. Without a metrics listener run returns
// once the scenario's Main handlers have run; with one it serves until ctx
// is done. extra options are applied last.
func run(ctx context.Context, cfg config.Config, out io.Writer, extra ...eventbus.Option) error {
	logger := log.WithComponent("demo")

	opts := append(eventbus.OptionsFromConfig(cfg), eventbus.WithName("demo"), eventbus.WithHostedMainLoop())
	opts = append(opts, extra...)
	bus := eventbus.New(opts...)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := bus.Close(closeCtx); err != nil {
			logger.Warn().Err(err).Msg("bus did not close cleanly")
		}
	}()

	screen := newDisplay(out)
	mainScr := &mainScreen{display: screen}
	secondScr := &secondScreen{display: screen}
	for _, sub := range []any{mainScr, secondScr} {
		if err := bus.Register(sub); err != nil {
			return fmt.Errorf("register %T: %w", sub, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	serving := cfg.Metrics.ListenAddr != ""
	if serving {
		ln, err := net.Listen("tcp", cfg.Metrics.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Metrics.ListenAddr, err)
		}
		logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics and health")
		srv := &http.Server{
			Handler:           newRouter(bus, cfg.Bus.MainQueueWarnDepth),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error { return serve(gctx, srv, ln) })
	}

	g.Go(func() error {
		simulate(log.ContextWithCorrelationID(gctx, uuid.NewString()), bus, secondScr)
		if serving {
			return nil
		}
		// queued behind the scenario's Main handlers
		if err := bus.MainLoop().Execute(cancel); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})

	err := bus.MainLoop().Run(gctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	cancel()
	return errors.Join(err, g.Wait())
}

// simulate posts from a worker goroutine the way the second screen does:
// a text, a user, then the second screen leaves and another user follows.
func simulate(ctx context.Context, bus *eventbus.Bus, second *secondScreen) {
	logger := log.WithComponentFromContext(ctx, "demo")

	bus.PostContext(ctx, "111")
	bus.PostContext(ctx, User{Name: "123"})

	bus.Unregister(second)
	logger.Info().Msg("second screen unregistered")

	bus.PostContext(ctx, User{Name: "456"})
	logger.Info().Interface("stats", bus.Stats()).Msg("scenario posted")
}
