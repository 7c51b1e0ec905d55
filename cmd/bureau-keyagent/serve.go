// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/keyagent/agent"
	"github.com/bureau-foundation/keyagent/lib/config"
	"github.com/bureau-foundation/keyagent/lib/keyring"
)

// metricsShutdownTimeout bounds the graceful stop of the metrics server.
const metricsShutdownTimeout = 5 * time.Second

type serveFlags struct {
	commonFlags
	socketPath    string
	metricsListen string
}

func (s *serveFlags) register(flagSet *pflag.FlagSet) {
	s.commonFlags.register(flagSet)
	flagSet.StringVar(&s.socketPath, "socket", "", "agent socket path (overrides agent.socket_path)")
	flagSet.StringVar(&s.metricsListen, "metrics-listen", "", "serve Prometheus /metrics on this address (overrides metrics.listen_address)")
}

func (s *serveFlags) load() (*config.Config, error) {
	cfg, err := s.commonFlags.load()
	if err != nil {
		return nil, err
	}
	if s.socketPath != "" {
		cfg.Agent.SocketPath = s.socketPath
	}
	if s.metricsListen != "" {
		cfg.Metrics.ListenAddress = s.metricsListen
	}
	return cfg, nil
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	var flags serveFlags
	flagSet := newFlagSet("serve", "serve [flags]", stderr)
	flags.register(flagSet)
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := flags.load()
	if err != nil {
		return err
	}
	if cfg.Agent.SocketPath == "" {
		return fmt.Errorf("agent.socket_path (or --socket) is required for serve")
	}
	logger := newLogger(stderr, cfg.Log)

	keys, err := openKeyring(cfg, logger)
	if err != nil {
		return err
	}
	defer keys.Close()

	return serveKeyring(ctx, cfg, keys, logger, func(ctx context.Context, endpoint *agent.Endpoint) error {
		logger.Info("agent ready",
			"socket", endpoint.Address(),
			"keys", keys.Len(),
		)
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	})
}

// serveKeyring serves keys on cfg.Agent.SocketPath, plus the metrics
// endpoint when configured, for the duration of body. It returns body's
// error, or the first serving error.
func serveKeyring(ctx context.Context, cfg *config.Config, keys *keyring.Keyring, logger *slog.Logger, body func(context.Context, *agent.Endpoint) error) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := agent.NewMetrics(registry)
	if err != nil {
		return err
	}

	handler := agent.NewHandler(keys.Keys(), keys, agent.WithLogger(logger))
	options := agent.ServerOptions{
		AcceptTimeout: cfg.Agent.AcceptTimeoutDuration(),
		IdleTimeout:   cfg.Agent.IdleTimeoutDuration(),
		Logger:        logger,
		Metrics:       metrics,
	}

	group, groupContext := errgroup.WithContext(ctx)
	if cfg.Metrics.ListenAddress != "" {
		if err := startMetricsServer(groupContext, group, cfg.Metrics.ListenAddress, registry, logger); err != nil {
			return err
		}
	}
	group.Go(func() error {
		err := agent.Serve(groupContext, handler, cfg.Agent.SocketPath, options, body)
		if err == nil {
			// The body finished on its own; stop the metrics server too.
			err = errBodyDone
		}
		return err
	})

	if err := group.Wait(); !errors.Is(err, errBodyDone) {
		return err
	}
	return nil
}

// errBodyDone ends the serve group when the body returns normally.
var errBodyDone = errors.New("agent body finished")

func startMetricsServer(ctx context.Context, group *errgroup.Group, address string, registry *prometheus.Registry, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening for metrics on %s: %w", address, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("metrics enabled", "listen", listener.Addr().String())

	group.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving metrics: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownContext)
	})
	return nil
}
