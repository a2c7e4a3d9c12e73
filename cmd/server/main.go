// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/follow/internal/api"
	"github.com/tomtom215/follow/internal/config"
	"github.com/tomtom215/follow/internal/follow"
	"github.com/tomtom215/follow/internal/logging"
	"github.com/tomtom215/follow/internal/metrics"
	"github.com/tomtom215/follow/internal/supervisor"
	"github.com/tomtom215/follow/internal/supervisor/services"
	"github.com/tomtom215/follow/internal/tracker"
	ws "github.com/tomtom215/follow/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

// run wires the server and blocks until it stops. It returns the process
// exit code so deferred cleanup runs first.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("upstream", cfg.Upstream.URL).
		Str("environment", cfg.Server.Environment).
		Dur("poll_interval", cfg.Tracker.PollInterval).
		Dur("prune_threshold", cfg.Tracker.PruneThreshold).
		Msg("Starting follow server")

	palette, err := cfg.Track.Palette()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid track palette")
	}

	client := follow.NewClient(&cfg.Upstream)
	var source follow.ReportSource = client
	var upstream api.UpstreamState
	var breaker *follow.CircuitBreakerClient
	if cfg.Upstream.CircuitBreakerEnabled {
		breaker = follow.NewCircuitBreakerClient(client)
		source, upstream = breaker, breaker
	} else {
		logging.Warn().Msg("Upstream circuit breaker disabled")
	}

	manager := tracker.NewManager(source, &cfg.Tracker)

	handler := api.NewHandler(cfg, palette, manager, upstream, version)
	defer handler.Close()

	hub := ws.NewHub(handler.RenderDevice)
	handler.SetHub(hub)
	manager.SetOnUpdate(hub.NotifyDevice)
	manager.SetKeepAlive(hub.HasSubscribers)
	if breaker != nil {
		breaker.OnStateChange(func(state string) {
			hub.BroadcastJSON(ws.MessageTypeStatus, map[string]string{"upstream": state})
		})
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// Websocket connections outlive any write timeout; the hub sets
		// per-message deadlines instead.
		IdleTimeout: 60 * time.Second,
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	tree.AddTrackingService(services.NewTrackerService(manager))
	tree.AddTrackingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

	watchLogLevel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Follow server stopped")
	if len(unstopped) > 0 {
		return 1
	}
	return 0
}

// watchLogLevel re-reads the config file on change and applies a new log
// level. Every other setting needs a restart.
func watchLogLevel() {
	path := config.ConfigFile()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.LoadWithKoanf()
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		logging.SetLevelString(cfg.Logging.Level)
		logging.Info().Str("level", cfg.Logging.Level).Msg("Log level reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
