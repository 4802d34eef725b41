// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/authsentry/internal/api"
	"github.com/tomtom215/authsentry/internal/config"
	"github.com/tomtom215/authsentry/internal/incident"
	"github.com/tomtom215/authsentry/internal/ingest"
	"github.com/tomtom215/authsentry/internal/logging"
	"github.com/tomtom215/authsentry/internal/risk"
	"github.com/tomtom215/authsentry/internal/supervisor"
	"github.com/tomtom215/authsentry/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// gaugeRefreshInterval is how often incident and entity gauges are resampled.
const gaugeRefreshInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("incidents_path", cfg.Storage.IncidentsPath).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting AuthSentry")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("AuthSentry stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run builds the component graph and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	pipeline, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(services.NewPeriodicService("incident-gauges", gaugeRefreshInterval, pipeline.RefreshGauges))

	if err := addNATSIngest(cfg, pipeline, tree); err != nil {
		return err
	}

	server := newHTTPServer(cfg, pipeline)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// ServeBackground delivers exactly one value and never closes the channel.
	var serveErr error
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
		serveErr = err
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	return serveErr
}

// newPipeline creates the scorer, the store that feeds it, and loads
// existing incidents.
func newPipeline(cfg *config.Config) (*ingest.Pipeline, error) {
	scorer := risk.NewScorer()
	store := incident.NewStore(cfg.Storage.IncidentsPath, scorer)
	pipeline := ingest.NewPipeline(store, scorer)

	if err := pipeline.Bootstrap(); err != nil {
		return nil, fmt.Errorf("bootstrap incident store: %w", err)
	}
	logging.Info().
		Str("path", store.Path()).
		Int("entities", scorer.Len()).
		Msg("Incident store ready")
	return pipeline, nil
}

func newHTTPServer(cfg *config.Config, pipeline *ingest.Pipeline) *http.Server {
	handler := api.NewHandler(pipeline, cfg, version)
	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromAPI(&cfg.API))
	router := api.NewRouter(handler, mw)

	return &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}
