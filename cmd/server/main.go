// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/cinescore/docs" // Import generated swagger docs
	"github.com/tomtom215/cinescore/internal/api"
	"github.com/tomtom215/cinescore/internal/config"
	"github.com/tomtom215/cinescore/internal/logging"
	"github.com/tomtom215/cinescore/internal/objectstore"
	"github.com/tomtom215/cinescore/internal/pipeline"
	"github.com/tomtom215/cinescore/internal/serving"
	"github.com/tomtom215/cinescore/internal/supervisor"
	"github.com/tomtom215/cinescore/internal/supervisor/services"
	"github.com/tomtom215/cinescore/internal/tracking"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Cinescore prediction server with supervisor tree")
	logging.Info().
		Str("model", cfg.Tracking.ModelRegistryName).
		Str("tracking_uri", cfg.Tracking.TrackingURI).
		Str("bucket", cfg.Storage.Bucket).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The server only reads: training and registration own the write locks.
	store, err := tracking.Open(ctx, tracking.Options{URI: cfg.Tracking.TrackingURI, ReadOnly: true})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open tracking store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing tracking store")
		}
	}()

	objects, err := objectstore.Open(objectstore.Options{
		Path:     cfg.Storage.Path,
		Bucket:   cfg.Storage.Bucket,
		ReadOnly: true,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open object store")
	}
	defer func() {
		if err := objects.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing object store")
		}
	}()

	loader := &pipeline.ArtifactLoader{Objects: objects, Bucket: cfg.Storage.Bucket, Registry: store}
	state := serving.NewState(store, loader, serving.Config{
		ModelName:     cfg.Tracking.ModelRegistryName,
		TestFile:      cfg.Data.Path(cfg.Data.TestDataFile),
		ManifestFile:  cfg.Data.Path(cfg.Data.FeatureNamesFile),
		TransformFile: cfg.Data.Path(cfg.Data.TransformFile),
	})

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.Server.RateLimitReqs < 0 {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_REQUESTS<0)")
	}
	router := api.NewRouter(api.NewHandler(state), api.ChiMiddlewareConfigFromServer(cfg.Server))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddServingService(services.NewPredictorInitService(state, cfg.Server.InitTimeout, logging.WithComponent("serving")))
	logging.Info().Dur("init_timeout", cfg.Server.InitTimeout).Msg("Predictor initialization service added")

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		// A second signal falls through to the default handler and exits.
		signal.Stop(sigCh)
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	if err := tree.Wait(ctx, errCh); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Server stopped gracefully")
}
