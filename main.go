package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stealthcompany.com/clinicportal/internal/backend"
	"stealthcompany.com/clinicportal/internal/config"
	"stealthcompany.com/clinicportal/internal/metrics"
	"stealthcompany.com/clinicportal/internal/orchestrator"
)

// clinicportal runs ingestion and the API in one process. The API serves
// whatever is stored while ingestion fills in the rest.
func main() {
	cfg, logger, err := orchestrator.Bootstrap("orch", nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}

	logger.Info().Str("backend", cfg.StoreBackend).Msg("Starting clinicportal service")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Service manager stopped with error")
	}
	logger.Info().Msg("All services stopped")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orchestrator.NewSignalHandler(logger).HandleSignals(ctx, cancel)

	metrics.StartSystemMetrics(ctx, 15*time.Second)

	opened, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := opened.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store backend")
		}
	}()

	apiService, err := orchestrator.NewAPIService(cfg, opened, logger)
	if err != nil {
		return err
	}

	sm := orchestrator.NewServiceManager(logger)
	sm.Add(orchestrator.NewIngestService(cfg, opened, logger))
	sm.Add(apiService)
	return sm.Run(ctx)
}
