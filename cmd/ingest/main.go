package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"stealthcompany.com/clinicportal/internal/backend"
	"stealthcompany.com/clinicportal/internal/orchestrator"
)

func main() {
	cfg, logger, err := orchestrator.Bootstrap("ingest", nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}

	logger.Info().Str("source", cfg.FHIRBaseURL).Msg("Starting clinicportal-ingest service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orchestrator.NewSignalHandler(logger).HandleSignals(ctx, cancel)

	opened, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open store backend")
	}

	err = orchestrator.NewIngestService(cfg, opened, logger).Run(ctx)
	if cerr := opened.Close(); cerr != nil {
		logger.Error().Err(cerr).Msg("Failed to close store backend")
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to ingest FHIR data")
		os.Exit(1)
	}

	logger.Info().Msg("FHIR data ingestion completed successfully")
}
