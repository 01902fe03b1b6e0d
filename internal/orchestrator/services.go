package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/api"
	"stealthcompany.com/clinicportal/internal/assistant"
	"stealthcompany.com/clinicportal/internal/backend"
	"stealthcompany.com/clinicportal/internal/booking"
	"stealthcompany.com/clinicportal/internal/config"
	"stealthcompany.com/clinicportal/internal/events"
	"stealthcompany.com/clinicportal/internal/ingest"
	"stealthcompany.com/clinicportal/internal/store"
	"stealthcompany.com/clinicportal/internal/views"
)

const shutdownTimeout = 30 * time.Second

// NewPublisher returns a Kafka publisher when brokers are configured and a
// log-only publisher otherwise. The close func is never nil.
func NewPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, func() error, error) {
	if cfg.KafkaBrokers == "" {
		return events.NewLogPublisher(logger), func() error { return nil }, nil
	}
	kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		return nil, nil, err
	}
	return kp, kp.Close, nil
}

// NewAPIService wires the HTTP API over an opened backend.
func NewAPIService(cfg *config.Config, opened *backend.Opened, logger zerolog.Logger) (Service, error) {
	publisher, closePublisher, err := NewPublisher(cfg, logger)
	if err != nil {
		return Service{}, fmt.Errorf("failed to create event publisher: %w", err)
	}

	st := store.New(opened.Backend, logger)
	synth := views.NewSynthesizer(st, logger)
	booker := booking.NewService(st, publisher, logger)

	deps := api.Deps{
		Store:          st,
		Views:          synth,
		Booking:        booker,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	}
	if opened.Pinger != nil {
		deps.Health = opened.Pinger
	}
	if cfg.AssistantURL != "" {
		svc := assistant.NewHTTPService(cfg.AssistantURL, cfg.AssistantTimeout, logger)
		deps.Assistant = assistant.NewHandler(svc, synth, booker, logger)
	} else {
		logger.Info().Msg("ASSISTANT_URL not set, assistant endpoint disabled")
	}

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           api.NewServer(deps).SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	run := func(ctx context.Context) error {
		defer func() {
			if err := closePublisher(); err != nil {
				logger.Error().Err(err).Msg("Failed to close event publisher")
			}
		}()
		return serve(ctx, server, logger)
	}
	return Service{Name: "api", Run: run}, nil
}

// serve runs server until ctx ends, then shuts it down gracefully
func serve(ctx context.Context, server *http.Server, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Msg("Server starting")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info().Msg("Server exited")
	return nil
}

// NewIngestService pulls the upstream FHIR server into the store once.
// Losing the lock race to another process is not a failure.
func NewIngestService(cfg *config.Config, opened *backend.Opened, logger zerolog.Logger) Service {
	st := store.New(opened.Backend, logger)
	client := ingest.NewClient(cfg.FHIRBaseURL, cfg.FHIRTimeout, cfg.FHIRPageSize, st, opened.Locker, logger)

	run := func(ctx context.Context) error {
		results, err := client.IngestAllResources(ctx, ingest.DefaultEndpoints)
		if errors.Is(err, store.ErrLocked) {
			logger.Info().Msg("Another ingestion run holds the lock, skipping")
			return nil
		}
		for resourceType, r := range results {
			logger.Info().
				Str("resource_type", resourceType).
				Int("stored", r.Stored).
				Int("failed", r.Failed).
				Msg("Ingestion result")
		}
		return err
	}
	return Service{Name: "ingest", Run: run, OneShot: true}
}
