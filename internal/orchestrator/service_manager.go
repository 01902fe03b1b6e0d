package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Service is one component the manager supervises
type Service struct {
	Name string
	Run  func(ctx context.Context) error
	// OneShot services may finish, or fail, without stopping the others.
	OneShot bool
}

// ServiceManager manages the lifecycle of the ingest and API services
type ServiceManager struct {
	services []Service
	log      zerolog.Logger
}

// NewServiceManager creates a new service manager
func NewServiceManager(logger zerolog.Logger) *ServiceManager {
	return &ServiceManager{log: logger.With().Str("component", "orchestrator").Logger()}
}

// Add registers a service to start on Run
func (sm *ServiceManager) Add(s Service) {
	sm.services = append(sm.services, s)
}

// Run starts every service and waits. It returns once ctx is cancelled or a
// long-running service exits; the error is the first long-running failure.
func (sm *ServiceManager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range sm.services {
		g.Go(func() error {
			sm.log.Info().Str("service", svc.Name).Msg("Starting service")
			err := svc.Run(gctx)

			if svc.OneShot {
				if err != nil {
					sm.log.Error().Err(err).Str("service", svc.Name).Msg("Service exited with error")
				} else {
					sm.log.Info().Str("service", svc.Name).Msg("Service completed successfully")
				}
				return nil
			}

			if err != nil {
				return fmt.Errorf("%s: %w", svc.Name, err)
			}
			sm.log.Info().Str("service", svc.Name).Msg("Service exited, shutting down the rest")
			cancel()
			return nil
		})
	}

	return g.Wait()
}
