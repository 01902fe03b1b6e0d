package orchestrator

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/config"
	"stealthcompany.com/clinicportal/internal/metrics"
	"stealthcompany.com/clinicportal/pkg/zerolog_config"
)

// Bootstrap loads and validates configuration, installs the global logger
// and switches metrics collection on as configured. component is appended to
// APP_NAME so every binary logs under its own name. A nil console logs to stdout.
func Bootstrap(component string, console io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zerolog_config.StartupWithEnv(zerolog_config.Options{
		AppName:          cfg.AppName + "-" + component,
		Level:            cfg.LogLevel,
		ElasticsearchURL: cfg.ElasticsearchURL,
		Index:            "logs",
		Console:          console,
	})
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid config: %w", err)
	}

	metrics.Configure(cfg.EnableBusinessMetrics, cfg.EnableSystemMetrics)
	return cfg, logger, nil
}
