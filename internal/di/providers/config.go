// Package providers contains dependency injection providers for the sortir client core.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/listenupapp/sortir/internal/config"
	"github.com/listenupapp/sortir/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting sortir client core",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Storage.DataPath,
		"storage_backend", cfg.Storage.Backend,
		"gateway_url", cfg.Gateway.BaseURL,
		"push_enabled", cfg.Push.URL != "",
	)

	return log, nil
}
