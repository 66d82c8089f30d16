// Package di provides dependency injection configuration for the sortir client core.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/sortir/internal/auth"
	"github.com/listenupapp/sortir/internal/config"
	"github.com/listenupapp/sortir/internal/di/providers"
	"github.com/listenupapp/sortir/internal/favorites"
	"github.com/listenupapp/sortir/internal/logger"
	"github.com/listenupapp/sortir/internal/metrics"
	"github.com/listenupapp/sortir/internal/payment"
	"github.com/listenupapp/sortir/internal/reservations"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideDeviceKey)
	do.Provide(injector, providers.ProvideMetrics)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSessionVault)

	// Business services
	do.Provide(injector, providers.ProvideFavorites)
	do.Provide(injector, providers.ProvideGateway)
	do.Provide(injector, providers.ProvideCheckout)
	do.Provide(injector, providers.ProvideReservations)

	// Workers
	do.Provide(injector, providers.ProvidePushClient)
	do.Provide(injector, providers.ProvideInitialFetch)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services. Shutdownable handles are released by injector.Shutdown.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.DeviceKey](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.SessionVault](injector)

	// Business services
	_ = do.MustInvoke[*favorites.Store](injector)
	_ = do.MustInvoke[*providers.GatewayHandle](injector)
	_ = do.MustInvoke[*payment.HostedCheckout](injector)
	_ = do.MustInvoke[*reservations.Manager](injector)

	// Server before workers so stream clients see the first fetch.
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Workers
	_ = do.MustInvoke[*providers.PushClientHandle](injector)
	_ = do.MustInvoke[*providers.InitialFetch](injector)

	return nil
}
