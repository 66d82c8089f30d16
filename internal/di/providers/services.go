package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/sortir/internal/auth"
	"github.com/listenupapp/sortir/internal/config"
	"github.com/listenupapp/sortir/internal/favorites"
	"github.com/listenupapp/sortir/internal/gateway"
	"github.com/listenupapp/sortir/internal/logger"
	"github.com/listenupapp/sortir/internal/metrics"
	"github.com/listenupapp/sortir/internal/payment"
	"github.com/listenupapp/sortir/internal/reservations"
)

// ProvideMetrics provides the Prometheus registry.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

// ProvideFavorites provides the favorites store, loaded from the medium.
func ProvideFavorites(i do.Injector) (*favorites.Store, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	vault := do.MustInvoke[*auth.SessionVault](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return favorites.New(context.Background(), storeHandle.Medium, vault, m.Emitter(sseHandle.Manager), log.Logger)
}

// GatewayHandle wraps the remote gateway client with shutdown capability.
type GatewayHandle struct {
	*gateway.Client
}

// Shutdown implements do.Shutdownable.
func (h *GatewayHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideGateway provides the rate-limited remote gateway client.
func ProvideGateway(i do.Injector) (*GatewayHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	vault := do.MustInvoke[*auth.SessionVault](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := gateway.New(gateway.Config{
		BaseURL:           cfg.Gateway.BaseURL,
		Timeout:           cfg.Gateway.Timeout,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
	}, vault, log.Logger)

	return &GatewayHandle{Client: client}, nil
}

// ProvideCheckout provides the hosted checkout front-end. Without an attached UI the URL is only logged.
func ProvideCheckout(i do.Injector) (*payment.HostedCheckout, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return payment.NewHostedCheckout(cfg.Payment.CheckoutURL, payment.LogOpener(log.Logger), log.Logger)
}

// ProvideReservations provides the reservations manager.
func ProvideReservations(i do.Injector) (*reservations.Manager, error) {
	gw := do.MustInvoke[*GatewayHandle](i)
	checkout := do.MustInvoke[*payment.HostedCheckout](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return reservations.New(gw.Client, checkout, m.Emitter(sseHandle.Manager), log.Logger), nil
}
