package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/listenupapp/sortir/internal/api"
	"github.com/listenupapp/sortir/internal/auth"
	"github.com/listenupapp/sortir/internal/config"
	"github.com/listenupapp/sortir/internal/favorites"
	"github.com/listenupapp/sortir/internal/logger"
	"github.com/listenupapp/sortir/internal/metrics"
	"github.com/listenupapp/sortir/internal/reservations"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer h.handler.Close()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the local HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	gw := do.MustInvoke[*GatewayHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	services := &api.Services{
		Store:        storeHandle.Medium,
		Favorites:    do.MustInvoke[*favorites.Store](i),
		Reservations: do.MustInvoke[*reservations.Manager](i),
		Session:      do.MustInvoke[*auth.SessionVault](i),
		SSE:          sseHandle.Manager,
		Metrics:      m.Handler(),
	}
	registerGauges(m, services, gw)

	opts := api.DefaultOptions()
	if len(cfg.API.AllowedOrigins) > 0 {
		opts.AllowedOrigins = cfg.API.AllowedOrigins
	}

	handler := api.NewServer(services, opts, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.API.Port,
		Handler:      handler,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// Start in background
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server error")
		}
	}()

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}

func registerGauges(m *metrics.Metrics, services *api.Services, gw *GatewayHandle) {
	m.GaugeFunc("favorites", "Favorites currently held.", func() float64 {
		return float64(len(services.Favorites.List()))
	})
	m.GaugeFunc("reservations", "Reservations in the last applied snapshot.", func() float64 {
		return float64(len(services.Reservations.All()))
	})
	m.GaugeFunc("reservations_stale", "Whether the last fetch failed.", func() float64 {
		return metrics.Bool(services.Reservations.Snapshot().Stale)
	})
	m.GaugeFunc("pending_payments", "Payment hand-offs awaiting confirmation.", func() float64 {
		return float64(len(services.Reservations.PendingPayments()))
	})
	m.GaugeFunc("stream_clients", "Connected change stream clients.", func() float64 {
		return float64(services.SSE.ClientCount())
	})
	m.GaugeFunc("gateway_circuit_open", "Whether the gateway is failing fast.", func() float64 {
		return metrics.Bool(gw.CircuitOpen())
	})
	m.GaugeFunc("session_active", "Whether an authenticated session is available.", func() float64 {
		_, ok := services.Session.Current()
		return metrics.Bool(ok)
	})
}
