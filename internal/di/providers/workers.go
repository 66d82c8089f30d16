package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/sortir/internal/auth"
	"github.com/listenupapp/sortir/internal/config"
	"github.com/listenupapp/sortir/internal/logger"
	"github.com/listenupapp/sortir/internal/push"
	"github.com/listenupapp/sortir/internal/reservations"
)

// PushClientHandle wraps the push channel client with shutdown capability.
// Client is nil when no push URL is configured.
type PushClientHandle struct {
	*push.Client
}

// Shutdown implements do.Shutdownable.
func (h *PushClientHandle) Shutdown() error {
	if h.Client != nil {
		h.Stop()
	}
	return nil
}

// ProvidePushClient starts the push channel feeding status changes into the reservations manager.
func ProvidePushClient(i do.Injector) (*PushClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	vault := do.MustInvoke[*auth.SessionVault](i)
	manager := do.MustInvoke[*reservations.Manager](i)

	if cfg.Push.URL == "" {
		log.Info("Push channel disabled by configuration")
		return &PushClientHandle{}, nil
	}

	client := push.New(cfg.Push.URL, vault, manager.HandleStatusChange, log.Logger)
	client.Start(context.Background())

	log.Info("Push channel started", "url", cfg.Push.URL)

	return &PushClientHandle{Client: client}, nil
}

// ProvideInitialFetch fetches the reservations once at startup when a session is active.
// A failure is logged; the snapshot stays empty until the next refresh.
func ProvideInitialFetch(i do.Injector) (*InitialFetch, error) {
	log := do.MustInvoke[*logger.Logger](i)
	vault := do.MustInvoke[*auth.SessionVault](i)
	manager := do.MustInvoke[*reservations.Manager](i)

	if _, ok := vault.Current(); !ok {
		return &InitialFetch{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), initialFetchTimeout)
	defer cancel()

	snap, err := manager.FetchMine(ctx)
	if err != nil {
		log.WithError(err).Warn("Initial reservations fetch failed")
		return &InitialFetch{Err: err}, nil
	}

	log.WithField("count", len(snap.Records)).Info("Reservations fetched")
	return &InitialFetch{Done: true}, nil
}

// InitialFetch records the outcome of the startup fetch.
type InitialFetch struct {
	Err  error
	Done bool
}
