package providers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/sortir/internal/config"
	"github.com/listenupapp/sortir/internal/logger"
	"github.com/listenupapp/sortir/internal/sse"
	"github.com/listenupapp/sortir/internal/store"
	"github.com/listenupapp/sortir/internal/store/redis"
	"github.com/listenupapp/sortir/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the durable medium with shutdown capability.
type StoreHandle struct {
	store.Medium
	log *logger.Logger
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	h.log.Info("Closing store...")
	return h.Close()
}

// ProvideStore opens the medium selected by the storage backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
		return nil, err
	}

	var (
		medium store.Medium
		path   string
		err    error
	)
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		path = filepath.Join(cfg.Storage.DataPath, "sortir.db")
		medium, err = sqlite.Open(path, log.Logger)
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
		defer cancel()
		path = cfg.Storage.RedisAddr
		medium, err = redis.Open(ctx, path, log.Logger)
	default:
		path = filepath.Join(cfg.Storage.DataPath, "db")
		medium, err = store.New(path, log.Logger)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Store initialized", "backend", cfg.Storage.Backend, "path", path)

	return &StoreHandle{Medium: medium, log: log}, nil
}
