package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/sortir/internal/auth"
	"github.com/listenupapp/sortir/internal/config"
	"github.com/listenupapp/sortir/internal/logger"
)

// DeviceKey wraps the key that seals the persisted session.
type DeviceKey []byte

// ProvideDeviceKey loads or generates the device key.
func ProvideDeviceKey(i do.Injector) (DeviceKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Storage.DataPath)
	if err != nil {
		return nil, err
	}

	log.Info("Device key loaded", "data_path", cfg.Storage.DataPath)

	return DeviceKey(key), nil
}

// ProvideSessionVault provides the sealed identity session, restored from the medium.
func ProvideSessionVault(i do.Injector) (*auth.SessionVault, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	key := do.MustInvoke[DeviceKey](i)
	log := do.MustInvoke[*logger.Logger](i)

	vault, err := auth.NewSessionVault(context.Background(), storeHandle.Medium, key, log.Logger)
	if err != nil {
		return nil, err
	}

	if ident, ok := vault.Current(); ok {
		log.Info("Session restored", "user_id", ident.UserID)
	} else {
		log.Info("No active session")
	}

	return vault, nil
}
