package auth

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/listenupapp/sortir/internal/domain"
	"github.com/listenupapp/sortir/internal/errors"
	"github.com/listenupapp/sortir/internal/store"
	"github.com/listenupapp/sortir/internal/validation"
)

const tokenIssuer = "sortir-device"

// IdentityProvider supplies the current authenticated identity.
type IdentityProvider interface {
	Current() (domain.Identity, bool)
}

// SessionVault persists the signed-in identity sealed with the device key.
// Expired or unreadable sessions are treated as absent.
type SessionVault struct {
	medium    store.Medium
	key       paseto.V4SymmetricKey
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	current *domain.Identity
}

var _ IdentityProvider = (*SessionVault)(nil)

// NewSessionVault creates a vault and restores any previously saved session.
func NewSessionVault(ctx context.Context, medium store.Medium, keyBytes []byte, logger *slog.Logger) (*SessionVault, error) {
	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	v := &SessionVault{
		medium:    medium,
		key:       key,
		validator: validation.New(),
		logger:    logger,
		now:       time.Now,
	}

	if err := v.restore(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *SessionVault) restore(ctx context.Context) error {
	sealed, err := v.medium.Get(ctx, store.KeySession)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	ident, err := v.open(string(sealed))
	if err != nil {
		v.logger.Warn("stored session unreadable, ignoring", slog.String("error", err.Error()))
		return nil
	}

	v.mu.Lock()
	v.current = &ident
	v.mu.Unlock()
	v.logger.Debug("session restored", slog.String("user_id", ident.UserID))
	return nil
}

// Current returns the identity if one is saved and not expired.
func (v *SessionVault) Current() (domain.Identity, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.current == nil || !v.current.Active(v.now()) {
		return domain.Identity{}, false
	}
	return *v.current, true
}

// Save seals and persists ident, replacing any previous session.
func (v *SessionVault) Save(ctx context.Context, ident domain.Identity) error {
	if err := v.validator.Validate(ident); err != nil {
		return err
	}
	if !ident.Active(v.now()) {
		return errors.Validation("session already expired")
	}

	if err := v.medium.Set(ctx, store.KeySession, []byte(v.seal(ident))); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	v.mu.Lock()
	v.current = &ident
	v.mu.Unlock()
	v.logger.Info("session saved", slog.String("user_id", ident.UserID))
	return nil
}

// Clear removes the saved session.
func (v *SessionVault) Clear(ctx context.Context) error {
	if err := v.medium.Delete(ctx, store.KeySession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	v.mu.Lock()
	v.current = nil
	v.mu.Unlock()
	v.logger.Info("session cleared")
	return nil
}

func (v *SessionVault) seal(ident domain.Identity) string {
	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(ident.UserID)
	token.SetIssuedAt(v.now())
	if !ident.ExpiresAt.IsZero() {
		token.SetExpiration(ident.ExpiresAt)
	}
	token.SetString("bearer", ident.Token)

	// The storage key is bound as the implicit assertion.
	return token.V4Encrypt(v.key, []byte(store.KeySession))
}

func (v *SessionVault) open(sealed string) (domain.Identity, error) {
	// Expiry is checked by Current so that a restored session can lapse while running.
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	token, err := parser.ParseV4Local(v.key, sealed, []byte(store.KeySession))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid session token: %w", err)
	}

	var claims sessionClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return domain.Identity{}, fmt.Errorf("parse claims: %w", err)
	}

	return domain.Identity{
		UserID:    claims.Subject,
		Token:     claims.Bearer,
		ExpiresAt: claims.Expiration,
	}, nil
}
