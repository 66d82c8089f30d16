// Package favorites owns the persisted, deduplicated set of favorite marks.
//
// A single Store is created at startup and passed by reference to everything
// that reads or mutates favorites. Every mutation is committed to the durable
// medium before it becomes visible in memory, and then announced on the
// change stream.
package favorites

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/listenupapp/sortir/internal/domain"
	"github.com/listenupapp/sortir/internal/errors"
	"github.com/listenupapp/sortir/internal/sse"
	"github.com/listenupapp/sortir/internal/store"
	"github.com/listenupapp/sortir/internal/validation"
)

// IdentityProvider supplies the current authenticated identity, if any.
type IdentityProvider interface {
	Current() (domain.Identity, bool)
}

// Store is the favorites store.
type Store struct {
	medium    store.Medium
	identity  IdentityProvider
	emitter   sse.Emitter
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.RWMutex
	items []domain.FavoriteItem
	index map[domain.FavoriteKey]struct{}
}

// New loads the persisted favorites from medium and returns a ready Store.
// A persisted value that cannot be decoded is copied to the quarantine key and
// the store starts empty; it is only overwritten by the next mutation.
func New(ctx context.Context, medium store.Medium, identity IdentityProvider, emitter sse.Emitter, logger *slog.Logger) (*Store, error) {
	if emitter == nil {
		emitter = sse.NoopEmitter{}
	}
	s := &Store{
		medium:    medium,
		identity:  identity,
		emitter:   emitter,
		validator: validation.New(),
		logger:    logger,
		now:       time.Now,
		index:     make(map[domain.FavoriteKey]struct{}),
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	raw, err := s.medium.Get(ctx, store.KeyFavorites)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}

	var persisted []domain.FavoriteItem
	if err := json.Unmarshal(raw, &persisted); err != nil {
		s.logger.Warn("persisted favorites unreadable, starting empty",
			slog.String("error", err.Error()),
			slog.String("quarantine_key", store.KeyFavoritesQuarantine))
		if qerr := s.medium.Set(ctx, store.KeyFavoritesQuarantine, raw); qerr != nil {
			return fmt.Errorf("quarantine favorites: %w", qerr)
		}
		return nil
	}

	var dropped int
	for _, item := range persisted {
		if err := s.validator.Validate(item); err != nil {
			dropped++
			continue
		}
		if _, dup := s.index[item.Key()]; dup {
			dropped++
			continue
		}
		s.index[item.Key()] = struct{}{}
		s.items = append(s.items, item)
	}

	if dropped > 0 {
		s.logger.Warn("dropped invalid or duplicate favorites on load",
			slog.Int("dropped", dropped),
			slog.Int("kept", len(s.items)))
	}
	s.logger.Debug("favorites loaded", slog.Int("count", len(s.items)))
	return nil
}

// Add marks (entityID, entityType) as a favorite.
// It returns false without error when the mark already exists or when no
// authenticated identity is available, whatever the input; nothing is written
// in either case.
func (s *Store) Add(ctx context.Context, entityID int64, entityType domain.EntityType) (bool, error) {
	item := domain.FavoriteItem{EntityID: entityID, EntityType: entityType}
	if _, ok := s.identity.Current(); !ok {
		s.logger.Debug("favorite add skipped, no identity", slog.String("key", item.Key().String()))
		return false, nil
	}

	if err := s.validator.Validate(item); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[item.Key()]; exists {
		return false, nil
	}

	item.AddedAt = s.now().UTC()
	next := append(slices.Clone(s.items), item)
	if err := s.persist(ctx, next); err != nil {
		return false, err
	}

	s.items = next
	s.index[item.Key()] = struct{}{}
	s.emitter.Emit(sse.NewFavoritesChangedEvent(sse.FavoriteAdded, item.Key(), len(s.items)))
	return true, nil
}

// Remove unmarks (entityID, entityType). Removing an absent mark is not an error.
func (s *Store) Remove(ctx context.Context, entityID int64, entityType domain.EntityType) error {
	key := domain.FavoriteKey{EntityID: entityID, EntityType: entityType}
	if err := s.validator.Validate(domain.FavoriteItem{EntityID: entityID, EntityType: entityType}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[key]; !exists {
		return nil
	}

	next := slices.DeleteFunc(slices.Clone(s.items), func(it domain.FavoriteItem) bool {
		return it.Key() == key
	})
	if err := s.persist(ctx, next); err != nil {
		return err
	}

	s.items = next
	delete(s.index, key)
	s.emitter.Emit(sse.NewFavoritesChangedEvent(sse.FavoriteRemoved, key, len(s.items)))
	return nil
}

// persist writes the full ordered list. Callers hold s.mu.
func (s *Store) persist(ctx context.Context, items []domain.FavoriteItem) error {
	if items == nil {
		items = []domain.FavoriteItem{}
	}
	if err := store.SetJSON(ctx, s.medium, store.KeyFavorites, items); err != nil {
		s.logger.Error("failed to persist favorites", slog.String("error", err.Error()))
		return errors.Wrap(err, errors.CodeInternal, "persist favorites")
	}
	return nil
}

// Contains reports whether (entityID, entityType) is a favorite.
func (s *Store) Contains(entityID int64, entityType domain.EntityType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[domain.FavoriteKey{EntityID: entityID, EntityType: entityType}]
	return ok
}

// ListByType returns the favorites of one type in insertion order.
func (s *Store) ListByType(entityType domain.EntityType) []domain.FavoriteItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.FavoriteItem, 0)
	for _, it := range s.items {
		if it.EntityType == entityType {
			out = append(out, it)
		}
	}
	return out
}

// List returns every favorite in insertion order.
func (s *Store) List() []domain.FavoriteItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]domain.FavoriteItem, 0, len(s.items)), s.items...)
}
