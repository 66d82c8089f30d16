package domain

import (
	"fmt"
	"time"
)

// EntityType is the kind of thing a user can mark as a favorite.
type EntityType string

// Favoritable entity types.
const (
	EntityEvent      EntityType = "event"
	EntityRestaurant EntityType = "restaurant"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	return t == EntityEvent || t == EntityRestaurant
}

// ParseEntityType converts a raw string to an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// FavoriteKey is the identity of a favorite. At most one FavoriteItem exists per key.
type FavoriteKey struct {
	EntityID   int64
	EntityType EntityType
}

// Valid reports whether the key can identify a favorite.
func (k FavoriteKey) Valid() bool {
	return k.EntityID > 0 && k.EntityType.Valid()
}

func (k FavoriteKey) String() string {
	return fmt.Sprintf("%s:%d", k.EntityType, k.EntityID)
}

// FavoriteItem is a persisted (entity, type) mark.
type FavoriteItem struct {
	AddedAt    time.Time  `json:"added_at"`
	EntityType EntityType `json:"entity_type" validate:"required,oneof=event restaurant"`
	EntityID   int64      `json:"entity_id" validate:"gt=0"`
}

// Key returns the item's identity.
func (f FavoriteItem) Key() FavoriteKey {
	return FavoriteKey{EntityID: f.EntityID, EntityType: f.EntityType}
}
