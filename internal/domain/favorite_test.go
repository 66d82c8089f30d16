package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	got, err := ParseEntityType("restaurant")
	require.NoError(t, err)
	assert.Equal(t, EntityRestaurant, got)

	_, err = ParseEntityType("Event")
	assert.Error(t, err)
}

func TestFavoriteKey_Valid(t *testing.T) {
	assert.True(t, FavoriteKey{EntityID: 42, EntityType: EntityEvent}.Valid())
	assert.False(t, FavoriteKey{EntityID: 0, EntityType: EntityEvent}.Valid())
	assert.False(t, FavoriteKey{EntityID: 1, EntityType: "museum"}.Valid())
	assert.Equal(t, "event:42", FavoriteKey{EntityID: 42, EntityType: EntityEvent}.String())
}

func TestIdentity_Active(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, Identity{UserID: "u1", Token: "t"}.Active(now))
	assert.True(t, Identity{UserID: "u1", Token: "t", ExpiresAt: now.Add(time.Minute)}.Active(now))
	assert.False(t, Identity{UserID: "u1", Token: "t", ExpiresAt: now}.Active(now))
	assert.False(t, Identity{UserID: "u1"}.Active(now))
}
