package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/sortir/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, KeyFavorites, []byte(`[]`)))

	got, err := s.Get(ctx, KeyFavorites)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)

	require.NoError(t, s.Delete(ctx, KeyFavorites))
	_, err = s.Get(ctx, KeyFavorites)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestStore_DeleteMissingKey(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Delete(context.Background(), "sortir:missing"))
}

func TestStore_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Set(ctx, KeyFavorites, []byte(`[]`)), context.Canceled)
	_, err := s.Get(ctx, KeyFavorites)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeySession, []byte("sealed")))
	require.NoError(t, s.Close())

	s, err = New(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, KeySession)
	require.NoError(t, err)
	assert.Equal(t, "sealed", string(got))
}

func TestJSONHelpers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type entry struct {
		Name string `json:"name"`
	}
	require.NoError(t, SetJSON(ctx, s, "sortir:test", []entry{{Name: "a"}, {Name: "b"}}))

	var got []entry
	require.NoError(t, GetJSON(ctx, s, "sortir:test", &got))
	assert.Equal(t, []entry{{Name: "a"}, {Name: "b"}}, got)

	require.NoError(t, s.Set(ctx, "sortir:bad", []byte("{")))
	err := GetJSON(ctx, s, "sortir:bad", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
