package payment

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/sortir/internal/logger"
)

func TestHostedCheckout_URL(t *testing.T) {
	h, err := NewHostedCheckout("https://pay.sortir.example/checkout?locale=fr", nil, logger.Discard())
	require.NoError(t, err)

	got, err := url.Parse(h.URL(Session{SessionID: "cs_123", ReservationID: 7}))
	require.NoError(t, err)

	assert.Equal(t, "pay.sortir.example", got.Host)
	assert.Equal(t, "/checkout", got.Path)
	assert.Equal(t, "cs_123", got.Query().Get("session_id"))
	assert.Equal(t, "7", got.Query().Get("reservation_id"))
	assert.Equal(t, "fr", got.Query().Get("locale"))
}

func TestHostedCheckout_Open(t *testing.T) {
	var opened []string
	h, err := NewHostedCheckout("https://pay.sortir.example/checkout", func(_ context.Context, target string) error {
		opened = append(opened, target)
		return nil
	}, logger.Discard())
	require.NoError(t, err)

	require.NoError(t, h.Open(context.Background(), Session{SessionID: "cs_1", ReservationID: 1}))
	require.Len(t, opened, 1)
	assert.Contains(t, opened[0], "session_id=cs_1")

	assert.Error(t, h.Open(context.Background(), Session{ReservationID: 1}))
	assert.Len(t, opened, 1)
}

func TestHostedCheckout_OpenerFailure(t *testing.T) {
	boom := errors.New("no browser")
	h, err := NewHostedCheckout("https://pay.sortir.example", func(context.Context, string) error { return boom }, logger.Discard())
	require.NoError(t, err)

	assert.ErrorIs(t, h.Open(context.Background(), Session{SessionID: "cs_1", ReservationID: 1}), boom)
}

func TestNewHostedCheckout_RejectsRelative(t *testing.T) {
	_, err := NewHostedCheckout("/checkout", nil, logger.Discard())
	assert.Error(t, err)
}

func TestLogOpener(t *testing.T) {
	assert.NoError(t, LogOpener(logger.Discard())(context.Background(), "https://pay.example"))
}
