package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/sortir/internal/domain"
	"github.com/listenupapp/sortir/internal/gateway"
)

var errTestUnavailable = fmt.Errorf("list: %w", gateway.ErrUnavailable)

func reservation(id int64, status domain.ReservationStatus, at time.Time) domain.ReservationRecord {
	return domain.ReservationRecord{
		ID:            id,
		SubjectName:   fmt.Sprintf("Table %d", id),
		ScheduledAt:   at,
		GuestCount:    2,
		Status:        status,
		LocationLabel: "Le Comptoir",
	}
}

func TestReservations_RefreshAndViews(t *testing.T) {
	ts := setupTestServer(t, DefaultOptions())
	ts.gateway.records = []domain.ReservationRecord{
		reservation(3, domain.StatusConfirmed, testNow.Add(48*time.Hour)),
		reservation(1, domain.StatusCancelled, testNow.Add(-48*time.Hour)),
		reservation(2, domain.StatusPending, testNow),
	}

	resp := ts.api.Post("/api/v1/reservations/refresh")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	refreshed := decodeEnvelope[ReservationsResponse](t, resp)
	require.Len(t, refreshed.Data.Records, 3)
	assert.Equal(t, int64(1), refreshed.Data.Records[0].ID)
	assert.Equal(t, uint64(1), refreshed.Data.Sequence)
	assert.False(t, refreshed.Data.Stale)

	upcoming := decodeEnvelope[ReservationsResponse](t, ts.api.Get("/api/v1/reservations?view=upcoming"))
	assert.Equal(t, "upcoming", upcoming.Data.View)
	require.Len(t, upcoming.Data.Records, 2)
	assert.Equal(t, int64(2), upcoming.Data.Records[0].ID)

	past := decodeEnvelope[ReservationsResponse](t, ts.api.Get("/api/v1/reservations?view=past"))
	require.Len(t, past.Data.Records, 1)
	assert.Equal(t, int64(1), past.Data.Records[0].ID)

	all := decodeEnvelope[ReservationsResponse](t, ts.api.Get("/api/v1/reservations"))
	assert.Equal(t, "all", all.Data.View)
	assert.Len(t, all.Data.Records, 3)
}

func TestReservations_EmptyBeforeFetch(t *testing.T) {
	ts := setupTestServer(t, DefaultOptions())

	env := decodeEnvelope[ReservationsResponse](t, ts.api.Get("/api/v1/reservations"))
	assert.NotNil(t, env.Data.Records)
	assert.Empty(t, env.Data.Records)
	assert.Empty(t, env.Data.Pending)
}

func TestReservations_RefreshFailureKeepsLastGood(t *testing.T) {
	ts := setupTestServer(t, DefaultOptions())
	ts.gateway.records = []domain.ReservationRecord{reservation(1, domain.StatusPending, testNow.Add(time.Hour))}
	require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/reservations/refresh").Code)

	ts.gateway.mu.Lock()
	ts.gateway.listErr = errTestUnavailable
	ts.gateway.mu.Unlock()

	resp := ts.api.Post("/api/v1/reservations/refresh")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "REMOTE_UNAVAILABLE", decodeEnvelope[any](t, resp).Code)

	env := decodeEnvelope[ReservationsResponse](t, ts.api.Get("/api/v1/reservations"))
	assert.True(t, env.Data.Stale)
	assert.NotEmpty(t, env.Data.LastError)
	assert.Len(t, env.Data.Records, 1)
}

func TestReservations_RefreshWithoutIdentity(t *testing.T) {
	ts := setupTestServer(t, DefaultOptions())
	ts.gateway.listErr = fmt.Errorf("list: %w", gateway.ErrNoIdentity)

	resp := ts.api.Post("/api/v1/reservations/refresh")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "AUTH_REQUIRED", decodeEnvelope[any](t, resp).Code)
}

func TestReservations_InitiatePayment(t *testing.T) {
	ts := setupTestServer(t, DefaultOptions())
	ts.gateway.records = []domain.ReservationRecord{
		reservation(5, domain.StatusPending, testNow.Add(time.Hour)),
		reservation(6, domain.StatusConfirmed, testNow.Add(2*time.Hour)),
	}
	require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/reservations/refresh").Code)

	resp := ts.api.Post("/api/v1/reservations/5/payment")
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	env := decodeEnvelope[PaymentResponse](t, resp)
	assert.Equal(t, "cs_test_1", env.Data.SessionID)
	assert.Equal(t, int64(5), env.Data.ReservationID)
	require.Len(t, ts.frontEnd.opened, 1)

	// Local status is untouched until the next fetch.
	list := decodeEnvelope[ReservationsResponse](t, ts.api.Get("/api/v1/reservations"))
	assert.Equal(t, domain.StatusPending, list.Data.Records[0].Status)
	require.Len(t, list.Data.Pending, 1)
	assert.Equal(t, int64(5), list.Data.Pending[0].ReservationID)
}

func TestReservations_InitiatePaymentRejected(t *testing.T) {
	ts := setupTestServer(t, DefaultOptions())
	ts.gateway.records = []domain.ReservationRecord{reservation(6, domain.StatusConfirmed, testNow.Add(time.Hour))}
	require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/reservations/refresh").Code)

	resp := ts.api.Post("/api/v1/reservations/6/payment")
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "INVALID_STATE", decodeEnvelope[any](t, resp).Code)

	resp = ts.api.Post("/api/v1/reservations/404/payment")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope[any](t, resp).Code)

	assert.Empty(t, ts.gateway.sessions)
}
