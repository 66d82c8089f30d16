package sse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/sortir/internal/domain"
	"github.com/listenupapp/sortir/internal/logger"
)

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestManager_BroadcastsToSubscribers(t *testing.T) {
	m := NewManager(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	all, err := m.Connect()
	require.NoError(t, err)
	favOnly, err := m.Connect("favorites")
	require.NoError(t, err)
	assert.Equal(t, 2, m.ClientCount())

	m.Emit(NewReservationsUpdatedEvent(1, 2, time.Now()))
	m.Emit(NewFavoritesChangedEvent(FavoriteAdded, domain.FavoriteKey{EntityID: 42, EntityType: domain.EntityEvent}, 1))

	assert.Equal(t, EventReservationsUpdated, receive(t, all).Type)
	assert.Equal(t, EventFavoritesChanged, receive(t, all).Type)

	got := receive(t, favOnly)
	assert.Equal(t, EventFavoritesChanged, got.Type)
	data, ok := got.Data.(FavoritesChangedData)
	require.True(t, ok)
	assert.Equal(t, int64(42), data.EntityID)
}

func TestManager_DisconnectClosesChannels(t *testing.T) {
	m := NewManager(logger.Discard())

	c, err := m.Connect()
	require.NoError(t, err)
	m.Disconnect(c.ID)
	m.Disconnect(c.ID)

	_, open := <-c.EventChan
	assert.False(t, open)
	assert.Equal(t, 0, m.ClientCount())
}

func TestManager_ShutdownDrainsAndDropsLateEvents(t *testing.T) {
	m := NewManager(logger.Discard())

	c, err := m.Connect()
	require.NoError(t, err)

	m.Emit(NewPaymentInitiatedEvent(7, "sess_1"))
	require.NoError(t, m.Shutdown(context.Background()))

	// Emitting after shutdown must not panic.
	assert.NotPanics(t, func() { m.Emit(NewHeartbeatEvent()) })

	first, ok := <-c.EventChan
	require.True(t, ok)
	assert.Equal(t, EventPaymentInitiated, first.Type)

	_, open := <-c.EventChan
	assert.False(t, open, "shutdown closes client channels")
}

func TestEventType_Topic(t *testing.T) {
	assert.Equal(t, "favorites", EventFavoritesChanged.Topic())
	assert.Equal(t, "reservations", EventReservationsStale.Topic())
	assert.Equal(t, "heartbeat", EventHeartbeat.Topic())
}

func TestClient_WantsHeartbeat(t *testing.T) {
	c := &Client{Topics: map[string]bool{"payment": true}}
	assert.True(t, c.Wants(EventHeartbeat))
	assert.True(t, c.Wants(EventPaymentInitiated))
	assert.False(t, c.Wants(EventFavoritesChanged))
}

func TestManager_NumbersEventsButNotHeartbeats(t *testing.T) {
	m := NewManager(logger.Discard())
	c, err := m.Connect()
	require.NoError(t, err)

	m.publish(NewHeartbeatEvent())
	m.publish(NewPaymentInitiatedEvent(1, "sess_1"))
	m.publish(NewHeartbeatEvent())
	m.publish(NewPaymentInitiatedEvent(2, "sess_2"))

	var ids []uint64
	for range 4 {
		ids = append(ids, receive(t, c).ID)
	}
	assert.Equal(t, []uint64{0, 1, 0, 2}, ids)
	assert.Equal(t, uint64(2), m.LastID())
}

func TestManager_Since(t *testing.T) {
	m := NewManager(logger.Discard())
	all := &Client{}
	favOnly := &Client{Topics: map[string]bool{"favorites": true}}

	events, complete := m.Since(0, all)
	assert.True(t, complete, "nothing published yet")
	assert.Empty(t, events)

	m.publish(NewReservationsUpdatedEvent(1, 0, time.Now()))
	m.publish(NewFavoritesChangedEvent(FavoriteAdded, domain.FavoriteKey{EntityID: 1, EntityType: domain.EntityEvent}, 1))
	m.publish(NewReservationsStaleEvent(2, assert.AnError))

	events, complete = m.Since(1, all)
	require.True(t, complete)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(2), events[0].ID)
	assert.Equal(t, uint64(3), events[1].ID)

	events, complete = m.Since(0, favOnly)
	require.True(t, complete)
	require.Len(t, events, 1)
	assert.Equal(t, EventFavoritesChanged, events[0].Type)

	events, complete = m.Since(3, all)
	assert.True(t, complete)
	assert.Empty(t, events)

	events, complete = m.Since(9, all)
	assert.False(t, complete, "id issued before a restart")
	assert.Empty(t, events)
}

func TestManager_SinceReportsLostHistory(t *testing.T) {
	m := NewManager(logger.Discard())
	for i := range defaultHistory + 2 {
		m.publish(NewPaymentInitiatedEvent(int64(i), "sess"))
	}

	_, complete := m.Since(1, &Client{})
	assert.False(t, complete, "events 2 and earlier were evicted")

	events, complete := m.Since(2, &Client{})
	assert.True(t, complete)
	assert.Len(t, events, defaultHistory)
	assert.Equal(t, uint64(3), events[0].ID)
}
