// Package sse implements the change stream the presentation layer subscribes to for re-render triggers.
package sse

import (
	"strings"
	"time"

	"github.com/listenupapp/sortir/internal/domain"
)

// EventType represents the type of SSE Event. The part before the first dot is its topic.
type EventType string

const (
	// EventFavoritesChanged is emitted after a favorites mutation is committed.
	EventFavoritesChanged EventType = "favorites.changed"

	// EventReservationsUpdated is emitted when a fetched snapshot is applied.
	EventReservationsUpdated EventType = "reservations.updated"
	// EventReservationsStale is emitted when a fetch fails and the previous snapshot is kept.
	EventReservationsStale EventType = "reservations.stale"

	// EventPaymentInitiated is emitted after a payment session is handed to the front-end.
	EventPaymentInitiated EventType = "payment.initiated"

	// EventStreamReset tells a reconnecting client that replay is incomplete and it must re-read all state.
	EventStreamReset EventType = "stream.reset"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Topic returns the event's topic ("favorites", "reservations", ...).
func (t EventType) Topic() string {
	topic, _, _ := strings.Cut(string(t), ".")
	return topic
}

// Event represents an SSE event to be sent to clients.
// ID is assigned by the Manager when the event is published; heartbeats carry none.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	ID        uint64    `json:"id,omitzero"`
}

// Emitter is implemented by anything that can publish change events.
// Components depend on it rather than on the Manager.
type Emitter interface {
	Emit(event Event)
}

// NoopEmitter discards events. Used by tests and when no stream is wired.
type NoopEmitter struct{}

// Emit implements Emitter as a no-op.
func (NoopEmitter) Emit(Event) {}

// FavoriteAction says what happened to a favorite.
type FavoriteAction string

// Favorite actions.
const (
	FavoriteAdded   FavoriteAction = "added"
	FavoriteRemoved FavoriteAction = "removed"
)

// FavoritesChangedData is the payload of favorites.changed.
type FavoritesChangedData struct {
	Action     FavoriteAction    `json:"action"`
	EntityType domain.EntityType `json:"entity_type"`
	EntityID   int64             `json:"entity_id"`
	Count      int               `json:"count"`
}

// ReservationsUpdatedData is the payload of reservations.updated.
type ReservationsUpdatedData struct {
	FetchedAt time.Time `json:"fetched_at"`
	Sequence  uint64    `json:"sequence"`
	Count     int       `json:"count"`
}

// ReservationsStaleData is the payload of reservations.stale.
type ReservationsStaleData struct {
	Error    string `json:"error"`
	Sequence uint64 `json:"sequence"`
}

// PaymentInitiatedData is the payload of payment.initiated.
type PaymentInitiatedData struct {
	SessionID     string `json:"session_id"`
	ReservationID int64  `json:"reservation_id"`
}

// NewFavoritesChangedEvent creates a favorites.changed event.
func NewFavoritesChangedEvent(action FavoriteAction, key domain.FavoriteKey, count int) Event {
	return Event{
		Type:      EventFavoritesChanged,
		Timestamp: time.Now(),
		Data: FavoritesChangedData{
			Action:     action,
			EntityID:   key.EntityID,
			EntityType: key.EntityType,
			Count:      count,
		},
	}
}

// NewReservationsUpdatedEvent creates a reservations.updated event.
func NewReservationsUpdatedEvent(sequence uint64, count int, fetchedAt time.Time) Event {
	return Event{
		Type:      EventReservationsUpdated,
		Timestamp: time.Now(),
		Data:      ReservationsUpdatedData{Sequence: sequence, Count: count, FetchedAt: fetchedAt},
	}
}

// NewReservationsStaleEvent creates a reservations.stale event.
func NewReservationsStaleEvent(sequence uint64, err error) Event {
	return Event{
		Type:      EventReservationsStale,
		Timestamp: time.Now(),
		Data:      ReservationsStaleData{Sequence: sequence, Error: err.Error()},
	}
}

// NewPaymentInitiatedEvent creates a payment.initiated event.
func NewPaymentInitiatedEvent(reservationID int64, sessionID string) Event {
	return Event{
		Type:      EventPaymentInitiated,
		Timestamp: time.Now(),
		Data:      PaymentInitiatedData{ReservationID: reservationID, SessionID: sessionID},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      struct{}{},
	}
}
