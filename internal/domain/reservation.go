package domain

import "time"

// ReservationStatus is the remote-authoritative state of a reservation.
//
//	pending --> confirmed   [terminal]
//	pending --> cancelled   [terminal]
type ReservationStatus string

// Reservation statuses.
const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// CanTransitionTo reports whether the remote side may legally move a reservation from s to next.
// Staying in the same status is always allowed.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	if s == next {
		return true
	}
	return s == StatusPending && next.IsTerminal()
}

// ReservationRecord mirrors a reservation as reported by the remote gateway.
// Status is never changed locally.
type ReservationRecord struct {
	ScheduledAt      time.Time         `json:"scheduled_at" validate:"required"`
	Note             *string           `json:"note,omitempty"`
	PaymentReference *string           `json:"payment_reference,omitempty"`
	SubjectName      string            `json:"subject_name"`
	Status           ReservationStatus `json:"status" validate:"required,oneof=pending confirmed cancelled"`
	LocationLabel    string            `json:"location_label"`
	ID               int64             `json:"id" validate:"gt=0"`
	GuestCount       int               `json:"guest_count" validate:"gt=0"`
}

// IsUpcoming reports whether the reservation is scheduled at or after now.
func (r ReservationRecord) IsUpcoming(now time.Time) bool {
	return !r.ScheduledAt.Before(now)
}

// StatusChange is a status-change notice delivered by the push channel.
// It is a hint to re-fetch, not an authoritative update.
type StatusChange struct {
	OccurredAt       time.Time         `json:"occurred_at"`
	PaymentReference *string           `json:"payment_reference,omitempty"`
	Status           ReservationStatus `json:"status"`
	ReservationID    int64             `json:"reservation_id"`
}
