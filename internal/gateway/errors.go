package gateway

import (
	"errors"
	"fmt"

	domainerrors "github.com/listenupapp/sortir/internal/errors"
)

// Sentinel errors for gateway operations.
var (
	ErrNoIdentity   = errors.New("gateway: no authenticated identity")
	ErrUnauthorized = errors.New("gateway: credential rejected")
	ErrNotFound     = errors.New("gateway: not found")
	ErrConflict     = errors.New("gateway: reservation not payable")
	ErrRateLimited  = errors.New("gateway: rate limited by server")
	ErrUnavailable  = errors.New("gateway: unavailable")
	ErrBadResponse  = errors.New("gateway: malformed response")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Err           error
	Op            string // "listReservations", "createPaymentSession"
	ReservationID int64  // If applicable
}

func (e *Error) Error() string {
	if e.ReservationID != 0 {
		return fmt.Sprintf("gateway %s [%d]: %v", e.Op, e.ReservationID, e.Err)
	}
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, reservationID int64, err error) error {
	return &Error{Op: op, ReservationID: reservationID, Err: err}
}

// Code maps a gateway failure onto the client core's error taxonomy.
func Code(err error) domainerrors.Code {
	switch {
	case errors.Is(err, ErrNoIdentity):
		return domainerrors.CodeAuthRequired
	case errors.Is(err, ErrUnauthorized):
		return domainerrors.CodeUnauthorized
	case errors.Is(err, ErrNotFound):
		return domainerrors.CodeNotFound
	case errors.Is(err, ErrConflict):
		return domainerrors.CodeInvalidState
	default:
		return domainerrors.CodeRemoteUnavailable
	}
}
