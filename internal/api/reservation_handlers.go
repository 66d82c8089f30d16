package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/sortir/internal/domain"
	"github.com/listenupapp/sortir/internal/reservations"
)

// Reservation views.
const (
	viewAll      = "all"
	viewUpcoming = "upcoming"
	viewPast     = "past"
)

func (s *Server) registerReservationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listReservations",
		Method:      http.MethodGet,
		Path:        "/api/v1/reservations",
		Summary:     "List reservations",
		Description: "Returns the last fetched reservations. Does not contact the remote gateway",
		Tags:        []string{"Reservations"},
	}, s.handleListReservations)

	huma.Register(s.api, huma.Operation{
		OperationID: "refreshReservations",
		Method:      http.MethodPost,
		Path:        "/api/v1/reservations/refresh",
		Summary:     "Refresh reservations",
		Description: "Fetches the user's reservations from the remote gateway",
		Tags:        []string{"Reservations"},
	}, s.handleRefreshReservations)

	huma.Register(s.api, huma.Operation{
		OperationID:   "initiatePayment",
		Method:        http.MethodPost,
		Path:          "/api/v1/reservations/{id}/payment",
		Summary:       "Initiate payment",
		Description:   "Creates a payment session for a pending reservation and opens the external checkout",
		Tags:          []string{"Reservations"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleInitiatePayment)
}

// === DTOs ===

// ListReservationsInput contains parameters for listing reservations.
type ListReservationsInput struct {
	View string `query:"view" enum:"all,upcoming,past" default:"all" doc:"Which partition to return"`
}

// ReservationsResponse contains the reservation mirror.
type ReservationsResponse struct {
	FetchedAt time.Time                    `json:"fetched_at" doc:"When the records were fetched"`
	LastError string                       `json:"last_error,omitempty" doc:"Message of the last failed fetch"`
	View      string                       `json:"view" doc:"Partition returned"`
	Records   []domain.ReservationRecord   `json:"records" doc:"Reservations ordered by scheduled time"`
	Pending   []reservations.PaymentHandle `json:"pending_payments" doc:"Payments awaiting remote confirmation"`
	Sequence  uint64                       `json:"sequence" doc:"Sequence of the applied fetch"`
	Stale     bool                         `json:"stale" doc:"True when the last fetch failed"`
}

// ReservationsOutput wraps the reservations response for Huma.
type ReservationsOutput struct {
	Body ReservationsResponse
}

// RefreshReservationsOutput wraps the refreshed reservations for Huma.
type RefreshReservationsOutput struct {
	Body ReservationsResponse
}

// InitiatePaymentInput identifies the reservation to pay.
type InitiatePaymentInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Reservation ID"`
}

// PaymentResponse describes a started payment hand-off.
type PaymentResponse struct {
	StartedAt     time.Time `json:"started_at" doc:"When the hand-off started"`
	SessionID     string    `json:"session_id" doc:"Remote payment session"`
	ReservationID int64     `json:"reservation_id" doc:"Reservation being paid"`
}

// PaymentOutput wraps the payment response for Huma.
type PaymentOutput struct {
	Body PaymentResponse
}

// === Handlers ===

func (s *Server) handleListReservations(_ context.Context, input *ListReservationsInput) (*ReservationsOutput, error) {
	return &ReservationsOutput{Body: s.reservationsBody(s.services.Reservations.Snapshot(), input.View)}, nil
}

func (s *Server) handleRefreshReservations(ctx context.Context, _ *struct{}) (*RefreshReservationsOutput, error) {
	snap, err := s.services.Reservations.FetchMine(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &RefreshReservationsOutput{Body: s.reservationsBody(snap, viewAll)}, nil
}

func (s *Server) handleInitiatePayment(ctx context.Context, input *InitiatePaymentInput) (*PaymentOutput, error) {
	handle, err := s.services.Reservations.InitiatePayment(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}

	return &PaymentOutput{
		Body: PaymentResponse{
			StartedAt:     handle.StartedAt,
			SessionID:     handle.SessionID,
			ReservationID: handle.ReservationID,
		},
	}, nil
}

func (s *Server) reservationsBody(snap reservations.Snapshot, view string) ReservationsResponse {
	if view == "" {
		view = viewAll
	}

	records := snap.Records
	switch view {
	case viewUpcoming:
		records = reservations.Classify(snap.Records, s.now()).Upcoming
	case viewPast:
		records = reservations.Classify(snap.Records, s.now()).Past
	}
	if records == nil {
		records = []domain.ReservationRecord{}
	}

	return ReservationsResponse{
		FetchedAt: snap.FetchedAt,
		LastError: snap.LastError,
		View:      view,
		Records:   records,
		Pending:   s.services.Reservations.PendingPayments(),
		Sequence:  snap.Sequence,
		Stale:     snap.Stale,
	}
}
