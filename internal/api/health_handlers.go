package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/sortir/internal/errors"
	"github.com/listenupapp/sortir/internal/store"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns client core health with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"store":        s.checkStore(ctx),
		"reservations": s.checkReservations(),
		"sse":          s.checkSSEManager(),
	}

	overall := statusHealthy
	for _, c := range components {
		switch {
		case c.Status == statusUnhealthy:
			overall = statusUnhealthy
		case c.Status == statusDegraded && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkStore verifies the key/value medium answers reads.
func (s *Server) checkStore(ctx context.Context) ComponentHealth {
	if s.services.Store == nil {
		return ComponentHealth{Status: statusDegraded, Message: "store not configured"}
	}

	start := time.Now()
	_, err := s.services.Store.Get(ctx, store.KeyFavorites)
	latency := time.Since(start)

	// A missing key still proves the medium is readable.
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "store read failed",
		}
	}

	return ComponentHealth{Status: statusHealthy, Latency: latency.String()}
}

// checkReservations reports degraded while the mirror is serving stale data.
func (s *Server) checkReservations() ComponentHealth {
	if s.services.Reservations == nil {
		return ComponentHealth{Status: statusDegraded, Message: "reservations not configured"}
	}

	snap := s.services.Reservations.Snapshot()
	switch {
	case snap.Stale:
		return ComponentHealth{Status: statusDegraded, Message: "last fetch failed: " + snap.LastError}
	case snap.Sequence == 0:
		return ComponentHealth{Status: statusHealthy, Message: "not fetched yet"}
	default:
		return ComponentHealth{Status: statusHealthy}
	}
}

// checkSSEManager reports the change stream fan-out.
func (s *Server) checkSSEManager() ComponentHealth {
	if s.services.SSE == nil {
		return ComponentHealth{Status: statusDegraded, Message: "SSE manager not configured"}
	}

	switch count := s.services.SSE.ClientCount(); count {
	case 0:
		return ComponentHealth{Status: statusHealthy, Message: "no connected clients"}
	case 1:
		return ComponentHealth{Status: statusHealthy, Message: "1 connected client"}
	default:
		return ComponentHealth{Status: statusHealthy, Message: strconv.Itoa(count) + " connected clients"}
	}
}
