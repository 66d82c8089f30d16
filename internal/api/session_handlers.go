package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/sortir/internal/domain"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/session",
		Summary:     "Get session",
		Description: "Reports whether an authenticated identity is available",
		Tags:        []string{"Session"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveSession",
		Method:      http.MethodPut,
		Path:        "/api/v1/session",
		Summary:     "Save session",
		Description: "Stores the signed-in identity supplied by the presentation layer",
		Tags:        []string{"Session"},
	}, s.handleSaveSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "clearSession",
		Method:      http.MethodDelete,
		Path:        "/api/v1/session",
		Summary:     "Clear session",
		Description: "Forgets the stored identity",
		Tags:        []string{"Session"},
	}, s.handleClearSession)
}

// === DTOs ===

// SessionResponse describes the current session without exposing the credential.
type SessionResponse struct {
	ExpiresAt     *time.Time `json:"expires_at,omitempty" doc:"When the session lapses"`
	UserID        string     `json:"user_id,omitempty" doc:"Signed-in user"`
	Authenticated bool       `json:"authenticated" doc:"Whether an identity is available"`
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// SaveSessionRequest is the request body for saving a session.
type SaveSessionRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty" doc:"Expiry of the bearer credential"`
	UserID    string     `json:"user_id" minLength:"1" doc:"User ID"`
	Token     string     `json:"token" minLength:"1" doc:"Bearer credential for the remote gateway"`
}

// SaveSessionInput wraps the save session request for Huma.
type SaveSessionInput struct {
	Body SaveSessionRequest
}

// === Handlers ===

func (s *Server) handleGetSession(_ context.Context, _ *struct{}) (*SessionOutput, error) {
	return &SessionOutput{Body: s.sessionBody()}, nil
}

func (s *Server) handleSaveSession(ctx context.Context, input *SaveSessionInput) (*SessionOutput, error) {
	ident := domain.Identity{UserID: input.Body.UserID, Token: input.Body.Token}
	if input.Body.ExpiresAt != nil {
		ident.ExpiresAt = *input.Body.ExpiresAt
	}

	if err := s.services.Session.Save(ctx, ident); err != nil {
		return nil, toAPIError(err)
	}
	return &SessionOutput{Body: s.sessionBody()}, nil
}

func (s *Server) handleClearSession(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	if err := s.services.Session.Clear(ctx); err != nil {
		return nil, toAPIError(err)
	}
	return &MessageOutput{Body: MessageResponse{Message: "Session cleared"}}, nil
}

func (s *Server) sessionBody() SessionResponse {
	ident, ok := s.services.Session.Current()
	if !ok {
		return SessionResponse{}
	}
	resp := SessionResponse{UserID: ident.UserID, Authenticated: true}
	if !ident.ExpiresAt.IsZero() {
		resp.ExpiresAt = &ident.ExpiresAt
	}
	return resp
}
