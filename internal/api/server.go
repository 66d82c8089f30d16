// Package api exposes the client core to the presentation layer over local HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/sortir/internal/auth"
	"github.com/listenupapp/sortir/internal/favorites"
	"github.com/listenupapp/sortir/internal/http/response"
	"github.com/listenupapp/sortir/internal/ratelimit"
	"github.com/listenupapp/sortir/internal/reservations"
	"github.com/listenupapp/sortir/internal/sse"
	"github.com/listenupapp/sortir/internal/store"
	"github.com/listenupapp/sortir/internal/validation"
)

// Services groups the components the handlers call into.
type Services struct {
	Store        store.Medium
	Favorites    *favorites.Store
	Reservations *reservations.Manager
	Session      *auth.SessionVault
	SSE          *sse.Manager
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	// RequestsPerSecond and Burst bound requests per client address.
	RequestsPerSecond float64
	Burst             int
}

// DefaultOptions returns options suitable for a local presentation layer.
func DefaultOptions() Options {
	return Options{
		AllowedOrigins:    []string{"http://localhost:*", "http://127.0.0.1:*"},
		RequestsPerSecond: 20,
		Burst:             40,
	}
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services   *Services
	router     chi.Router
	api        huma.API
	sseHandler *sse.Handler
	limiter    *ratelimit.KeyedRateLimiter
	validator  *validation.Validator
	logger     *slog.Logger
	now        func() time.Time
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		services:   services,
		router:     router,
		sseHandler: sse.NewHandler(services.SSE, logger),
		limiter:    ratelimit.New(opts.RequestsPerSecond, opts.Burst),
		validator:  validation.New(),
		logger:     logger,
		now:        time.Now,
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Sortir Client API", "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerFavoriteRoutes()
	s.registerReservationRoutes()
	s.registerDiscoveryRoutes()
	s.registerSessionRoutes()

	// The change stream is a raw handler; huma does not model event streams.
	s.router.Get("/api/v1/stream", s.sseHandler.ServeHTTP)

	if s.services.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.services.Metrics)
	}

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message" doc:"Outcome message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}
