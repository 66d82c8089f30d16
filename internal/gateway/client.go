// Package gateway is the HTTP client for the remote reservation API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/listenupapp/sortir/internal/domain"
	"github.com/listenupapp/sortir/internal/id"
	"github.com/listenupapp/sortir/internal/ratelimit"
	"github.com/listenupapp/sortir/internal/validation"
)

const (
	defaultRPS     = 5.0
	defaultBurst   = 2
	defaultTimeout = 10 * time.Second

	defaultBreakerThreshold = 5
	defaultBreakerDelay     = 30 * time.Second

	// Responses larger than this are rejected.
	maxBodyBytes = 1 << 20

	limiterKeyList    = "reservations.list"
	limiterKeyPayment = "payment.session"
)

// IdentityProvider supplies the bearer credential for requests.
type IdentityProvider interface {
	Current() (domain.Identity, bool)
}

// Config configures a Client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	// BreakerThreshold consecutive unavailable responses open the circuit (default: 5).
	BreakerThreshold uint
	// BreakerDelay is how long an open circuit fails fast before a trial request (default: 30s).
	BreakerDelay time.Duration
}

// Client is a rate-limited client for the remote reservation gateway.
// Timeouts and cancellation are handled here and by the caller's context.
type Client struct {
	http      *http.Client
	baseURL   string
	identity  IdentityProvider
	limiter   *ratelimit.KeyedRateLimiter
	breaker   circuitbreaker.CircuitBreaker[[]byte]
	pipeline  failsafe.Executor[[]byte]
	validator *validation.Validator
	logger    *slog.Logger
}

// New creates a new gateway client.
func New(cfg Config, identity IdentityProvider, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRPS
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = defaultBreakerThreshold
	}
	if cfg.BreakerDelay <= 0 {
		cfg.BreakerDelay = defaultBreakerDelay
	}

	// Only transport failures and 5xx trip the breaker. Caller cancellation does not.
	breaker := circuitbreaker.NewBuilder[[]byte]().
		HandleIf(func(_ []byte, err error) bool {
			return errors.Is(err, ErrUnavailable) &&
				!errors.Is(err, context.Canceled) &&
				!errors.Is(err, context.DeadlineExceeded)
		}).
		WithFailureThreshold(cfg.BreakerThreshold).
		WithDelay(cfg.BreakerDelay).
		Build()

	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		identity:  identity,
		limiter:   ratelimit.New(cfg.RequestsPerSecond, defaultBurst),
		breaker:   breaker,
		pipeline:  failsafe.With[[]byte](breaker),
		validator: validation.New(),
		logger:    logger,
	}
}

// CircuitOpen reports whether the gateway is currently failing fast.
func (c *Client) CircuitOpen() bool {
	return c.breaker.IsOpen()
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

type listResponse struct {
	Reservations []jsontext.Value `json:"reservations"`
}

// ListReservations returns the current user's reservations as reported by the gateway.
// Records that fail to decode or validate are skipped with a warning.
func (c *Client) ListReservations(ctx context.Context) ([]domain.ReservationRecord, error) {
	const op = "listReservations"

	body, err := c.doRequest(ctx, limiterKeyList, http.MethodGet, "/api/reservations/mine", nil, nil)
	if err != nil {
		return nil, wrapError(op, 0, err)
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError(op, 0, fmt.Errorf("%w: %v", ErrBadResponse, err))
	}

	records := make([]domain.ReservationRecord, 0, len(resp.Reservations))
	for i, raw := range resp.Reservations {
		var rec domain.ReservationRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.logger.Warn("skipping undecodable reservation", "index", i, "error", err)
			continue
		}
		if err := c.validator.Validate(rec); err != nil {
			c.logger.Warn("skipping invalid reservation", "index", i, "id", rec.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

type paymentSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// CreatePaymentSession asks the gateway for a hosted payment session for a reservation.
// Each call carries a fresh Idempotency-Key.
func (c *Client) CreatePaymentSession(ctx context.Context, reservationID int64) (string, error) {
	const op = "createPaymentSession"

	key, err := id.IdempotencyKey()
	if err != nil {
		return "", wrapError(op, reservationID, err)
	}

	path := "/api/reservations/" + strconv.FormatInt(reservationID, 10) + "/payment-session"
	headers := http.Header{"Idempotency-Key": []string{key}}

	body, err := c.doRequest(ctx, limiterKeyPayment, http.MethodPost, path, headers, []byte("{}"))
	if err != nil {
		return "", wrapError(op, reservationID, err)
	}

	var resp paymentSessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", wrapError(op, reservationID, fmt.Errorf("%w: %v", ErrBadResponse, err))
	}
	if resp.SessionID == "" {
		return "", wrapError(op, reservationID, fmt.Errorf("%w: empty sessionId", ErrBadResponse))
	}
	return resp.SessionID, nil
}

// doRequest executes an authenticated HTTP request with rate limiting behind the circuit breaker.
func (c *Client) doRequest(ctx context.Context, limiterKey, method, path string, headers http.Header, payload []byte) ([]byte, error) {
	ident, ok := c.identity.Current()
	if !ok {
		return nil, ErrNoIdentity
	}

	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := c.pipeline.Get(func() ([]byte, error) {
		return c.send(ctx, ident, method, path, headers, payload)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		c.logger.Debug("gateway circuit open, failing fast", "method", method, "path", path)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, err
}

func (c *Client) send(ctx context.Context, ident domain.Identity, method, path string, headers http.Header, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Sortir/1.0")
	req.Header.Set("Authorization", "Bearer "+ident.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	c.logger.Debug("gateway request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(ErrUnavailable, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return nil, ErrConflict
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: unexpected status %d: %s", ErrBadResponse, resp.StatusCode, string(body))
	}
}
