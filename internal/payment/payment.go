// Package payment hands payment sessions to the external payment front-end.
//
// The hand-off is fire-and-forget: the front-end performs its redirect flow
// and the remote side updates the reservation status. Nothing here ever
// reports completion back; the next reservation fetch is the only signal.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

// Session is a payment session issued by the remote gateway.
type Session struct {
	SessionID     string `json:"session_id"`
	ReservationID int64  `json:"reservation_id"`
}

// FrontEnd starts the external payment flow for a session.
type FrontEnd interface {
	Open(ctx context.Context, s Session) error
}

// Opener presents a URL to the user (browser, webview, deep link...).
type Opener func(ctx context.Context, target string) error

// HostedCheckout is a FrontEnd that redirects to a hosted checkout page.
type HostedCheckout struct {
	base   *url.URL
	open   Opener
	logger *slog.Logger
}

// NewHostedCheckout creates a front-end for the checkout page at checkoutURL.
func NewHostedCheckout(checkoutURL string, open Opener, logger *slog.Logger) (*HostedCheckout, error) {
	base, err := url.Parse(checkoutURL)
	if err != nil {
		return nil, fmt.Errorf("parse checkout url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("checkout url %q must be absolute", checkoutURL)
	}
	return &HostedCheckout{base: base, open: open, logger: logger}, nil
}

// URL returns the checkout URL for a session. Existing query parameters are kept.
func (h *HostedCheckout) URL(s Session) string {
	u := *h.base
	q := u.Query()
	q.Set("session_id", s.SessionID)
	q.Set("reservation_id", strconv.FormatInt(s.ReservationID, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// Open hands the session to the opener.
func (h *HostedCheckout) Open(ctx context.Context, s Session) error {
	if s.SessionID == "" {
		return fmt.Errorf("open checkout: empty session id")
	}
	target := h.URL(s)
	if err := h.open(ctx, target); err != nil {
		return fmt.Errorf("open checkout: %w", err)
	}
	h.logger.Info("payment hand-off",
		slog.Int64("reservation_id", s.ReservationID),
		slog.String("session_id", s.SessionID))
	return nil
}

// LogOpener returns an Opener that only logs the target. Used when no UI is attached.
func LogOpener(logger *slog.Logger) Opener {
	return func(_ context.Context, target string) error {
		logger.Info("open checkout", slog.String("url", target))
		return nil
	}
}
