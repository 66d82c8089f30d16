// Package push maintains the optional push-notification channel.
//
// The channel is a websocket that delivers reservation status-change notices.
// A notice is only a hint: the handler is expected to re-fetch authoritative
// state rather than apply the pushed status.
package push

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/listenupapp/sortir/internal/domain"
)

// MessageTypeStatusChanged is the only frame type the client acts on.
const MessageTypeStatusChanged = "reservation.status_changed"

// Default timings.
const (
	DefaultReconnectWait    = 2 * time.Second
	DefaultMaxReconnectWait = time.Minute
	DefaultPingInterval     = 30 * time.Second
	DefaultPongWait         = 60 * time.Second
)

// IdentityProvider supplies the bearer credential for the dial.
type IdentityProvider interface {
	Current() (domain.Identity, bool)
}

// Handler receives decoded status changes.
type Handler func(ctx context.Context, change domain.StatusChange) error

// message is the wire frame. Status-change fields sit beside the type tag.
type message struct {
	Type string `json:"type"`
	domain.StatusChange `json:",inline"`
}

// Client is a reconnecting websocket client for the push channel.
type Client struct {
	url      string
	identity IdentityProvider
	handler  Handler
	logger   *slog.Logger
	dialer   *websocket.Dialer

	reconnectWait    time.Duration
	maxReconnectWait time.Duration
	pingInterval     time.Duration
	pongWait         time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a push client. Call Start to connect.
func New(url string, identity IdentityProvider, handler Handler, logger *slog.Logger) *Client {
	return &Client{
		url:              url,
		identity:         identity,
		handler:          handler,
		logger:           logger,
		dialer:           websocket.DefaultDialer,
		reconnectWait:    DefaultReconnectWait,
		maxReconnectWait: DefaultMaxReconnectWait,
		pingInterval:     DefaultPingInterval,
		pongWait:         DefaultPongWait,
	}
}

// Start connects in the background and keeps reconnecting until Stop or ctx is done.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runLoop(ctx)
}

// Stop closes the connection and waits for the loop to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.closeConn()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		c.logger.Warn("push client stop: loop did not exit within timeout")
	}
}

func (c *Client) runLoop(ctx context.Context) {
	defer c.wg.Done()

	wait := c.reconnectWait
	for {
		if ctx.Err() != nil {
			return
		}

		if err := c.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("push connect failed", slog.String("url", c.url), slog.String("error", err.Error()))
			if !sleep(ctx, wait) {
				return
			}
			wait = min(wait*2, c.maxReconnectWait)
			continue
		}

		c.logger.Info("push channel connected", slog.String("url", c.url))
		wait = c.reconnectWait

		pingCtx, stopPing := context.WithCancel(ctx)
		if c.pingInterval > 0 {
			c.wg.Add(1)
			go c.heartbeat(pingCtx)
		}

		c.readLoop(ctx)
		stopPing()

		if !sleep(ctx, wait) {
			return
		}
	}
}

func (c *Client) connect(ctx context.Context) error {
	header := http.Header{}
	if ident, ok := c.identity.Current(); ok {
		header.Set("Authorization", "Bearer "+ident.Token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	if !c.adopt(ctx, conn) {
		return ctx.Err()
	}
	return nil
}

// adopt makes conn the live connection unless ctx is already done, in which
// case Stop may have run closeConn before the dial returned and conn is closed.
func (c *Client) adopt(ctx context.Context, conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		_ = conn.Close()
		return false
	}
	c.conn = conn
	return true
}

func (c *Client) heartbeat(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			var err error
			if conn != nil {
				err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.pongWait))
			}
			c.mu.Unlock()

			if conn == nil {
				return
			}
			if err != nil {
				// Closing forces readLoop to return and the loop to redial.
				c.closeConn()
				return
			}
		}
	}
}

func (c *Client) readLoop(ctx context.Context) {
	defer c.closeConn()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Info("push channel lost", slog.String("error", err.Error()))
			}
			return
		}
		c.dispatch(ctx, data)
	}
}

func (c *Client) dispatch(ctx context.Context, data []byte) {
	change, ok, err := Decode(data)
	if err != nil {
		c.logger.Warn("push frame undecodable, ignoring", slog.String("error", err.Error()))
		return
	}
	if !ok {
		return
	}

	if err := c.handler(ctx, change); err != nil {
		c.logger.Warn("push status change handler failed",
			slog.Int64("reservation_id", change.ReservationID),
			slog.String("error", err.Error()))
	}
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Decode parses a push frame. ok is false for frame types the client ignores.
func Decode(data []byte) (domain.StatusChange, bool, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.StatusChange{}, false, fmt.Errorf("decode push frame: %w", err)
	}
	if msg.Type != MessageTypeStatusChanged {
		return domain.StatusChange{}, false, nil
	}
	if msg.ReservationID <= 0 || !msg.Status.Valid() {
		return domain.StatusChange{}, false, fmt.Errorf("invalid status change for reservation %d", msg.ReservationID)
	}
	return msg.StatusChange, true, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
