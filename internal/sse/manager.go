package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/sortir/internal/id"
)

const (
	defaultQueueSize   = 256
	defaultClientQueue = 64
	defaultHistory     = 128
	defaultHeartbeat   = 30 * time.Second
)

// Client is one subscriber of the change stream.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	// Topics limits delivery to these topics. Empty means "receive all".
	Topics map[string]bool
	ID     string
}

// Wants reports whether the client subscribed to the event's topic.
// Heartbeats are always delivered.
func (c *Client) Wants(t EventType) bool {
	return len(c.Topics) == 0 || t == EventHeartbeat || c.Topics[t.Topic()]
}

// Manager numbers published events, keeps the most recent ones for replay and fans them out.
// Delivery is best effort: a client whose queue is full misses the event and can recover with Since.
type Manager struct {
	logger    *slog.Logger
	queue     chan Event
	heartbeat time.Duration

	mu      sync.Mutex
	clients map[string]*Client
	seq     uint64
	history []Event // oldest first, at most cap(history)

	// closeMu guards queue against a send after close.
	closeMu sync.RWMutex
	closed  bool
	running sync.WaitGroup
}

var _ Emitter = (*Manager)(nil)

// NewManager creates a Manager. Call Start to begin delivery.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:    logger,
		queue:     make(chan Event, defaultQueueSize),
		heartbeat: defaultHeartbeat,
		clients:   make(map[string]*Client),
		history:   make([]Event, 0, defaultHistory),
	}
}

// Start publishes queued events and heartbeats until ctx is done or the queue is closed.
func (m *Manager) Start(ctx context.Context) {
	m.running.Add(1)
	defer m.running.Done()

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	m.logger.Info("SSE manager starting")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.dropClients()
			return
		case <-ticker.C:
			m.publish(NewHeartbeatEvent())
		case event, ok := <-m.queue:
			if !ok {
				return
			}
			m.publish(event)
		}
	}
}

// Emit queues an event. It never blocks; a full queue drops the event.
func (m *Manager) Emit(event Event) {
	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.queue <- event:
	default:
		m.logger.Error("SSE queue full, dropping event", slog.String("event_type", string(event.Type)))
	}
}

// Shutdown refuses new events, publishes what is queued and disconnects every client.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closeMu.Lock()
	if m.closed {
		m.closeMu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.closeMu.Unlock()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for event := range m.queue {
			m.publish(event)
		}
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("SSE drain timed out, queued events lost")
	}

	m.running.Wait()
	m.dropClients()
	m.logger.Info("SSE manager shut down")
	return nil
}

// publish numbers the event, records it and hands it to every interested client.
func (m *Manager) publish(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.Type != EventHeartbeat {
		m.seq++
		event.ID = m.seq
		if len(m.history) == cap(m.history) {
			copy(m.history, m.history[1:])
			m.history = m.history[:len(m.history)-1]
		}
		m.history = append(m.history, event)
	}

	var sent, skipped int
	for _, c := range m.clients {
		if !c.Wants(event.Type) {
			continue
		}
		select {
		case c.EventChan <- event:
			sent++
		default:
			skipped++
		}
	}

	if skipped > 0 {
		m.logger.Warn("SSE clients too slow, event skipped",
			slog.String("event_type", string(event.Type)),
			slog.Uint64("id", event.ID),
			slog.Int("skipped", skipped))
	}
	if event.Type != EventHeartbeat {
		m.logger.Debug("event published",
			slog.String("event_type", string(event.Type)),
			slog.Uint64("id", event.ID),
			slog.Int("sent", sent))
	}
}

// Since returns the recorded events after lastID that c wants, oldest first.
// complete is false when events after lastID have already left the history,
// in which case the caller must treat its state as unknown. An ID ahead of the
// counter was issued by an earlier process and is also incomplete.
func (m *Manager) Since(lastID uint64, c *Client) (events []Event, complete bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lastID > m.seq {
		return nil, false
	}
	if lastID == m.seq {
		return nil, true
	}
	if len(m.history) == 0 || m.history[0].ID > lastID+1 {
		return nil, false
	}
	for _, e := range m.history {
		if e.ID > lastID && c.Wants(e.Type) {
			events = append(events, e)
		}
	}
	return events, true
}

// LastID returns the ID of the most recently published event.
func (m *Manager) LastID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

// Connect registers a client subscribed to topics (all when empty).
func (m *Manager) Connect(topics ...string) (*Client, error) {
	clientID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}

	c := &Client{
		ID:          clientID,
		EventChan:   make(chan Event, defaultClientQueue),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}
	for _, t := range topics {
		if c.Topics == nil {
			c.Topics = make(map[string]bool, len(topics))
		}
		c.Topics[t] = true
	}

	m.mu.Lock()
	m.clients[c.ID] = c
	n := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		slog.String("client_id", c.ID),
		slog.Any("topics", topics),
		slog.Int("total_clients", n))
	return c, nil
}

// Disconnect removes a client and closes its channels. Unknown ids are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	if ok {
		delete(m.clients, clientID)
		closeClient(c)
	}
	n := len(m.clients)
	m.mu.Unlock()

	if ok {
		m.logger.Info("SSE client disconnected",
			slog.String("client_id", clientID),
			slog.Duration("duration", time.Since(c.ConnectedAt)),
			slog.Int("total_clients", n))
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *Manager) dropClients() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		closeClient(c)
	}
	clear(m.clients)
}

// closeClient must be called with m.mu held so publish never sends on a closed channel.
func closeClient(c *Client) {
	close(c.Done)
	close(c.EventChan)
}
