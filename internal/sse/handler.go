package sse

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// retryMillis is the reconnect delay suggested to EventSource clients.
	retryMillis  = 3000
	writeTimeout = 60 * time.Second
)

// Handler streams events at GET /api/v1/stream.
//
// Query parameters:
//   - topics=favorites,reservations narrows delivery.
//   - last_event_id=N resumes after event N. The Last-Event-ID header, sent by
//     EventSource on reconnect, takes precedence.
//
// A resume that can no longer be served from history starts with a stream.reset event.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// ServeHTTP handles one stream connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	lastID, resume, err := lastEventID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	out := &frameWriter{w: w, rc: http.NewResponseController(w)}
	if err := out.retry(retryMillis); err != nil {
		h.logger.Error("streaming not supported", slog.String("error", err.Error()))
		return
	}

	client, err := h.manager.Connect(parseTopics(r.URL.Query().Get("topics"))...)
	if err != nil {
		h.logger.Error("failed to register SSE client", slog.String("error", err.Error()))
		return
	}
	defer h.manager.Disconnect(client.ID)
	log := h.logger.With(slog.String("client_id", client.ID))

	hello := map[string]any{"client_id": client.ID, "last_event_id": h.manager.LastID()}
	if err := out.event(0, "connected", hello); err != nil {
		log.Debug("client gone before first frame")
		return
	}

	// Events published while replaying also land in EventChan; sent skips them.
	var sent uint64
	if resume {
		backlog, complete := h.manager.Since(lastID, client)
		if !complete {
			reset := Event{Type: EventStreamReset, Timestamp: time.Now(), Data: map[string]uint64{"last_event_id": lastID}}
			if err := out.event(0, string(reset.Type), reset); err != nil {
				return
			}
		}
		for _, e := range backlog {
			if err := out.event(e.ID, string(e.Type), e); err != nil {
				return
			}
			sent = e.ID
		}
		if complete {
			sent = max(sent, lastID)
		}
		log.Debug("stream resumed", slog.Uint64("after", lastID), slog.Int("replayed", len(backlog)), slog.Bool("complete", complete))
	}

	for {
		select {
		case e, ok := <-client.EventChan:
			if !ok {
				return
			}
			if e.ID != 0 && e.ID <= sent {
				continue
			}
			if err := out.event(e.ID, string(e.Type), e); err != nil {
				log.Debug("client disconnected during send")
				return
			}
			sent = max(sent, e.ID)
		case <-client.Done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// frameWriter writes text/event-stream frames and flushes each one.
type frameWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (f *frameWriter) retry(ms int) error {
	if _, err := fmt.Fprintf(f.w, "retry: %d\n\n", ms); err != nil {
		return err
	}
	return f.flush()
}

func (f *frameWriter) event(eventID uint64, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	var b strings.Builder
	if eventID != 0 {
		b.WriteString("id: " + strconv.FormatUint(eventID, 10) + "\n")
	}
	b.WriteString("event: " + name + "\n")
	b.WriteString("data: ")
	b.Write(payload)
	b.WriteString("\n\n")

	if _, err := f.w.Write([]byte(b.String())); err != nil {
		return err
	}
	return f.flush()
}

func (f *frameWriter) flush() error {
	if err := f.rc.Flush(); err != nil {
		return err
	}
	// Pushed forward after every frame so a hung reader is cut off.
	_ = f.rc.SetWriteDeadline(time.Now().Add(writeTimeout))
	return nil
}

// lastEventID reads the resume point from the Last-Event-ID header or the last_event_id query parameter.
func lastEventID(r *http.Request) (uint64, bool, error) {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("last_event_id")
	}
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid last event id %q", raw)
	}
	return n, true, nil
}

func parseTopics(raw string) []string {
	var topics []string
	for t := range strings.SplitSeq(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
