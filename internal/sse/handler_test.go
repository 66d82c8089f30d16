package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/sortir/internal/domain"
	"github.com/listenupapp/sortir/internal/logger"
)

type frame struct {
	id    string
	event string
	data  string
}

// readFrame reads the next frame that names an event; the retry hint is skipped.
func readFrame(t *testing.T, r *bufio.Reader) frame {
	t.Helper()
	var f frame
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "id: "):
			f.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.data = strings.TrimPrefix(line, "data: ")
		case line == "" && f.event != "":
			return f
		}
	}
}

func startStream(t *testing.T, m *Manager, query string, header http.Header) *bufio.Reader {
	t.Helper()
	srv := httptest.NewServer(NewHandler(m, logger.Discard()))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+query, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

func runningManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Start(ctx)
	return m
}

func favoriteEvent(id int64) Event {
	return NewFavoritesChangedEvent(FavoriteAdded, domain.FavoriteKey{EntityID: id, EntityType: domain.EntityEvent}, 1)
}

func TestHandler_StreamsTopicEvents(t *testing.T) {
	m := runningManager(t)
	r := startStream(t, m, "?topics=payment", nil)

	hello := readFrame(t, r)
	assert.Equal(t, "connected", hello.event)
	assert.Contains(t, hello.data, "client_id")
	assert.Empty(t, hello.id)

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	m.Emit(NewReservationsUpdatedEvent(1, 0, time.Now()))
	m.Emit(NewPaymentInitiatedEvent(3, "sess_abc"))

	got := readFrame(t, r)
	assert.Equal(t, string(EventPaymentInitiated), got.event, "reservations topic is filtered out")
	assert.Equal(t, "2", got.id)
	assert.Contains(t, got.data, `"session_id":"sess_abc"`)
}

func TestHandler_ResumesFromLastEventID(t *testing.T) {
	m := runningManager(t)
	for i := range int64(3) {
		m.Emit(favoriteEvent(i + 1))
	}
	require.Eventually(t, func() bool { return m.LastID() == 3 }, time.Second, 10*time.Millisecond)

	r := startStream(t, m, "", http.Header{"Last-Event-Id": []string{"1"}})
	assert.Equal(t, "connected", readFrame(t, r).event)

	assert.Equal(t, "2", readFrame(t, r).id)
	assert.Equal(t, "3", readFrame(t, r).id)

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	m.Emit(favoriteEvent(4))
	assert.Equal(t, "4", readFrame(t, r).id)
}

func TestHandler_ResetWhenHistoryLost(t *testing.T) {
	m := runningManager(t)
	for i := range int64(defaultHistory + 5) {
		m.Emit(favoriteEvent(i + 1))
	}
	require.Eventually(t, func() bool { return m.LastID() == defaultHistory+5 }, time.Second, 10*time.Millisecond)

	r := startStream(t, m, "?last_event_id=2", nil)
	assert.Equal(t, "connected", readFrame(t, r).event)

	reset := readFrame(t, r)
	assert.Equal(t, string(EventStreamReset), reset.event)
	assert.Contains(t, reset.data, `"last_event_id":2`)
}

func TestHandler_ResetWhenResumingAheadOfCounter(t *testing.T) {
	m := runningManager(t)

	// Last-Event-ID from before a restart; the counter starts over at zero.
	r := startStream(t, m, "", http.Header{"Last-Event-Id": []string{"50"}})
	assert.Equal(t, "connected", readFrame(t, r).event)

	reset := readFrame(t, r)
	assert.Equal(t, string(EventStreamReset), reset.event)
	assert.Contains(t, reset.data, `"last_event_id":50`)

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	m.Emit(favoriteEvent(7))

	got := readFrame(t, r)
	assert.Equal(t, string(EventFavoritesChanged), got.event)
	assert.Equal(t, "1", got.id)
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	h := NewHandler(NewManager(logger.Discard()), logger.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stream", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stream?last_event_id=soon", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseTopics(t *testing.T) {
	assert.Nil(t, parseTopics(""))
	assert.Equal(t, []string{"favorites", "reservations"}, parseTopics(" favorites, ,reservations "))
}
