package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesync/internal/collab"
	"notesync/internal/event"
	"notesync/internal/notification"
	"notesync/internal/presence"
	"notesync/internal/transport"
	"notesync/pkg/log"
)

type nopEmitter struct{}

func (nopEmitter) Emit(event.Event) error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := log.NewNop()
	dispatcher := event.NewDispatcher(logger)
	client := transport.NewClient(transport.Config{URL: "ws://127.0.0.1:0"}, dispatcher, logger)

	reconciler := presence.New("self", nopEmitter{}, logger)
	reconciler.UpdateOne(event.StatusUpdate{UserID: "friend", Status: event.StatusOnline})

	channel := collab.NewChannel(event.User{ID: "self"}, nopEmitter{}, 100*time.Millisecond, logger)
	channel.Join("note:1")

	notifier := notification.NewNotifier(nil, logger)
	d := event.NewDispatcher(logger)
	notifier.Attach(d)
	d.Dispatch(&event.NoteShare{NoteID: "n1", SharedBy: "alice"})

	return New(Config{
		Host:     "127.0.0.1",
		Port:     0,
		Mode:     gin.TestMode,
		Logger:   logger,
		Client:   client,
		Presence: reconciler,
		Channel:  channel,
		Notifier: notifier,
	})
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "notesync", body["service"])
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, transport.StateDisconnected, body.ConnectionState)
	assert.Equal(t, 1, body.OnlineUsers)
	assert.Contains(t, body.Rooms, "note:1")
	assert.Equal(t, 1, body.UnreadCount)
}
