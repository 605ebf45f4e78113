package server

import (
	"time"

	"notesync/internal/event"
	"notesync/internal/transport"
)

// StatusResponse is the /status payload.
type StatusResponse struct {
	Timestamp         time.Time               `json:"timestamp"`
	ConnectionState   transport.State         `json:"connection_state"`
	ReconnectAttempts int                     `json:"reconnect_attempts"`
	LastError         string                  `json:"last_error,omitempty"`
	Transport         transport.Stats         `json:"transport"`
	OnlineUsers       int                     `json:"online_users"`
	Rooms             map[string][]event.User `json:"rooms"`
	UnreadCount       int                     `json:"unread_count"`
}

func buildStatus(cfg Config) StatusResponse {
	resp := StatusResponse{
		Timestamp: time.Now(),
		Rooms:     make(map[string][]event.User),
	}
	if cfg.Client != nil {
		resp.ConnectionState = cfg.Client.State()
		resp.ReconnectAttempts = cfg.Client.ReconnectAttempts()
		resp.Transport = cfg.Client.GetStats()
		if err := cfg.Client.LastError(); err != nil {
			resp.LastError = err.Error()
		}
	}
	if cfg.Presence != nil {
		resp.OnlineUsers = cfg.Presence.OnlineCount()
	}
	if cfg.Channel != nil {
		for _, roomID := range cfg.Channel.Rooms() {
			resp.Rooms[roomID] = cfg.Channel.ActiveUsers(roomID)
		}
	}
	if cfg.Notifier != nil {
		resp.UnreadCount = cfg.Notifier.UnreadCount()
	}
	return resp
}
