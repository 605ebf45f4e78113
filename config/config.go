package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all client configuration.
type Config struct {
	// Realtime endpoint and transport tuning
	Realtime RealtimeConfig

	// Presence reconciliation
	Presence PresenceConfig

	// Collaboration channel
	Collab CollabConfig

	// Durable notification store
	Store StoreConfig

	// Local status HTTP server
	Status StatusConfig

	Logger LoggerConfig
}

// RealtimeConfig is the configuration for the websocket transport.
type RealtimeConfig struct {
	URL            string        `env:"NOTESYNC_WS_URL" envDefault:"ws://localhost:8080/ws"`
	DialTimeout    time.Duration `env:"NOTESYNC_WS_DIAL_TIMEOUT" envDefault:"10s"`
	PingInterval   time.Duration `env:"NOTESYNC_WS_PING_INTERVAL" envDefault:"30s"`
	PongWait       time.Duration `env:"NOTESYNC_WS_PONG_WAIT" envDefault:"60s"`
	WriteWait      time.Duration `env:"NOTESYNC_WS_WRITE_WAIT" envDefault:"10s"`
	MaxMessageSize int64         `env:"NOTESYNC_WS_MAX_MESSAGE_SIZE" envDefault:"65536"`

	// Reconnect backoff: delay doubles per attempt from Initial up to Max.
	BackoffInitial time.Duration `env:"NOTESYNC_WS_BACKOFF_INITIAL" envDefault:"500ms"`
	BackoffMax     time.Duration `env:"NOTESYNC_WS_BACKOFF_MAX" envDefault:"30s"`
}

// PresenceConfig is the configuration for the presence reconciler.
type PresenceConfig struct {
	StaleThreshold time.Duration `env:"NOTESYNC_PRESENCE_STALE_THRESHOLD" envDefault:"5m"`
	SweepInterval  time.Duration `env:"NOTESYNC_PRESENCE_SWEEP_INTERVAL" envDefault:"1m"`
}

// CollabConfig is the configuration for room collaboration.
type CollabConfig struct {
	DrawDebounce time.Duration `env:"NOTESYNC_DRAW_DEBOUNCE" envDefault:"100ms"`
}

// StoreConfig is the configuration for the local notification store.
type StoreConfig struct {
	Path string `env:"NOTESYNC_STORE_PATH" envDefault:"notesync.db"`
}

// StatusConfig is the configuration for the local status server.
type StatusConfig struct {
	Host string `env:"NOTESYNC_STATUS_HOST" envDefault:"127.0.0.1"`
	Port int    `env:"NOTESYNC_STATUS_PORT" envDefault:"8790"`
	Mode string `env:"NOTESYNC_STATUS_MODE" envDefault:"release"`
}

// LoggerConfig is the configuration for the logger.
type LoggerConfig struct {
	Level        string `env:"NOTESYNC_LOG_LEVEL" envDefault:"info"`
	Mode         string `env:"NOTESYNC_LOG_MODE" envDefault:"production"`
	Encoding     string `env:"NOTESYNC_LOG_ENCODING" envDefault:"json"`
	ColorEnabled bool   `env:"NOTESYNC_LOG_COLOR" envDefault:"false"`
}

// Load loads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
