// Package server exposes a local HTTP surface for observing the realtime
// layer: connection state, presence counts, room rosters, and notification
// counters. Read-only; all mutation goes through the owning components.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"notesync/internal/collab"
	"notesync/internal/notification"
	"notesync/internal/presence"
	"notesync/internal/transport"
	"notesync/pkg/log"
)

// Server is the local status HTTP server.
type Server struct {
	config Config
	server *http.Server
}

// Config holds server configuration and the components it reports on.
type Config struct {
	Host     string
	Port     int
	Mode     string
	Logger   log.Logger
	Client   *transport.Client
	Presence *presence.Reconciler
	Channel  *collab.Channel
	Notifier *notification.Notifier
}

// New creates a status server. Start must be called to serve.
func New(cfg Config) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	setupRoutes(router, cfg)

	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.config.Logger.Infof(context.Background(), "status server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

var startTime = time.Now()

func setupRoutes(router *gin.Engine, cfg Config) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"service":        "notesync",
			"uptime_seconds": int64(time.Since(startTime).Seconds()),
		})
	})

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, buildStatus(cfg))
	})
}
