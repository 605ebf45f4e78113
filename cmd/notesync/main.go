package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notesync/config"
	"notesync/internal/collab"
	"notesync/internal/event"
	"notesync/internal/notification"
	"notesync/internal/presence"
	"notesync/internal/server"
	"notesync/internal/transport"
	"notesync/pkg/log"
	"notesync/pkg/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}

	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx := context.Background()
	logger.Info(ctx, "starting notesync realtime client...")

	bearer := os.Getenv("NOTESYNC_TOKEN")
	if bearer == "" {
		logger.Fatal(ctx, "NOTESYNC_TOKEN is required")
	}
	identity, err := token.Parse(bearer)
	if err != nil {
		logger.Fatalf(ctx, "invalid credential: %v", err)
	}
	logger.Infof(ctx, "authenticated as %s", identity.UserID)

	store, err := notification.NewStore(cfg.Store.Path)
	if err != nil {
		logger.Fatalf(ctx, "failed to open notification store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.Fatalf(ctx, "failed to migrate notification store: %v", err)
	}

	dispatcher := event.NewDispatcher(logger)
	client := transport.NewClient(transport.Config{
		URL:            cfg.Realtime.URL,
		DialTimeout:    cfg.Realtime.DialTimeout,
		PingInterval:   cfg.Realtime.PingInterval,
		PongWait:       cfg.Realtime.PongWait,
		WriteWait:      cfg.Realtime.WriteWait,
		MaxMessageSize: cfg.Realtime.MaxMessageSize,
		BackoffInitial: cfg.Realtime.BackoffInitial,
		BackoffMax:     cfg.Realtime.BackoffMax,
	}, dispatcher, logger)

	reconciler := presence.New(identity.UserID, client, logger)
	reconciler.Attach(dispatcher)

	localUser := event.User{ID: identity.UserID, Name: identity.Name, Email: identity.Email}
	channel := collab.NewChannel(localUser, client, cfg.Collab.DrawDebounce, logger)
	channel.Attach(dispatcher)

	notifier := notification.NewNotifier(store, logger)
	if err := notifier.Load(ctx); err != nil {
		logger.Warnf(ctx, "could not load stored notifications: %v", err)
	}
	notifier.SetListener(func(n notification.Notification, t notification.Toast) {
		logger.Infof(ctx, "[%s] %s: %s", t.Severity, n.Title, t.Message)
	})
	notifier.Attach(dispatcher)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	sweeper := presence.NewSweeper(reconciler, cfg.Presence.SweepInterval, cfg.Presence.StaleThreshold, logger)
	go sweeper.Run(sweepCtx)

	if err := client.Connect(bearer); err != nil {
		logger.Fatalf(ctx, "connect failed: %v", err)
	}

	statusServer := server.New(server.Config{
		Host:     cfg.Status.Host,
		Port:     cfg.Status.Port,
		Mode:     cfg.Status.Mode,
		Logger:   logger,
		Client:   client,
		Presence: reconciler,
		Channel:  channel,
		Notifier: notifier,
	})
	go func() {
		if err := statusServer.Start(); err != nil {
			logger.Errorf(ctx, "status server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := statusServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "status server shutdown error: %v", err)
	}
	stopSweeper()

	// Flush pending drawing frames and announce offline while the transport
	// is still up, then tear it down.
	channel.Close()
	reconciler.Announce(event.StatusOffline, "")
	client.Disconnect()

	channel.Detach(dispatcher)
	reconciler.Detach(dispatcher)
	notifier.Detach(dispatcher)

	logger.Info(ctx, "shutdown complete")
}
