// Package transport owns the single persistent websocket to the notes
// backend: the authenticated handshake, the reconnect/backoff cycle, and the
// at-most-once emit path. It publishes typed lifecycle events (connected,
// disconnected, reconnecting) on the dispatcher; subscribers holding derived
// state (presence, rosters) resync on those rather than being reached into.
package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"notesync/internal/event"
	"notesync/pkg/log"
	"notesync/pkg/token"
)

var (
	// ErrAuthRejected is returned when the server refuses the credential.
	// The client does not retry with a known-bad token; the caller must
	// refresh it and call Connect again.
	ErrAuthRejected = errors.New("credential rejected by server")
)

// Config holds transport configuration.
type Config struct {
	URL            string
	DialTimeout    time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Client is the connection manager. Exactly one transport is live per Client;
// construct one per process and pass it around.
type Client struct {
	cfg        Config
	dispatcher *event.Dispatcher
	logger     log.Logger

	mu       sync.Mutex
	state    State
	attempts int
	lastErr  error
	bearer   string
	conn     *websocket.Conn
	send     chan []byte
	cancel   context.CancelFunc
	runDone  chan struct{}
	kick     chan struct{}

	framesIn   atomic.Int64
	framesOut  atomic.Int64
	dropped    atomic.Int64
	reconnects atomic.Int64
}

// NewClient creates a disconnected client.
func NewClient(cfg Config, dispatcher *event.Dispatcher, logger log.Logger) *Client {
	return &Client{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		state:      StateDisconnected,
		kick:       make(chan struct{}, 1),
	}
}

// Connect establishes the transport with the given bearer credential.
// Idempotent: calling it while a connection attempt cycle is already running
// is a no-op, whatever the credential. Connection failures do not surface
// here; they drive the reconnect state machine, observable via State. The one
// exception is starting a cycle with a locally known-expired token, which is
// rejected up front.
func (c *Client) Connect(bearer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDisconnected && c.state != StateErrored {
		return nil
	}
	if _, err := token.Parse(bearer); err != nil {
		c.state = StateErrored
		c.lastErr = err
		return err
	}
	c.bearer = bearer
	c.state = StateConnecting
	c.lastErr = nil
	c.attempts = 0

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.runDone = make(chan struct{})
	go c.run(ctx, c.runDone)
	return nil
}

// Disconnect tears the transport down and resets the attempt counter. Always
// succeeds, even if never connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	done := c.runDone
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}

	c.mu.Lock()
	c.state = StateDisconnected
	c.attempts = 0
	c.conn = nil
	c.mu.Unlock()
}

// Reconnect forces a new connection attempt outside the backoff schedule. If
// currently connected, the live connection is cycled.
func (c *Client) Reconnect() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		return
	}
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Emit sends an application event, fire and forget. If the transport is not
// connected the payload is dropped: outbound delivery is at-most-once by
// design, and resync-on-reconnect papers over the gaps.
func (c *Client) Emit(ev event.Event) error {
	data, err := event.Encode(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	connected := c.state == StateConnected
	send := c.send
	c.mu.Unlock()

	if !connected || send == nil {
		c.dropped.Add(1)
		c.logger.Debugf(context.Background(), "dropped %s: not connected", ev.EventKind())
		return nil
	}
	select {
	case send <- data:
		c.framesOut.Add(1)
	default:
		c.dropped.Add(1)
		c.logger.Warnf(context.Background(), "dropped %s: send buffer full", ev.EventKind())
	}
	return nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReconnectAttempts returns the attempt count of the current cycle. Resets to
// zero on successful connect and on Disconnect.
func (c *Client) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// LastError returns the most recent terminal error, if any.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// GetStats returns cumulative transport counters.
func (c *Client) GetStats() Stats {
	return Stats{
		FramesReceived: c.framesIn.Load(),
		FramesSent:     c.framesOut.Load(),
		FramesDropped:  c.dropped.Load(),
		Reconnects:     c.reconnects.Load(),
	}
}

// run is the connection attempt cycle: dial, pump until the connection drops,
// back off, repeat. It exits on Disconnect or on a terminal auth error.
func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// A kick buffered before this cycle started must not skip its first
	// backoff wait.
	select {
	case <-c.kick:
	default:
	}

	for {
		c.mu.Lock()
		c.state = StateConnecting
		c.mu.Unlock()

		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrAuthRejected) {
				c.mu.Lock()
				c.state = StateErrored
				c.lastErr = err
				c.mu.Unlock()
				c.logger.Error(ctx, "auth rejected, not retrying; refresh the credential and reconnect")
				c.dispatcher.Dispatch(&event.Disconnected{Reason: "auth rejected"})
				return
			}

			c.mu.Lock()
			c.attempts++
			c.state = StateReconnecting
			attempt := c.attempts
			c.mu.Unlock()

			delay := c.backoff(attempt)
			c.logger.Warnf(ctx, "connect failed (attempt %d): %v, retrying in %s", attempt, err, delay)
			c.dispatcher.Dispatch(&event.Reconnecting{Attempt: attempt})

			select {
			case <-ctx.Done():
				return
			case <-c.kick:
			case <-time.After(delay):
			}
			continue
		}

		epochDone := make(chan struct{})
		c.mu.Lock()
		c.conn = conn
		c.send = make(chan []byte, 256)
		c.state = StateConnected
		c.attempts = 0
		send := c.send
		c.mu.Unlock()

		c.logger.Infof(ctx, "connected to %s", c.cfg.URL)
		c.dispatcher.Dispatch(&event.Connected{})

		go c.writePump(conn, send, epochDone)
		reason := c.readLoop(conn)
		close(epochDone)
		_ = conn.Close()

		c.mu.Lock()
		c.conn = nil
		c.send = nil
		c.mu.Unlock()

		c.dispatcher.Dispatch(&event.Disconnected{Reason: reason})
		if ctx.Err() != nil {
			return
		}

		c.reconnects.Add(1)
		c.mu.Lock()
		c.attempts++
		c.state = StateReconnecting
		attempt := c.attempts
		c.mu.Unlock()

		delay := c.backoff(attempt)
		c.logger.Warnf(ctx, "connection dropped (%s), reconnecting in %s", reason, delay)
		c.dispatcher.Dispatch(&event.Reconnecting{Attempt: attempt})

		select {
		case <-ctx.Done():
			return
		case <-c.kick:
		case <-time.After(delay):
		}
	}
}

// dial performs the websocket handshake with the bearer credential attached.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	bearer := c.bearer
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+bearer)

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, ErrAuthRejected
		}
		return nil, err
	}
	return conn, nil
}

// readLoop pumps inbound frames to the dispatcher until the connection drops.
// All reads happen on this goroutine; handlers therefore run serially in
// frame order.
func (c *Client) readLoop(conn *websocket.Conn) string {
	conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Errorf(context.Background(), "read error: %v", err)
			}
			return err.Error()
		}
		c.framesIn.Add(1)

		ev, err := event.Decode(data)
		if err != nil {
			c.logger.Warnf(context.Background(), "ignoring frame: %v", err)
			continue
		}
		c.dispatcher.Dispatch(ev)
	}
}

// writePump serializes all writes for one connection epoch and keeps the
// connection alive with pings.
func (c *Client) writePump(conn *websocket.Conn, send <-chan []byte, epochDone <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-epochDone:
			return
		}
	}
}

// backoff returns the delay before the given attempt, doubling from the
// initial delay and capped at the maximum.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.BackoffInitial
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.cfg.BackoffMax && c.cfg.BackoffMax > 0 {
			return c.cfg.BackoffMax
		}
	}
	if c.cfg.BackoffMax > 0 && delay > c.cfg.BackoffMax {
		delay = c.cfg.BackoffMax
	}
	return delay
}
