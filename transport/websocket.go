package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/persistent-ws/config"
	"github.com/rickgao/persistent-ws/internal/version"
)

// WebSocketDialer opens gorilla/websocket connections.
type WebSocketDialer struct {
	cfg    config.TransportConfig
	logger *slog.Logger
	dialer websocket.Dialer
}

// NewWebSocketDialer creates a Dialer from transport settings.
func NewWebSocketDialer(cfg config.TransportConfig, logger *slog.Logger) *WebSocketDialer {
	if logger == nil {
		logger = slog.Default()
	}

	return &WebSocketDialer{
		cfg:    cfg,
		logger: logger,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			Subprotocols:     cfg.Subprotocols,
		},
	}
}

// Dial performs the WebSocket handshake.
func (d *WebSocketDialer) Dial(ctx context.Context, address string) (Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	for k, v := range d.cfg.Headers {
		header.Set(k, v)
	}

	conn, resp, err := d.dialer.DialContext(ctx, address, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (http status %d)", address, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	if d.cfg.ReadLimit > 0 {
		conn.SetReadLimit(d.cfg.ReadLimit)
	}

	d.logger.Debug("websocket connected",
		"address", address,
		"subprotocol", conn.Subprotocol(),
	)

	return newWSConn(conn, d.cfg, d.logger), nil
}

// wsConn implements Conn over a gorilla/websocket connection.
type wsConn struct {
	cfg    config.TransportConfig
	logger *slog.Logger
	conn   *websocket.Conn

	done chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.Mutex
	lastSeenAt time.Time
	listening  bool
	closed     bool
}

func newWSConn(conn *websocket.Conn, cfg config.TransportConfig, logger *slog.Logger) *wsConn {
	return &wsConn{
		cfg:        cfg,
		logger:     logger,
		conn:       conn,
		done:       make(chan struct{}),
		lastSeenAt: time.Now(),
	}
}

// Listen starts the read, keepalive and close-watch loops. The first loop to
// fail tears the others down; OnClose then receives that first error.
func (c *wsConn) Listen(h Handler) {
	c.mu.Lock()
	if c.listening {
		c.mu.Unlock()
		return
	}
	c.listening = true
	closed := c.closed
	c.mu.Unlock()

	if h.OnClose == nil {
		h.OnClose = func(error) {}
	}

	if closed {
		go h.OnClose(ErrClosed)
		return
	}

	// Server sends ping, we respond with pong
	c.conn.SetPingHandler(func(data string) error {
		c.touch()
		err := c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	// Server responds to our ping
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return c.readLoop(h) })
	if c.cfg.PingInterval > 0 {
		g.Go(func() error { return c.heartbeatLoop(ctx) })
	}
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-c.done:
		}
		// Unblocks ReadMessage
		c.conn.Close()
		return nil
	})

	go func() {
		err := g.Wait()
		if c.isClosed() {
			err = ErrClosed
		}
		h.OnClose(err)
	}()
}

// Send writes one message under the configured write deadline.
func (c *wsConn) Send(msg Message) error {
	if c.isClosed() {
		return ErrNotConnected
	}

	frame := websocket.TextMessage
	if msg.Type == BinaryMessage {
		frame = websocket.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return c.conn.WriteMessage(frame, msg.Data)
}

// Close sends a normal-closure frame and closes the socket.
func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)

	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (c *wsConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *wsConn) touch() {
	c.mu.Lock()
	c.lastSeenAt = time.Now()
	c.mu.Unlock()
}

// readLoop delivers inbound messages until the socket fails.
func (c *wsConn) readLoop(h Handler) error {
	for {
		frame, data, err := c.conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			return err
		}
		c.touch()

		msg := Message{
			Type:       TextMessage,
			Data:       data,
			ReceivedAt: receivedAt,
		}
		if frame == websocket.BinaryMessage {
			msg.Type = BinaryMessage
		}

		if h.OnMessage != nil {
			h.OnMessage(msg)
		}
	}
}

// heartbeatLoop pings the server and fails once nothing has been heard for
// PingTimeout.
func (c *wsConn) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	writeWait := c.cfg.WriteTimeout
	if writeWait <= 0 {
		writeWait = time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.Lock()
			lastSeen := c.lastSeenAt
			c.mu.Unlock()

			if c.cfg.PingTimeout > 0 && time.Since(lastSeen) > c.cfg.PingTimeout {
				c.logger.Warn("no ping received, connection stale",
					"last_seen", lastSeen,
					"timeout", c.cfg.PingTimeout,
				)
				return ErrStaleConnection
			}
		}
	}
}
