package persistentws

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rickgao/persistent-ws/config"
	"github.com/rickgao/persistent-ws/internal/broadcast"
	"github.com/rickgao/persistent-ws/transport"
)

// Message is an opaque payload passed through unmodified.
type Message = transport.Message

// Subscription cancels delivery to one status or data handler.
type Subscription = broadcast.Subscription

// Text builds an outbound text message.
func Text(s string) Message { return transport.Text(s) }

// Binary builds an outbound binary message.
func Binary(b []byte) Message { return transport.Binary(b) }

// Stats provides counters for the lifetime of a Client.
type Stats struct {
	Status    Status
	AttemptID string // Empty while idle
	Dials     int64  // Physical connection attempts
	Opens     int64  // Attempts that reached the open state
	Received  int64  // Messages published to data subscribers
	Sent      int64  // Messages handed to an open transport
	Dropped   int64  // Sends discarded while down or failed by the transport
}

// attempt is the Active Attempt: one open-or-retrying connection lifecycle.
// All fields are guarded by Client.mu.
type attempt struct {
	id     uuid.UUID
	logger *slog.Logger

	cancelDial context.CancelFunc // Non-nil while a dial may be in flight
	conn       transport.Conn     // Non-nil while open
	retry      *time.Timer        // Non-nil while waiting to reconnect
}

// Client maintains one logical connection, reconnecting forever until
// stopped. All state transitions happen under mu, so they never interleave.
type Client struct {
	cfg    config.Config
	dialer transport.Dialer
	logger *slog.Logger

	status *broadcast.Latest[Status]
	data   *broadcast.Broadcaster[Message]

	// Throttles the dropped-send warning
	dropLog rate.Sometimes

	mu      sync.Mutex
	attempt *attempt
	gen     uint64        // Bumped on every dial and every stop; events from older generations are ignored
	wait    time.Duration // Delay before the next reconnect
	closed  bool

	dials    atomic.Int64
	opens    atomic.Int64
	received atomic.Int64
	sent     atomic.Int64
	dropped  atomic.Int64
}

// New creates a Client for a ws:// or wss:// address with default settings.
// The address is not validated; an unreachable address is retried forever.
func New(address string, opts ...Option) *Client {
	return newClient(config.New(address), opts...)
}

// NewFromConfig creates a Client from loaded configuration. Defaults are
// applied before validation.
func NewFromConfig(cfg config.Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newClient(cfg, opts...), nil
}

func newClient(cfg config.Config, opts ...Option) *Client {
	o := options{
		waitInterval:    cfg.WaitInterval,
		maxWaitInterval: cfg.MaxWaitInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.waitInterval <= 0 {
		o.waitInterval = DefaultWaitInterval
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	cfg.WaitInterval = o.waitInterval
	cfg.MaxWaitInterval = o.maxWaitInterval

	if o.dialer == nil {
		o.dialer = transport.NewWebSocketDialer(cfg.Transport, o.logger)
	}
	logger := o.logger.With("address", cfg.Address)

	return &Client{
		cfg:     cfg,
		dialer:  o.dialer,
		logger:  logger,
		status:  broadcast.NewLatest(StatusInit),
		data:    broadcast.New[Message](),
		dropLog: rate.Sometimes{First: 1, Interval: 10 * time.Second},
		wait:    cfg.WaitInterval,
	}
}

// Start begins connecting. It is a no-op while an attempt is already open,
// dialing or waiting to retry, and after Close.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.attempt != nil {
		return
	}

	id := uuid.New()
	a := &attempt{
		id:     id,
		logger: c.logger.With("attempt_id", id.String()),
	}
	c.attempt = a
	c.wait = c.cfg.WaitInterval

	a.logger.Info("starting persistent connection", "wait_interval", c.cfg.WaitInterval)
	c.dialLocked(a)
}

// Stop ends the current attempt: an in-flight dial is cancelled, a pending
// retry is discarded and an open connection is closed before Stop returns.
// Stopping an open connection reports StatusDisconnected. Safe to call more
// than once.
func (c *Client) Stop() {
	c.mu.Lock()
	conn := c.stopLocked()
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Close stops the client and drops every subscriber. The Client cannot be
// restarted.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.stopLocked()
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.status.Close()
	c.data.Close()
}

// Send writes msg on the open connection. While no connection is open the
// message is dropped. Reports whether the transport accepted it.
func (c *Client) Send(msg Message) bool {
	c.mu.Lock()
	var conn transport.Conn
	if c.attempt != nil {
		conn = c.attempt.conn
	}
	c.mu.Unlock()

	if conn == nil {
		c.dropped.Add(1)
		c.dropLog.Do(func() {
			c.logger.Warn("not connected, dropping send", "dropped_total", c.dropped.Load())
		})
		return false
	}

	if err := conn.Send(msg); err != nil {
		// The read side reports the failure and drives the reconnect.
		c.dropped.Add(1)
		c.logger.Debug("send failed", "error", err)
		return false
	}

	c.sent.Add(1)
	return true
}

// SubscribeStatus delivers the current status to fn, then every transition.
func (c *Client) SubscribeStatus(fn func(Status)) *Subscription {
	return c.status.Subscribe(fn)
}

// SubscribeData delivers every message received from now on to fn.
func (c *Client) SubscribeData(fn func(Message)) *Subscription {
	return c.data.Subscribe(fn)
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	return c.status.Get()
}

// Stats returns current statistics.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	var attemptID string
	if c.attempt != nil {
		attemptID = c.attempt.id.String()
	}
	c.mu.Unlock()

	return Stats{
		Status:    c.status.Get(),
		AttemptID: attemptID,
		Dials:     c.dials.Load(),
		Opens:     c.opens.Load(),
		Received:  c.received.Load(),
		Sent:      c.sent.Load(),
		Dropped:   c.dropped.Load(),
	}
}

// stopLocked discards the current attempt and returns the connection the
// caller must close after releasing mu.
func (c *Client) stopLocked() transport.Conn {
	a := c.attempt
	if a == nil {
		return nil
	}
	c.attempt = nil
	c.gen++

	if a.retry != nil {
		a.retry.Stop()
		a.retry = nil
	}
	if a.cancelDial != nil {
		a.cancelDial()
		a.cancelDial = nil
	}

	conn := a.conn
	a.conn = nil
	if conn != nil {
		c.status.Set(StatusDisconnected)
	}

	a.logger.Info("persistent connection stopped")
	return conn
}

// dialLocked opens a new physical connection for a in the background.
func (c *Client) dialLocked(a *attempt) {
	c.gen++
	gen := c.gen

	ctx, cancel := context.WithCancel(context.Background())
	a.cancelDial = cancel
	c.dials.Add(1)

	a.logger.Debug("dialing", "generation", gen)
	go c.dial(ctx, a, gen)
}

func (c *Client) dial(ctx context.Context, a *attempt, gen uint64) {
	conn, err := c.dialer.Dial(ctx, c.cfg.Address)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt != a || c.gen != gen {
		// Stopped while dialing
		if conn != nil {
			go conn.Close()
		}
		return
	}

	if err != nil {
		a.logger.Warn("connection attempt failed", "error", err)
		c.failLocked(a)
		return
	}

	// The handshake is done; the context no longer governs the connection.
	a.cancelDial()
	a.cancelDial = nil

	a.conn = conn
	c.wait = c.cfg.WaitInterval
	c.opens.Add(1)
	c.status.Set(StatusConnected)
	a.logger.Info("connected", "generation", gen)

	conn.Listen(transport.Handler{
		OnMessage: func(msg Message) { c.onMessage(gen, msg) },
		OnClose:   func(err error) { c.onClose(gen, err) },
	})
}

func (c *Client) onMessage(gen uint64, msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt == nil || c.gen != gen {
		return
	}
	c.received.Add(1)
	c.data.Publish(msg)
}

func (c *Client) onClose(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.attempt
	if a == nil || c.gen != gen {
		return
	}
	a.conn = nil
	a.logger.Warn("connection lost", "error", err)
	c.failLocked(a)
}

// failLocked reports the failure and arms the retry timer. StatusDisconnected
// is always published before the timer exists.
func (c *Client) failLocked(a *attempt) {
	if a.cancelDial != nil {
		a.cancelDial()
		a.cancelDial = nil
	}
	c.status.Set(StatusDisconnected)

	wait := c.wait
	c.wait = nextWait(wait, c.cfg.WaitInterval, c.cfg.MaxWaitInterval)

	gen := c.gen
	a.retry = time.AfterFunc(wait, func() { c.retry(a, gen) })
	a.logger.Info("reconnect scheduled", "wait", wait)
}

// retry fires when the wait elapses. A Stop that won the race has already
// bumped the generation, so a late timer does nothing.
func (c *Client) retry(a *attempt, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt != a || c.gen != gen || a.retry == nil {
		return
	}
	a.retry = nil
	c.dialLocked(a)
}

// nextWait doubles the wait up to limit. With limit <= base the wait is fixed.
func nextWait(current, base, limit time.Duration) time.Duration {
	if limit <= base {
		return base
	}
	next := current * 2
	if next > limit {
		next = limit
	}
	return next
}
