// Package channel maintains the client's single duplex connection to the
// game server. It owns the full connection lifecycle: it dials a transport,
// feeds inbound frames to its consumer, and redials after a fixed delay
// whenever the transport terminates, until it is explicitly shut down.
package channel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/afriverse/gameclient/transport"
)

// State is the channel's position in the connection lifecycle.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateWaiting
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateWaiting:
		return "waiting"
	case StateShutDown:
		return "shutdown"
	default:
		return "unknown"
	}
}

const (
	DefaultURL        = "ws://localhost:8080/ws"
	DefaultRetryDelay = 3 * time.Second
)

// Config configures a Channel. The zero value is usable: it dials the
// default endpoint over WebSocket and retries every 3 seconds.
type Config struct {
	// URL of the game server's duplex endpoint.
	URL string

	// RetryDelay is the fixed wait between reconnection attempts.
	RetryDelay time.Duration

	// Dialer opens the underlying transport. Defaults to WebSocket.
	Dialer transport.Dialer

	// SendLimit optionally bounds the outbound request rate. Requests
	// over budget are discarded, consistent with the channel's
	// best-effort send semantics.
	SendLimit *rate.Limiter

	// Registry receives the channel's Prometheus collectors. Defaults
	// to the process-wide registerer.
	Registry prometheus.Registerer
}

// Channel is a reconnecting duplex message channel. Consumers see one
// stable Send and one inbound frame stream no matter how many physical
// transports have come and gone underneath.
type Channel struct {
	url        string
	retryDelay time.Duration
	dialer     transport.Dialer
	limit      *rate.Limiter
	metrics    *metrics

	mu      sync.Mutex
	state   State
	epoch   uint64
	conn    transport.Conn
	started bool
	onFrame func([]byte)
	onState func(State)

	// notifyMu serializes state transitions with their listener
	// callbacks, so a listener never observes a transition delivered
	// after the terminal ShutDown.
	notifyMu sync.Mutex

	done         chan struct{}
	stopped      chan struct{}
	shutdownOnce sync.Once
}

func New(cfg Config) *Channel {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = transport.NewWebSocketDialer()
	}

	return &Channel{
		url:        cfg.URL,
		retryDelay: cfg.RetryDelay,
		dialer:     cfg.Dialer,
		limit:      cfg.SendLimit,
		metrics:    newMetrics(cfg.Registry),
		state:      StateConnecting,
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// OnFrame registers the sole consumer of inbound frames. It must be set
// before Start; frames arriving with no consumer are discarded.
func (c *Channel) OnFrame(fn func(frame []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = fn
}

// OnStateChange registers a listener for lifecycle transitions. Must be
// set before Start. Deliveries are serialized and ShutDown is always
// the last state delivered.
func (c *Channel) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// State returns the channel's current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Epoch returns the sequence number of the current connection epoch.
// Epochs are numbered from 0 and increase by one per dial attempt.
func (c *Channel) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Ready reports whether the channel currently holds an open transport.
func (c *Channel) Ready() bool {
	return c.State() == StateOpen
}

// Start launches the connection loop. Calling Start more than once, or
// after Shutdown, has no effect.
func (c *Channel) Start() {
	c.mu.Lock()
	if c.started || c.state == StateShutDown {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.run()
}

// Send transmits one frame on the live transport. It never blocks on the
// network for an unready channel and never reports failure to the caller:
// a frame sent while the channel is not open, or over the send budget, is
// discarded with a warning. Delivery is best effort within the current
// epoch.
func (c *Channel) Send(frame []byte) {
	c.mu.Lock()
	state := c.state
	conn := c.conn
	c.mu.Unlock()

	if state != StateOpen || conn == nil {
		slog.Warn("Discarding outbound frame: channel not open", "state", state.String(), "size", len(frame))
		c.metrics.sendsDropped.Inc()
		return
	}

	if c.limit != nil && !c.limit.Allow() {
		slog.Warn("Discarding outbound frame: send budget exceeded", "size", len(frame))
		c.metrics.sendsDropped.Inc()
		return
	}

	if err := conn.Send(frame); err != nil {
		// The read loop observes the same transport failure and drives
		// the epoch transition; nothing to do here but record the loss.
		slog.Warn("Failed to send frame", "error", err)
		c.metrics.sendsDropped.Inc()
	}
}

// Shutdown tears the channel down: it cancels any pending retry wait,
// aborts an in-flight dial, closes the live transport and waits for the
// connection loop to exit. It is idempotent. Shutdown must not be
// called from a frame handler or a state listener.
func (c *Channel) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.notifyMu.Lock()
		c.mu.Lock()
		c.state = StateShutDown
		conn := c.conn
		c.conn = nil
		onState := c.onState
		started := c.started
		c.mu.Unlock()
		if onState != nil {
			onState(StateShutDown)
		}
		c.notifyMu.Unlock()

		close(c.done)
		if conn != nil {
			conn.Close()
		}

		if started {
			<-c.stopped
		}
		slog.Info("Channel shut down")
	})
}

func (c *Channel) run() {
	defer close(c.stopped)

	// Shutdown aborts an in-flight dial through this context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.done
		cancel()
	}()

	for epoch := uint64(0); ; epoch++ {
		if !c.setState(StateConnecting) {
			return
		}
		c.mu.Lock()
		c.epoch = epoch
		c.mu.Unlock()
		c.metrics.epochs.Inc()

		slog.Info("Connecting to game server", "url", c.url, "epoch", epoch)
		conn, err := c.dialer.Dial(ctx, c.url)
		if err != nil {
			slog.Warn("Failed to connect", "url", c.url, "error", err)
			if !c.waitRetry() {
				return
			}
			continue
		}

		if !c.adopt(conn) {
			conn.Close()
			return
		}
		slog.Info("Channel open", "epoch", epoch)

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		shut := c.state == StateShutDown
		c.mu.Unlock()
		conn.Close()
		if shut {
			return
		}

		if !c.waitRetry() {
			return
		}
	}
}

// setState transitions to s unless the channel has been shut down, in
// which case it reports false and the caller must exit.
func (c *Channel) setState(s State) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.state == StateShutDown {
		c.mu.Unlock()
		return false
	}
	c.state = s
	onState := c.onState
	c.mu.Unlock()

	if onState != nil {
		onState(s)
	}
	return true
}

// adopt installs conn as the live transport and moves to Open. It
// reports false if the channel was shut down while the dial was in
// flight.
func (c *Channel) adopt(conn transport.Conn) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.state == StateShutDown {
		c.mu.Unlock()
		return false
	}
	c.conn = conn
	c.state = StateOpen
	onState := c.onState
	c.mu.Unlock()

	if onState != nil {
		onState(StateOpen)
	}
	return true
}

// waitRetry holds the channel in Waiting for the retry delay. It reports
// false if the channel was shut down while waiting.
func (c *Channel) waitRetry() bool {
	if !c.setState(StateWaiting) {
		return false
	}
	slog.Info("Reconnecting after delay", "delay", c.retryDelay)

	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.done:
		return false
	}
}

func (c *Channel) readLoop(conn transport.Conn) {
	for {
		frame, err := conn.Read()
		if err != nil {
			slog.Warn("Transport terminated", "error", err)
			return
		}
		c.metrics.framesReceived.Inc()

		c.mu.Lock()
		onFrame := c.onFrame
		c.mu.Unlock()
		if onFrame != nil {
			onFrame(frame)
		}
	}
}
