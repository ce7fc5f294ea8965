package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/wagiedev/agent-bridge-go/internal/config"
	"github.com/wagiedev/agent-bridge-go/internal/connection"
	"github.com/wagiedev/agent-bridge-go/internal/errors"
	"github.com/wagiedev/agent-bridge-go/internal/events"
	"github.com/wagiedev/agent-bridge-go/internal/frame"
	"github.com/wagiedev/agent-bridge-go/internal/metrics"
	"github.com/wagiedev/agent-bridge-go/internal/protocol"
	"github.com/wagiedev/agent-bridge-go/internal/subprocess"
	"github.com/wagiedev/agent-bridge-go/internal/wstransport"
)

// Client is a connection to one bridge.
type Client struct {
	log     *slog.Logger
	clock   clock.Clock
	codec   frame.Codec
	metrics metrics.Recorder

	engine *protocol.Engine
	router *protocol.Router
	conn   *connection.Manager
	bus    *events.Bus

	mu     sync.Mutex
	closed bool
}

// New creates a client. The client is not connected after creation; call
// Connect to open the connection.
//
// When options carry no Dialer, a process dialer is used for
// options.Command, otherwise a WebSocket dialer for options.URL.
func New(options *config.Options) (*Client, error) {
	opts := options.WithDefaults()
	log := opts.Logger

	recorder := opts.Metrics
	if recorder == nil && opts.MetricsRegisterer != nil {
		prom, err := metrics.NewPrometheus(opts.MetricsRegisterer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}

		recorder = prom
	}

	if recorder == nil {
		recorder = metrics.Nop{}
	}

	dialer, err := newDialer(opts)
	if err != nil {
		return nil, err
	}

	c := &Client{
		log:     log.With("component", "client"),
		clock:   opts.Clock,
		codec:   opts.Codec,
		metrics: recorder,
		bus:     events.NewBus(log),
	}

	c.engine = protocol.NewEngine(log, opts.Clock, recorder, opts.RequestTimeout)
	c.router = protocol.NewRouter(log, opts.Codec, c.engine, c.emitEvent, recorder)
	c.conn = connection.NewManager(connection.Params{
		Log:     log,
		Dialer:  dialer,
		Policy:  opts.Reconnect,
		Clock:   opts.Clock,
		Bus:     c.bus,
		Metrics: recorder,
		URL:     endpoint(opts),
		OnFrame: c.router.Route,
		OnDrop: func(err error) {
			c.engine.FailAll(err)
		},
	})

	c.log.Debug("Client created",
		"endpoint", endpoint(opts),
		"codec", opts.Codec.Name(),
		"request_timeout", opts.RequestTimeout,
		"max_reconnect_attempts", opts.Reconnect.MaxAttempts,
	)

	return c, nil
}

func newDialer(opts *config.Options) (config.Dialer, error) {
	switch {
	case opts.Dialer != nil:
		return opts.Dialer, nil
	case len(opts.Command) > 0:
		dialer, err := subprocess.NewDialer(opts.Logger, opts)
		if err != nil {
			return nil, fmt.Errorf("create process dialer: %w", err)
		}

		return dialer, nil
	case opts.URL != "":
		return wstransport.NewDialer(opts.Logger, opts), nil
	default:
		return nil, fmt.Errorf("bridge url or command is required when no dialer is configured")
	}
}

// endpoint names the bridge in logs and connection errors.
func endpoint(opts *config.Options) string {
	if opts.Dialer == nil && len(opts.Command) > 0 {
		return strings.Join(opts.Command, " ")
	}

	return opts.URL
}

// Connect opens the connection. It is a no-op when already connected.
// A manual Connect also restarts automatic reconnection after Failed.
func (c *Client) Connect(ctx context.Context) error {
	if c.isClosed() {
		return errors.ErrClientClosed
	}

	return c.conn.Connect(ctx)
}

// Disconnect closes the connection, rejects every pending request with
// ErrConnectionClosed and stops automatic reconnection. The client can be
// connected again.
func (c *Client) Disconnect() error {
	return c.conn.Disconnect()
}

// Close disconnects and makes the client unusable.
// It is safe to call Close multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil
	}

	c.closed = true
	c.mu.Unlock()

	c.log.Debug("Closing client")

	return c.conn.Disconnect()
}

// IsConnected reports whether requests can be sent.
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

// State returns the connection lifecycle state.
func (c *Client) State() connection.State {
	return c.conn.State()
}

// PendingCount returns the number of requests awaiting a terminal frame.
func (c *Client) PendingCount() int {
	return c.engine.Len()
}

// Pending returns a snapshot of the pending requests.
func (c *Client) Pending() []protocol.PendingInfo {
	return c.engine.Pending()
}

// Send issues a request and waits for its outcome.
//
// The outcome is the response payload, a *errors.RemoteError,
// a *errors.RequestTimeoutError, errors.ErrConnectionClosed, or
// errors.ErrNotConnected when no connection is open. Cancelling ctx
// rejects the request with ctx.Err() and removes it from the table.
func (c *Client) Send(
	ctx context.Context,
	action string,
	data any,
	opts ...SendOption,
) (map[string]any, error) {
	type outcome struct {
		result map[string]any
		err    error
	}

	done := make(chan outcome, 1)

	id, err := c.SendAsync(ctx, action, data, func(result map[string]any, err error) {
		done <- outcome{result: result, err: err}
	}, opts...)
	if err != nil {
		return nil, err
	}

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		c.engine.Reject(id, ctx.Err())

		// Either our rejection or a concurrent completion fills done.
		out := <-done

		return out.result, out.err
	}
}

// SendAsync issues a request and returns its correlation ID without
// waiting. onComplete runs exactly once with the outcome, on the goroutine
// that settles the request, and must not block.
//
// Errors detected before the request is registered (closed client, no
// connection) are returned directly and onComplete is not called. Later
// failures, including a rejected write, are delivered to onComplete.
func (c *Client) SendAsync(
	ctx context.Context,
	action string,
	data any,
	onComplete protocol.Completion,
	opts ...SendOption,
) (string, error) {
	if c.isClosed() {
		return "", errors.ErrClientClosed
	}

	if !c.conn.IsConnected() {
		c.metrics.RequestRefused(action, metrics.OutcomeNotConnected)

		return "", errors.ErrNotConnected
	}

	o := applySendOptions(opts)
	id := c.engine.Register(action, onComplete, o.onChunk, o.timeout)

	req := frame.NewRequest(id, action, data, c.clock.Now())

	payload, err := c.codec.Encode(&req)
	if err != nil {
		c.engine.Reject(id, fmt.Errorf("encode request: %w", err))

		return id, nil
	}

	if err := c.conn.Send(ctx, payload); err != nil {
		c.log.Debug("Request write failed", "request_id", id, "action", action, "error", err)

		if !stderrors.Is(err, errors.ErrNotConnected) {
			err = fmt.Errorf("%w: %w", errors.ErrConnectionClosed, err)
		}

		c.engine.Reject(id, err)

		return id, nil
	}

	c.log.Debug("Sent request", "request_id", id, "action", action)

	return id, nil
}

// OnConnected subscribes fn to connection establishment.
func (c *Client) OnConnected(fn func()) func() {
	return c.bus.Subscribe(events.TopicConnected, func(events.Event) { fn() })
}

// OnDisconnected subscribes fn to connection loss and user disconnects.
func (c *Client) OnDisconnected(fn func(err error)) func() {
	return c.bus.Subscribe(events.TopicDisconnected, func(ev events.Event) { fn(ev.Err) })
}

// OnError subscribes fn to transport and dial errors.
func (c *Client) OnError(fn func(err error)) func() {
	return c.bus.Subscribe(events.TopicError, func(ev events.Event) { fn(ev.Err) })
}

// OnMaxReconnectAttempts subscribes fn to the end of automatic reconnection.
func (c *Client) OnMaxReconnectAttempts(fn func()) func() {
	return c.bus.Subscribe(events.TopicMaxReconnectAttempts, func(events.Event) { fn() })
}

// OnEvent subscribes fn to unsolicited frames pushed by the bridge.
func (c *Client) OnEvent(fn func(f *frame.Frame)) func() {
	return c.bus.Subscribe(events.TopicEvent, func(ev events.Event) { fn(ev.Frame) })
}

func (c *Client) emitEvent(f *frame.Frame) {
	c.bus.Emit(events.Event{Topic: events.TopicEvent, Frame: f})
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}
