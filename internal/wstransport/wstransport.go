// Package wstransport implements the bridge transport over WebSocket.
package wstransport

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wagiedev/agent-bridge-go/internal/config"
)

// ClientIDHeader carries the client instance id on the handshake.
const ClientIDHeader = "X-Bridge-Client-Id"

// closeGracePeriod bounds the write of the close frame.
const closeGracePeriod = time.Second

// ErrPongTimeout is returned by Ping when the previous ping went unanswered.
var ErrPongTimeout = stderrors.New("websocket: no pong received since last ping")

// Compile-time verification of the transport interfaces.
var (
	_ config.Dialer = (*Dialer)(nil)
	_ config.Conn   = (*Conn)(nil)
	_ config.Pinger = (*Conn)(nil)
)

// Dialer opens WebSocket connections to a bridge.
type Dialer struct {
	log              *slog.Logger
	url              string
	token            string
	header           http.Header
	handshakeTimeout time.Duration
	binary           bool
	clientID         string
}

// NewDialer creates a Dialer from client options.
// Frames are sent as binary messages when the configured codec is binary.
func NewDialer(log *slog.Logger, opts *config.Options) *Dialer {
	opts = opts.WithDefaults()

	return &Dialer{
		log:              log.With("component", "wstransport"),
		url:              opts.URL,
		token:            opts.Token,
		header:           opts.Header,
		handshakeTimeout: opts.HandshakeTimeout,
		binary:           opts.Codec.Binary(),
		clientID:         uuid.NewString(),
	}
}

// ClientID returns the instance id sent on every handshake.
func (d *Dialer) ClientID() string {
	return d.clientID
}

// Dial implements config.Dialer.
func (d *Dialer) Dial(ctx context.Context) (config.Conn, error) {
	header := d.header.Clone()
	if header == nil {
		header = make(http.Header, 2)
	}

	if d.token != "" {
		header.Set("Authorization", "Bearer "+d.token)
	}

	header.Set(ClientIDHeader, d.clientID)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.handshakeTimeout,
	}

	ws, resp, err := dialer.DialContext(ctx, d.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake: %w (status %d)", err, resp.StatusCode)
		}

		return nil, fmt.Errorf("websocket handshake: %w", err)
	}

	d.log.Debug("WebSocket connected", "url", d.url, "client_id", d.clientID)

	return newConn(d.log, ws, d.binary), nil
}

// Conn is one WebSocket connection.
type Conn struct {
	log         *slog.Logger
	ws          *websocket.Conn
	messageType int

	// gorilla allows one concurrent writer.
	writeMu sync.Mutex

	readOnce sync.Once
	messages chan []byte
	errs     chan error

	awaitingPong atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
	closeErr  error
}

func newConn(log *slog.Logger, ws *websocket.Conn, binary bool) *Conn {
	messageType := websocket.TextMessage
	if binary {
		messageType = websocket.BinaryMessage
	}

	c := &Conn{
		log:         log,
		ws:          ws,
		messageType: messageType,
		messages:    make(chan []byte, 16),
		errs:        make(chan error, 1),
		done:        make(chan struct{}),
	}

	ws.SetPongHandler(func(string) error {
		c.awaitingPong.Store(false)

		return nil
	})

	return c
}

// ReadMessages implements config.Conn. The read goroutine starts on the
// first call; later calls return the same channels.
func (c *Conn) ReadMessages(ctx context.Context) (<-chan []byte, <-chan error) {
	c.readOnce.Do(func() {
		go c.readLoop(ctx)
	})

	return c.messages, c.errs
}

func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.errs)
	defer close(c.messages)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("WebSocket closed by peer")

				return
			}

			c.errs <- fmt.Errorf("websocket read: %w", err)

			return
		}

		select {
		case c.messages <- data:
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SendMessage implements config.Conn. The context deadline, if any,
// becomes the write deadline.
func (c *Conn) SendMessage(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if err := c.ws.WriteMessage(c.messageType, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}

	return nil
}

// Ping implements config.Pinger. It fails when the pong for the previous
// ping has not arrived.
func (c *Conn) Ping(ctx context.Context) error {
	if c.awaitingPong.Swap(true) {
		return ErrPongTimeout
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(closeGracePeriod)
	}

	if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return fmt.Errorf("websocket ping: %w", err)
	}

	return nil
}

// Close sends a close frame and closes the underlying connection.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))

		c.closeErr = c.ws.Close()
	})

	return c.closeErr
}
