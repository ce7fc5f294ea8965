// Package bridgetest provides an in-memory bridge transport for tests.
//
// A Dialer hands out Conns whose inbound side is fed by Push and whose
// outbound frames are recorded. Responders installed with Conn.Respond run
// synchronously on every SendMessage, which makes it easy to script a
// bridge that answers requests.
package bridgetest

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/wagiedev/agent-bridge-go/internal/config"
)

// ErrClosed is returned by SendMessage and Ping on a closed Conn.
var ErrClosed = stderrors.New("bridgetest: connection closed")

// ErrDialRefused is the default dial failure.
var ErrDialRefused = stderrors.New("bridgetest: connection refused")

// Compile-time verification of the transport interfaces.
var (
	_ config.Conn   = (*Conn)(nil)
	_ config.Pinger = (*Conn)(nil)
	_ config.Dialer = (*Dialer)(nil)
)

const bufferSize = 256

// Responder is invoked for every outbound frame.
type Responder func(c *Conn, data []byte)

// Conn is an in-memory connection.
type Conn struct {
	mu        sync.Mutex
	closed    bool
	messages  chan []byte
	errs      chan error
	sent      [][]byte
	sendErr   error
	pingErr   error
	pings     int
	responder Responder
}

// NewConn creates an open connection.
func NewConn() *Conn {
	return &Conn{
		messages: make(chan []byte, bufferSize),
		errs:     make(chan error, 1),
	}
}

// ReadMessages implements config.Conn.
func (c *Conn) ReadMessages(_ context.Context) (<-chan []byte, <-chan error) {
	return c.messages, c.errs
}

// SendMessage records data and runs the responder, if any.
func (c *Conn) SendMessage(_ context.Context, data []byte) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return ErrClosed
	}

	if c.sendErr != nil {
		err := c.sendErr
		c.mu.Unlock()

		return err
	}

	c.sent = append(c.sent, append([]byte(nil), data...))
	responder := c.responder

	c.mu.Unlock()

	if responder != nil {
		responder(c, data)
	}

	return nil
}

// Ping implements config.Pinger.
func (c *Conn) Ping(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.pings++

	return c.pingErr
}

// Close implements config.Conn. It is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.messages)
		close(c.errs)
	}

	return nil
}

// Push delivers an inbound message. It is dropped if the Conn is closed.
func (c *Conn) Push(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.messages <- data
}

// Fail simulates the peer dropping the connection with err.
// A nil err simulates a clean close.
func (c *Conn) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if err != nil {
		c.errs <- err
	}

	c.closed = true
	close(c.messages)
	close(c.errs)
}

// Respond installs r as the responder for outbound frames.
func (c *Conn) Respond(r Responder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responder = r
}

// SetSendError makes subsequent sends fail with err.
func (c *Conn) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sendErr = err
}

// SetPingError makes subsequent pings fail with err.
func (c *Conn) SetPingError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pingErr = err
}

// Sent returns a copy of the recorded outbound frames.
func (c *Conn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]byte, len(c.sent))
	copy(out, c.sent)

	return out
}

// Pings returns the number of successful pings.
func (c *Conn) Pings() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pings
}

// Closed reports whether the Conn has been closed by either side.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// Dialer creates Conns and can be scripted to fail.
type Dialer struct {
	mu        sync.Mutex
	conns     []*Conn
	dials     int
	failures  int
	err       error
	responder Responder
}

// NewDialer creates a Dialer whose dials succeed.
func NewDialer() *Dialer {
	return &Dialer{err: ErrDialRefused}
}

// Dial implements config.Dialer.
func (d *Dialer) Dial(ctx context.Context) (config.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++

	if d.failures != 0 {
		if d.failures > 0 {
			d.failures--
		}

		return nil, d.err
	}

	c := NewConn()
	c.responder = d.responder
	d.conns = append(d.conns, c)

	return c, nil
}

// FailNext makes the next n dials fail. A negative n fails every dial
// until FailNext(0) is called.
func (d *Dialer) FailNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failures = n
}

// Respond installs r on every Conn dialed from now on.
func (d *Dialer) Respond(r Responder) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.responder = r
}

// Dials returns the number of Dial calls, successful or not.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dials
}

// Last returns the most recently dialed Conn, or nil.
func (d *Dialer) Last() *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.conns) == 0 {
		return nil
	}

	return d.conns[len(d.conns)-1]
}
