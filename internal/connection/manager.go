package connection

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/agent-bridge-go/internal/config"
	"github.com/wagiedev/agent-bridge-go/internal/errors"
	"github.com/wagiedev/agent-bridge-go/internal/events"
	"github.com/wagiedev/agent-bridge-go/internal/metrics"
)

// FrameFunc receives one encoded inbound message.
type FrameFunc func(data []byte)

// DropFunc is called with errors.ErrConnectionClosed whenever the open
// connection goes away, before the disconnected event is emitted.
type DropFunc func(err error)

// Params configures a Manager.
type Params struct {
	Log     *slog.Logger
	Dialer  config.Dialer
	Policy  config.ReconnectPolicy
	Clock   clock.Clock
	Bus     *events.Bus
	Metrics metrics.Recorder

	// URL is used in error messages only.
	URL string

	OnFrame FrameFunc
	OnDrop  DropFunc
}

// Manager owns the transport connection and its reconnect schedule.
type Manager struct {
	log     *slog.Logger
	dialer  config.Dialer
	policy  config.ReconnectPolicy
	clock   clock.Clock
	bus     *events.Bus
	metrics metrics.Recorder
	url     string
	onFrame FrameFunc
	onDrop  DropFunc

	mu         sync.Mutex
	state      State
	conn       config.Conn
	cancel     context.CancelFunc
	generation uint64
	attempts   int
	userClosed bool

	// reconnectSeq invalidates a scheduled reconnect that fired after
	// being cancelled.
	reconnectSeq uint64
	timer        *clock.Timer
}

// NewManager creates a Manager in the Disconnected state.
func NewManager(p Params) *Manager {
	if p.Metrics == nil {
		p.Metrics = metrics.Nop{}
	}

	if p.Clock == nil {
		p.Clock = clock.New()
	}

	if p.OnFrame == nil {
		p.OnFrame = func([]byte) {}
	}

	if p.OnDrop == nil {
		p.OnDrop = func(error) {}
	}

	return &Manager{
		log:     p.Log.With("component", "connection"),
		dialer:  p.Dialer,
		policy:  p.Policy.WithDefaults(),
		clock:   p.Clock,
		bus:     p.Bus,
		metrics: p.Metrics,
		url:     p.URL,
		onFrame: p.OnFrame,
		onDrop:  p.OnDrop,
		state:   StateDisconnected,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// IsConnected reports whether the manager is in the Connected state.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Attempts returns the number of reconnect attempts since the last
// successful connection.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.attempts
}

// Connect opens the connection.
//
// It is a no-op while already Connecting or Connected. A manual Connect
// resets the attempt counter and re-enables automatic reconnection. When
// the dial fails the error is returned as a *errors.ConnectionError and a
// reconnect is scheduled as well.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()

	if m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()

		return nil
	}

	m.userClosed = false
	m.attempts = 0
	m.cancelReconnectLocked()
	gen := m.beginDialLocked()

	m.mu.Unlock()

	return m.dial(ctx, gen)
}

// Disconnect closes the connection and disables automatic reconnection.
//
// Pending requests are failed through the drop callback before the
// transport is closed. The disconnected event is emitted only when a
// connection was open.
func (m *Manager) Disconnect() error {
	m.mu.Lock()

	m.userClosed = true
	m.cancelReconnectLocked()

	wasConnected := m.state == StateConnected
	conn := m.conn

	m.conn = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	m.generation++
	m.setStateLocked(StateDisconnected)

	m.mu.Unlock()

	m.onDrop(errors.ErrConnectionClosed)

	var err error
	if conn != nil {
		err = conn.Close()
	}

	m.log.Info("Disconnected", "user_initiated", true)

	if wasConnected {
		m.bus.Emit(events.Event{Topic: events.TopicDisconnected, Err: errors.ErrConnectionClosed})
	}

	if err != nil {
		return fmt.Errorf("close connection: %w", err)
	}

	return nil
}

// Send writes one encoded frame to the open connection.
// It returns errors.ErrNotConnected unless the state is Connected.
func (m *Manager) Send(ctx context.Context, data []byte) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || conn == nil {
		return errors.ErrNotConnected
	}

	if err := conn.SendMessage(ctx, data); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}

	return nil
}

// beginDialLocked claims the next generation and enters Connecting, so a
// concurrent Connect sees the attempt in progress. Caller must hold m.mu.
func (m *Manager) beginDialLocked() uint64 {
	m.generation++
	m.setStateLocked(StateConnecting)

	return m.generation
}

// dial performs the connection attempt claimed as gen.
func (m *Manager) dial(ctx context.Context, gen uint64) error {
	m.log.Debug("Dialing", "url", m.url)

	conn, err := m.dialer.Dial(ctx)

	m.mu.Lock()

	if gen != m.generation {
		// Disconnect or a newer Connect took over while dialing.
		m.mu.Unlock()

		if conn != nil {
			_ = conn.Close()
		}

		return errors.ErrConnectionClosed
	}

	if err != nil {
		m.setStateLocked(StateDisconnected)
		m.mu.Unlock()

		connErr := &errors.ConnectionError{URL: m.url, Err: err}

		m.log.Warn("Connection attempt failed", "url", m.url, "error", err)
		m.bus.Emit(events.Event{Topic: events.TopicError, Err: connErr})
		m.scheduleReconnect()

		return connErr
	}

	connCtx, cancel := context.WithCancel(context.Background())

	m.conn = conn
	m.cancel = cancel
	m.attempts = 0
	m.setStateLocked(StateConnected)

	m.mu.Unlock()

	m.log.Info("Connected", "url", m.url)
	m.bus.Emit(events.Event{Topic: events.TopicConnected})

	go m.serve(connCtx, gen, conn)

	return nil
}

// serve runs the per-connection goroutines until the first one fails.
func (m *Manager) serve(ctx context.Context, gen uint64, conn config.Conn) {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return m.readLoop(egCtx, conn)
	})

	if pinger, ok := conn.(config.Pinger); ok && m.policy.PingInterval > 0 {
		eg.Go(func() error {
			return m.keepAlive(egCtx, pinger)
		})
	}

	m.handleDrop(gen, eg.Wait())
}

func (m *Manager) readLoop(ctx context.Context, conn config.Conn) error {
	defer m.log.Debug("Read loop stopped")

	messages, errs := conn.ReadMessages(ctx)

	for {
		select {
		case data, ok := <-messages:
			if !ok {
				return closeCause(errs)
			}

			m.onFrame(data)

		case err, ok := <-errs:
			if !ok {
				// Keep draining messages until the transport closes them.
				errs = nil

				continue
			}

			if err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// closeCause returns the error queued behind a closed message channel,
// or errors.ErrConnectionClosed for a clean close.
func closeCause(errs <-chan error) error {
	if errs != nil {
		select {
		case err, ok := <-errs:
			if ok && err != nil {
				return err
			}
		default:
		}
	}

	return errors.ErrConnectionClosed
}

func (m *Manager) keepAlive(ctx context.Context, pinger config.Pinger) error {
	ticker := m.clock.Ticker(m.policy.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := pinger.Ping(ctx); err != nil {
				return fmt.Errorf("keep-alive ping: %w", err)
			}
		}
	}
}

// handleDrop tears down connection gen after its goroutines stopped.
func (m *Manager) handleDrop(gen uint64, cause error) {
	m.mu.Lock()

	if gen != m.generation || m.state != StateConnected {
		m.mu.Unlock()

		return
	}

	conn := m.conn
	m.conn = nil

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	m.setStateLocked(StateDisconnected)
	userClosed := m.userClosed

	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	clean := cause == nil ||
		stderrors.Is(cause, errors.ErrConnectionClosed) ||
		stderrors.Is(cause, context.Canceled)

	if clean {
		m.log.Info("Connection closed")
	} else {
		m.log.Warn("Connection lost", "error", cause)
		m.bus.Emit(events.Event{Topic: events.TopicError, Err: cause})
	}

	m.onDrop(errors.ErrConnectionClosed)
	m.bus.Emit(events.Event{Topic: events.TopicDisconnected, Err: errors.ErrConnectionClosed})

	if !userClosed {
		m.scheduleReconnect()
	}
}

// scheduleReconnect arms the next automatic attempt or gives up.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()

	if m.userClosed || m.timer != nil || m.policy.MaxAttempts < 0 {
		m.mu.Unlock()

		return
	}

	m.attempts++
	attempt := m.attempts

	if m.policy.Exhausted(attempt) {
		m.setStateLocked(StateFailed)
		m.mu.Unlock()

		m.log.Error("Giving up reconnecting", "max_attempts", m.policy.MaxAttempts)
		m.bus.Emit(events.Event{
			Topic: events.TopicMaxReconnectAttempts,
			Err:   errors.ErrReconnectExhausted,
		})

		return
	}

	delay := m.policy.Delay(attempt)
	seq := m.reconnectSeq

	m.setStateLocked(StateReconnecting)
	m.timer = m.clock.AfterFunc(delay, func() { m.reconnect(seq) })

	m.mu.Unlock()

	m.metrics.ReconnectAttempt()
	m.log.Info("Reconnect scheduled", "attempt", attempt, "max_attempts", m.policy.MaxAttempts, "delay", delay)
}

func (m *Manager) reconnect(seq uint64) {
	m.mu.Lock()

	if seq != m.reconnectSeq || m.timer == nil || m.userClosed {
		m.mu.Unlock()

		return
	}

	m.timer = nil
	gen := m.beginDialLocked()

	m.mu.Unlock()

	// Failures schedule the next attempt themselves.
	_ = m.dial(context.Background(), gen)
}

// cancelReconnectLocked stops a scheduled reconnect. Caller must hold m.mu.
func (m *Manager) cancelReconnectLocked() {
	m.reconnectSeq++

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// setStateLocked records a state transition. Caller must hold m.mu.
func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}

	m.log.Debug("State changed", "from", m.state, "to", s)
	m.state = s
	m.metrics.StateChanged(s.String())
}
