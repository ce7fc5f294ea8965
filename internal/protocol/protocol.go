package protocol

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/agent-bridge-go/internal/errors"
	"github.com/wagiedev/agent-bridge-go/internal/metrics"
)

// DefaultRequestTimeout is used when Register is called without a timeout.
const DefaultRequestTimeout = 30 * time.Second

// Engine owns the pending-request table.
//
// All table mutations go through Register, Resolve, Reject, Expire and
// FailAll. The table lock is held only for map operations; continuations
// run after the entry has been claimed and removed, which is what makes
// each completion happen exactly once.
type Engine struct {
	log            *slog.Logger
	clock          clock.Clock
	metrics        metrics.Recorder
	defaultTimeout time.Duration

	pendingMu sync.Mutex
	pending   map[string]*pendingRequest
}

// NewEngine creates a correlation engine.
//
// A non-positive defaultTimeout falls back to DefaultRequestTimeout.
func NewEngine(
	log *slog.Logger,
	clk clock.Clock,
	recorder metrics.Recorder,
	defaultTimeout time.Duration,
) *Engine {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultRequestTimeout
	}

	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Engine{
		log:            log.With("component", "correlation"),
		clock:          clk,
		metrics:        recorder,
		defaultTimeout: defaultTimeout,
		pending:        make(map[string]*pendingRequest, 16),
	}
}

// Register records a new pending request and arms its deadline.
//
// It returns the request's correlation ID without blocking. A non-positive
// timeout uses the engine default. onChunk may be nil.
func (e *Engine) Register(
	action string,
	onComplete Completion,
	onChunk ChunkHandler,
	timeout time.Duration,
) string {
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	now := e.clock.Now()
	req := &pendingRequest{
		action:     action,
		createdAt:  now,
		deadline:   now.Add(timeout),
		timeout:    timeout,
		onComplete: onComplete,
		onChunk:    onChunk,
	}

	e.pendingMu.Lock()

	id := generateRequestID()
	for e.pending[id] != nil {
		id = generateRequestID()
	}

	req.id = id
	e.pending[id] = req
	req.timer = e.clock.AfterFunc(timeout, func() { e.Expire(id) })

	e.pendingMu.Unlock()

	e.metrics.RequestStarted(action)
	e.log.Debug("Registered request", "request_id", id, "action", action, "timeout", timeout)

	return id
}

// DeliverChunk hands a streaming chunk to the request's chunk handler.
//
// It returns false when the request is no longer pending; such chunks are
// dropped silently. The entry is never removed by a chunk.
func (e *Engine) DeliverChunk(id string, chunk string) bool {
	e.pendingMu.Lock()
	req, exists := e.pending[id]
	e.pendingMu.Unlock()

	if !exists {
		e.log.Debug("Dropping chunk for request that is no longer pending", "request_id", id)

		return false
	}

	req.mu.Lock()

	if req.done {
		req.mu.Unlock()

		return false
	}

	if req.onChunk == nil {
		req.mu.Unlock()

		return true
	}

	req.delivering = true
	req.mu.Unlock()

	req.onChunk(chunk)
	e.metrics.ChunkDelivered()

	req.mu.Lock()
	req.delivering = false
	deferred := req.deferred
	req.deferred = nil
	req.mu.Unlock()

	if deferred != nil {
		deferred()
	}

	return true
}

// Resolve completes a request successfully.
// It returns false if the request was not pending.
func (e *Engine) Resolve(id string, result map[string]any) bool {
	req := e.claim(id)
	if req == nil {
		return false
	}

	e.log.Debug("Resolved request", "request_id", id, "action", req.action)
	e.complete(req, result, nil)

	return true
}

// Reject completes a request with err.
// It returns false if the request was not pending.
func (e *Engine) Reject(id string, err error) bool {
	req := e.claim(id)
	if req == nil {
		return false
	}

	e.log.Debug("Rejected request", "request_id", id, "action", req.action, "error", err)
	e.complete(req, nil, err)

	return true
}

// Expire rejects a request with a *errors.RequestTimeoutError.
// It is called by the request's deadline timer.
func (e *Engine) Expire(id string) bool {
	req := e.claim(id)
	if req == nil {
		return false
	}

	e.log.Warn("Request timed out", "request_id", id, "action", req.action, "timeout", req.timeout)
	e.complete(req, nil, &errors.RequestTimeoutError{
		Action:    req.action,
		RequestID: id,
		Timeout:   req.timeout,
	})

	return true
}

// FailAll rejects every pending request with err and empties the table.
//
// The table is swapped out under the lock before any continuation runs, so
// a frame routed concurrently cannot resolve a request FailAll has claimed.
// All continuations have run when FailAll returns, except for a request
// whose chunk handler is running; its continuation follows the handler.
func (e *Engine) FailAll(err error) int {
	e.pendingMu.Lock()
	claimed := e.pending
	e.pending = make(map[string]*pendingRequest, 16)
	e.pendingMu.Unlock()

	if len(claimed) > 0 {
		e.log.Info("Failing all pending requests", "count", len(claimed), "error", err)
	}

	for _, req := range claimed {
		e.complete(req, nil, err)
	}

	return len(claimed)
}

// Len returns the number of pending requests.
func (e *Engine) Len() int {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	return len(e.pending)
}

// Pending returns a snapshot of the pending requests ordered by ID.
func (e *Engine) Pending() []PendingInfo {
	e.pendingMu.Lock()

	infos := make([]PendingInfo, 0, len(e.pending))
	for _, req := range e.pending {
		infos = append(infos, PendingInfo{
			ID:        req.id,
			Action:    req.action,
			CreatedAt: req.createdAt,
			Deadline:  req.deadline,
		})
	}

	e.pendingMu.Unlock()

	slices.SortFunc(infos, func(a, b PendingInfo) int { return strings.Compare(a.ID, b.ID) })

	return infos
}

// claim removes and returns the pending request, or nil if absent.
func (e *Engine) claim(id string) *pendingRequest {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	req, exists := e.pending[id]
	if !exists {
		return nil
	}

	delete(e.pending, id)

	return req
}

// complete runs the continuation of a claimed request. If a chunk is being
// delivered to it, the continuation is handed to the deliverer instead.
func (e *Engine) complete(req *pendingRequest, result map[string]any, err error) {
	req.timer.Stop()

	finish := func() {
		e.metrics.RequestCompleted(req.action, metrics.OutcomeFor(err), e.clock.Since(req.createdAt))

		if req.onComplete != nil {
			req.onComplete(result, err)
		}
	}

	req.mu.Lock()
	req.done = true

	if req.delivering {
		req.deferred = finish
		req.mu.Unlock()

		return
	}

	req.mu.Unlock()

	finish()
}

// generateRequestID creates a unique request ID using ULID.
func generateRequestID() string {
	return ulid.Make().String()
}
