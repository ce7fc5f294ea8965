package protocol

import (
	"log/slog"

	"github.com/wagiedev/agent-bridge-go/internal/errors"
	"github.com/wagiedev/agent-bridge-go/internal/frame"
	"github.com/wagiedev/agent-bridge-go/internal/metrics"
)

// EventFunc receives unsolicited frames.
type EventFunc func(f *frame.Frame)

// Router classifies inbound frames and dispatches them without interpreting
// their payloads.
//
// Route is called by exactly one read loop per connection, which keeps the
// chunks of a request in arrival order.
type Router struct {
	log     *slog.Logger
	codec   frame.Codec
	engine  *Engine
	onEvent EventFunc
	metrics metrics.Recorder
}

// NewRouter creates a router that resolves requests on engine and forwards
// unsolicited frames to onEvent.
func NewRouter(
	log *slog.Logger,
	codec frame.Codec,
	engine *Engine,
	onEvent EventFunc,
	recorder metrics.Recorder,
) *Router {
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Router{
		log:     log.With("component", "router"),
		codec:   codec,
		engine:  engine,
		onEvent: onEvent,
		metrics: recorder,
	}
}

// Route decodes and dispatches one inbound frame.
// Malformed frames are logged and dropped.
func (r *Router) Route(data []byte) {
	f, err := r.codec.Decode(data)
	if err != nil {
		r.log.Warn("Dropping malformed frame", "error", err, "size", len(data))
		r.metrics.FrameDropped("malformed")

		return
	}

	r.Dispatch(f)
}

// Dispatch routes an already decoded frame.
func (r *Router) Dispatch(f *frame.Frame) {
	kind := f.Kind()

	// Correlated kinds without an id cannot reach a request.
	if f.ID == "" && (kind == frame.KindResponse || kind == frame.KindStreamChunk) {
		r.log.Debug("Correlated frame without id, forwarding as event", "type", f.Type)
		r.forward(f)

		return
	}

	switch kind {
	case frame.KindResponse:
		r.handleResponse(f)

	case frame.KindStreamChunk:
		r.handleChunk(f)

	default:
		r.forward(f)
	}
}

// handleResponse resolves or rejects the request a response belongs to.
func (r *Router) handleResponse(f *frame.Frame) {
	var matched bool

	if message, details, isErr := f.RemoteError(); isErr {
		matched = r.engine.Reject(f.ID, &errors.RemoteError{
			RequestID: f.ID,
			Message:   message,
			Details:   details,
		})
	} else {
		matched = r.engine.Resolve(f.ID, f.Result())
	}

	if !matched {
		r.log.Debug("No pending request for response", "request_id", f.ID, "type", f.Type)
		r.metrics.FrameDropped("unmatched_response")
	}
}

// handleChunk delivers a streaming chunk to its request.
func (r *Router) handleChunk(f *frame.Frame) {
	chunk, ok := f.Chunk()
	if !ok {
		r.log.Warn("Streaming chunk missing 'chunk' field", "request_id", f.ID)
		r.metrics.FrameDropped("invalid_chunk")

		return
	}

	if !r.engine.DeliverChunk(f.ID, chunk) {
		r.metrics.FrameDropped("unmatched_chunk")
	}
}

// forward hands an unsolicited frame to subscribers.
func (r *Router) forward(f *frame.Frame) {
	r.log.Debug("Forwarding event", "type", f.Type)

	if r.onEvent != nil {
		r.onEvent(f)
	}
}
