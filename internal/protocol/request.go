package protocol

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Completion receives the terminal outcome of a request.
//
// Exactly one of result or err is meaningful. Completions run on the
// goroutine that resolved the request (the read loop, a timer, or the
// caller of FailAll) and must not block.
type Completion func(result map[string]any, err error)

// ChunkHandler receives streaming chunks for a request in arrival order.
//
// Chunk delivery and completion of the same request never overlap. When a
// request completes while its ChunkHandler is running, including from
// inside the handler, the completion runs as soon as the handler returns.
type ChunkHandler func(chunk string)

// pendingRequest tracks an outgoing request awaiting its terminal frame.
type pendingRequest struct {
	id         string
	action     string
	createdAt  time.Time
	deadline   time.Time
	timeout    time.Duration
	onComplete Completion
	onChunk    ChunkHandler
	timer      *clock.Timer

	// mu guards the fields below and is never held across a callback.
	mu sync.Mutex
	// done blocks chunks once completion has started.
	done bool
	// delivering is set while onChunk runs.
	delivering bool
	// deferred is a completion claimed during delivery; the deliverer runs it.
	deferred func()
}

// PendingInfo is a read-only view of a pending request.
type PendingInfo struct {
	ID        string
	Action    string
	CreatedAt time.Time
	Deadline  time.Time
}
