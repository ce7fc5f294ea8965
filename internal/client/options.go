package client

import (
	"time"

	"github.com/wagiedev/agent-bridge-go/internal/protocol"
)

// SendOption configures a single request.
type SendOption func(*sendOptions)

type sendOptions struct {
	timeout time.Duration
	onChunk protocol.ChunkHandler
}

// WithTimeout overrides the client's default request timeout.
func WithTimeout(d time.Duration) SendOption {
	return func(o *sendOptions) {
		o.timeout = d
	}
}

// WithChunkHandler receives the request's streaming chunks in arrival order.
func WithChunkHandler(fn func(chunk string)) SendOption {
	return func(o *sendOptions) {
		o.onChunk = fn
	}
}

func applySendOptions(opts []SendOption) sendOptions {
	var o sendOptions

	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}
