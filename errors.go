package agentbridge

import "github.com/wagiedev/agent-bridge-go/internal/errors"

// Re-export error types from internal package

// BridgeError is the base interface for all typed client errors.
type BridgeError = errors.BridgeError

// RemoteError is a failure reported by the bridge for one request.
type RemoteError = errors.RemoteError

// RequestTimeoutError reports a request that reached its deadline.
// It matches ErrRequestTimeout with errors.Is.
type RequestTimeoutError = errors.RequestTimeoutError

// MalformedFrameError describes an inbound frame that could not be decoded.
type MalformedFrameError = errors.MalformedFrameError

// ConnectionError reports a failed connection attempt.
type ConnectionError = errors.ConnectionError

// ProcessError reports a bridge child process that exited with an error.
type ProcessError = errors.ProcessError

// Re-export sentinel errors from internal package.
var (
	// ErrNotConnected is returned by Send while no connection is open.
	ErrNotConnected = errors.ErrNotConnected

	// ErrRequestTimeout matches every *RequestTimeoutError.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrConnectionClosed rejects requests pending when the connection closed.
	ErrConnectionClosed = errors.ErrConnectionClosed

	// ErrReconnectExhausted accompanies the end of automatic reconnection.
	ErrReconnectExhausted = errors.ErrReconnectExhausted

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrMalformedFrame matches every *MalformedFrameError.
	ErrMalformedFrame = errors.ErrMalformedFrame
)
