package errors

import (
	"errors"
	"fmt"
	"time"
)

// BridgeError is the base interface for all structured bridge client errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*RemoteError)(nil)
	_ BridgeError = (*RequestTimeoutError)(nil)
	_ BridgeError = (*MalformedFrameError)(nil)
	_ BridgeError = (*ConnectionError)(nil)
	_ BridgeError = (*ProcessError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected indicates a send was attempted while the connection is not open.
	ErrNotConnected = errors.New("not connected")

	// ErrRequestTimeout indicates no terminal response arrived before the request deadline.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrConnectionClosed indicates the connection dropped or was closed while the request was pending.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrReconnectExhausted indicates automatic reconnection gave up after the configured attempts.
	ErrReconnectExhausted = errors.New("max reconnect attempts reached")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: create a new one with New()")

	// ErrMalformedFrame indicates an inbound frame could not be decoded.
	ErrMalformedFrame = errors.New("malformed frame")
)

// RemoteError is returned when the bridge answers a request with an explicit error payload.
type RemoteError struct {
	RequestID string
	Message   string
	Details   any
}

func (e *RemoteError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("remote error: %s (details: %v)", e.Message, e.Details)
	}

	return fmt.Sprintf("remote error: %s", e.Message)
}

// IsBridgeError implements BridgeError.
func (e *RemoteError) IsBridgeError() bool { return true }

// RequestTimeoutError indicates a request expired before a terminal response arrived.
type RequestTimeoutError struct {
	Action    string
	RequestID string
	Timeout   time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request timeout: %s (%s) after %s", e.Action, e.RequestID, e.Timeout)
}

func (e *RequestTimeoutError) Unwrap() error {
	return ErrRequestTimeout
}

// IsBridgeError implements BridgeError.
func (e *RequestTimeoutError) IsBridgeError() bool { return true }

// MalformedFrameError indicates an inbound frame failed to decode.
// It preserves the raw frame for diagnostics.
type MalformedFrameError struct {
	Raw []byte
	Err error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame: %v", e.Err)
}

// Unwrap returns both the decode error and ErrMalformedFrame.
func (e *MalformedFrameError) Unwrap() []error {
	return []error{ErrMalformedFrame, e.Err}
}

// IsBridgeError implements BridgeError.
func (e *MalformedFrameError) IsBridgeError() bool { return true }

// ConnectionError indicates failure to open the transport.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("failed to connect: %v", e.Err)
	}

	return fmt.Sprintf("failed to connect to %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ConnectionError) IsBridgeError() bool { return true }

// ProcessError indicates a bridge child process exited unexpectedly.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("bridge process failed (exit %d): %s", e.ExitCode, e.Stderr)
	}

	return fmt.Sprintf("bridge process failed (exit %d): %v", e.ExitCode, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ProcessError) IsBridgeError() bool { return true }
