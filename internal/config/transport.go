// Package config provides configuration types for the bridge client.
package config

import "context"

// Conn is one open duplex connection to a bridge.
// Implement this (together with Dialer) to provide custom transports for
// testing, mocking, or alternative carriers.
//
// The default implementation is the WebSocket connection in wstransport.
type Conn interface {
	// ReadMessages returns channels for receiving frames and errors.
	// The message channel yields one encoded frame per transport message.
	// The error channel yields the error that ended reading, if any.
	// Both channels are closed when reading completes.
	ReadMessages(ctx context.Context) (<-chan []byte, <-chan error)

	// SendMessage writes one encoded frame.
	// This method must be safe for concurrent use.
	SendMessage(ctx context.Context, data []byte) error

	// Close terminates the connection and releases resources.
	// It's safe to call Close multiple times.
	Close() error
}

// Pinger is implemented by connections that support keep-alive pings.
type Pinger interface {
	// Ping sends a keep-alive ping. An error means the connection is dead.
	Ping(ctx context.Context) error
}

// Dialer opens new connections. It is called once for the initial connect
// and again for every reconnect attempt.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}
