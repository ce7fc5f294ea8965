package agentbridge

import "context"

// Client is a connection to one bridge.
//
// Clients are independent: each owns its connection, pending requests and
// subscribers. After Close, create a new client with New.
//
// Example usage:
//
//	client, err := agentbridge.New(agentbridge.WithURL(url))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.OnEvent(func(f *agentbridge.Frame) {
//	    log.Printf("bridge event %s", f.Type)
//	})
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Send(ctx, "status", nil)
type Client interface {
	// Connect opens the connection. It is a no-op while connecting or
	// connected. A failed dial returns a *ConnectionError and schedules an
	// automatic retry.
	Connect(ctx context.Context) error

	// Disconnect closes the connection, rejects every pending request with
	// ErrConnectionClosed before returning, and stops automatic reconnection.
	Disconnect() error

	// Close disconnects and releases the client. Safe to call multiple times.
	Close() error

	// IsConnected reports whether requests can be sent.
	IsConnected() bool

	// State returns the connection lifecycle state.
	State() State

	// PendingCount returns the number of requests awaiting a terminal frame.
	PendingCount() int

	// Pending returns a snapshot of the requests awaiting a terminal frame.
	Pending() []PendingRequest

	// Send issues a request and blocks until its response, a remote error,
	// its deadline, a connection loss, or ctx cancellation.
	// Returns ErrNotConnected immediately when no connection is open.
	Send(ctx context.Context, action string, data any, opts ...SendOption) (map[string]any, error)

	// SendAsync issues a request and returns its correlation ID. onComplete
	// runs exactly once with the outcome and must not block.
	SendAsync(
		ctx context.Context,
		action string,
		data any,
		onComplete Completion,
		opts ...SendOption,
	) (string, error)

	// OnConnected subscribes to connection establishment.
	// Every subscription method returns a function that removes the subscriber.
	OnConnected(fn func()) func()

	// OnDisconnected subscribes to connection loss and user disconnects.
	OnDisconnected(fn func(err error)) func()

	// OnError subscribes to transport and dial errors.
	OnError(fn func(err error)) func()

	// OnMaxReconnectAttempts subscribes to the end of automatic reconnection.
	OnMaxReconnectAttempts(fn func()) func()

	// OnEvent subscribes to frames the bridge pushes without a request.
	OnEvent(fn func(f *Frame)) func()
}

// New creates a client. The client is not connected; call Connect.
//
//	client, err := agentbridge.New(
//	    agentbridge.WithURL("ws://localhost:7331/bridge"),
//	    agentbridge.WithLogger(slog.Default()),
//	)
func New(opts ...Option) (Client, error) {
	return newClientImpl(applyOptions(opts))
}
