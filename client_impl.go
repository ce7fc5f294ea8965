package agentbridge

import (
	"context"

	"github.com/wagiedev/agent-bridge-go/internal/client"
	"github.com/wagiedev/agent-bridge-go/internal/frame"
)

// clientWrapper adapts the internal client to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

func newClientImpl(options *Options) (Client, error) {
	impl, err := client.New(options)
	if err != nil {
		return nil, err
	}

	return &clientWrapper{impl: impl}, nil
}

func (c *clientWrapper) Connect(ctx context.Context) error {
	return c.impl.Connect(ctx)
}

func (c *clientWrapper) Disconnect() error {
	return c.impl.Disconnect()
}

func (c *clientWrapper) Close() error {
	return c.impl.Close()
}

func (c *clientWrapper) IsConnected() bool {
	return c.impl.IsConnected()
}

func (c *clientWrapper) State() State {
	return c.impl.State()
}

func (c *clientWrapper) PendingCount() int {
	return c.impl.PendingCount()
}

func (c *clientWrapper) Pending() []PendingRequest {
	return c.impl.Pending()
}

func (c *clientWrapper) Send(
	ctx context.Context,
	action string,
	data any,
	opts ...SendOption,
) (map[string]any, error) {
	return c.impl.Send(ctx, action, data, opts...)
}

func (c *clientWrapper) SendAsync(
	ctx context.Context,
	action string,
	data any,
	onComplete Completion,
	opts ...SendOption,
) (string, error) {
	return c.impl.SendAsync(ctx, action, data, onComplete, opts...)
}

func (c *clientWrapper) OnConnected(fn func()) func() {
	return c.impl.OnConnected(fn)
}

func (c *clientWrapper) OnDisconnected(fn func(err error)) func() {
	return c.impl.OnDisconnected(fn)
}

func (c *clientWrapper) OnError(fn func(err error)) func() {
	return c.impl.OnError(fn)
}

func (c *clientWrapper) OnMaxReconnectAttempts(fn func()) func() {
	return c.impl.OnMaxReconnectAttempts(fn)
}

func (c *clientWrapper) OnEvent(fn func(f *frame.Frame)) func() {
	return c.impl.OnEvent(fn)
}
