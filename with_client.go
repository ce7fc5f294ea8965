package agentbridge

import (
	"context"
	"fmt"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// It creates a client, connects it, runs fn and closes the client when fn
// returns. If Close fails, a warning is logged but does not override fn's
// error.
//
//	err := agentbridge.WithClient(ctx, func(c agentbridge.Client) error {
//	    _, err := c.Send(ctx, "reload", nil)
//	    return err
//	},
//	    agentbridge.WithURL(url),
//	)
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client, err := newClientImpl(options)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close client", "error", closeErr)
		}
	}()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	return fn(client)
}
