package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	agentbridge "github.com/wagiedev/agent-bridge-go"
)

func newListenCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print events pushed by the bridge until interrupted",
		Long: `Connect and print every unsolicited frame as one JSON line.

The connection is re-established automatically after drops; the command
exits once reconnection gives up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.client.Close()

			ctx, cancel := context.WithCancelCause(cmd.Context())
			defer cancel(nil)

			var mu sync.Mutex

			enc := json.NewEncoder(cmd.OutOrStdout())

			s.client.OnEvent(func(f *agentbridge.Frame) {
				mu.Lock()
				defer mu.Unlock()

				if err := enc.Encode(f); err != nil {
					s.log.Warn("Failed to print event", "type", f.Type, "error", err)
				}
			})
			s.client.OnConnected(func() {
				s.log.Info("Listening for bridge events")
			})
			s.client.OnDisconnected(func(err error) {
				s.log.Warn("Bridge disconnected", "error", err)
			})
			s.client.OnError(func(err error) {
				s.log.Warn("Bridge error", "error", err)
			})
			s.client.OnMaxReconnectAttempts(func() {
				cancel(agentbridge.ErrReconnectExhausted)
			})

			if err := s.client.Connect(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			if cause := context.Cause(ctx); cause != nil && cause != context.Canceled {
				return fmt.Errorf("listen: %w", cause)
			}

			return nil
		},
	}
}
