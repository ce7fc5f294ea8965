package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	agentbridge "github.com/wagiedev/agent-bridge-go"
)

func newSendCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send <action> [json-data]",
		Short: "Send one request and print its response",
		Long: `Send one request to the bridge.

Streaming chunks are written to stdout as they arrive, followed by the
response payload as indented JSON.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data any
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &data); err != nil {
					return fmt.Errorf("parse request data: %w", err)
				}
			}

			s, err := flags.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.client.Close()

			ctx := cmd.Context()
			if err := s.client.Connect(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			streamed := false

			result, err := s.client.Send(ctx, args[0], data,
				agentbridge.WithChunkHandler(func(chunk string) {
					streamed = true
					fmt.Fprint(out, chunk)
				}),
			)
			if streamed {
				fmt.Fprintln(out)
			}

			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encode response: %w", err)
			}

			fmt.Fprintln(out, string(encoded))

			return nil
		},
	}
}
