package main

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	agentbridge "github.com/wagiedev/agent-bridge-go"
)

func newMCPCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve configured bridge actions as MCP tools on stdio",
		Long: `Serve the tools listed under "tools" in the --config file over the
Model Context Protocol on stdin/stdout. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.client.Close()

			if len(s.file.Tools) == 0 {
				return fmt.Errorf("no tools configured: add a tools section to --config")
			}

			server, err := buildToolServer(s)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := s.client.Connect(ctx); err != nil {
				return err
			}

			return server.Serve(ctx, &mcp.StdioTransport{})
		},
	}
}

// buildToolServer registers one tool per configured bridge action.
func buildToolServer(s *session) (*agentbridge.ToolServer, error) {
	server := agentbridge.NewToolServer(s.client, "bridgectl", version, s.log)

	for _, t := range s.file.Tools {
		timeout, err := t.ToolTimeout()
		if err != nil {
			return nil, err
		}

		spec := agentbridge.ToolSpec{
			Action:      t.Action,
			Description: t.Description,
			Schema:      agentbridge.SimpleSchema(t.Properties),
			Timeout:     timeout,
		}

		if err := server.AddTool(spec); err != nil {
			return nil, err
		}
	}

	return server, nil
}
