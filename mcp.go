package agentbridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	internalmcp "github.com/wagiedev/agent-bridge-go/internal/mcp"
)

// ToolServer exposes bridge actions as Model Context Protocol tools.
//
// Each tool call becomes one bridge request. Streaming chunks are
// concatenated into the tool's text output and the response payload is
// returned as structured content.
//
// Example:
//
//	tools := agentbridge.NewToolServer(client, "editor-bridge", "1.0.0", nil)
//	err := tools.AddTool(agentbridge.ToolSpec{
//	    Action:      "search",
//	    Description: "Search the open workspace",
//	    Schema:      agentbridge.SimpleSchema(map[string]string{"query": "string"}),
//	})
//
//	// Serve on stdio for an MCP host.
//	err = tools.Serve(ctx, &mcp.StdioTransport{})
type ToolServer = internalmcp.ToolServer

// ToolSpec describes one bridge action exposed as a tool.
type ToolSpec = internalmcp.ToolSpec

// NewToolServer creates a tool server that forwards calls through c.
// A nil logger disables logging.
func NewToolServer(c Client, name, version string, log *slog.Logger) *ToolServer {
	if log == nil {
		log = NopLogger()
	}

	send := func(
		ctx context.Context,
		action string,
		args map[string]any,
		timeout time.Duration,
		onChunk func(string),
	) (map[string]any, error) {
		opts := []SendOption{WithChunkHandler(onChunk)}
		if timeout > 0 {
			opts = append(opts, WithTimeout(timeout))
		}

		return c.Send(ctx, action, args, opts...)
	}

	return internalmcp.NewToolServer(log, name, version, send)
}

// SimpleSchema creates an object schema from argument names to type names.
//
// Input format: {"path": "string", "line": "int?", "tags": "[]string"}.
// A trailing "?" marks an optional argument.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return internalmcp.SimpleSchema(props)
}
