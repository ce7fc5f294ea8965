package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/agent-bridge-go/internal/errors"
)

// SendFunc forwards one tool call to the bridge.
//
// onChunk receives the request's streaming chunks. A zero timeout uses the
// client default.
type SendFunc func(
	ctx context.Context,
	action string,
	args map[string]any,
	timeout time.Duration,
	onChunk func(chunk string),
) (map[string]any, error)

// ToolSpec describes one bridge action exposed as a tool.
type ToolSpec struct {
	// Name is the tool name. Defaults to Action.
	Name string

	// Action is the bridge action invoked by the tool.
	Action string

	Description string

	// Schema describes the tool arguments. Defaults to an empty object schema.
	Schema *jsonschema.Schema

	// Timeout overrides the client's request timeout for this tool.
	Timeout time.Duration
}

// ServerInstance is implemented by tool servers that can be driven
// without an MCP transport.
type ServerInstance interface {
	Name() string
	Version() string
	ListTools() []map[string]any
	CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error)
}

// Compile-time verification that ToolServer implements ServerInstance.
var _ ServerInstance = (*ToolServer)(nil)

// ToolServer maps MCP tools onto bridge requests.
type ToolServer struct {
	log     *slog.Logger
	name    string
	version string
	send    SendFunc

	mu    sync.RWMutex
	tools map[string]*bridgeTool
}

type bridgeTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewToolServer creates an empty tool server that forwards calls through send.
func NewToolServer(log *slog.Logger, name, version string, send SendFunc) *ToolServer {
	return &ToolServer{
		log:     log.With("component", "mcp"),
		name:    name,
		version: version,
		send:    send,
		tools:   make(map[string]*bridgeTool, 8),
	}
}

// Name returns the server name.
func (s *ToolServer) Name() string {
	return s.name
}

// Version returns the server version.
func (s *ToolServer) Version() string {
	return s.version
}

// AddTool registers spec. Registering a name twice is an error.
func (s *ToolServer) AddTool(spec ToolSpec) error {
	if spec.Action == "" {
		return fmt.Errorf("tool action is required")
	}

	if spec.Name == "" {
		spec.Name = spec.Action
	}

	if spec.Schema == nil {
		spec.Schema = SimpleSchema(nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tools[spec.Name]; exists {
		return fmt.Errorf("tool %q already registered", spec.Name)
	}

	s.tools[spec.Name] = &bridgeTool{
		tool: &mcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.Schema,
		},
		handler: s.forward(spec),
	}

	s.log.Debug("Registered tool", "tool", spec.Name, "action", spec.Action)

	return nil
}

// ListTools returns tool metadata ordered by name.
func (s *ToolServer) ListTools() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]map[string]any, 0, len(s.tools))
	for _, t := range s.tools {
		entry := map[string]any{
			"name":        t.tool.Name,
			"description": t.tool.Description,
		}

		if schema, err := toMap(t.tool.InputSchema); err == nil {
			entry["inputSchema"] = schema
		}

		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b map[string]any) int {
		return strings.Compare(a["name"].(string), b["name"].(string))
	})

	return result
}

// CallTool runs a tool without an MCP transport.
// Tool failures are reported in the result with "is_error" set.
func (s *ToolServer) CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return resultMap(ErrorResult("Tool not found: " + name)), nil
	}

	args, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal tool input: %w", err)
	}

	result, err := t.handler(ctx, &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: args},
	})
	if err != nil {
		return resultMap(ErrorResult("Tool execution failed: " + err.Error())), nil
	}

	return resultMap(result), nil
}

// Server builds an MCP SDK server exposing every registered tool.
func (s *ToolServer) Server() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: s.name, Version: s.version}, nil)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tools {
		srv.AddTool(t.tool, t.handler)
	}

	return srv
}

// Serve runs the MCP server on transport until ctx is done or the peer
// disconnects.
func (s *ToolServer) Serve(ctx context.Context, transport mcp.Transport) error {
	s.log.Info("Serving bridge tools", "tools", len(s.ListTools()))

	if err := s.Server().Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// forward builds the handler that turns a tool call into a bridge request.
func (s *ToolServer) forward(spec ToolSpec) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		var streamed strings.Builder

		response, err := s.send(ctx, spec.Action, args, spec.Timeout, func(chunk string) {
			streamed.WriteString(chunk)
		})
		if err != nil {
			s.log.Debug("Tool call failed", "tool", spec.Name, "action", spec.Action, "error", err)

			if remote, ok := stderrors.AsType[*errors.RemoteError](err); ok {
				return ErrorResult(remote.Message), nil
			}

			return ErrorResult(fmt.Sprintf("bridge request %s failed: %v", spec.Action, err)), nil
		}

		return bridgeResult(streamed.String(), response)
	}
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return m, nil
}
