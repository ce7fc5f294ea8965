package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// bridgeResult renders a bridge response as tool output: the streamed text
// (if any) followed by the JSON response, which is also attached as
// structured content.
func bridgeResult(streamed string, response map[string]any) (*mcp.CallToolResult, error) {
	result := &mcp.CallToolResult{}

	if streamed != "" {
		result.Content = append(result.Content, &mcp.TextContent{Text: streamed})
	}

	if response != nil {
		encoded, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("marshal bridge response: %w", err)
		}

		result.Content = append(result.Content, &mcp.TextContent{Text: string(encoded)})
		result.StructuredContent = response
	}

	if len(result.Content) == 0 {
		result.Content = []mcp.Content{&mcp.TextContent{Text: ""}}
	}

	return result, nil
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	if args == nil {
		args = make(map[string]any)
	}

	return args, nil
}

// resultMap converts a CallToolResult to the map form returned by CallTool.
func resultMap(result *mcp.CallToolResult) map[string]any {
	content := make([]map[string]any, 0, len(result.Content))

	for _, c := range result.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			content = append(content, map[string]any{
				"type": "text",
				"text": text.Text,
			})
		}
	}

	out := map[string]any{
		"content": content,
	}

	if result.StructuredContent != nil {
		out["structured_content"] = result.StructuredContent
	}

	if result.IsError {
		out["is_error"] = true
	}

	return out
}
