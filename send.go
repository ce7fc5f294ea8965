package agentbridge

import (
	"context"
	"encoding/json"
	"fmt"
)

// SendAs issues a request and decodes the response payload into T.
//
//	type Status struct {
//	    Workspace string `json:"workspace"`
//	    Open      int    `json:"open_files"`
//	}
//
//	status, err := agentbridge.SendAs[Status](ctx, client, "status", nil)
func SendAs[T any](ctx context.Context, c Client, action string, data any, opts ...SendOption) (T, error) {
	var out T

	result, err := c.Send(ctx, action, data, opts...)
	if err != nil {
		return out, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return out, fmt.Errorf("encode %s response: %w", action, err)
	}

	if err := json.Unmarshal(encoded, &out); err != nil {
		return out, fmt.Errorf("decode %s response: %w", action, err)
	}

	return out, nil
}
