package frame

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Wire type values.
const (
	// TypeRequest marks an outbound request frame.
	TypeRequest = "request"

	// TypeResponse marks a terminal response frame.
	TypeResponse = "response"

	// TypeStreamingChunk marks an incremental response frame.
	TypeStreamingChunk = "streaming_chunk"

	// ResponseSuffix marks action-specific response types such as "analyze_response".
	ResponseSuffix = "_response"

	// ValueKey holds a response payload that is not an object, so results
	// are always maps: "data":[1,2] resolves as {"value":[1,2]}.
	ValueKey = "value"
)

// Kind is the routing class of a frame.
type Kind int

const (
	// KindRequest is an outbound request.
	KindRequest Kind = iota
	// KindResponse is a terminal response correlated to a request.
	KindResponse
	// KindStreamChunk is a partial result correlated to a request.
	KindStreamChunk
	// KindEvent is an unsolicited notification.
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindStreamChunk:
		return "stream_chunk"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Frame is one discrete message on the connection.
//
// Frames are treated as values: nothing in this module mutates a frame
// after it has been built or decoded.
type Frame struct {
	// ID correlates requests with responses and chunks. Empty for events.
	ID string `json:"id,omitempty" cbor:"id,omitempty"`

	// Type is the wire type: "request", "response", "<action>_response",
	// "streaming_chunk", or any event name.
	Type string `json:"type" cbor:"type"`

	// Action names the operation for request frames.
	Action string `json:"action,omitempty" cbor:"action,omitempty"`

	// Data is the opaque payload.
	Data any `json:"data" cbor:"data"`

	// Timestamp is the send time in Unix milliseconds.
	Timestamp int64 `json:"timestamp,omitempty" cbor:"timestamp,omitempty"`
}

// NewRequest builds an outbound request frame.
func NewRequest(id, action string, data any, now time.Time) Frame {
	return Frame{
		ID:        id,
		Type:      TypeRequest,
		Action:    action,
		Data:      data,
		Timestamp: now.UnixMilli(),
	}
}

// Kind classifies the frame by its type field.
func (f *Frame) Kind() Kind {
	switch {
	case f.Type == TypeRequest:
		return KindRequest
	case f.Type == TypeResponse || strings.HasSuffix(f.Type, ResponseSuffix):
		return KindResponse
	case f.Type == TypeStreamingChunk:
		return KindStreamChunk
	default:
		return KindEvent
	}
}

// DataMap returns the payload as an object, or nil if it is not one.
func (f *Frame) DataMap() map[string]any {
	if m, ok := f.Data.(map[string]any); ok {
		return m
	}

	return nil
}

// Result returns the payload of a successful response. Objects are
// returned as is; any other non-null payload is wrapped under ValueKey.
// A null or missing payload yields nil.
func (f *Frame) Result() map[string]any {
	switch data := f.Data.(type) {
	case nil:
		return nil
	case map[string]any:
		return data
	default:
		return map[string]any{ValueKey: data}
	}
}

// RemoteError extracts the error indicator from a response payload.
//
// Both {"error": {"message": "...", "details": ...}} and {"error": "..."}
// are accepted. ok is false when the payload carries no error.
func (f *Frame) RemoteError() (message string, details any, ok bool) {
	data := f.DataMap()
	if data == nil {
		return "", nil, false
	}

	raw, exists := data["error"]
	if !exists || raw == nil {
		return "", nil, false
	}

	switch v := raw.(type) {
	case string:
		return v, nil, true
	case map[string]any:
		message, _ = v["message"].(string)
		if message == "" {
			message = "unknown error"
		}

		return message, v["details"], true
	default:
		return fmt.Sprint(v), nil, true
	}
}

// Chunk extracts the chunk text from a streaming_chunk payload.
// Non-string chunks are rendered as JSON.
func (f *Frame) Chunk() (string, bool) {
	data := f.DataMap()
	if data == nil {
		return "", false
	}

	raw, exists := data["chunk"]
	if !exists {
		return "", false
	}

	if s, ok := raw.(string); ok {
		return s, true
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprint(raw), true
	}

	return string(encoded), true
}
