package agentbridge

import (
	"github.com/wagiedev/agent-bridge-go/internal/config"
	"github.com/wagiedev/agent-bridge-go/internal/connection"
	"github.com/wagiedev/agent-bridge-go/internal/frame"
	"github.com/wagiedev/agent-bridge-go/internal/metrics"
	"github.com/wagiedev/agent-bridge-go/internal/protocol"
)

// Frame is one message exchanged with the bridge.
type Frame = frame.Frame

// Codec converts frames to and from their wire representation.
type Codec = frame.Codec

// JSONCodec encodes frames as JSON text messages. It is the default.
type JSONCodec = frame.JSON

// NewCBORCodec returns a codec that sends frames as binary CBOR messages.
func NewCBORCodec() (Codec, error) {
	return frame.Lookup("cbor")
}

// LookupCodec returns the codec named "json" or "cbor".
func LookupCodec(name string) (Codec, error) {
	return frame.Lookup(name)
}

// Options holds all client settings. Build it with Option functions.
type Options = config.Options

// ReconnectPolicy controls automatic reconnection.
type ReconnectPolicy = config.ReconnectPolicy

// MetricsRecorder receives client measurements.
type MetricsRecorder = metrics.Recorder

// PendingRequest describes a request awaiting its terminal frame.
type PendingRequest = protocol.PendingInfo

// Completion receives the outcome of a SendAsync request.
type Completion = protocol.Completion

// State is the connection lifecycle state.
type State = connection.State

// Connection states.
const (
	StateDisconnected = connection.StateDisconnected
	StateConnecting   = connection.StateConnecting
	StateConnected    = connection.StateConnected
	StateReconnecting = connection.StateReconnecting
	StateFailed       = connection.StateFailed
)
