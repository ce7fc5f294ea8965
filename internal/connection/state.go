package connection

// State is the connection lifecycle state.
type State int

const (
	// StateDisconnected is the initial state, and the state after a drop
	// or a user-initiated Disconnect.
	StateDisconnected State = iota
	// StateConnecting means a dial is in progress.
	StateConnecting
	// StateConnected means frames can be sent.
	StateConnected
	// StateReconnecting means an automatic reconnect attempt is scheduled.
	StateReconnecting
	// StateFailed means automatic reconnection gave up. Only a manual
	// Connect leaves this state.
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
