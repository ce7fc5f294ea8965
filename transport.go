package agentbridge

import "github.com/wagiedev/agent-bridge-go/internal/config"

// Conn is one open duplex connection to a bridge.
// Implement Conn and Dialer to provide custom transports for testing,
// mocking, or carriers other than WebSocket. Inject them with WithDialer.
type Conn = config.Conn

// Dialer opens a new Conn for the initial connect and every reconnect.
type Dialer = config.Dialer

// DialerFunc adapts a function to Dialer.
type DialerFunc = config.DialerFunc

// Pinger is implemented by connections that support keep-alive pings.
// It is used when WithPingInterval is set.
type Pinger = config.Pinger
