// Package protocol implements request/response correlation for bridge connections.
//
// The protocol package provides an Engine that tracks in-flight requests and
// a Router that classifies inbound frames and dispatches them to the Engine.
//
// The Engine handles:
//   - Allocating a unique correlation ID for every request
//   - Tracking each pending request until it resolves, fails or expires
//   - Delivering streaming chunks to per-request handlers
//   - Failing every pending request at once when the connection drops
//
// Every registered request completes exactly once.
//
// Example usage:
//
//	engine := protocol.NewEngine(log, clock.New(), metrics.Nop{}, 30*time.Second)
//	router := protocol.NewRouter(log, frame.JSON{}, engine, onEvent, metrics.Nop{})
//
//	id := engine.Register("analyze_project", func(result map[string]any, err error) {
//	    // handle outcome
//	}, nil, 5*time.Second)
//
//	// Inbound bytes from the transport
//	router.Route(data)
package protocol
