// Package connection manages the lifecycle of the bridge connection.
//
// A Manager owns at most one live transport connection. It moves through
// the states Disconnected, Connecting, Connected, Reconnecting and Failed,
// reconnecting with exponential backoff after unexpected drops and giving
// up once its ReconnectPolicy is exhausted. Inbound messages are handed to
// a single callback from one read goroutine per connection, so frames are
// processed in arrival order.
package connection
