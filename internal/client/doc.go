// Package client implements the bridge client façade.
//
// A Client composes the correlation engine, the frame router and the
// connection manager: requests are registered before they are written,
// inbound frames are routed by the connection's read loop, and every
// pending request is failed when the connection goes away.
package client
