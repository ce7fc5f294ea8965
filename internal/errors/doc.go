// Package errors defines error types for the bridge client.
//
// This package provides sentinel errors for connection-level conditions and
// structured error types for per-request failures. All error types support
// error unwrapping and can be checked using errors.Is and errors.As.
package errors
