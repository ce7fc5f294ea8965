// Package subprocess runs a bridge as a child process.
//
// Each Dial spawns the configured command and exchanges newline-delimited
// JSON frames over its stdin and stdout. Stderr is buffered for error
// reporting and optionally streamed to a callback. A process that exits
// with a non-zero status ends the connection with *errors.ProcessError,
// which the connection manager treats like any other drop.
package subprocess
