// Package agentbridge is a client for correlated request/response bridges.
//
// A bridge is a peer reachable over one persistent duplex connection
// (WebSocket by default). The client sends request frames tagged with a
// fresh correlation ID and matches the bridge's response and streaming
// chunk frames back to the request that caused them. Frames the bridge
// pushes on its own are delivered to event subscribers.
//
// # Basic Usage
//
//	client, err := agentbridge.New(
//	    agentbridge.WithURL("ws://localhost:7331/bridge"),
//	    agentbridge.WithToken(os.Getenv("AGENT_BRIDGE_TOKEN")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Send(ctx, "analyze", map[string]any{"path": "main.go"},
//	    agentbridge.WithTimeout(10*time.Second),
//	    agentbridge.WithChunkHandler(func(chunk string) { fmt.Print(chunk) }),
//	)
//
// # Process Bridges
//
// A bridge that speaks newline-delimited JSON frames on stdio can run as a
// child process instead of a server:
//
//	client, err := agentbridge.New(
//	    agentbridge.WithCommand("editor-bridge", "--stdio"),
//	    agentbridge.WithStderr(func(line string) { log.Print(line) }),
//	)
//
// Each connect starts a new process. A process that exits with an error
// ends the connection with a *ProcessError and is restarted by the
// reconnect schedule.
//
// # Reconnection
//
// When the connection drops unexpectedly, every pending request fails with
// ErrConnectionClosed and the client reconnects with exponential backoff
// (five attempts, starting at one second and doubling by default). Once
// the attempts are exhausted the state becomes StateFailed and
// OnMaxReconnectAttempts subscribers are notified; a manual Connect starts
// over. Disconnect never triggers a reconnect.
//
// # Error Handling
//
//	result, err := client.Send(ctx, "open", args)
//	if err != nil {
//	    if remote, ok := errors.AsType[*agentbridge.RemoteError](err); ok {
//	        log.Printf("bridge refused: %s", remote.Message)
//	    }
//	    if errors.Is(err, agentbridge.ErrRequestTimeout) {
//	        log.Print("bridge did not answer in time")
//	    }
//	}
//
// # Logging
//
// Pass a *slog.Logger with WithLogger. Without one the client is silent.
package agentbridge
