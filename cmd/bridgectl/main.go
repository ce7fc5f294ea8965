// Command bridgectl talks to an agent bridge from the command line.
//
//	bridgectl send analyze '{"path":"main.go"}'
//	bridgectl listen
//	bridgectl mcp --config bridge.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
