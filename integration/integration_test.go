//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	agentbridge "github.com/wagiedev/agent-bridge-go"
)

// bridgeURLEnv points the suite at a running bridge.
const bridgeURLEnv = "AGENT_BRIDGE_URL"

// connect returns a connected client, or skips when no bridge is configured.
func connect(t *testing.T, opts ...agentbridge.Option) agentbridge.Client {
	t.Helper()

	url := os.Getenv(bridgeURLEnv)
	if url == "" {
		t.Skip(bridgeURLEnv + " not set")
	}

	opts = append([]agentbridge.Option{
		agentbridge.WithURL(url),
		agentbridge.WithToken(os.Getenv("AGENT_BRIDGE_TOKEN")),
	}, opts...)

	client, err := agentbridge.New(opts...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Connect(context.Background()))

	return client
}
