//go:build integration

package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	agentbridge "github.com/wagiedev/agent-bridge-go"
)

// TestDisconnect_RejectsInFlight sends a slow request and disconnects while
// it is pending.
func TestDisconnect_RejectsInFlight(t *testing.T) {
	client := connect(t)

	var (
		wg     sync.WaitGroup
		sendErr error
	)

	wg.Go(func() {
		_, sendErr = client.Send(context.Background(), "analyze",
			map[string]any{"path": "."},
			agentbridge.WithTimeout(time.Minute),
		)
	})

	require.Eventually(t, func() bool { return client.PendingCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	disconnected := make(chan error, 1)
	client.OnDisconnected(func(err error) { disconnected <- err })

	require.NoError(t, client.Disconnect())
	require.Zero(t, client.PendingCount())

	wg.Wait()
	require.ErrorIs(t, sendErr, agentbridge.ErrConnectionClosed)

	select {
	case <-disconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("no disconnected event")
	}

	require.Equal(t, agentbridge.StateDisconnected, client.State())
}

// TestReconnect_AfterManualDisconnect checks that the client can be
// connected again after Disconnect.
func TestReconnect_AfterManualDisconnect(t *testing.T) {
	client := connect(t)

	require.NoError(t, client.Disconnect())
	require.False(t, client.IsConnected())

	_, err := client.Send(context.Background(), "status", nil)
	require.True(t, errors.Is(err, agentbridge.ErrNotConnected))

	require.NoError(t, client.Connect(context.Background()))
	require.True(t, client.IsConnected())

	_, err = client.Send(context.Background(), "status", nil, agentbridge.WithTimeout(10*time.Second))
	require.NoError(t, err)
}
