package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/agent-bridge-go/internal/errors"
)

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		err      error
		expected Outcome
	}{
		{err: nil, expected: OutcomeOK},
		{err: &errors.RemoteError{Message: "x"}, expected: OutcomeRemoteError},
		{err: &errors.RequestTimeoutError{Action: "a"}, expected: OutcomeTimeout},
		{err: fmt.Errorf("send: %w", errors.ErrConnectionClosed), expected: OutcomeConnectionClosed},
		{err: errors.ErrNotConnected, expected: OutcomeNotConnected},
		{err: context.Canceled, expected: OutcomeCancelled},
		{err: fmt.Errorf("other"), expected: OutcomeError},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, OutcomeFor(tt.err), "%v", tt.err)
	}
}

func TestPrometheus_RequestLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()

	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	p.RequestStarted("analyze")
	p.RequestStarted("analyze")
	require.InDelta(t, 2.0, testutil.ToFloat64(p.pending), 0)

	p.RequestCompleted("analyze", OutcomeOK, 20*time.Millisecond)
	p.RequestCompleted("analyze", OutcomeTimeout, time.Second)
	require.InDelta(t, 0.0, testutil.ToFloat64(p.pending), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.completed.WithLabelValues("analyze", "ok")), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.completed.WithLabelValues("analyze", "timeout")), 0)

	p.RequestRefused("analyze", OutcomeNotConnected)
	require.InDelta(t, 0.0, testutil.ToFloat64(p.pending), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.completed.WithLabelValues("analyze", "not_connected")), 0)
}

func TestPrometheus_ConnectionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	p.ReconnectAttempt()
	p.ReconnectAttempt()
	p.ChunkDelivered()
	p.FrameDropped("malformed")

	require.InDelta(t, 2.0, testutil.ToFloat64(p.reconnects), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.chunks), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.dropped.WithLabelValues("malformed")), 0)

	p.StateChanged("connecting")
	p.StateChanged("connected")
	require.InDelta(t, 1.0, testutil.ToFloat64(p.connectionState.WithLabelValues("connected")), 0)
	require.Equal(t, 1, testutil.CollectAndCount(p.connectionState))
}

func TestNewPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewPrometheus(reg)
	require.NoError(t, err)

	_, err = NewPrometheus(reg)
	require.Error(t, err)
}
