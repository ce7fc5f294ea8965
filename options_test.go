package agentbridge

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/agent-bridge-go/internal/bridgetest"
)

func TestApplyOptions(t *testing.T) {
	clk := clock.NewMock()
	dialer := bridgetest.NewDialer()
	reg := prometheus.NewRegistry()
	codec, err := NewCBORCodec()
	require.NoError(t, err)

	o := applyOptions([]Option{
		WithLogger(NopLogger()),
		WithURL("ws://localhost:7331/bridge"),
		WithToken("secret"),
		WithHeader("X-Team", "tools"),
		WithHeader("X-Team", "infra"),
		WithHandshakeTimeout(3 * time.Second),
		WithRequestTimeout(5 * time.Second),
		WithCodec(codec),
		WithMaxReconnectAttempts(7),
		WithReconnectBackoff(250*time.Millisecond, 1.5),
		WithMaxReconnectDelay(time.Minute),
		WithPingInterval(20 * time.Second),
		WithClock(clk),
		WithPrometheus(reg),
		WithDialer(dialer),
	})

	require.NotNil(t, o.Logger)
	require.Equal(t, "ws://localhost:7331/bridge", o.URL)
	require.Equal(t, "secret", o.Token)
	require.Equal(t, []string{"tools", "infra"}, o.Header.Values("X-Team"))
	require.Equal(t, 3*time.Second, o.HandshakeTimeout)
	require.Equal(t, 5*time.Second, o.RequestTimeout)
	require.Equal(t, "cbor", o.Codec.Name())
	require.Equal(t, ReconnectPolicy{
		MaxAttempts:       7,
		BaseDelay:         250 * time.Millisecond,
		BackoffMultiplier: 1.5,
		MaxDelay:          time.Minute,
		PingInterval:      20 * time.Second,
	}, o.Reconnect)
	require.Same(t, clk, o.Clock)
	require.Same(t, reg, o.MetricsRegisterer)
	require.Same(t, dialer, o.Dialer)
}

func TestProcessOptions(t *testing.T) {
	var lines []string

	o := applyOptions([]Option{
		WithCommand("bridge-server", "--stdio", "-v"),
		WithProcessEnv("A=1"),
		WithProcessEnv("B=2"),
		WithProcessDir("/srv/bridge"),
		WithStderr(func(line string) { lines = append(lines, line) }),
	})

	require.Equal(t, []string{"bridge-server", "--stdio", "-v"}, o.Command)
	require.Equal(t, []string{"A=1", "B=2"}, o.Env)
	require.Equal(t, "/srv/bridge", o.Dir)

	o.Stderr("boot")
	require.Equal(t, []string{"boot"}, lines)
}

func TestWithReconnectPolicyReplacesPolicy(t *testing.T) {
	o := applyOptions([]Option{
		WithPingInterval(time.Second),
		WithReconnectPolicy(ReconnectPolicy{MaxAttempts: -1}),
	})

	require.Equal(t, ReconnectPolicy{MaxAttempts: -1}, o.Reconnect)
}

func TestLookupCodec(t *testing.T) {
	codec, err := LookupCodec("json")
	require.NoError(t, err)
	require.Equal(t, JSONCodec{}, codec)

	_, err = LookupCodec("yaml")
	require.Error(t, err)
}
