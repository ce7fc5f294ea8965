package agentbridge

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/agent-bridge-go/internal/client"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithURL sets the bridge address, e.g. "ws://localhost:7331/bridge".
func WithURL(url string) Option {
	return func(o *Options) {
		o.URL = url
	}
}

// WithToken sets the bearer token sent on the handshake.
func WithToken(token string) Option {
	return func(o *Options) {
		o.Token = token
	}
}

// WithHeader adds a handshake header. It may be repeated.
func WithHeader(key, value string) Option {
	return func(o *Options) {
		if o.Header == nil {
			o.Header = make(http.Header, 1)
		}

		o.Header.Add(key, value)
	}
}

// WithCommand runs the bridge as a child process speaking newline-delimited
// JSON frames on stdin and stdout. Every reconnect starts a new process.
// Binary codecs are rejected by New.
func WithCommand(name string, args ...string) Option {
	return func(o *Options) {
		o.Command = append([]string{name}, args...)
	}
}

// WithProcessEnv appends KEY=VALUE entries to the bridge process environment.
func WithProcessEnv(env ...string) Option {
	return func(o *Options) {
		o.Env = append(o.Env, env...)
	}
}

// WithProcessDir sets the bridge process working directory.
func WithProcessDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

// WithStderr streams the bridge process's stderr, one line per call.
func WithStderr(fn func(line string)) Option {
	return func(o *Options) {
		o.Stderr = fn
	}
}

// WithHandshakeTimeout bounds the transport handshake. Default 10 seconds.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.HandshakeTimeout = timeout
	}
}

// WithRequestTimeout sets the default per-request deadline. Default 30 seconds.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = timeout
	}
}

// WithCodec selects the wire encoding. Default JSON.
func WithCodec(codec Codec) Option {
	return func(o *Options) {
		o.Codec = codec
	}
}

// ===== Reconnection =====

// WithReconnectPolicy replaces the whole reconnect policy.
func WithReconnectPolicy(policy ReconnectPolicy) Option {
	return func(o *Options) {
		o.Reconnect = policy
	}
}

// WithMaxReconnectAttempts limits automatic reconnect attempts.
// A negative value disables automatic reconnection.
func WithMaxReconnectAttempts(n int) Option {
	return func(o *Options) {
		o.Reconnect.MaxAttempts = n
	}
}

// WithReconnectBackoff sets the first reconnect delay and the factor
// applied to each following delay.
func WithReconnectBackoff(base time.Duration, multiplier float64) Option {
	return func(o *Options) {
		o.Reconnect.BaseDelay = base
		o.Reconnect.BackoffMultiplier = multiplier
	}
}

// WithMaxReconnectDelay caps the wait between reconnect attempts.
func WithMaxReconnectDelay(limit time.Duration) Option {
	return func(o *Options) {
		o.Reconnect.MaxDelay = limit
	}
}

// WithPingInterval enables keep-alive pings on idle connections.
func WithPingInterval(interval time.Duration) Option {
	return func(o *Options) {
		o.Reconnect.PingInterval = interval
	}
}

// ===== Advanced Configuration =====

// WithClock injects the clock used for deadlines, backoff and keep-alive.
// Tests pass clock.NewMock() to advance time deterministically.
func WithClock(clk clock.Clock) Option {
	return func(o *Options) {
		o.Clock = clk
	}
}

// WithMetrics sends measurements to recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(o *Options) {
		o.Metrics = recorder
	}
}

// WithPrometheus registers the client's Prometheus collectors with reg.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.MetricsRegisterer = reg
	}
}

// WithDialer injects a custom transport. When set, WithURL is only used in
// log and error messages.
func WithDialer(dialer Dialer) Option {
	return func(o *Options) {
		o.Dialer = dialer
	}
}

// ===== Request Options =====

// SendOption configures a single request.
type SendOption = client.SendOption

// WithTimeout overrides the default request timeout for one request.
func WithTimeout(timeout time.Duration) SendOption {
	return client.WithTimeout(timeout)
}

// WithChunkHandler receives a request's streaming chunks in arrival order.
// Chunks are delivered on the connection's read goroutine; the handler
// must not block and must not call Disconnect or Close.
func WithChunkHandler(fn func(chunk string)) SendOption {
	return client.WithChunkHandler(fn)
}
