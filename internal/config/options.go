package config

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/agent-bridge-go/internal/frame"
	"github.com/wagiedev/agent-bridge-go/internal/metrics"
)

// Reconnect defaults.
const (
	DefaultMaxAttempts       = 5
	DefaultBaseDelay         = 1 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultRequestTimeout    = 30 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
)

// ReconnectPolicy controls automatic reconnection after an unexpected drop.
// It is read-only once a client has been constructed.
type ReconnectPolicy struct {
	// MaxAttempts is the number of automatic attempts before giving up.
	// Zero uses DefaultMaxAttempts; a negative value disables automatic
	// reconnection.
	MaxAttempts int

	// BaseDelay is the wait before the first attempt. Zero uses DefaultBaseDelay.
	BaseDelay time.Duration

	// BackoffMultiplier scales the delay between consecutive attempts.
	// Values below 1 use DefaultBackoffMultiplier.
	BackoffMultiplier float64

	// MaxDelay caps the wait between attempts. Zero leaves the growth
	// uncapped apart from the range of time.Duration.
	MaxDelay time.Duration

	// PingInterval enables keep-alive pings when positive.
	PingInterval time.Duration
}

// WithDefaults returns a copy of p with unset fields filled in.
func (p ReconnectPolicy) WithDefaults() ReconnectPolicy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}

	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}

	if p.BackoffMultiplier < 1 {
		p.BackoffMultiplier = DefaultBackoffMultiplier
	}

	return p
}

// Delay returns the wait before attempt n (starting at 1):
// BaseDelay * BackoffMultiplier^(n-1), capped at MaxDelay. The result never
// overflows into a negative duration.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := maxDuration

	scaled := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	if scaled < float64(maxDuration) {
		delay = time.Duration(scaled)
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	return delay
}

const maxDuration = time.Duration(math.MaxInt64)

// Exhausted reports whether attempt n exceeds the policy.
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts < 0 || attempt > p.MaxAttempts
}

// Options configures the bridge client.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// URL is the bridge address, e.g. "ws://localhost:7331/bridge".
	URL string

	// Token is sent as a bearer credential when connecting.
	Token string

	// Header carries additional handshake headers.
	Header http.Header

	// Command, when set, runs the bridge as a child process speaking
	// newline-delimited JSON frames on stdin and stdout. The first element
	// is the executable. URL is ignored.
	Command []string

	// Env holds extra environment variables for Command, appended to the
	// parent environment.
	Env []string

	// Dir is the working directory for Command. Empty means the current one.
	Dir string

	// Stderr receives the child process's stderr line by line.
	Stderr func(string) `json:"-"`

	// HandshakeTimeout bounds the transport handshake.
	// If zero, defaults to 10 seconds.
	HandshakeTimeout time.Duration

	// RequestTimeout is the default per-request deadline.
	// If zero, defaults to 30 seconds.
	RequestTimeout time.Duration

	// Reconnect configures automatic reconnection.
	Reconnect ReconnectPolicy

	// Codec selects the wire encoding. If nil, JSON is used.
	Codec frame.Codec

	// Clock drives request deadlines, backoff and keep-alive.
	// If nil, the wall clock is used. Tests inject clock.NewMock().
	Clock clock.Clock

	// Metrics receives client measurements. Takes precedence over
	// MetricsRegisterer when both are set.
	Metrics metrics.Recorder

	// MetricsRegisterer, when set, registers Prometheus collectors.
	MetricsRegisterer prometheus.Registerer

	// Dialer allows injecting a custom transport.
	// If nil, a process dialer is created for Command, or a WebSocket
	// dialer for URL.
	Dialer Dialer `json:"-"`
}

// WithDefaults returns a copy of o with unset fields filled in.
// It does not construct a Dialer or Recorder.
func (o *Options) WithDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}

	if out.Logger == nil {
		out.Logger = slog.New(slog.DiscardHandler)
	}

	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = DefaultHandshakeTimeout
	}

	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultRequestTimeout
	}

	if out.Codec == nil {
		out.Codec = frame.JSON{}
	}

	if out.Clock == nil {
		out.Clock = clock.New()
	}

	out.Reconnect = out.Reconnect.WithDefaults()

	return &out
}
