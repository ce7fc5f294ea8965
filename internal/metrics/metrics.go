// Package metrics records bridge client activity.
//
// Components report through the Recorder interface. Nop discards everything;
// Prometheus exports counters, gauges and a latency histogram.
package metrics

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/agent-bridge-go/internal/errors"
)

// Outcome labels how a request finished.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeRemoteError      Outcome = "remote_error"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeConnectionClosed Outcome = "connection_closed"
	OutcomeNotConnected     Outcome = "not_connected"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeError            Outcome = "error"
)

// OutcomeFor maps a request's terminal error to its outcome label.
func OutcomeFor(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}

	if _, ok := stderrors.AsType[*errors.RemoteError](err); ok {
		return OutcomeRemoteError
	}

	switch {
	case stderrors.Is(err, errors.ErrRequestTimeout):
		return OutcomeTimeout
	case stderrors.Is(err, errors.ErrConnectionClosed):
		return OutcomeConnectionClosed
	case stderrors.Is(err, errors.ErrNotConnected):
		return OutcomeNotConnected
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}

// Recorder receives bridge client measurements.
// Implementations must be safe for concurrent use.
type Recorder interface {
	RequestStarted(action string)
	RequestCompleted(action string, outcome Outcome, elapsed time.Duration)
	// RequestRefused counts a request rejected before it was registered.
	RequestRefused(action string, outcome Outcome)
	ChunkDelivered()
	FrameDropped(reason string)
	ReconnectAttempt()
	StateChanged(state string)
}

// Compile-time verification that Nop and Prometheus implement Recorder.
var (
	_ Recorder = Nop{}
	_ Recorder = (*Prometheus)(nil)
)

// Nop discards all measurements.
type Nop struct{}

func (Nop) RequestStarted(string)                           {}
func (Nop) RequestCompleted(string, Outcome, time.Duration) {}
func (Nop) RequestRefused(string, Outcome)                  {}
func (Nop) ChunkDelivered()                                 {}
func (Nop) FrameDropped(string)                             {}
func (Nop) ReconnectAttempt()                               {}
func (Nop) StateChanged(string)                             {}

// Prometheus exports measurements as Prometheus collectors.
type Prometheus struct {
	pending         prometheus.Gauge
	completed       *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	chunks          prometheus.Counter
	dropped         *prometheus.CounterVec
	reconnects      prometheus.Counter
	connectionState *prometheus.GaugeVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agent_bridge",
			Subsystem: "client",
			Name:      "pending_requests",
			Help:      "Number of requests awaiting a terminal response",
		}),
		completed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agent_bridge",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total number of completed requests by outcome",
			},
			[]string{"action", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agent_bridge",
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "Time from send to terminal outcome in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"action"},
		),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agent_bridge",
			Subsystem: "client",
			Name:      "stream_chunks_total",
			Help:      "Total number of streaming chunks delivered to handlers",
		}),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agent_bridge",
				Subsystem: "client",
				Name:      "dropped_frames_total",
				Help:      "Total number of inbound frames dropped by reason",
			},
			[]string{"reason"},
		),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agent_bridge",
			Subsystem: "connection",
			Name:      "reconnect_attempts_total",
			Help:      "Total number of automatic reconnect attempts",
		}),
		connectionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "agent_bridge",
				Subsystem: "connection",
				Name:      "state",
				Help:      "Current connection state (1 for the active state)",
			},
			[]string{"state"},
		),
	}

	collectors := []prometheus.Collector{
		p.pending, p.completed, p.duration, p.chunks, p.dropped, p.reconnects, p.connectionState,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// RequestStarted implements Recorder.
func (p *Prometheus) RequestStarted(string) {
	p.pending.Inc()
}

// RequestCompleted implements Recorder.
func (p *Prometheus) RequestCompleted(action string, outcome Outcome, elapsed time.Duration) {
	p.pending.Dec()
	p.completed.WithLabelValues(action, string(outcome)).Inc()
	p.duration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// RequestRefused implements Recorder.
func (p *Prometheus) RequestRefused(action string, outcome Outcome) {
	p.completed.WithLabelValues(action, string(outcome)).Inc()
}

// ChunkDelivered implements Recorder.
func (p *Prometheus) ChunkDelivered() {
	p.chunks.Inc()
}

// FrameDropped implements Recorder.
func (p *Prometheus) FrameDropped(reason string) {
	p.dropped.WithLabelValues(reason).Inc()
}

// ReconnectAttempt implements Recorder.
func (p *Prometheus) ReconnectAttempt() {
	p.reconnects.Inc()
}

// StateChanged implements Recorder.
func (p *Prometheus) StateChanged(state string) {
	p.connectionState.Reset()
	p.connectionState.WithLabelValues(state).Set(1)
}
