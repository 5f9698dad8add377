package reactor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation a Reactor updates as it
// runs. Construct one with NewMetrics and share it across at most one
// Reactor; registering the same Metrics with two reactors double-counts.
type Metrics struct {
	ClientsActive   prometheus.Gauge
	AcceptsTotal    prometheus.Counter
	ClosesTotal     *prometheus.CounterVec
	FramesReadTotal prometheus.Counter
	FramesWritten   prometheus.Counter
	HandlerDuration prometheus.Histogram
}

// NewMetrics registers and returns the reactor's Prometheus collectors
// against reg. A nil reg registers against prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ClientsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streamrpc_reactor_clients_active",
			Help: "Number of client connections currently held open by the reactor.",
		}),
		AcceptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamrpc_reactor_accepts_total",
			Help: "Total number of client connections accepted.",
		}),
		ClosesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamrpc_reactor_closes_total",
				Help: "Total number of client connections closed, by reason.",
			},
			[]string{"reason"},
		),
		FramesReadTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamrpc_reactor_frames_read_total",
			Help: "Total number of JSON-RPC frames read from clients.",
		}),
		FramesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamrpc_reactor_frames_written_total",
			Help: "Total number of JSON-RPC frames written to clients.",
		}),
		HandlerDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamrpc_reactor_handler_duration_seconds",
			Help:    "Time spent inside the Handler callback per readiness event.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// closeReason labels used with ClosesTotal.
const (
	closeReasonPeer     = "peer_closed"
	closeReasonTimeout  = "idle_timeout"
	closeReasonError    = "io_error"
	closeReasonHandler  = "handler_error"
	closeReasonShutdown = "reactor_shutdown"
)

func (m *Metrics) clientAccepted() {
	if m == nil {
		return
	}
	m.ClientsActive.Inc()
	m.AcceptsTotal.Inc()
}

func (m *Metrics) clientClosed(reason string) {
	if m == nil {
		return
	}
	m.ClientsActive.Dec()
	m.ClosesTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) framesRead(n int) {
	if m == nil {
		return
	}
	m.FramesReadTotal.Add(float64(n))
}

func (m *Metrics) framesWritten(n int) {
	if m == nil {
		return
	}
	m.FramesWritten.Add(float64(n))
}

func (m *Metrics) handlerDuration(seconds float64) {
	if m == nil {
		return
	}
	m.HandlerDuration.Observe(seconds)
}
