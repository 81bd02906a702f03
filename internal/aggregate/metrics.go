package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"

	"outmux/internal/message"
)

// Metrics holds the aggregation server counters. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Connections       prometheus.Counter
	ActiveConnections prometheus.Gauge
	Records           *prometheus.CounterVec
	Bytes             *prometheus.CounterVec
	FramingErrors     prometheus.Counter
	ConnErrors        prometheus.Counter
}

// NewMetrics creates the server metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outmux",
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Total number of accepted producer connections",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outmux",
			Subsystem: "server",
			Name:      "active_connections",
			Help:      "Producer connections currently open",
		}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outmux",
			Subsystem: "records",
			Name:      "written_total",
			Help:      "Records written by the serial writer",
		}, []string{"destination"}),
		Bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outmux",
			Subsystem: "records",
			Name:      "bytes_total",
			Help:      "Payload bytes written by the serial writer",
		}, []string{"destination"}),
		FramingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outmux",
			Subsystem: "server",
			Name:      "framing_errors_total",
			Help:      "Connections closed because of a malformed record",
		}),
		ConnErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outmux",
			Subsystem: "server",
			Name:      "connection_errors_total",
			Help:      "Connections closed because of a read error",
		}),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Connections, m.ActiveConnections, m.Records, m.Bytes, m.FramingErrors, m.ConnErrors,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) connOpened() {
	if m == nil {
		return
	}
	m.Connections.Inc()
	m.ActiveConnections.Inc()
}

func (m *Metrics) connClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

func (m *Metrics) recordWritten(dest message.Destination, n int) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(dest.String()).Inc()
	m.Bytes.WithLabelValues(dest.String()).Add(float64(n))
}

func (m *Metrics) framingError() {
	if m == nil {
		return
	}
	m.FramingErrors.Inc()
}

func (m *Metrics) connError() {
	if m == nil {
		return
	}
	m.ConnErrors.Inc()
}
