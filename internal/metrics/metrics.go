// Package metrics exposes Prometheus counters over the scheduler's
// transmit/receive/timeout events. It is purely observational: it adds no
// deadline monitoring, filtering, or decision-making of its own, only
// counting events the scheduler already fires.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters the scheduler updates, each labeled by I-PDU
// name so a single registry covers every configured PDU.
type Metrics struct {
	TxAttempts    *prometheus.CounterVec
	TxSuccess     *prometheus.CounterVec
	TxRetries     *prometheus.CounterVec
	RxIndications *prometheus.CounterVec
	RxTimeouts    *prometheus.CounterVec
}

// New creates and registers the COM metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TxAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "com",
			Subsystem: "tx",
			Name:      "attempts_total",
			Help:      "Transmit attempts per I-PDU, including retries.",
		}, []string{"pdu"}),
		TxSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "com",
			Subsystem: "tx",
			Name:      "success_total",
			Help:      "Successful PduR.transmit calls per I-PDU.",
		}, []string{"pdu"}),
		TxRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "com",
			Subsystem: "tx",
			Name:      "retries_total",
			Help:      "Transmit retries scheduled after a failed PduR.transmit.",
		}, []string{"pdu"}),
		RxIndications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "com",
			Subsystem: "rx",
			Name:      "indications_total",
			Help:      "Accepted RxIndication calls per I-PDU.",
		}, []string{"pdu"}),
		RxTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "com",
			Subsystem: "rx",
			Name:      "timeouts_total",
			Help:      "RX timeout firings per I-PDU.",
		}, []string{"pdu"}),
	}

	reg.MustRegister(m.TxAttempts, m.TxSuccess, m.TxRetries, m.RxIndications, m.RxTimeouts)
	return m
}

// Noop returns a Metrics instance backed by its own private registry, for
// callers (tests, or a daemon run with metrics disabled) that don't want to
// wire a real Prometheus registry.
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}
