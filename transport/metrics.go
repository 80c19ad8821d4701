package transport

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons used as metric labels.
const (
	dropOversize  = "oversize"
	dropDecode    = "decode"
	dropUnhandled = "unhandled"
)

var (
	datagramsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "peerindex_transport_datagrams_received_total",
			Help: "Number of datagrams read from UDP sockets.",
		},
	)
	datagramsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "peerindex_transport_datagrams_sent_total",
			Help: "Number of datagrams written to UDP sockets.",
		},
	)
	datagramsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerindex_transport_datagrams_dropped_total",
			Help: "Number of inbound datagrams dropped before reaching a handler.",
		},
		[]string{"reason"},
	)

	transportCollectors = []prometheus.Collector{
		datagramsReceived,
		datagramsSent,
		datagramsDropped,
	}

	metricsOnce sync.Once
)

// initMetrics registers the metrics collectors.
func initMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(transportCollectors...)
	})
}
