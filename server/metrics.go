package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	serverRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerindex_server_requests_total",
			Help: "Number of control requests handled by the rendezvous server.",
		},
		[]string{"kind"},
	)
	serverSendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "peerindex_server_send_failures_total",
			Help: "Number of responses the rendezvous server failed to send.",
		},
	)
	registryEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "peerindex_registry_entries",
			Help: "Number of peers currently registered.",
		},
	)

	serverCollectors = []prometheus.Collector{
		serverRequests,
		serverSendFailures,
		registryEntries,
	}

	metricsOnce sync.Once
)

// initMetrics registers the metrics collectors.
func initMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(serverCollectors...)
	})
}
