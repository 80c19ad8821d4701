package peer

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Send failure reasons used as metric labels.
const (
	failureNotFound  = "not_found"
	failureTimeout   = "timeout"
	failureResolve   = "resolve"
	failureTransport = "transport"
	failureCancelled = "cancelled"
)

var (
	messagesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "peerindex_peer_messages_received_total",
			Help: "Number of message envelopes appended to the inbound queue.",
		},
	)
	messagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "peerindex_peer_messages_sent_total",
			Help: "Number of message envelopes sent to other peers.",
		},
	)
	messagesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "peerindex_peer_messages_delivered_total",
			Help: "Number of messages handed to the consumer.",
		},
	)
	sendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerindex_peer_send_failures_total",
			Help: "Number of failed sends by reason.",
		},
		[]string{"reason"},
	)
	queueDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "peerindex_peer_queue_dropped_total",
			Help: "Number of inbound messages dropped because the queue was full.",
		},
	)
	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "peerindex_peer_cache_hits_total",
			Help: "Number of resolutions answered by the discovery cache.",
		},
	)
	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "peerindex_peer_cache_misses_total",
			Help: "Number of resolutions that required an index round trip.",
		},
	)

	peerCollectors = []prometheus.Collector{
		messagesReceived,
		messagesSent,
		messagesDelivered,
		sendFailures,
		queueDropped,
		cacheHits,
		cacheMisses,
	}

	metricsOnce sync.Once
)

// initMetrics registers the metrics collectors.
func initMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(peerCollectors...)
	})
}
