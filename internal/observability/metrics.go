package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stream outcomes recorded by RecordStream.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeAborted   = "aborted"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dcmstream",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dcmstream",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	streams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dcmstream",
			Subsystem: "receiver",
			Name:      "streams_total",
			Help:      "Dataset streams by outcome.",
		},
		[]string{"node", "outcome"},
	)
	activeStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dcmstream",
			Subsystem: "receiver",
			Name:      "active_streams",
			Help:      "Dataset streams currently being decoded.",
		},
		[]string{"node"},
	)
	streamBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dcmstream",
			Subsystem: "receiver",
			Name:      "bytes_total",
			Help:      "Encoded bytes fed to decoders.",
		},
		[]string{"node"},
	)
	suspensions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dcmstream",
			Subsystem: "decoder",
			Name:      "suspensions_total",
			Help:      "Decode calls that stopped for more input.",
		},
		[]string{"node"},
	)
	warnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dcmstream",
			Subsystem: "decoder",
			Name:      "warnings_total",
			Help:      "Semantic warnings attached to decoded records.",
		},
		[]string{"node"},
	)
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dcmstream",
			Subsystem: "decoder",
			Name:      "stream_duration_seconds",
			Help:      "Time from first frame to completed or failed record.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, streams, activeStreams,
			streamBytes, suspensions, warnings, decodeDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// StreamOpened marks a new stream on node.
func StreamOpened(node string) {
	RegisterMetrics()
	activeStreams.WithLabelValues(node).Inc()
}

// RecordChunk counts bytes fed to a decoder and whether decoding suspended.
func RecordChunk(node string, n int, suspended bool) {
	RegisterMetrics()
	streamBytes.WithLabelValues(node).Add(float64(n))
	if suspended {
		suspensions.WithLabelValues(node).Inc()
	}
}

// RecordStream closes a stream opened with StreamOpened.
func RecordStream(node, outcome string, warningCount int, duration time.Duration) {
	RegisterMetrics()
	activeStreams.WithLabelValues(node).Dec()
	streams.WithLabelValues(node, outcome).Inc()
	if warningCount > 0 {
		warnings.WithLabelValues(node).Add(float64(warningCount))
	}
	decodeDuration.WithLabelValues(node, outcome).Observe(duration.Seconds())
}
