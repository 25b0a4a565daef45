package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meshstream",
			Subsystem: "sender",
			Name:      "frames_total",
			Help:      "Mesh frames written to the wire.",
		},
	)
	bytesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meshstream",
			Subsystem: "sender",
			Name:      "bytes_total",
			Help:      "Bytes written to the wire, headers included.",
		},
	)
	framesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meshstream",
			Subsystem: "receiver",
			Name:      "frames_total",
			Help:      "Mesh frames decoded from the wire.",
		},
	)
	bytesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meshstream",
			Subsystem: "receiver",
			Name:      "bytes_total",
			Help:      "Bytes read from the wire, headers included.",
		},
	)
	framesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meshstream",
			Subsystem: "receiver",
			Name:      "dropped_total",
			Help:      "Frames dropped by the async loop under a slow consumer.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshstream",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "meshstream",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesSent, bytesSent,
			framesReceived, bytesReceived, framesDropped,
			httpRequests, httpDuration,
		)
	})
}

func RecordFrameSent(bytes int) {
	RegisterMetrics()
	framesSent.Inc()
	bytesSent.Add(float64(bytes))
}

func RecordBytesSent(bytes int) {
	RegisterMetrics()
	bytesSent.Add(float64(bytes))
}

func RecordFrameReceived(bytes int) {
	RegisterMetrics()
	framesReceived.Inc()
	bytesReceived.Add(float64(bytes))
}

func RecordBytesReceived(bytes int) {
	RegisterMetrics()
	bytesReceived.Add(float64(bytes))
}

func RecordFrameDropped() {
	RegisterMetrics()
	framesDropped.Inc()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
