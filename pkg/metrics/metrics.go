package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of requests",
		},
		[]string{"service", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)

	// Outbound entity-backend calls
	BackendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_calls_total",
			Help: "Total number of entity backend calls",
		},
		[]string{"operation", "status"},
	)

	// Message queue metrics
	KafkaMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_total",
			Help: "Total number of Kafka messages",
		},
		[]string{"service", "topic", "status"},
	)

	// Wizard metrics
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "module_uploads_total",
			Help: "Total number of module attachment uploads",
		},
		[]string{"status"},
	)

	DraftOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_draft_ops_total",
			Help: "Total number of draft store operations",
		},
		[]string{"op", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		BackendCallsTotal,
		KafkaMessagesTotal,
		UploadsTotal,
		DraftOpsTotal,
	)
}

// StartMetricsServer starts a standalone metrics HTTP server.
func StartMetricsServer(port string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			panic("failed to start metrics server: " + err.Error())
		}
	}()
}

func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

func RecordBackendCall(operation, status string) {
	BackendCallsTotal.WithLabelValues(operation, status).Inc()
}

func RecordUpload(status string) {
	UploadsTotal.WithLabelValues(status).Inc()
}

func RecordDraftOp(op, status string) {
	DraftOpsTotal.WithLabelValues(op, status).Inc()
}
