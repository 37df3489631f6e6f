package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	connectionsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskrunner",
			Subsystem: "conn",
			Name:      "accepted_total",
			Help:      "Total accepted task connections.",
		},
	)
	acceptErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskrunner",
			Subsystem: "conn",
			Name:      "accept_errors_total",
			Help:      "Accept calls that failed and were retried.",
		},
	)
	connectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taskrunner",
			Subsystem: "conn",
			Name:      "active",
			Help:      "Connections currently held by a worker.",
		},
	)
	workerWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "taskrunner",
			Subsystem: "conn",
			Name:      "worker_wait_seconds",
			Help:      "Time an accepted connection waited for a worker slot.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	tasksDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskrunner",
			Subsystem: "decode",
			Name:      "tasks_total",
			Help:      "Task records decoded from connections.",
		},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskrunner",
			Subsystem: "decode",
			Name:      "errors_total",
			Help:      "Connections terminated by a decode error.",
		},
		[]string{"kind", "state"},
	)
	registryApplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskrunner",
			Subsystem: "registry",
			Name:      "applies_total",
			Help:      "Registry mutations applied by the owner.",
		},
		[]string{"result"},
	)
	registrySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taskrunner",
			Subsystem: "registry",
			Name:      "tasks",
			Help:      "Tasks currently registered.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskrunner",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskrunner",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectionsAccepted,
			acceptErrors,
			connectionsActive,
			workerWait,
			tasksDecoded,
			decodeErrors,
			registryApplies,
			registrySize,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordConnectionAccepted() {
	RegisterMetrics()
	connectionsAccepted.Inc()
}

func RecordAcceptError() {
	RegisterMetrics()
	acceptErrors.Inc()
}

func SetActiveConnections(n int64) {
	RegisterMetrics()
	connectionsActive.Set(float64(n))
}

func RecordWorkerWait(d time.Duration) {
	RegisterMetrics()
	workerWait.Observe(d.Seconds())
}

func RecordTaskDecoded() {
	RegisterMetrics()
	tasksDecoded.Inc()
}

func RecordDecodeError(kind, state string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(kind, state).Inc()
}

func RecordRegistryApply(replaced bool, size int) {
	RegisterMetrics()
	result := "inserted"
	if replaced {
		result = "replaced"
	}
	registryApplies.WithLabelValues(result).Inc()
	registrySize.Set(float64(size))
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
