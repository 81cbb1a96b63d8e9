// Package metrics holds the prometheus instruments for the SEP-12 service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the customer operations. A nil *Metrics is a valid
// no-op receiver so tests can pass nil without registering collectors.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploadsTotal    *prometheus.CounterVec
	uploadBytes     prometheus.Histogram
	authFailures    prometheus.Counter
}

// New registers the SEP-12 collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anchorgate_sep12_requests_total",
			Help: "Customer operations processed, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anchorgate_sep12_request_duration_seconds",
			Help:    "Customer operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anchorgate_sep12_uploads_total",
			Help: "File uploads received, by status.",
		}, []string{"status"}),
		uploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "anchorgate_sep12_upload_bytes",
			Help:    "Size of accepted file uploads in bytes.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		authFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "anchorgate_sep12_auth_failures_total",
			Help: "Requests rejected because the token did not own the addressed customer.",
		}),
	}
}

// ObserveRequest records one completed operation.
func (m *Metrics) ObserveRequest(operation, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, outcome).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveUpload records one received file upload.
func (m *Metrics) ObserveUpload(status string, size int64) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		m.uploadBytes.Observe(float64(size))
	}
}

// ObserveAuthFailure records an ownership rejection.
func (m *Metrics) ObserveAuthFailure() {
	if m == nil {
		return
	}
	m.authFailures.Inc()
}
