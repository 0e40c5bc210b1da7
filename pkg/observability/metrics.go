package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total number of HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commissable_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commissable_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// UploadsTotal tracks report uploads by file type and outcome
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commissable_uploads_total",
			Help: "Total number of report uploads",
		},
		[]string{"file_type", "outcome"},
	)

	// AutoMappedFields counts headers mapped without user input
	AutoMappedFields = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commissable_auto_mapped_fields_total",
			Help: "Total number of headers mapped automatically",
		},
	)

	// TemplateMatches tracks template lookups by source
	TemplateMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commissable_template_matches_total",
			Help: "Template lookup outcomes (saved, reference, none)",
		},
		[]string{"source"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// NewMetricsMiddleware wraps a handler with Prometheus request metrics. The
// route label is the registered pattern, not the raw URL, to keep
// cardinality bounded.
func NewMetricsMiddleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rec, r)
		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
