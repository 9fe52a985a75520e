package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsedelay_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsedelay_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	delayEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsedelay_delay_evaluations_total",
			Help: "Delay function evaluations by component and outcome.",
		},
		[]string{"component", "outcome"},
	)

	delayDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsedelay_delay_duration_seconds",
			Help:    "Delay function evaluation time in seconds.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"component"},
	)

	skippedGroupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsedelay_skipped_groups_total",
			Help: "Observatory groups skipped by a delay component (e.g. barycentric TOAs).",
		},
		[]string{"component", "reason"},
	)

	toasProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsedelay_toas_processed_total",
			Help: "TOAs for which a total delay was computed.",
		},
	)

	modelReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsedelay_model_reloads_total",
			Help: "Timing model reloads from the config file by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(delayEvaluationsTotal)
	prometheus.MustRegister(delayDurationSeconds)
	prometheus.MustRegister(skippedGroupsTotal)
	prometheus.MustRegister(toasProcessedTotal)
	prometheus.MustRegister(modelReloadsTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDelay records one delay function evaluation.
func RecordDelay(component string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	delayEvaluationsTotal.WithLabelValues(component, outcome).Inc()
	delayDurationSeconds.WithLabelValues(component).Observe(d.Seconds())
}

// RecordSkippedGroup counts an observatory group a component skipped.
func RecordSkippedGroup(component, reason string) {
	skippedGroupsTotal.WithLabelValues(component, reason).Inc()
}

// AddTOAsProcessed counts TOAs that received a total delay.
func AddTOAsProcessed(n int) {
	toasProcessedTotal.Add(float64(n))
}

// RecordReload records a model reload attempt.
func RecordReload(err error) {
	if err != nil {
		modelReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	modelReloadsTotal.WithLabelValues("ok").Inc()
}

// knownRoutes are exact paths reported under their own label.
var knownRoutes = map[string]bool{
	"/healthz":              true,
	"/readyz":               true,
	"/metrics":              true,
	"/api/v1/params":        true,
	"/api/v1/delay":         true,
	"/api/v1/delay/sites":   true,
	"/api/v1/observatories": true,
}

// normalizeRoute maps a request path to a bounded set of metric labels so
// parameter names and unknown paths cannot blow up label cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/params/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/v1/params/{name}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
