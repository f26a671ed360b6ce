package kit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelService    = "service"
	labelMethod     = "method"
	labelPath       = "path"
	labelStatus     = "status"
	labelBackend    = "backend"
	labelOp         = "op"
	labelResult     = "result"
	labelCollection = "collection"

	defaultStatusCode = http.StatusOK
)

type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{labelService, labelMethod, labelPath, labelStatus},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP latency",
			},
			[]string{labelService, labelMethod, labelPath},
		),
	}

	reg.MustRegister(m.Requests, m.Latency)
	return m
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (m *Metrics) Middleware(service string, pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{
				ResponseWriter: w,
				status:         defaultStatusCode,
			}

			start := time.Now()
			next.ServeHTTP(sw, r)

			path := pathLabel(r)
			m.Latency.WithLabelValues(service, r.Method, path).
				Observe(time.Since(start).Seconds())

			m.Requests.WithLabelValues(service, r.Method, path, strconv.Itoa(sw.status)).
				Inc()
		})
	}
}

// RoutePatternOrPath labels by chi route pattern so ids in paths do not
// explode cardinality.
func RoutePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if rp := rc.RoutePattern(); rp != "" {
			return rp
		}
	}
	return r.URL.Path
}

// QueryMetrics counts calls to the remote catalog backend and tracks how
// many rows each cached collection holds.
type QueryMetrics struct {
	backend string

	Queries *prometheus.CounterVec
	Latency *prometheus.HistogramVec
	Rows    *prometheus.GaugeVec
}

func NewQueryMetrics(reg prometheus.Registerer, backend string) *QueryMetrics {
	m := &QueryMetrics{
		backend: backend,
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_backend_queries_total",
				Help: "Catalog backend calls by operation and result",
			},
			[]string{labelBackend, labelOp, labelResult},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "catalog_backend_query_duration_seconds",
				Help: "Catalog backend call latency",
			},
			[]string{labelBackend, labelOp},
		),
		Rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalog_cached_rows",
				Help: "Rows currently held per collection",
			},
			[]string{labelCollection},
		),
	}

	reg.MustRegister(m.Queries, m.Latency, m.Rows)
	return m
}

func (m *QueryMetrics) ObserveQuery(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Latency.WithLabelValues(m.backend, op).Observe(d.Seconds())
	m.Queries.WithLabelValues(m.backend, op, result).Inc()
}

func (m *QueryMetrics) SetRows(collection string, n int) {
	m.Rows.WithLabelValues(collection).Set(float64(n))
}
