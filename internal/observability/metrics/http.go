package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "intake"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	batchesTotal     *prometheus.CounterVec
	batchFiles       *prometheus.HistogramVec
	fieldEditsTotal  *prometheus.CounterVec
	exportsTotal     *prometheus.CounterVec
	exportedDocument *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	batchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "submitted_total",
			Help:      "Total submitted batches by outcome.",
		},
		[]string{"service", "outcome"},
	)
	batchFiles := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "files",
			Help:      "Distribution of files per accepted batch.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 16},
		},
		[]string{"service"},
	)
	fieldEditsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "field_edits_total",
			Help:      "Total manual field edits by resulting document status.",
		},
		[]string{"service", "outcome"},
	)
	exportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "workbooks_total",
			Help:      "Total workbook exports by outcome.",
		},
		[]string{"service", "outcome"},
	)
	exportedDocument := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "documents",
			Help:      "Distribution of documents per exported workbook.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 16},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		batchesTotal,
		batchFiles,
		fieldEditsTotal,
		exportsTotal,
		exportedDocument,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		batchesTotal:     batchesTotal,
		batchFiles:       batchFiles,
		fieldEditsTotal:  fieldEditsTotal,
		exportsTotal:     exportsTotal,
		exportedDocument: exportedDocument,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses identifiers so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/batches/"):
		if strings.HasSuffix(path, "/export") {
			return "/v1/batches/{batch_id}/export"
		}
		return "/v1/batches/{batch_id}"
	case strings.HasPrefix(path, "/v1/documents/"):
		rest := strings.TrimPrefix(path, "/v1/documents/")
		switch {
		case strings.HasSuffix(rest, "/form"):
			return "/v1/documents/{document_id}/form"
		case strings.Contains(rest, "/fields/"):
			return "/v1/documents/{document_id}/fields/{key}"
		default:
			return "/v1/documents/{document_id}"
		}
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordBatch(service string, files int, err error) {
	if err != nil {
		m.batchesTotal.WithLabelValues(service, "rejected").Inc()
		return
	}
	m.batchesTotal.WithLabelValues(service, "accepted").Inc()
	m.batchFiles.WithLabelValues(service).Observe(float64(files))
}

func (m *HTTPServerMetrics) RecordFieldEdit(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.fieldEditsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordExport(service, outcome string, documents int) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.exportsTotal.WithLabelValues(service, outcome).Inc()
	if outcome == "success" {
		m.exportedDocument.WithLabelValues(service).Observe(float64(documents))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
