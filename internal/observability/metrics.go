package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the bibliometrics service.
// Metrics are organized by subsystem: imports, papers, citation refreshes,
// enrichment and the HTTP surface. All counters and histograms are registered
// via promauto for automatic registration with the default Prometheus
// registry.
type Metrics struct {
	// ImportsStarted counts ORCID imports initiated.
	ImportsStarted prometheus.Counter

	// ImportsCompleted counts imports that finished successfully.
	ImportsCompleted prometheus.Counter

	// ImportsFailed counts imports that ended in failure.
	ImportsFailed prometheus.Counter

	// ImportDuration observes the end-to-end duration of imports in seconds.
	ImportDuration prometheus.Histogram

	// PapersImported counts papers stored by imports.
	PapersImported prometheus.Counter

	// PapersSkipped counts declared works skipped as duplicates or as
	// unusable records.
	PapersSkipped prometheus.Counter

	// PapersEnriched counts papers whose metadata was filled from a registry.
	PapersEnriched prometheus.Counter

	// CitationRefreshes counts citation refresh outcomes, labeled by outcome
	// (updated, failed, skipped).
	CitationRefreshes *prometheus.CounterVec

	// Enrichments counts enrichment sweep outcomes, labeled by outcome
	// (enriched, unresolved).
	Enrichments *prometheus.CounterVec

	// HTTPRequestsTotal counts HTTP requests, labeled by method, route and
	// status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds, labeled
	// by method and route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ImportsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_started_total",
			Help:      "Total number of ORCID imports started",
		}),
		ImportsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_completed_total",
			Help:      "Total number of ORCID imports completed successfully",
		}),
		ImportsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_failed_total",
			Help:      "Total number of ORCID imports that failed",
		}),
		ImportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "End-to-end import duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		PapersImported: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_imported_total",
			Help:      "Total number of papers stored by imports",
		}),
		PapersSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_skipped_total",
			Help:      "Total number of declared works skipped during imports",
		}),
		PapersEnriched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_enriched_total",
			Help:      "Total number of papers enriched with registry metadata",
		}),
		CitationRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citation_refreshes_total",
			Help:      "Total number of citation refresh outcomes by outcome",
		}, []string{"outcome"}),
		Enrichments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Total number of enrichment sweep outcomes by outcome",
		}, []string{"outcome"}),
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordImportStarted increments the started-imports counter.
func (m *Metrics) RecordImportStarted() {
	m.ImportsStarted.Inc()
}

// RecordImportCompleted records a successful import and its outcome counts.
func (m *Metrics) RecordImportCompleted(imported, skipped, enriched int, durationSeconds float64) {
	m.ImportsCompleted.Inc()
	m.ImportDuration.Observe(durationSeconds)
	m.PapersImported.Add(float64(imported))
	m.PapersSkipped.Add(float64(skipped))
	m.PapersEnriched.Add(float64(enriched))
}

// RecordImportFailed records a failed import.
func (m *Metrics) RecordImportFailed(durationSeconds float64) {
	m.ImportsFailed.Inc()
	m.ImportDuration.Observe(durationSeconds)
}

// RecordCitationRefreshes records the outcome counts of a refresh run.
func (m *Metrics) RecordCitationRefreshes(updated, failed, skipped int) {
	m.CitationRefreshes.WithLabelValues("updated").Add(float64(updated))
	m.CitationRefreshes.WithLabelValues("failed").Add(float64(failed))
	m.CitationRefreshes.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordEnrichments records the outcome counts of an enrichment sweep.
func (m *Metrics) RecordEnrichments(enriched, unresolved int) {
	m.Enrichments.WithLabelValues("enriched").Add(float64(enriched))
	m.Enrichments.WithLabelValues("unresolved").Add(float64(unresolved))
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
