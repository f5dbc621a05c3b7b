package metrics

import "github.com/prometheus/client_golang/prometheus"

// Enrichment pipeline and search metrics.
var (
	EnrichmentRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_records_total",
			Help:      "Records processed by enrichment passes, by outcome",
		},
		[]string{"mode", "outcome"}, // enriched / embedded / failed / skipped
	)

	EnrichmentPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_pages_total",
			Help:      "Pages fetched by enrichment passes",
		},
		[]string{"mode", "status"},
	)

	EnrichmentQualityFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_quality_findings_total",
			Help:      "Classifier tags outside the controlled vocabulary",
		},
		[]string{"field"},
	)

	ClassifierStageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_stage_errors_total",
			Help:      "Multi-stage classifier stage failures",
		},
		[]string{"stage"},
	)

	SearchQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Search queries by mode and status",
		},
		[]string{"mode", "status"},
	)

	SearchSkippedHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_skipped_hits_total",
			Help:      "Vector hits dropped because the stored embedding was unreadable",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers enrichment and search metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(EnrichmentRecordsTotal)
	prometheus.MustRegister(EnrichmentPagesTotal)
	prometheus.MustRegister(EnrichmentQualityFindingsTotal)
	prometheus.MustRegister(ClassifierStageErrorsTotal)
	prometheus.MustRegister(SearchQueriesTotal)
	prometheus.MustRegister(SearchSkippedHitsTotal)
	pipelineMetricsRegistered = true
}
