package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion Prometheus metrics.
var (
	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutriqa",
			Name:      "ingest_documents_total",
			Help:      "Documents seen by the ingestion pipeline",
		},
		[]string{"status"}, // processed, skipped, failed
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nutriqa",
			Name:      "ingest_chunks_total",
			Help:      "Chunks produced by the ingestion pipeline",
		},
	)

	IngestExtractionFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutriqa",
			Name:      "ingest_extraction_fallbacks_total",
			Help:      "Extraction strategy attempts that fell through to the next strategy",
		},
		[]string{"strategy"},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(IngestChunksTotal)
	prometheus.MustRegister(IngestExtractionFallbacks)
	ingestMetricsRegistered = true
}
