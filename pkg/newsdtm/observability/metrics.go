package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

var (
	RecordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsdtm_records_ingested_total",
		Help: "Records accepted by the ingestor",
	}, []string{"outlet"})

	DropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsdtm_drops_total",
		Help: "Records or documents removed from the pipeline by stage and reason",
	}, []string{"stage", "reason"})

	DocumentsTokenized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsdtm_documents_tokenized_total",
		Help: "Documents that produced a non-empty lemma sequence",
	})

	ModelCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsdtm_model_call_duration_seconds",
		Help:    "Duration of external model calls",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"model"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsdtm_stage_duration_seconds",
		Help:    "Wall time spent per pipeline stage and bucket",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	MatrixTerms = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "newsdtm_dtm_terms",
		Help: "Vocabulary size of the last DTM built per bucket",
	}, []string{"bucket"})
)

// ObserveDrops counts drops by stage and reason.
func ObserveDrops(drops []record.Drop) {
	for _, d := range drops {
		DropsTotal.WithLabelValues(d.Stage, d.Reason).Inc()
	}
}

// ObserveStage records how long a stage took.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
