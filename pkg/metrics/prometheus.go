package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics records summarization pipeline metrics in Prometheus.
type PipelineMetrics struct {
	runDuration     *prometheus.HistogramVec
	backendDuration *prometheus.HistogramVec
	backendCalls    *prometheus.CounterVec
	chunks          prometheus.Histogram
	reduceRounds    prometheus.Histogram
}

// NewPipelineMetrics registers the pipeline collectors on reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "summarizer_run_duration_seconds",
			Help:    "End to end duration of a map-reduce summarization run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"outcome"}),
		backendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "summarizer_backend_call_duration_seconds",
			Help:    "Latency of a single LLM backend call",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"provider", "stage", "outcome"}),
		backendCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "summarizer_backend_calls_total",
			Help: "LLM backend calls by provider, stage and outcome",
		}, []string{"provider", "stage", "outcome"}),
		chunks: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "summarizer_document_chunks",
			Help:    "Number of chunks a document was split into",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		reduceRounds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "summarizer_reduce_rounds",
			Help:    "Number of reduce rounds needed to reach a single summary",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6},
		}),
	}
}

// ObserveRun records a finished pipeline run.
func (m *PipelineMetrics) ObserveRun(outcome string, d time.Duration) {
	m.runDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveBackendCall records one backend attempt.
func (m *PipelineMetrics) ObserveBackendCall(provider, stage, outcome string, d time.Duration) {
	m.backendCalls.WithLabelValues(provider, stage, outcome).Inc()
	m.backendDuration.WithLabelValues(provider, stage, outcome).Observe(d.Seconds())
}

// ObserveChunks records how many chunks a document produced.
func (m *PipelineMetrics) ObserveChunks(n int) {
	m.chunks.Observe(float64(n))
}

// ObserveReduceRounds records the number of reduce rounds of a run.
func (m *PipelineMetrics) ObserveReduceRounds(n int) {
	m.reduceRounds.Observe(float64(n))
}
