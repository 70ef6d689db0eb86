package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the pipeline counters exported on /metrics.
type Metrics struct {
	FramesRead          prometheus.Counter
	ReadFailures        *prometheus.CounterVec
	AnalysesAttempted   *prometheus.CounterVec
	AnalysesWithResult  *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	AnalysisDuration    *prometheus.HistogramVec
	SessionsStarted     *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FramesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "facecam_frames_read_total",
			Help: "Frames successfully read from all cameras.",
		}),
		ReadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facecam_frame_read_failures_total",
			Help: "Reads that produced no frame, by camera.",
		}, []string{"device"}),
		AnalysesAttempted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facecam_analyses_total",
			Help: "Sampled frames handed to the analysis strategy.",
		}, []string{"strategy"}),
		AnalysesWithResult: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facecam_analyses_with_result_total",
			Help: "Analyses that produced a face.",
		}, []string{"strategy"}),
		PersistenceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facecam_persistence_failures_total",
			Help: "Failed observation writes, by sink.",
		}, []string{"sink"}),
		AnalysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facecam_analysis_duration_seconds",
			Help:    "Time spent analyzing one sampled frame.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"strategy"}),
		SessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facecam_sessions_started_total",
			Help: "Sampling sessions started.",
		}, []string{"strategy"}),
	}
}
