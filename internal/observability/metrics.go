package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job metrics
	activeJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audio_forge_active_jobs",
		Help: "Number of generation jobs currently pending or processing",
	})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audio_forge_submissions_total",
		Help: "Total number of provider submissions",
	}, []string{"status"})

	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audio_forge_polls_total",
		Help: "Total number of provider polls by outcome",
	}, []string{"outcome"}) // outcome: processing, completed, error

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audio_forge_job_duration_seconds",
		Help:    "Wall time from submission to terminal state in seconds",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	})

	// Text chunking metrics
	chunksPerScript = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audio_forge_chunks_per_script",
		Help:    "Number of text chunks produced per submitted script",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	// Assembly metrics
	segmentsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_forge_hls_segments_fetched_total",
		Help: "Total number of HLS segments downloaded",
	})

	mergedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_forge_merged_bytes_total",
		Help: "Total PCM payload bytes merged into final assets",
	})

	audioDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audio_forge_audio_duration_seconds",
		Help:    "Playable duration of finished audio assets in seconds",
		Buckets: []float64{10, 30, 60, 180, 600, 1800, 3600},
	})

	// Storage metrics
	storageWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audio_forge_storage_writes_total",
		Help: "Total number of storage sink writes",
	}, []string{"status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audio_forge_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "audio_forge_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})
)

// RecordJobStart records a job entering the pending state
func RecordJobStart() {
	activeJobs.Inc()
}

// RecordJobEnd records a job reaching a terminal state
func RecordJobEnd(elapsedSeconds float64) {
	activeJobs.Dec()
	jobDuration.Observe(elapsedSeconds)
}

// RecordSubmission records the outcome of a provider submission
func RecordSubmission(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	submissionsTotal.WithLabelValues(status).Inc()
}

// RecordPoll records the outcome of a single provider poll
func RecordPoll(outcome string) {
	pollsTotal.WithLabelValues(outcome).Inc()
}

// RecordChunks records how many chunks a script was split into
func RecordChunks(n int) {
	chunksPerScript.Observe(float64(n))
}

// RecordSegmentFetched records one downloaded HLS segment
func RecordSegmentFetched() {
	segmentsFetched.Inc()
}

// RecordMergedBytes records PCM bytes written into a merged asset
func RecordMergedBytes(n int64) {
	mergedBytes.Add(float64(n))
}

// RecordAudioDuration records the playable duration of a finished asset
func RecordAudioDuration(seconds int) {
	audioDurationSeconds.Observe(float64(seconds))
}

// RecordStorageWrite records the outcome of a storage sink write
func RecordStorageWrite(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	storageWrites.WithLabelValues(status).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
