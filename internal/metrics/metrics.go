package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalex_extractions_total",
			Help: "Total number of extraction jobs per distributor",
		},
		[]string{"distributor"},
	)

	ExtractionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalex_extraction_failures_total",
			Help: "Total number of failed extraction jobs per distributor and failure reason",
		},
		[]string{"distributor", "reason"},
	)

	ExtractionDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portalex_extraction_duration_seconds",
			Help:    "Extraction job duration in seconds per distributor",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"distributor"},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalex_cache_hits_total",
			Help: "Extraction jobs short-circuited by the result cache per distributor",
		},
		[]string{"distributor"},
	)

	OffersExtracted = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portalex_offers_extracted",
			Help: "Number of offers produced by the most recent extraction per distributor",
		},
		[]string{"distributor"},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalex_requests_total",
			Help: "Total number of HTTP requests per path",
		},
		[]string{"path"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portalex_request_duration_seconds",
			Help:    "HTTP request duration in seconds per path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalex_request_errors_total",
			Help: "Total number of error responses per path and status code",
		},
		[]string{"path", "code"},
	)
)

// RecordJob updates the per-distributor extraction metrics for one job.
func RecordJob(distributor string, started time.Time, reason string, offers int) {
	ExtractionsTotal.WithLabelValues(distributor).Inc()
	ExtractionDurationSeconds.WithLabelValues(distributor).Observe(time.Since(started).Seconds())
	if reason != "" {
		ExtractionFailuresTotal.WithLabelValues(distributor, reason).Inc()
		return
	}
	OffersExtracted.WithLabelValues(distributor).Set(float64(offers))
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portalex_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portalex_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalex_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

// UpdateJobMetrics records the outcome of one scheduled worker run.
func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
