package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Jobs currently being processed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"task_type"},
	)

	ChaptersGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_chapters_generated_total",
			Help: "Report chapters generated, by chapter and outcome (ok, fallback, error)",
		},
		[]string{"chapter", "outcome"},
	)

	DistillationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_distillation_fallbacks_total",
			Help: "Distillation calls that fell back to their default value",
		},
		[]string{"section"},
	)

	QualityScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_quality_score",
			Help:    "Weighted quality gate score of assembled reports",
			Buckets: []float64{30, 50, 65, 75, 85, 95, 100},
		},
		[]string{"language"},
	)

	QualityRemediations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_quality_remediations_total",
			Help: "Remediation fixers applied by the quality gate",
		},
		[]string{"fixer"},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_deliveries_total",
			Help: "Delivery jobs by final status, deduplicated runs are counted separately",
		},
		[]string{"status", "deduplicated"},
	)

	DeliveryJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "report_delivery_jobs_active",
			Help: "Delivery jobs currently running",
		},
	)
)
