// internal/common/metrics/metrics.go
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
			Help: "Number of jobs currently being processed",
		},
		[]string{"task_type"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	// SourcesAssembled counts catalog sources turned into sky models, split
	// by where the spectral model came from (config or catalog).
	SourcesAssembled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skymodel_sources_assembled_total",
			Help: "Total number of catalog sources assembled into sky models",
		},
		[]string{"spectral_source", "target"},
	)

	ParametersTranslated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skymodel_parameters_translated_total",
			Help: "Legacy catalog parameters translated, by canonical name",
		},
		[]string{"family", "parameter"},
	)

	ParametersDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skymodel_parameters_dropped_total",
			Help: "Legacy catalog parameters with no canonical name",
		},
		[]string{"family"},
	)

	AssemblyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skymodel_assembly_failures_total",
			Help: "Catalog sources that failed to assemble",
		},
		[]string{"error_code"},
	)
)
