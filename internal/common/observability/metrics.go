package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"skymodel-workers/internal/common/logger"
)

// Observability records assembly-level otel metrics, exported through the
// Prometheus registry.
type Observability struct {
	meterProvider    *metric.MeterProvider
	meter            otelmetric.Meter
	jobCounter       otelmetric.Int64Counter
	jobDuration      otelmetric.Float64Histogram
	assemblyDuration otelmetric.Float64Histogram
	modelsPerJob     otelmetric.Int64Histogram
}

func New(serviceName string, log logger.Logger) *Observability {
	log = logger.OrNoOp(log)

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create Prometheus exporter", map[string]interface{}{"error": err.Error()})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)

	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	assemblyDuration, _ := meter.Float64Histogram(
		"skymodel.assembly.duration",
		otelmetric.WithDescription("Time to assemble the sky models of one catalog"),
		otelmetric.WithUnit("ms"),
	)

	modelsPerJob, _ := meter.Int64Histogram(
		"skymodel.models.count",
		otelmetric.WithDescription("Sky models produced per assembly"),
	)

	return &Observability{
		meterProvider:    provider,
		meter:            meter,
		jobCounter:       jobCounter,
		jobDuration:      jobDuration,
		assemblyDuration: assemblyDuration,
		modelsPerJob:     modelsPerJob,
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

// RecordAssembly records one catalog assembly and how many models it produced.
func (o *Observability) RecordAssembly(ctx context.Context, duration time.Duration, models int, targetFound bool) {
	attrs := otelmetric.WithAttributes(attribute.Bool("target_found", targetFound))
	if o.assemblyDuration != nil {
		o.assemblyDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	}
	if o.modelsPerJob != nil {
		o.modelsPerJob.Record(ctx, int64(models), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
