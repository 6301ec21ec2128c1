package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the OpenTelemetry meter exported through Prometheus and the tracer
// used around report assembly.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	reportDuration otelmetric.Float64Histogram
}

// New wires the meter provider. Exporter failures degrade to a tracer-only instance.
func New(serviceName string) (*Observability, error) {
	o := &Observability{tracer: otel.Tracer(serviceName)}

	exporter, err := prometheus.New()
	if err != nil {
		return o, err
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	provider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	o.meterProvider = provider
	o.jobCounter, _ = meter.Int64Counter(
		"delivery.jobs.processed",
		otelmetric.WithDescription("Number of delivery jobs processed"),
	)
	o.jobDuration, _ = meter.Float64Histogram(
		"delivery.jobs.duration",
		otelmetric.WithDescription("Delivery job duration"),
		otelmetric.WithUnit("ms"),
	)
	o.reportDuration, _ = meter.Float64Histogram(
		"report.assembly.duration",
		otelmetric.WithDescription("Report assembly duration"),
		otelmetric.WithUnit("ms"),
	)
	return o, nil
}

// NewNoop returns an instance that records nothing; useful in tests.
func NewNoop() *Observability {
	return &Observability{tracer: otel.Tracer("noop")}
}

func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordReportDuration(ctx context.Context, duration time.Duration, language string) {
	if o.reportDuration != nil {
		o.reportDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("language", language),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
