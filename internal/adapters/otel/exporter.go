package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/ports"
)

const (
	serviceName    = "mlab"
	serviceVersion = "1.0.0"
)

// Exporter records polling metrics and pushes them to an OTEL Collector.
type Exporter struct {
	provider      *sdkmetric.MeterProvider
	pollsTotal    metric.Int64Counter
	failuresTotal metric.Int64Counter
	terminalTotal metric.Int64Counter
	pollDuration  metric.Float64Histogram
}

// NewExporter creates an exporter pushing over OTLP/gRPC.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return newExporter(provider)
}

func newExporter(provider *sdkmetric.MeterProvider) (*Exporter, error) {
	meter := provider.Meter(serviceName)

	pollsTotal, err := meter.Int64Counter(
		"mlab_polls_total",
		metric.WithDescription("Total status fetches issued by the polling controller"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating polls counter: %w", err)
	}

	failuresTotal, err := meter.Int64Counter(
		"mlab_poll_failures_total",
		metric.WithDescription("Status fetches that failed"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}

	terminalTotal, err := meter.Int64Counter(
		"mlab_experiments_terminal_total",
		metric.WithDescription("Experiments observed reaching a terminal status"),
		metric.WithUnit("{experiment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating terminal counter: %w", err)
	}

	pollDuration, err := meter.Float64Histogram(
		"mlab_poll_duration_seconds",
		metric.WithDescription("Status fetch latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &Exporter{
		provider:      provider,
		pollsTotal:    pollsTotal,
		failuresTotal: failuresTotal,
		terminalTotal: terminalTotal,
		pollDuration:  pollDuration,
	}, nil
}

// RecordPoll records one status fetch. status is empty when the fetch failed.
func (e *Exporter) RecordPoll(ctx context.Context, experimentID string, status domain.StatusValue, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if status != "" {
		attrs = append(attrs, attribute.String("status", string(status)))
	}
	opt := metric.WithAttributes(attrs...)

	ctx = context.WithoutCancel(ctx)
	e.pollsTotal.Add(ctx, 1, opt)
	e.pollDuration.Record(ctx, elapsed.Seconds(), opt)
	if err != nil {
		e.failuresTotal.Add(ctx, 1)
	}
}

// RecordTerminal counts an experiment reaching a terminal status.
func (e *Exporter) RecordTerminal(ctx context.Context, experimentID string, status domain.StatusValue) {
	e.terminalTotal.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("status", string(status)),
		attribute.String("experiment_id", experimentID),
	))
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

// New returns an OTLP exporter when enabled, otherwise a no-op.
func New(ctx context.Context, cfg Config) (ports.PollMetrics, error) {
	if !cfg.Enabled {
		return NewNoOpExporter(), nil
	}
	exp, err := NewExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return exp, nil
}
