package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	metrics "github.com/tigerroll/helios/pkg/batch/core/metrics"
)

const instrumentationName = "github.com/tigerroll/helios"

// OpenTelemetryRecorder records the batch metrics through an OpenTelemetry MeterProvider.
// It carries the same instruments as PrometheusRecorder.
type OpenTelemetryRecorder struct {
	batchesWritten    metric.Int64Counter
	samples           metric.Int64Counter
	sequencesSkipped  metric.Int64Counter
	partitions        metric.Int64Counter
	partitionDuration metric.Float64Histogram
}

// NewOpenTelemetryRecorder creates the instruments on the given provider.
func NewOpenTelemetryRecorder(provider metric.MeterProvider) (*OpenTelemetryRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OpenTelemetryRecorder{}
	var err error
	if r.batchesWritten, err = meter.Int64Counter("helios.batches.written",
		metric.WithDescription("Total number of batch files written.")); err != nil {
		return nil, err
	}
	if r.samples, err = meter.Int64Counter("helios.samples",
		metric.WithDescription("Total samples written to batch files, by label state.")); err != nil {
		return nil, err
	}
	if r.sequencesSkipped, err = meter.Int64Counter("helios.sequences.skipped",
		metric.WithDescription("Total T0 timestamps that produced no samples, by reason.")); err != nil {
		return nil, err
	}
	if r.partitions, err = meter.Int64Counter("helios.partitions",
		metric.WithDescription("Total partitions processed, by outcome.")); err != nil {
		return nil, err
	}
	if r.partitionDuration, err = meter.Float64Histogram("helios.partition.duration",
		metric.WithDescription("Duration of partition processing."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

// NewManualMeterProvider returns an SDK provider whose data is pulled only
// through the returned reader.
func NewManualMeterProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}

func (r *OpenTelemetryRecorder) RecordBatchWritten(ctx context.Context, split string) {
	r.batchesWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("split", split)))
}

func (r *OpenTelemetryRecorder) RecordSamples(ctx context.Context, split string, labeled bool, count int) {
	if count <= 0 {
		return
	}
	r.samples.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("split", split),
		attribute.String("label", labelState(labeled)),
	))
}

func (r *OpenTelemetryRecorder) RecordSequenceSkipped(ctx context.Context, split, reason string) {
	r.sequencesSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("split", split),
		attribute.String("reason", reason),
	))
}

func (r *OpenTelemetryRecorder) RecordPartition(ctx context.Context, split, status string, duration time.Duration) {
	r.partitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("split", split),
		attribute.String("status", status),
	))
	r.partitionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("split", split)))
}

var _ metrics.MetricRecorder = (*OpenTelemetryRecorder)(nil)
