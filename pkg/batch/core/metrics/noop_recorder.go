package metrics

import (
	"context"
	"time"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordBatchWritten(ctx context.Context, split string)                {}
func (r *NoOpMetricRecorder) RecordSamples(ctx context.Context, split string, labeled bool, n int) {}
func (r *NoOpMetricRecorder) RecordSequenceSkipped(ctx context.Context, split, reason string)      {}
func (r *NoOpMetricRecorder) RecordPartition(ctx context.Context, split, status string, d time.Duration) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartRunSpan(ctx context.Context, runID string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartSplitSpan(ctx context.Context, split string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartPartitionSpan(ctx context.Context, split, partition string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {}

var _ Tracer = (*NoOpTracer)(nil)
