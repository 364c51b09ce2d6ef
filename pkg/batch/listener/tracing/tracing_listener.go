package tracing

import (
	"context"

	"github.com/tigerroll/helios/pkg/batch/core/metrics"
	"github.com/tigerroll/helios/pkg/batch/listener"
)

// TracingBatchListener adds a "batch_written" event to the current span.
type TracingBatchListener struct {
	tracer metrics.Tracer
}

// NewTracingBatchListener creates a TracingBatchListener.
func NewTracingBatchListener(tracer metrics.Tracer) listener.BatchListener {
	return &TracingBatchListener{tracer: tracer}
}

// AfterBatch implements listener.BatchListener.
func (l *TracingBatchListener) AfterBatch(ctx context.Context, ev listener.BatchEvent) error {
	l.tracer.RecordEvent(ctx, "batch_written", map[string]interface{}{
		"file":    ev.Name,
		"samples": ev.Samples,
		"labeled": ev.Labeled,
	})
	return nil
}

var _ listener.BatchListener = (*TracingBatchListener)(nil)
