package metrics

import (
	"context"

	coremetrics "github.com/tigerroll/helios/pkg/batch/core/metrics"
	"github.com/tigerroll/helios/pkg/batch/listener"
)

// MetricsBatchListener counts written batches and their samples.
type MetricsBatchListener struct {
	recorder coremetrics.MetricRecorder
}

// NewMetricsBatchListener creates a MetricsBatchListener.
func NewMetricsBatchListener(recorder coremetrics.MetricRecorder) listener.BatchListener {
	return &MetricsBatchListener{recorder: recorder}
}

// AfterBatch implements listener.BatchListener.
func (l *MetricsBatchListener) AfterBatch(ctx context.Context, ev listener.BatchEvent) error {
	l.recorder.RecordBatchWritten(ctx, ev.Split)
	l.recorder.RecordSamples(ctx, ev.Split, true, ev.Labeled)
	if unlabeled := ev.Samples - ev.Labeled; unlabeled > 0 {
		l.recorder.RecordSamples(ctx, ev.Split, false, unlabeled)
	}
	return nil
}

var _ listener.BatchListener = (*MetricsBatchListener)(nil)
