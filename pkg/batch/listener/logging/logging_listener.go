package logging

import (
	"context"

	"github.com/tigerroll/helios/pkg/batch/listener"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

// LoggingBatchListener logs every written batch.
type LoggingBatchListener struct{}

// NewLoggingBatchListener creates a LoggingBatchListener.
func NewLoggingBatchListener() listener.BatchListener {
	return &LoggingBatchListener{}
}

// AfterBatch implements listener.BatchListener.
func (l *LoggingBatchListener) AfterBatch(ctx context.Context, ev listener.BatchEvent) error {
	logger.Infof("BatchListener: [%s/%s] wrote %s (%d samples, %d labeled).", ev.Split, ev.Partition, ev.BatchPath, ev.Samples, ev.Labeled)
	return nil
}

var _ listener.BatchListener = (*LoggingBatchListener)(nil)
