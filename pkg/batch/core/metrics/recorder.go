// Package metrics defines the abstractions Helios components use to report
// metrics and traces. Backends live in pkg/batch/infrastructure/metrics.
package metrics

import (
	"context"
	"time"
)

// Partition outcome labels.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// MetricRecorder records batch-building metrics. Implementations must be safe
// for concurrent use by partition workers.
type MetricRecorder interface {
	// RecordBatchWritten records one persisted batch file.
	RecordBatchWritten(ctx context.Context, split string)

	// RecordSamples records count samples, labeled or not, added to batch files.
	RecordSamples(ctx context.Context, split string, labeled bool, count int)

	// RecordSequenceSkipped records a T0 that produced no samples.
	// reason is a short machine-readable cause such as "no_data" or "night".
	RecordSequenceSkipped(ctx context.Context, split, reason string)

	// RecordPartition records the outcome and duration of one partition.
	RecordPartition(ctx context.Context, split, status string, duration time.Duration)
}
