package metrics

import "context"

// Tracer is an abstract interface for tracing a run, its splits and their partitions.
//
// Each Start method returns a context carrying the new span and a function
// that ends it. Call the function in a defer statement.
type Tracer interface {
	StartRunSpan(ctx context.Context, runID string) (context.Context, func())
	StartSplitSpan(ctx context.Context, split string) (context.Context, func())
	StartPartitionSpan(ctx context.Context, split, partition string) (context.Context, func())

	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current span.
	// Example: `map[string]interface{}{"file": "batch_501.hdf5", "samples": 256}`
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
