// Package listener defines the callbacks fired after a batch file is
// written, and a composite that fans an event out to several listeners.
package listener

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// BatchEvent describes one written batch.
type BatchEvent struct {
	Split     string
	Partition string
	Start     int    // first catalog index of the partition
	End       int    // exclusive
	Name      string // e.g. "batch_501"
	BatchPath string
	IndexPath string // empty when no sidecar was written
	Samples   int
	Labeled   int
}

// BatchListener is notified after every batch file is in place.
type BatchListener interface {
	AfterBatch(ctx context.Context, ev BatchEvent) error
}

// NopListener ignores every event.
type NopListener struct{}

// AfterBatch does nothing.
func (NopListener) AfterBatch(context.Context, BatchEvent) error { return nil }

// Composite calls each listener in order. Every listener runs even when an
// earlier one fails; the failures are returned together.
type Composite []BatchListener

// AfterBatch implements BatchListener.
func (c Composite) AfterBatch(ctx context.Context, ev BatchEvent) error {
	var result error
	for _, l := range c {
		if l == nil {
			continue
		}
		if err := l.AfterBatch(ctx, ev); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

var (
	_ BatchListener = NopListener{}
	_ BatchListener = Composite(nil)
)
