package manifest

import (
	"context"
	"time"

	"github.com/tigerroll/helios/pkg/batch/listener"
)

// Listener saves a Record for every written batch.
type Listener struct {
	repo  Repository
	runID string
	now   func() time.Time
}

// NewListener creates a manifest listener for one run.
func NewListener(repo Repository, runID string) *Listener {
	return &Listener{repo: repo, runID: runID, now: time.Now}
}

// AfterBatch implements listener.BatchListener.
func (l *Listener) AfterBatch(ctx context.Context, ev listener.BatchEvent) error {
	return l.repo.Save(ctx, &Record{
		RunID:      l.runID,
		Split:      ev.Split,
		Name:       ev.Name,
		Path:       ev.BatchPath,
		IndexPath:  ev.IndexPath,
		Samples:    ev.Samples,
		Labeled:    ev.Labeled,
		RangeStart: ev.Start,
		RangeEnd:   ev.End,
		CreatedAt:  l.now().UTC(),
	})
}

var _ listener.BatchListener = (*Listener)(nil)
