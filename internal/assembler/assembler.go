package assembler

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/helios/internal/batchfile"
	"github.com/tigerroll/helios/internal/catalog"
	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/pkg/batch/component/partitioner"
	metrics "github.com/tigerroll/helios/pkg/batch/core/metrics"
	"github.com/tigerroll/helios/pkg/batch/listener"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

const module = "assembler"

// Skip reasons reported to the metric recorder.
const (
	ReasonNoData = "no_data"
	ReasonNight  = "night"
)

// SampleSource builds the samples of one T0.
type SampleSource interface {
	Build(ctx context.Context, primary, labelCatalog *catalog.Catalog, t0 time.Time) ([]model.Sample, error)
}

// Sink persists a batch under a name.
type Sink interface {
	Write(ctx context.Context, name string, b *model.Batch) (batchfile.Files, error)
}

// Options configures an Assembler.
type Options struct {
	Split     string
	BatchSize int
	Horizons  int
	Remainder RemainderPolicy
	Unlabeled UnlabeledPolicy
}

// Result summarizes one range. It carries only paths and counts.
type Result struct {
	Range     partitioner.Range
	Files     []string // batch file paths in write order
	Samples   int      // samples written
	Skipped   int      // T0 timestamps without imagery
	Unlabeled int      // unlabeled samples seen
	Leftover  int      // samples still buffered when the range ended
}

// Assembler turns catalog ranges into batch files. It holds no per-range
// state, so one Assembler serves all workers of a split.
type Assembler struct {
	source    SampleSource
	sink      Sink
	listeners listener.BatchListener
	recorder  metrics.MetricRecorder
	opts      Options
}

// New validates opts and creates an Assembler. listeners may be nil.
func New(source SampleSource, sink Sink, listeners listener.BatchListener, recorder metrics.MetricRecorder, opts Options) (*Assembler, error) {
	if opts.BatchSize < 1 {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("batch size must be at least 1, got %d", opts.BatchSize), nil)
	}
	if opts.Horizons < 1 {
		return nil, exception.NewConfigurationError(module, "at least one target horizon is required", nil)
	}
	switch opts.Remainder {
	case "":
		opts.Remainder = RemainderCarry
	case RemainderCarry, RemainderDrop:
	default:
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("unknown remainder policy '%s'", opts.Remainder), nil)
	}
	switch opts.Unlabeled {
	case "":
		opts.Unlabeled = UnlabeledSkip
	case UnlabeledSkip, UnlabeledKeep:
	default:
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("unknown unlabeled policy '%s'", opts.Unlabeled), nil)
	}
	if listeners == nil {
		listeners = listener.NopListener{}
	}
	return &Assembler{source: source, sink: sink, listeners: listeners, recorder: recorder, opts: opts}, nil
}

// Run processes the primary entries in r and writes every full batch. A T0
// whose build fails with a skippable error is counted and skipped; any other
// error stops the range and is returned with the partial result.
func (a *Assembler) Run(ctx context.Context, primary, labelCatalog *catalog.Catalog, r partitioner.Range) (Result, error) {
	res := Result{Range: r}
	acc := NewAccumulator(r.Start, a.opts.BatchSize, a.opts.Horizons, a.opts.Remainder)
	log := logger.New(fmt.Sprintf("%s/%s", a.opts.Split, r.Name))

	for _, e := range primary.Slice(r.Start, r.End) {
		if err := ctx.Err(); err != nil {
			res.Leftover = acc.Pending()
			return res, err
		}
		samples, err := a.source.Build(ctx, primary, labelCatalog, e.Timestamp)
		if exception.IsSkippable(err) {
			res.Skipped++
			a.recorder.RecordSequenceSkipped(ctx, a.opts.Split, ReasonNoData)
			continue
		}
		if err != nil {
			res.Leftover = acc.Pending()
			return res, err
		}
		if len(samples) == 0 {
			a.recorder.RecordSequenceSkipped(ctx, a.opts.Split, ReasonNight)
			continue
		}

		for _, s := range samples {
			if s.Label.IsLabeled() {
				acc.Add(s)
				continue
			}
			res.Unlabeled++
			if a.opts.Unlabeled == UnlabeledKeep {
				acc.Add(s)
			}
		}

		for acc.Ready() {
			if err := a.flush(ctx, acc, r, &res); err != nil {
				res.Leftover = acc.Pending()
				return res, err
			}
		}
	}

	res.Leftover = acc.Pending()
	if res.Leftover > 0 {
		log.Debugf("%d samples left over at the end of the range.", res.Leftover)
	}
	log.Infof("Wrote %d batch files (%d samples, %d T0 skipped, %d unlabeled).", len(res.Files), res.Samples, res.Skipped, res.Unlabeled)
	return res, nil
}

func (a *Assembler) flush(ctx context.Context, acc *Accumulator, r partitioner.Range, res *Result) error {
	name, b := acc.Next()
	if err := b.Validate(); err != nil {
		return err
	}
	files, err := a.sink.Write(ctx, name, b)
	if err != nil {
		return err
	}
	res.Files = append(res.Files, files.Batch)
	res.Samples += b.Len()

	labeled := 0
	for _, m := range b.Labeled {
		labeled += int(m)
	}
	return a.listeners.AfterBatch(ctx, listener.BatchEvent{
		Split:     a.opts.Split,
		Partition: r.Name,
		Start:     r.Start,
		End:       r.End,
		Name:      name,
		BatchPath: files.Batch,
		IndexPath: files.Index,
		Samples:   b.Len(),
		Labeled:   labeled,
	})
}
