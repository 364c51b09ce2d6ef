package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/tigerroll/helios/internal/assembler"
	"github.com/tigerroll/helios/internal/batchfile"
	"github.com/tigerroll/helios/internal/catalog"
	"github.com/tigerroll/helios/pkg/batch/component/partitioner"
	config "github.com/tigerroll/helios/pkg/batch/core/config"
	metrics "github.com/tigerroll/helios/pkg/batch/core/metrics"
	"github.com/tigerroll/helios/pkg/batch/engine/step/partition"
	"github.com/tigerroll/helios/pkg/batch/listener"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

// RunID identifies one batch-building run in logs, traces and the manifest.
type RunID string

// SplitSummary aggregates the partition results of one split.
type SplitSummary struct {
	Split      string
	Partitions int
	Failed     int
	Cancelled  int
	Files      []string
	Samples    int
	Skipped    int
	Unlabeled  int
	Leftover   int
}

// BuilderOptions holds the settings a Builder reads from the run configuration.
type BuilderOptions struct {
	Splits     []string
	Windows    func(split string) (config.WindowConfig, bool)
	StationIDs []string
	Seed       int64
	PoolSize   int
	RangeSize  int
	Assembler  assembler.Options
	WriteIndex bool
}

// Builder turns the full catalog into batch files, one split after another.
type Builder struct {
	runID     RunID
	full      *catalog.Catalog
	source    assembler.SampleSource
	listeners listener.BatchListener
	recorder  metrics.MetricRecorder
	tracer    metrics.Tracer
	opts      BuilderOptions
	log       *logger.Logger
}

// NewBuilder creates a Builder. full is both the catalog the splits are cut
// from and the label catalog.
func NewBuilder(runID RunID, full *catalog.Catalog, source assembler.SampleSource, listeners listener.BatchListener,
	recorder metrics.MetricRecorder, tracer metrics.Tracer, opts BuilderOptions) (*Builder, error) {
	if full == nil || source == nil {
		return nil, exception.NewConfigurationError(moduleName, "builder needs a catalog and a sample source", nil)
	}
	if opts.Windows == nil {
		return nil, exception.NewConfigurationError(moduleName, "builder needs split windows", nil)
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &Builder{
		runID:     runID,
		full:      full,
		source:    source,
		listeners: listeners,
		recorder:  recorder,
		tracer:    tracer,
		opts:      opts,
		log:       logger.New("builder"),
	}, nil
}

// Run builds every configured split in order. A split whose partitions fail
// does not prevent the next split from running; the errors are joined.
func (b *Builder) Run(ctx context.Context) ([]SplitSummary, error) {
	ctx, end := b.tracer.StartRunSpan(ctx, string(b.runID))
	defer end()

	b.log.Infof("Run %s started for splits %v.", b.runID, b.opts.Splits)
	var summaries []SplitSummary
	var combined error
	for _, split := range b.opts.Splits {
		if err := ctx.Err(); err != nil {
			combined = errors.Join(combined, err)
			break
		}
		summary, err := b.RunSplit(ctx, split)
		summaries = append(summaries, summary)
		if err != nil {
			b.tracer.RecordError(ctx, moduleName, err)
			combined = errors.Join(combined, fmt.Errorf("split %s: %w", split, err))
		}
	}
	return summaries, combined
}

// RunSplit builds the batch files of one split.
func (b *Builder) RunSplit(ctx context.Context, split string) (SplitSummary, error) {
	summary := SplitSummary{Split: split}
	window, ok := b.opts.Windows(split)
	if !ok {
		return summary, exception.NewConfigurationError(moduleName, fmt.Sprintf("unknown split '%s'", split), nil)
	}
	from, to, err := window.Bounds()
	if err != nil {
		return summary, exception.NewConfigurationError(moduleName, fmt.Sprintf("invalid window of split '%s'", split), err)
	}

	ctx, end := b.tracer.StartSplitSpan(ctx, split)
	defer end()

	primary, err := catalog.Preprocess(b.full.Window(from, to), b.opts.StationIDs, rand.New(rand.NewSource(b.opts.Seed)))
	if err != nil {
		return summary, err
	}
	if err := os.MkdirAll(window.OutputDir, 0o755); err != nil {
		return summary, exception.NewStorageError(moduleName, fmt.Sprintf("failed to create output directory '%s'", window.OutputDir), err)
	}

	opts := b.opts.Assembler
	opts.Split = split
	asm, err := assembler.New(b.source, batchfile.DirWriter{Dir: window.OutputDir, WithIndex: b.opts.WriteIndex}, b.listeners, b.recorder, opts)
	if err != nil {
		return summary, err
	}

	rp, err := partitioner.NewRangePartitioner(0, window.RangeEnd, b.opts.RangeSize)
	if err != nil {
		return summary, exception.NewConfigurationError(moduleName, fmt.Sprintf("invalid partitioning of split '%s'", split), err)
	}
	ranges, err := rp.Partition(ctx, primary.Len())
	if err != nil {
		return summary, err
	}
	summary.Partitions = len(ranges)
	b.log.Infof("Split %s: %d catalog rows in [%s, %s], %d partitions into '%s'.",
		split, primary.Len(), window.From, window.To, len(ranges), window.OutputDir)

	runner := partition.NewRunner[assembler.Result](split, b.opts.PoolSize, b.recorder, b.tracer)
	outcomes, err := runner.Run(ctx, ranges, func(ctx context.Context, r partitioner.Range) (assembler.Result, error) {
		return asm.Run(ctx, primary, b.full, r)
	})
	for _, o := range outcomes {
		switch o.Status {
		case metrics.StatusFailed:
			summary.Failed++
		case metrics.StatusCancelled:
			summary.Cancelled++
		}
		summary.Files = append(summary.Files, o.Result.Files...)
		summary.Samples += o.Result.Samples
		summary.Skipped += o.Result.Skipped
		summary.Unlabeled += o.Result.Unlabeled
		summary.Leftover += o.Result.Leftover
	}
	b.log.Infof("Split %s finished: %d files, %d samples, %d T0 without imagery, %d partitions failed.",
		split, len(summary.Files), summary.Samples, summary.Skipped, summary.Failed)
	return summary, err
}
