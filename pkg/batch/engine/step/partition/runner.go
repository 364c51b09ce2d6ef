// Package partition runs partition workers on a fixed-size goroutine pool.
package partition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tigerroll/helios/pkg/batch/component/partitioner"
	metrics "github.com/tigerroll/helios/pkg/batch/core/metrics"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

// Worker processes one range. It must return promptly once ctx is done.
type Worker[T any] func(ctx context.Context, r partitioner.Range) (T, error)

// Outcome is the result of one partition.
type Outcome[T any] struct {
	Range    partitioner.Range
	Result   T
	Status   string
	Err      error
	Duration time.Duration
}

// Runner executes a Worker over ranges with at most poolSize running at once.
// A failed partition does not stop the others.
type Runner[T any] struct {
	split    string
	poolSize int
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
	log      *logger.Logger
}

// NewRunner creates a Runner for the named split.
func NewRunner[T any](split string, poolSize int, recorder metrics.MetricRecorder, tracer metrics.Tracer) *Runner[T] {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Runner[T]{
		split:    split,
		poolSize: poolSize,
		recorder: recorder,
		tracer:   tracer,
		log:      logger.New(split),
	}
}

// Run processes every range and returns their outcomes in range order along
// with the joined errors of the failed partitions. Ranges not started before
// ctx is done are reported as cancelled.
func (r *Runner[T]) Run(ctx context.Context, ranges []partitioner.Range, work Worker[T]) ([]Outcome[T], error) {
	r.log.Infof("Running %d partitions on a pool of %d workers.", len(ranges), r.poolSize)

	outcomes := make([]Outcome[T], len(ranges))
	sem := make(chan struct{}, r.poolSize)
	errChan := make(chan error, len(ranges))
	var wg sync.WaitGroup

	for i, rng := range ranges {
		outcomes[i].Range = rng
		select {
		case <-ctx.Done():
			outcomes[i].Status = metrics.StatusCancelled
			outcomes[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}
		if err := ctx.Err(); err != nil {
			<-sem
			outcomes[i].Status = metrics.StatusCancelled
			outcomes[i].Err = err
			continue
		}

		wg.Add(1)
		go func(out *Outcome[T]) {
			defer wg.Done()
			defer func() { <-sem }()
			r.execute(ctx, out, work)
			if out.Err != nil {
				errChan <- out.Err
			}
		}(&outcomes[i])
	}

	wg.Wait()
	close(errChan)

	var combined error
	for err := range errChan {
		combined = errors.Join(combined, err)
	}
	if err := ctx.Err(); err != nil && cancelledCount(outcomes) > 0 {
		combined = errors.Join(combined, err)
	}
	r.log.Infof("Partitions finished: %d completed, %d failed, %d cancelled.",
		countStatus(outcomes, metrics.StatusCompleted),
		countStatus(outcomes, metrics.StatusFailed),
		cancelledCount(outcomes))
	return outcomes, combined
}

func (r *Runner[T]) execute(ctx context.Context, out *Outcome[T], work Worker[T]) {
	ctx, end := r.tracer.StartPartitionSpan(ctx, r.split, out.Range.Name)
	defer end()

	started := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out.Err = exception.NewBatchErrorf("partition", "partition %s panicked: %v", out.Range, p)
		}
		out.Duration = time.Since(started)
		switch {
		case out.Err == nil:
			out.Status = metrics.StatusCompleted
		case errors.Is(out.Err, context.Canceled) || errors.Is(out.Err, context.DeadlineExceeded):
			out.Status = metrics.StatusCancelled
		default:
			out.Status = metrics.StatusFailed
			r.tracer.RecordError(ctx, "partition", out.Err)
			r.log.Errorf("Partition %s failed: %v", out.Range, out.Err)
		}
		r.recorder.RecordPartition(ctx, r.split, out.Status, out.Duration)
	}()

	r.log.Debugf("Partition %s started.", out.Range)
	result, err := work(ctx, out.Range)
	out.Result = result
	if err != nil {
		out.Err = fmt.Errorf("partition %s: %w", out.Range, err)
	}
}

func countStatus[T any](outcomes []Outcome[T], status string) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func cancelledCount[T any](outcomes []Outcome[T]) int {
	return countStatus(outcomes, metrics.StatusCancelled)
}
