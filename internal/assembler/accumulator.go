// Package assembler groups the samples of a catalog range into fixed-size
// batch files.
package assembler

import (
	"fmt"

	"github.com/tigerroll/helios/internal/domain/model"
)

// RemainderPolicy decides what happens to samples left over after a flush.
type RemainderPolicy string

const (
	// RemainderCarry keeps the surplus for the next batch.
	RemainderCarry RemainderPolicy = "carry"
	// RemainderDrop discards the surplus after every flush.
	RemainderDrop RemainderPolicy = "drop"
)

// UnlabeledPolicy decides whether unlabeled samples reach the batch files.
type UnlabeledPolicy string

const (
	// UnlabeledSkip filters unlabeled samples out.
	UnlabeledSkip UnlabeledPolicy = "skip"
	// UnlabeledKeep writes them with NaN labels and a zero mask entry.
	UnlabeledKeep UnlabeledPolicy = "keep"
)

// BatchName returns the file stem of batch n.
func BatchName(n int) string { return fmt.Sprintf("batch_%d", n) }

// Accumulator buffers the samples of one worker until a batch is full. It is
// not safe for concurrent use; every worker owns one.
type Accumulator struct {
	batchSize int
	horizons  int
	policy    RemainderPolicy
	counter   int
	buf       []model.Sample
}

// NewAccumulator creates an accumulator whose first batch is batch_<start+1>.
func NewAccumulator(start, batchSize, horizons int, policy RemainderPolicy) *Accumulator {
	return &Accumulator{
		batchSize: batchSize,
		horizons:  horizons,
		policy:    policy,
		counter:   start,
		buf:       make([]model.Sample, 0, batchSize),
	}
}

// Add appends samples to the buffer.
func (a *Accumulator) Add(samples ...model.Sample) {
	a.buf = append(a.buf, samples...)
}

// Ready reports whether a full batch is buffered.
func (a *Accumulator) Ready() bool { return len(a.buf) >= a.batchSize }

// Pending returns the number of buffered samples.
func (a *Accumulator) Pending() int { return len(a.buf) }

// Next removes the first batchSize samples and returns them with the next
// batch name. Under RemainderDrop the rest of the buffer is discarded; under
// RemainderCarry it stays, and holds fewer than batchSize samples once Ready
// is false. Next must only be called when Ready.
func (a *Accumulator) Next() (string, *model.Batch) {
	a.counter++
	b := model.NewBatch(a.buf[:a.batchSize], a.horizons)

	rest := a.buf[a.batchSize:]
	if a.policy == RemainderDrop {
		rest = nil
	}
	buf := make([]model.Sample, len(rest), a.batchSize)
	copy(buf, rest)
	a.buf = buf
	return BatchName(a.counter), b
}
