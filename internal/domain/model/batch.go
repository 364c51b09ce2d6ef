package model

import (
	"fmt"
	"math"
	"time"

	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

const batchModule = "batch"

// DatetimeLayout is the ISO-8601 layout of persisted timestamps.
const DatetimeLayout = "2006-01-02T15:04:05"

// Batch is a fixed-size set of samples stored as parallel arrays sharing the
// leading dimension. It is immutable once written.
type Batch struct {
	Images      [][]Crop    // samples × seq
	TrueGHI     [][]float32 // samples × horizons
	ClearSkyGHI [][]float32 // samples × horizons
	StationIDs  []string
	Datetimes   [][]time.Time // samples × seq
	Labeled     []uint8
}

// NewBatch lays samples out as parallel arrays. Unlabeled samples get NaN
// label rows and a zero in the Labeled mask.
func NewBatch(samples []Sample, horizons int) *Batch {
	b := &Batch{
		Images:      make([][]Crop, len(samples)),
		TrueGHI:     make([][]float32, len(samples)),
		ClearSkyGHI: make([][]float32, len(samples)),
		StationIDs:  make([]string, len(samples)),
		Datetimes:   make([][]time.Time, len(samples)),
		Labeled:     make([]uint8, len(samples)),
	}
	for i, s := range samples {
		b.Images[i] = s.Frames
		b.StationIDs[i] = s.StationID
		b.Datetimes[i] = s.Timestamps
		if pair, ok := s.Label.Pair(); ok {
			b.TrueGHI[i] = toFloat32(pair.True)
			b.ClearSkyGHI[i] = toFloat32(pair.ClearSky)
			b.Labeled[i] = 1
		} else {
			b.TrueGHI[i] = nanRow(horizons)
			b.ClearSkyGHI[i] = nanRow(horizons)
		}
	}
	return b
}

// Len returns the number of samples.
func (b *Batch) Len() int { return len(b.Images) }

// SeqLength returns the number of frames per sample.
func (b *Batch) SeqLength() int {
	if len(b.Images) == 0 {
		return 0
	}
	return len(b.Images[0])
}

// CropSize returns the crop edge length.
func (b *Batch) CropSize() int {
	if len(b.Images) == 0 || len(b.Images[0]) == 0 {
		return 0
	}
	return b.Images[0][0].Size
}

// Horizons returns the number of target horizons.
func (b *Batch) Horizons() int {
	if len(b.TrueGHI) == 0 {
		return 0
	}
	return len(b.TrueGHI[0])
}

// Validate checks that every array has the same leading length and that the
// inner dimensions are uniform.
func (b *Batch) Validate() error {
	n := len(b.Images)
	lengths := []struct {
		name string
		n    int
	}{
		{"GHI", len(b.TrueGHI)},
		{"clearsky_GHI", len(b.ClearSkyGHI)},
		{"station_id", len(b.StationIDs)},
		{"datetime_sequence", len(b.Datetimes)},
		{"labeled", len(b.Labeled)},
	}
	for _, l := range lengths {
		if l.n != n {
			return exception.NewShapeError(batchModule, fmt.Sprintf("%s has %d rows, images has %d", l.name, l.n, n))
		}
	}
	seq, size, horizons := b.SeqLength(), b.CropSize(), b.Horizons()
	for i := 0; i < n; i++ {
		if len(b.Images[i]) != seq || len(b.Datetimes[i]) != seq {
			return exception.NewShapeError(batchModule, fmt.Sprintf("sample %d has %d frames and %d timestamps, want %d", i, len(b.Images[i]), len(b.Datetimes[i]), seq))
		}
		for j, c := range b.Images[i] {
			if c.Size != size || !c.Valid() {
				return exception.NewShapeError(batchModule, fmt.Sprintf("sample %d frame %d is not a %dx%dx%d crop", i, j, size, size, NumChannels))
			}
		}
		if len(b.TrueGHI[i]) != horizons || len(b.ClearSkyGHI[i]) != horizons {
			return exception.NewShapeError(batchModule, fmt.Sprintf("sample %d label rows have %d and %d values, want %d", i, len(b.TrueGHI[i]), len(b.ClearSkyGHI[i]), horizons))
		}
	}
	return nil
}

func toFloat32(v LabelVector) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func nanRow(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.NaN())
	}
	return out
}
