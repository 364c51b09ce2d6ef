// Package crop cuts normalized per-station image sequences out of the
// imagery archives referenced by the catalog.
package crop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tigerroll/helios/internal/catalog"
	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/internal/imagery"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

const module = "crop"

// MaxHalfWindow is the exclusive upper bound of the half-window.
const MaxHalfWindow = 42

// ErrNoData is wrapped in the skippable error Build returns when T0 itself is
// absent from the catalog.
var ErrNoData = errors.New("no imagery at T0")

// Per-channel normalization constants, in model.ChannelNames order.
var (
	Means = [model.NumChannels]float64{0.30, 272.52, 236.94, 261.47, 247.28}
	Stds  = [model.NumChannels]float64{0.218, 13.66, 6.49, 15.91, 11.15}
)

// Normalize standardizes a raw value of channel ch.
func Normalize(ch int, v float32) float32 {
	return float32((float64(v) - Means[ch]) / Stds[ch])
}

// ChannelSource reads the stacked channels of an archive record.
type ChannelSource interface {
	Read(ctx context.Context, path string, offset int) (*imagery.ChannelSet, error)
}

// LabelSource returns the tagged label of a station at T0.
type LabelSource interface {
	Label(t0 time.Time, stationID string) model.Label
}

// Options configures an Engine.
type Options struct {
	// HalfWindow is w in the 2w x 2w crop.
	HalfWindow int
	// LookbackOffsets are subtracted from T0; the first is expected to be 0.
	LookbackOffsets []time.Duration
	// SeqLength is the number of lookback offsets used.
	SeqLength int
}

// Engine builds samples for one T0 at a time. It holds only read-only state
// and may be shared by workers.
type Engine struct {
	source   ChannelSource
	labels   LabelSource
	coords   model.StationCoords
	stations []string
	opts     Options
}

// NewEngine validates opts and creates an engine.
func NewEngine(source ChannelSource, labels LabelSource, coords model.StationCoords, opts Options) (*Engine, error) {
	if opts.HalfWindow < 1 || opts.HalfWindow >= MaxHalfWindow {
		return nil, exception.NewConfigurationError(module,
			fmt.Sprintf("half window %d is out of range, it must be at least 1 and below %d", opts.HalfWindow, MaxHalfWindow), nil)
	}
	if opts.SeqLength < 1 || opts.SeqLength > len(opts.LookbackOffsets) {
		return nil, exception.NewConfigurationError(module,
			fmt.Sprintf("sequence length %d needs between 1 and %d lookback offsets", opts.SeqLength, len(opts.LookbackOffsets)), nil)
	}
	if source == nil || labels == nil {
		return nil, exception.NewConfigurationError(module, "channel source and label source are required", nil)
	}
	return &Engine{
		source:   source,
		labels:   labels,
		coords:   coords,
		stations: model.StationIDs(coords),
		opts:     opts,
	}, nil
}

// CropSize returns the crop edge length.
func (e *Engine) CropSize() int { return 2 * e.opts.HalfWindow }

// Build returns one sample per station that is daytime at t0, in station-id
// order. Lookback frames missing from primary reuse the T0 imagery but keep
// their own timestamp. When t0 is not in primary Build returns a skippable
// error wrapping ErrNoData.
func (e *Engine) Build(ctx context.Context, primary, labelCatalog *catalog.Catalog, t0 time.Time) ([]model.Sample, error) {
	t0Entry, ok := primary.Lookup(t0)
	if !ok {
		return nil, exception.NewSkippableError(module, fmt.Sprintf("T0 %s not in catalog", t0.Format(model.DatetimeLayout)), ErrNoData)
	}

	var included []string
	for _, id := range e.stations {
		if !labelCatalog.IsNight(t0, id) {
			included = append(included, id)
		}
	}
	if len(included) == 0 {
		return nil, nil
	}

	samples := make([]model.Sample, len(included))
	for k, id := range included {
		samples[k] = model.Sample{
			StationID:  id,
			T0:         t0,
			Frames:     make([]model.Crop, 0, e.opts.SeqLength),
			Timestamps: make([]time.Time, 0, e.opts.SeqLength),
		}
	}

	for i := 0; i < e.opts.SeqLength; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ts := t0.Add(-e.opts.LookbackOffsets[i])
		entry, ok := primary.Lookup(ts)
		if !ok {
			entry = t0Entry
		}
		set, err := e.source.Read(ctx, entry.HDF5Path, entry.HDF5Offset)
		if err != nil {
			return nil, err
		}
		for k, id := range included {
			c, err := e.cut(set, e.coords[id])
			if err != nil {
				return nil, exception.NewShapeError(module, fmt.Sprintf("station %s at %s: %s", id, ts.Format(model.DatetimeLayout), err))
			}
			samples[k].Frames = append(samples[k].Frames, c)
			samples[k].Timestamps = append(samples[k].Timestamps, ts)
		}
	}

	for k, id := range included {
		samples[k].Label = e.labels.Label(t0, id)
	}
	return samples, nil
}

// cut extracts rows [r-w, r+w) and columns [c-w, c+w) around p.
func (e *Engine) cut(set *imagery.ChannelSet, p model.PixelCoord) (model.Crop, error) {
	w := e.opts.HalfWindow
	if p.Row-w < 0 || p.Col-w < 0 || p.Row+w > set.Rows || p.Col+w > set.Cols {
		return model.Crop{}, fmt.Errorf("window of half size %d around (%d, %d) leaves the %dx%d grid", w, p.Row, p.Col, set.Rows, set.Cols)
	}
	c := model.NewCrop(2 * w)
	for ch := 0; ch < model.NumChannels; ch++ {
		grid := set.Channels[ch]
		for r := 0; r < 2*w; r++ {
			row := grid[p.Row-w+r]
			for col := 0; col < 2*w; col++ {
				c.Set(r, col, ch, Normalize(ch, row[p.Col-w+col]))
			}
		}
	}
	return c, nil
}
