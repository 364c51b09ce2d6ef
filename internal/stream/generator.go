// Package stream serves evaluation batches for a list of target timestamps,
// one station at a time, without reading the batch files.
package stream

import (
	"fmt"
	"iter"
	"math"
	"math/rand"
	"time"

	"github.com/tigerroll/helios/internal/catalog"
	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

const module = "stream"

// Config sizes the generated chunks.
type Config struct {
	BatchSize  int
	ImageSizeM int
	ImageSizeN int
	Seed       int64
}

// Chunk is one yielded batch. Target duplicates TrueGHI.
type Chunk struct {
	Images      [][][][]float32 // len × m × n × channels
	ClearSkyGHI [][]float32     // len × horizons
	TrueGHI     [][]float32
	Target      [][]float32
	StationID   string
	Datetimes   []time.Time
}

// Len returns the number of T0 timestamps in the chunk.
func (c Chunk) Len() int { return len(c.Datetimes) }

// Generator walks stations in order and, for each, the targets in chunks of
// BatchSize. It is reusable: every traversal starts over with the same seed.
type Generator struct {
	labels   *catalog.Catalog
	targets  []time.Time
	stations []string
	offsets  []time.Duration
	cfg      Config
}

// NewGenerator validates cfg and creates a generator.
func NewGenerator(labels *catalog.Catalog, targets []time.Time, stations []string, offsets []time.Duration, cfg Config) (*Generator, error) {
	if cfg.BatchSize < 1 {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("batch_size must be at least 1, got %d", cfg.BatchSize), nil)
	}
	if cfg.ImageSizeM < 1 || cfg.ImageSizeN < 1 {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("image size %dx%d is invalid", cfg.ImageSizeM, cfg.ImageSizeN), nil)
	}
	return &Generator{labels: labels, targets: targets, stations: stations, offsets: offsets, cfg: cfg}, nil
}

// Len returns the number of chunks a traversal yields.
func (g *Generator) Len() int {
	perStation := (len(g.targets) + g.cfg.BatchSize - 1) / g.cfg.BatchSize
	return perStation * len(g.stations)
}

// Iter returns a fresh pull iterator.
func (g *Generator) Iter() *Iterator {
	return &Iterator{g: g, rng: rand.New(rand.NewSource(g.cfg.Seed))}
}

// All returns the chunks as a range-over-func sequence.
func (g *Generator) All() iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		it := g.Iter()
		for {
			c, ok := it.Next()
			if !ok || !yield(c) {
				return
			}
		}
	}
}

// Iterator is a single traversal of a Generator.
type Iterator struct {
	g       *Generator
	rng     *rand.Rand
	station int
	start   int
}

// Next returns the next chunk, or false once every station is done.
func (it *Iterator) Next() (Chunk, bool) {
	g := it.g
	if len(g.targets) == 0 || it.station >= len(g.stations) {
		return Chunk{}, false
	}
	end := it.start + g.cfg.BatchSize
	if end > len(g.targets) {
		end = len(g.targets)
	}
	id := g.stations[it.station]
	dts := g.targets[it.start:end]

	c := Chunk{StationID: id, Datetimes: append([]time.Time(nil), dts...)}
	c.TrueGHI, c.ClearSkyGHI = g.values(id, dts)
	c.Target = c.TrueGHI
	c.Images = it.images(len(dts))

	it.start = end
	if it.start >= len(g.targets) {
		it.start = 0
		it.station++
	}
	return c, true
}

// values looks up GHI at every T0 + offset. Missing rows and NaN become 0,
// as does true GHI when the catalog has no column for it.
func (g *Generator) values(id string, dts []time.Time) (trueGHI, clearSky [][]float32) {
	hasTrue := g.labels.HasColumn(id + catalog.GHISuffix)
	trueGHI = make([][]float32, len(dts))
	clearSky = make([][]float32, len(dts))
	for i, dt := range dts {
		trueGHI[i] = make([]float32, len(g.offsets))
		clearSky[i] = make([]float32, len(g.offsets))
		for j, off := range g.offsets {
			e, ok := g.labels.Lookup(dt.Add(off))
			if !ok {
				continue
			}
			r := e.Reading(id)
			clearSky[i][j] = zeroNaN(r.ClearSkyGHI)
			if hasTrue {
				trueGHI[i][j] = zeroNaN(r.GHI)
			}
		}
	}
	return trueGHI, clearSky
}

// images fills placeholder uniform [0, 1) imagery.
func (it *Iterator) images(n int) [][][][]float32 {
	m, w := it.g.cfg.ImageSizeM, it.g.cfg.ImageSizeN
	out := make([][][][]float32, n)
	for i := range out {
		out[i] = make([][][]float32, m)
		for r := range out[i] {
			out[i][r] = make([][]float32, w)
			for c := range out[i][r] {
				px := make([]float32, model.NumChannels)
				for ch := range px {
					px[ch] = it.rng.Float32()
				}
				out[i][r][c] = px
			}
		}
	}
	return out
}

func zeroNaN(v float64) float32 {
	if math.IsNaN(v) {
		return 0
	}
	return float32(v)
}
