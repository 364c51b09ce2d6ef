// Package label resolves the forecast targets of a (station, T0) pair.
package label

import (
	"time"

	"github.com/tigerroll/helios/internal/catalog"
	"github.com/tigerroll/helios/internal/domain/model"
)

// Resolver looks up measured and clear-sky GHI at T0 plus each target offset.
// It reads the full catalog, not the preprocessed one, so that targets past a
// dropped night row are still found.
type Resolver struct {
	catalog *catalog.Catalog
	offsets []time.Duration
}

// NewResolver creates a resolver over c for the given forward offsets.
func NewResolver(c *catalog.Catalog, offsets []time.Duration) *Resolver {
	return &Resolver{catalog: c, offsets: offsets}
}

// Horizons returns the number of target offsets.
func (r *Resolver) Horizons() int { return len(r.offsets) }

// Resolve returns the label pair of stationID at t0. The pair is unavailable
// when the station is at night at t0, or when any target row is missing or
// holds NaN in either vector.
func (r *Resolver) Resolve(t0 time.Time, stationID string) (model.LabelPair, bool) {
	if r.catalog.IsNight(t0, stationID) {
		return model.LabelPair{}, false
	}
	pair := model.LabelPair{
		True:     make(model.LabelVector, len(r.offsets)),
		ClearSky: make(model.LabelVector, len(r.offsets)),
	}
	for i, off := range r.offsets {
		e, ok := r.catalog.Lookup(t0.Add(off))
		if !ok {
			return model.LabelPair{}, false
		}
		rd := e.Reading(stationID)
		pair.True[i] = rd.GHI
		pair.ClearSky[i] = rd.ClearSkyGHI
	}
	if pair.True.HasNaN() || pair.ClearSky.HasNaN() {
		return model.LabelPair{}, false
	}
	return pair, true
}

// Label returns the tagged label of stationID at t0.
func (r *Resolver) Label(t0 time.Time, stationID string) model.Label {
	if pair, ok := r.Resolve(t0, stationID); ok {
		return model.Labeled(pair)
	}
	return model.Unlabeled()
}
