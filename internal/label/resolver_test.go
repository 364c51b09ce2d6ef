package label_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/helios/internal/catalog"
	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/internal/label"
)

var t0 = time.Date(2012, 6, 1, 15, 0, 0, 0, time.UTC)

func entry(ts time.Time, daytime, ghi, clearsky float64) catalog.Entry {
	return catalog.Entry{
		Timestamp:  ts,
		NCDFPath:   "a.nc",
		HDF5Path:   "a.h5",
		HDF5Offset: 0,
		Readings:   map[string]catalog.Reading{"BND": {Daytime: daytime, GHI: ghi, ClearSkyGHI: clearsky}},
	}
}

func offsets() []time.Duration {
	return []time.Duration{0, time.Hour, 3 * time.Hour, 6 * time.Hour}
}

func fullCatalog(mutate func([]catalog.Entry)) *catalog.Catalog {
	entries := []catalog.Entry{
		entry(t0, 1, 500, 600),
		entry(t0.Add(time.Hour), 1, 510, 610),
		entry(t0.Add(3*time.Hour), 1, 300, 400),
		entry(t0.Add(6*time.Hour), 0, 0, 0),
	}
	if mutate != nil {
		mutate(entries)
	}
	return catalog.New(entries, []string{"BND_DAYTIME", "BND_GHI", "BND_CLEARSKY_GHI"})
}

func TestResolve_Complete(t *testing.T) {
	r := label.NewResolver(fullCatalog(nil), offsets())

	pair, ok := r.Resolve(t0, "BND")

	assert.True(t, ok)
	assert.Equal(t, model.LabelVector{500, 510, 300, 0}, pair.True)
	assert.Equal(t, model.LabelVector{600, 610, 400, 0}, pair.ClearSky)
	assert.Equal(t, 4, r.Horizons())
	assert.True(t, r.Label(t0, "BND").IsLabeled())
}

func TestResolve_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]catalog.Entry)
		at     time.Time
	}{
		{"night at T0", func(e []catalog.Entry) { e[0] = entry(t0, 0, 0, 0) }, t0},
		{"NaN true value", func(e []catalog.Entry) { e[2] = entry(t0.Add(3*time.Hour), 1, math.NaN(), 400) }, t0},
		{"NaN clear-sky value", func(e []catalog.Entry) { e[1] = entry(t0.Add(time.Hour), 1, 510, math.NaN()) }, t0},
		{"missing target row", func(e []catalog.Entry) { e[3].Timestamp = t0.Add(7 * time.Hour) }, t0},
		{"missing T0 row", nil, t0.Add(-time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := label.NewResolver(fullCatalog(tt.mutate), offsets())

			pair, ok := r.Resolve(tt.at, "BND")

			assert.False(t, ok)
			assert.Nil(t, pair.True, "partial vectors are never returned")
			assert.Nil(t, pair.ClearSky)
			assert.False(t, r.Label(tt.at, "BND").IsLabeled())
		})
	}
}

func TestResolve_UnknownStation(t *testing.T) {
	r := label.NewResolver(fullCatalog(nil), offsets())
	_, ok := r.Resolve(t0, "XXX")
	assert.False(t, ok)
}
