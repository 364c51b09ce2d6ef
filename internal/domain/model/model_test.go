package model_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

func sample(id string, label model.Label) model.Sample {
	t0 := time.Date(2012, 6, 1, 18, 0, 0, 0, time.UTC)
	return model.Sample{
		StationID:  id,
		T0:         t0,
		Frames:     []model.Crop{model.NewCrop(4), model.NewCrop(4)},
		Timestamps: []time.Time{t0, t0.Add(-time.Hour)},
		Label:      label,
	}
}

func TestCrop_IndexingAndNested(t *testing.T) {
	c := model.NewCrop(3)
	require.True(t, c.Valid())
	c.Set(1, 2, 4, 7.5)
	assert.Equal(t, float32(7.5), c.At(1, 2, 4))
	assert.Equal(t, float32(7.5), c.Data[(1*3+2)*model.NumChannels+4])

	nested := c.Nested()
	assert.Equal(t, float32(7.5), nested[1][2][4])
	assert.Equal(t, c, model.CropFromNested(nested))
}

func TestLabel_Variants(t *testing.T) {
	pair := model.LabelPair{True: model.LabelVector{1, 2}, ClearSky: model.LabelVector{3, 4}}
	l := model.Labeled(pair)
	got, ok := l.Pair()
	assert.True(t, ok)
	assert.True(t, l.IsLabeled())
	assert.Equal(t, pair, got)

	_, ok = model.Unlabeled().Pair()
	assert.False(t, ok)
	assert.True(t, model.LabelVector{0, math.NaN()}.HasNaN())
	assert.False(t, model.LabelVector{0, 1}.HasNaN())
}

func TestNewBatch(t *testing.T) {
	pair := model.LabelPair{True: model.LabelVector{10, 20, 30, 40}, ClearSky: model.LabelVector{11, 21, 31, 41}}
	b := model.NewBatch([]model.Sample{
		sample("BND", model.Labeled(pair)),
		sample("TBL", model.Unlabeled()),
	}, 4)

	require.NoError(t, b.Validate())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 2, b.SeqLength())
	assert.Equal(t, 4, b.CropSize())
	assert.Equal(t, 4, b.Horizons())
	assert.Equal(t, []uint8{1, 0}, b.Labeled)
	assert.Equal(t, []float32{10, 20, 30, 40}, b.TrueGHI[0])
	assert.True(t, math.IsNaN(float64(b.ClearSkyGHI[1][3])))
	assert.Equal(t, []string{"BND", "TBL"}, b.StationIDs)
}

func TestBatch_ValidateShapeMismatch(t *testing.T) {
	pair := model.LabelPair{True: model.LabelVector{1}, ClearSky: model.LabelVector{1}}
	b := model.NewBatch([]model.Sample{sample("BND", model.Labeled(pair)), sample("TBL", model.Labeled(pair))}, 1)

	b.StationIDs = b.StationIDs[:1]
	err := b.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrShapeMismatch)
	assert.Contains(t, err.Error(), "station_id has 1 rows")

	b = model.NewBatch([]model.Sample{sample("BND", model.Labeled(pair)), sample("TBL", model.Labeled(pair))}, 1)
	b.Images[1] = b.Images[1][:1]
	assert.ErrorIs(t, b.Validate(), exception.ErrShapeMismatch)
}

func TestStationIDs_Sorted(t *testing.T) {
	ids := model.StationIDs(map[string]model.Station{"TBL": {}, "BND": {}, "DRA": {}})
	assert.Equal(t, []string{"BND", "DRA", "TBL"}, ids)

	ids = model.StationIDs(model.StationCoords{"TBL": {Row: 1, Col: 1}, "BND": {Row: 2, Col: 2}})
	assert.Equal(t, []string{"BND", "TBL"}, ids)
}
