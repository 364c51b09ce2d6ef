package batchfile_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/helios/internal/batchfile"
	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

var t0 = time.Date(2012, 6, 1, 15, 0, 0, 0, time.UTC)

func sample(id string, seed float32, labeled bool) model.Sample {
	s := model.Sample{StationID: id, T0: t0}
	for f := 0; f < 3; f++ {
		c := model.NewCrop(4)
		for i := range c.Data {
			c.Data[i] = seed + float32(f) + float32(i)/7
		}
		s.Frames = append(s.Frames, c)
		s.Timestamps = append(s.Timestamps, t0.Add(-time.Duration(f)*time.Hour))
	}
	if labeled {
		s.Label = model.Labeled(model.LabelPair{
			True:     model.LabelVector{410.5, 399.25, 120, 0},
			ClearSky: model.LabelVector{500, 480, 200, 1.5},
		})
	} else {
		s.Label = model.Unlabeled()
	}
	return s
}

func testBatch() *model.Batch {
	return model.NewBatch([]model.Sample{
		sample("BND", -1.25, true),
		sample("TBL", 3.5, false),
		sample("DRA", 0.1, true),
	}, 4)
}

func bits(rows [][]float32) [][]uint32 {
	out := make([][]uint32, len(rows))
	for i, r := range rows {
		out[i] = make([]uint32, len(r))
		for j, v := range r {
			out[i][j] = math.Float32bits(v)
		}
	}
	return out
}

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch_1.hdf5")
	want := testBatch()

	require.NoError(t, batchfile.Write(path, want))
	got, err := batchfile.Read(path)
	require.NoError(t, err)

	assert.Equal(t, want.Images, got.Images)
	assert.Equal(t, bits(want.TrueGHI), bits(got.TrueGHI), "NaN rows survive bit for bit")
	assert.Equal(t, bits(want.ClearSkyGHI), bits(got.ClearSkyGHI))
	assert.Equal(t, want.StationIDs, got.StationIDs)
	assert.Equal(t, want.Datetimes, got.Datetimes)
	assert.Equal(t, []uint8{1, 0, 1}, got.Labeled)
}

func TestWrite_RejectsInconsistentBatch(t *testing.T) {
	dir := t.TempDir()
	b := testBatch()
	b.StationIDs = b.StationIDs[:2]

	err := batchfile.Write(filepath.Join(dir, "batch_1.hdf5"), b)
	assert.ErrorIs(t, err, exception.ErrShapeMismatch)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRead_Missing(t *testing.T) {
	_, err := batchfile.Read(filepath.Join(t.TempDir(), "absent.hdf5"))
	assert.ErrorIs(t, err, exception.ErrArchiveIO)
}

func TestIndex_RoundTrip(t *testing.T) {
	b := testBatch()

	data, err := batchfile.EncodeIndex(b)
	require.NoError(t, err)
	rows, err := batchfile.DecodeIndex(data)
	require.NoError(t, err)

	assert.Equal(t, []batchfile.IndexRow{
		{Position: 0, StationID: "BND", T0: t0.UnixMilli(), Labeled: true},
		{Position: 1, StationID: "TBL", T0: t0.UnixMilli(), Labeled: false},
		{Position: 2, StationID: "DRA", T0: t0.UnixMilli(), Labeled: true},
	}, rows)
}

func TestDirWriter(t *testing.T) {
	dir := t.TempDir()
	w := batchfile.DirWriter{Dir: dir, WithIndex: true}

	files, err := w.Write(context.Background(), "batch_501", testBatch())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "batch_501.hdf5"), files.Batch)
	assert.Equal(t, filepath.Join(dir, "batch_501.parquet"), files.Index)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"batch_501.hdf5", "batch_501.parquet"}, names, "no temporary files remain")

	data, err := os.ReadFile(files.Index)
	require.NoError(t, err)
	rows, err := batchfile.DecodeIndex(data)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestDirWriter_WithoutIndex(t *testing.T) {
	w := batchfile.DirWriter{Dir: filepath.Join(t.TempDir(), "nested", "out")}

	files, err := w.Write(context.Background(), "batch_2", testBatch())
	require.NoError(t, err)
	assert.Empty(t, files.Index)
	assert.FileExists(t, files.Batch)
}
