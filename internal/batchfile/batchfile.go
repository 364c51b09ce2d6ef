// Package batchfile persists batches as HDF5 containers.
package batchfile

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

const module = "batchfile"

// Extension is the suffix of batch files.
const Extension = ".hdf5"

// Array names inside a batch file.
const (
	VarImages   = "images"
	VarGHI      = "GHI"
	VarClearSky = "clearsky_GHI"
	VarStations = "station_id"
	VarDatetime = "datetime_sequence"
	VarLabeled  = "labeled"
)

// Write stores b at path. The file is written under a temporary name in the
// same directory and renamed into place once closed, so a failed write never
// leaves a partial batch behind.
func Write(path string, b *model.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return exception.NewStorageError(module, fmt.Sprintf("failed to create directory '%s'", dir), err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return exception.NewStorageError(module, "failed to create temporary batch file", err)
	}
	tmpName := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpName)

	if err := writeHDF5(tmpName, b); err != nil {
		return exception.NewStorageError(module, fmt.Sprintf("failed to write batch '%s'", path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return exception.NewStorageError(module, fmt.Sprintf("failed to move batch '%s' into place", path), err)
	}
	return nil
}

func writeHDF5(path string, b *model.Batch) (err error) {
	w, err := netcdf.OpenWriter(path, netcdf.KindHDF5)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	images := make([][][][][]float32, b.Len())
	datetimes := make([][]string, b.Len())
	for i := range images {
		images[i] = make([][][][]float32, len(b.Images[i]))
		for j, c := range b.Images[i] {
			images[i][j] = c.Nested()
		}
		datetimes[i] = make([]string, len(b.Datetimes[i]))
		for j, ts := range b.Datetimes[i] {
			datetimes[i][j] = ts.UTC().Format(model.DatetimeLayout)
		}
	}

	vars := []struct {
		name   string
		values any
		dims   []string
	}{
		{VarImages, images, []string{"sample", "seq", "row", "col", "channel"}},
		{VarGHI, b.TrueGHI, []string{"sample", "horizon"}},
		{VarClearSky, b.ClearSkyGHI, []string{"sample", "horizon"}},
		{VarStations, b.StationIDs, []string{"sample"}},
		{VarDatetime, datetimes, []string{"sample", "seq"}},
		{VarLabeled, b.Labeled, []string{"sample"}},
	}
	for _, v := range vars {
		attrs, err := util.NewOrderedMap(nil, nil)
		if err != nil {
			return err
		}
		if err := w.AddVar(v.name, api.Variable{Values: v.values, Dimensions: v.dims, Attributes: attrs}); err != nil {
			return fmt.Errorf("add %s: %w", v.name, err)
		}
	}
	return nil
}

// Read loads the batch stored at path.
func Read(path string) (*model.Batch, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, exception.NewArchiveError(module, fmt.Sprintf("failed to open batch '%s'", path), err)
	}
	defer g.Close()

	values := func(name string) (reflect.Value, error) {
		v, err := g.GetVariable(name)
		if err != nil {
			return reflect.Value{}, exception.NewArchiveError(module, fmt.Sprintf("batch '%s' has no %s", path, name), err)
		}
		return reflect.ValueOf(v.Values), nil
	}

	b := &model.Batch{}
	rv, err := values(VarImages)
	if err != nil {
		return nil, err
	}
	if b.Images, err = decodeImages(rv); err != nil {
		return nil, readError(path, VarImages, err)
	}
	if rv, err = values(VarGHI); err != nil {
		return nil, err
	}
	if b.TrueGHI, err = decodeMatrix(rv); err != nil {
		return nil, readError(path, VarGHI, err)
	}
	if rv, err = values(VarClearSky); err != nil {
		return nil, err
	}
	if b.ClearSkyGHI, err = decodeMatrix(rv); err != nil {
		return nil, readError(path, VarClearSky, err)
	}
	if rv, err = values(VarStations); err != nil {
		return nil, err
	}
	if b.StationIDs, err = decodeStrings(rv); err != nil {
		return nil, readError(path, VarStations, err)
	}
	if rv, err = values(VarDatetime); err != nil {
		return nil, err
	}
	if b.Datetimes, err = decodeDatetimes(rv); err != nil {
		return nil, readError(path, VarDatetime, err)
	}
	if rv, err = values(VarLabeled); err != nil {
		return nil, err
	}
	if b.Labeled, err = decodeMask(rv); err != nil {
		return nil, readError(path, VarLabeled, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func readError(path, name string, err error) error {
	return exception.NewArchiveError(module, fmt.Sprintf("batch '%s': bad %s", path, name), err)
}

func slice(rv reflect.Value) (reflect.Value, error) {
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice {
		return rv, fmt.Errorf("want a slice, got %s", rv.Kind())
	}
	return rv, nil
}

func decodeImages(rv reflect.Value) ([][]model.Crop, error) {
	rv, err := slice(rv)
	if err != nil {
		return nil, err
	}
	out := make([][]model.Crop, rv.Len())
	for i := range out {
		seq, err := slice(rv.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = make([]model.Crop, seq.Len())
		for j := range out[i] {
			v, ok := seq.Index(j).Interface().([][][]float32)
			if !ok {
				return nil, fmt.Errorf("image [%d][%d] is %s, want float32 crop", i, j, seq.Index(j).Type())
			}
			out[i][j] = model.CropFromNested(v)
		}
	}
	return out, nil
}

func decodeMatrix(rv reflect.Value) ([][]float32, error) {
	rv, err := slice(rv)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, rv.Len())
	for i := range out {
		row, ok := rv.Index(i).Interface().([]float32)
		if !ok {
			return nil, fmt.Errorf("row %d is %s, want []float32", i, rv.Index(i).Type())
		}
		out[i] = row
	}
	return out, nil
}

func decodeStrings(rv reflect.Value) ([]string, error) {
	rv, err := slice(rv)
	if err != nil {
		return nil, err
	}
	out := make([]string, rv.Len())
	for i := range out {
		e := rv.Index(i)
		if e.Kind() == reflect.Interface {
			e = e.Elem()
		}
		if e.Kind() != reflect.String {
			return nil, fmt.Errorf("element %d is %s, want string", i, e.Kind())
		}
		out[i] = e.String()
	}
	return out, nil
}

func decodeDatetimes(rv reflect.Value) ([][]time.Time, error) {
	rv, err := slice(rv)
	if err != nil {
		return nil, err
	}
	out := make([][]time.Time, rv.Len())
	for i := range out {
		row, err := decodeStrings(rv.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = make([]time.Time, len(row))
		for j, s := range row {
			ts, err := time.Parse(model.DatetimeLayout, s)
			if err != nil {
				return nil, err
			}
			out[i][j] = ts
		}
	}
	return out, nil
}

// decodeMask accepts any integer type; HDF5 readers may report the mask as
// signed bytes.
func decodeMask(rv reflect.Value) ([]uint8, error) {
	rv, err := slice(rv)
	if err != nil {
		return nil, err
	}
	out := make([]uint8, rv.Len())
	for i := range out {
		e := rv.Index(i)
		switch e.Kind() {
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out[i] = uint8(e.Int())
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out[i] = uint8(e.Uint())
		default:
			return nil, fmt.Errorf("element %d is %s, want an integer", i, e.Kind())
		}
	}
	return out, nil
}
