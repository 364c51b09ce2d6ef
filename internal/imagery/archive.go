// Package imagery reads satellite imagery archives: the station grid
// coordinates and the per-record channel grids.
package imagery

import (
	"fmt"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// Archive is an opened imagery archive.
type Archive interface {
	// Record reads the 2-D grid of variable name at the given record.
	Record(name string, record int) ([][]float32, error)
	// Axis reads a coordinate variable. 1-D variables are read whole,
	// 2-D variables at record 0.
	Axis(name string) ([]float64, error)
	Close() error
}

// Opener opens archives by path.
type Opener interface {
	Open(path string) (Archive, error)
}

// NetCDFOpener opens HDF5 and classic NetCDF archives with go-native-netcdf.
type NetCDFOpener struct{}

// Open implements Opener.
func (NetCDFOpener) Open(path string) (Archive, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &netcdfArchive{group: g, path: path}, nil
}

type netcdfArchive struct {
	group api.Group
	path  string
}

func (a *netcdfArchive) Close() error {
	a.group.Close()
	return nil
}

func (a *netcdfArchive) Record(name string, record int) ([][]float32, error) {
	vg, err := a.group.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("%s: variable %s: %w", a.path, name, err)
	}
	shape := vg.Shape()
	if len(shape) != 3 {
		return nil, fmt.Errorf("%s: variable %s has %d dimensions, want (record, row, col)", a.path, name, len(shape))
	}
	if record < 0 || int64(record) >= shape[0] {
		return nil, fmt.Errorf("%s: record %d of %s is out of range [0, %d)", a.path, record, name, shape[0])
	}
	v, err := vg.GetSlice(int64(record), int64(record)+1)
	if err != nil {
		return nil, fmt.Errorf("%s: read %s[%d]: %w", a.path, name, record, err)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Len() != 1 {
		return nil, fmt.Errorf("%s: unexpected slice of %s[%d]", a.path, name, record)
	}
	return grid32(rv.Index(0))
}

func (a *netcdfArchive) Axis(name string) ([]float64, error) {
	vg, err := a.group.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("%s: variable %s: %w", a.path, name, err)
	}
	switch len(vg.Shape()) {
	case 1:
		v, err := vg.Values()
		if err != nil {
			return nil, fmt.Errorf("%s: read %s: %w", a.path, name, err)
		}
		return vector64(reflect.ValueOf(v))
	case 2:
		v, err := vg.GetSlice(0, 1)
		if err != nil {
			return nil, fmt.Errorf("%s: read %s[0]: %w", a.path, name, err)
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice || rv.Len() != 1 {
			return nil, fmt.Errorf("%s: unexpected slice of %s[0]", a.path, name)
		}
		return vector64(rv.Index(0))
	default:
		return nil, fmt.Errorf("%s: variable %s has %d dimensions, want 1 or 2", a.path, name, len(vg.Shape()))
	}
}

// grid32 converts a 2-D slice of any numeric type.
func grid32(rv reflect.Value) ([][]float32, error) {
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("want a 2-D slice, got %s", rv.Kind())
	}
	out := make([][]float32, rv.Len())
	for i := range out {
		row, err := vector64(rv.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = make([]float32, len(row))
		for j, x := range row {
			out[i][j] = float32(x)
		}
	}
	return out, nil
}

// vector64 converts a 1-D slice of any numeric type.
func vector64(rv reflect.Value) ([]float64, error) {
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("want a slice, got %s", rv.Kind())
	}
	out := make([]float64, rv.Len())
	for i := range out {
		e := rv.Index(i)
		switch e.Kind() {
		case reflect.Float32, reflect.Float64:
			out[i] = e.Float()
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out[i] = float64(e.Int())
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out[i] = float64(e.Uint())
		default:
			return nil, fmt.Errorf("unsupported element type %s", e.Type())
		}
	}
	return out, nil
}
