// Package imagerytest writes small HDF5 imagery archives for tests.
package imagerytest

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/tigerroll/helios/internal/domain/model"
)

// Archive describes the contents of a fixture archive. Channels maps a
// channel name to its (record, row, col) values.
type Archive struct {
	Lat      []float32
	Lon      []float32
	Channels map[string][][][]float32
}

// Filled returns an archive of records x rows x cols where every channel
// value is fn(channel index, record, row, col). Lat and lon run 0, 1, 2, ...
func Filled(records, rows, cols int, fn func(ch, rec, row, col int) float32) Archive {
	a := Archive{Lat: make([]float32, rows), Lon: make([]float32, cols), Channels: map[string][][][]float32{}}
	for i := range a.Lat {
		a.Lat[i] = float32(i)
	}
	for j := range a.Lon {
		a.Lon[j] = float32(j)
	}
	for c, name := range model.ChannelNames {
		data := make([][][]float32, records)
		for r := range data {
			data[r] = make([][]float32, rows)
			for i := range data[r] {
				data[r][i] = make([]float32, cols)
				for j := range data[r][i] {
					data[r][i][j] = fn(c, r, i, j)
				}
			}
		}
		a.Channels[name] = data
	}
	return a
}

// Write stores a as an HDF5 file at path.
func Write(path string, a Archive) error {
	w, err := netcdf.OpenWriter(path, netcdf.KindHDF5)
	if err != nil {
		return fmt.Errorf("open writer %s: %w", path, err)
	}
	add := func(name string, values any, dims ...string) error {
		attrs, err := util.NewOrderedMap(nil, nil)
		if err != nil {
			return err
		}
		return w.AddVar(name, api.Variable{Values: values, Dimensions: dims, Attributes: attrs})
	}
	if a.Lat != nil {
		if err := add("lat", a.Lat, "row"); err != nil {
			w.Close()
			return fmt.Errorf("add lat: %w", err)
		}
	}
	if a.Lon != nil {
		if err := add("lon", a.Lon, "col"); err != nil {
			w.Close()
			return fmt.Errorf("add lon: %w", err)
		}
	}
	for _, name := range model.ChannelNames {
		data, ok := a.Channels[name]
		if !ok {
			continue
		}
		if err := add(name, data, "record", "row", "col"); err != nil {
			w.Close()
			return fmt.Errorf("add %s: %w", name, err)
		}
	}
	return w.Close()
}
