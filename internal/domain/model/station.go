// Package model holds the domain types shared by the Helios batch builder.
package model

import "sort"

// Station is a ground station measuring irradiance.
type Station struct {
	ID        string
	Latitude  float64
	Longitude float64
	Elevation float64
}

// PixelCoord is a cell of the imagery grid.
type PixelCoord struct {
	Row int
	Col int
}

// StationCoords maps station ids to their grid cell. It is computed once per
// run and only read afterwards.
type StationCoords map[string]PixelCoord

// StationIDs returns the keys of a station-keyed map in sorted order.
func StationIDs[V any](stations map[string]V) []string {
	ids := make([]string, 0, len(stations))
	for id := range stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
