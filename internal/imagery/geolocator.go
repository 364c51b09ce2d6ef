package imagery

import (
	"math"
	"sync"

	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

// Geolocator maps stations to the grid of a reference archive.
type Geolocator struct {
	opener        Opener
	referencePath string
	stations      map[string]model.Station

	mu     sync.Mutex
	coords model.StationCoords
}

// NewGeolocator creates a geolocator reading the lat/lon grid of referencePath.
func NewGeolocator(opener Opener, referencePath string, stations map[string]model.Station) *Geolocator {
	return &Geolocator{opener: opener, referencePath: referencePath, stations: stations}
}

// Coordinates returns every station's grid cell. The archive is read on the
// first successful call only; later calls return the same map, which
// callers must not modify.
func (g *Geolocator) Coordinates() (model.StationCoords, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.coords != nil {
		return g.coords, nil
	}

	a, err := g.opener.Open(g.referencePath)
	if err != nil {
		return nil, exception.NewArchiveError("geolocator", "failed to open reference archive", err)
	}
	defer a.Close()
	lats, err := a.Axis("lat")
	if err != nil {
		return nil, exception.NewArchiveError("geolocator", "failed to read lat", err)
	}
	lons, err := a.Axis("lon")
	if err != nil {
		return nil, exception.NewArchiveError("geolocator", "failed to read lon", err)
	}
	if len(lats) == 0 || len(lons) == 0 {
		return nil, exception.NewArchiveError("geolocator", "reference archive has an empty lat/lon grid", nil)
	}

	g.coords = Locate(lats, lons, g.stations)
	for id, c := range g.coords {
		logger.Debugf("Station %s located at grid cell (%d, %d).", id, c.Row, c.Col)
	}
	return g.coords, nil
}

// Locate returns, for every station, the row of the nearest latitude and the
// column of the nearest longitude. Ties go to the lowest index, and stations
// outside the grid land on the nearest edge.
func Locate(lats, lons []float64, stations map[string]model.Station) model.StationCoords {
	coords := make(model.StationCoords, len(stations))
	for id, s := range stations {
		coords[id] = model.PixelCoord{Row: argminAbs(lats, s.Latitude), Col: argminAbs(lons, s.Longitude)}
	}
	return coords
}

func argminAbs(axis []float64, target float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, v := range axis {
		if d := math.Abs(v - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
