package catalog

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

// Preprocess prepares the primary catalog for batch building:
// sort by timestamp, drop rows without archive paths, drop rows where every
// station is at night, then shuffle with rng. The result is a new catalog.
func Preprocess(c *Catalog, stationIDs []string, rng *rand.Rand) (*Catalog, error) {
	for _, id := range stationIDs {
		if !c.HasColumn(id + DaytimeSuffix) {
			return nil, exception.NewConfigurationError(moduleName,
				fmt.Sprintf("station %s has no %s column", id, id+DaytimeSuffix), nil)
		}
	}

	sorted := make([]Entry, len(c.entries))
	copy(sorted, c.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	kept := sorted[:0]
	var noArchive, allNight int
	for _, e := range sorted {
		switch {
		case !e.Usable():
			noArchive++
		case allStationsNight(e, stationIDs):
			allNight++
		default:
			kept = append(kept, e)
		}
	}

	rng.Shuffle(len(kept), func(i, j int) { kept[i], kept[j] = kept[j], kept[i] })
	logger.Infof("Catalog preprocessed: %d rows kept, %d without archives, %d at night for every station.",
		len(kept), noArchive, allNight)
	return c.derive(kept), nil
}

// allStationsNight reports whether every station's daytime flag is exactly 0.
// A NaN flag counts as not night.
func allStationsNight(e Entry, stationIDs []string) bool {
	if len(stationIDs) == 0 {
		return false
	}
	for _, id := range stationIDs {
		if e.Reading(id).Daytime != 0 {
			return false
		}
	}
	return true
}
