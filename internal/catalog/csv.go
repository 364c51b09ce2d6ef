package catalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

const moduleName = "catalog"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
}

// LoadCSV decodes a catalog export. Only the per-station columns of the
// given stations are kept. Sentinel nulls ("nan", "NaN", empty) become NaN
// or the empty path.
func LoadCSV(r io.Reader, stationIDs []string) (*Catalog, error) {
	var head bytes.Buffer
	header, err := csv.NewReader(io.TeeReader(r, &head)).Read()
	if err != nil && err != io.EOF {
		return nil, exception.NewConfigurationError(moduleName, "failed to read catalog CSV header", err)
	}
	rows, err := gocsv.CSVToMaps(io.MultiReader(&head, r))
	if err != nil {
		return nil, exception.NewConfigurationError(moduleName, "failed to decode catalog CSV", err)
	}

	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[strings.TrimSpace(name)] = true
	}
	var columns []string
	for _, id := range stationIDs {
		for _, suffix := range []string{DaytimeSuffix, GHISuffix, ClearSkyGHISuffix} {
			if present[id+suffix] {
				columns = append(columns, id+suffix)
			}
		}
	}

	entries := make([]Entry, 0, len(rows))
	seen := make(map[int64]int, len(rows))
	for i, row := range rows {
		e, err := parseRow(row, stationIDs)
		if err != nil {
			return nil, exception.NewConfigurationError(moduleName, fmt.Sprintf("catalog row %d", i+1), err)
		}
		if prev, dup := seen[key(e.Timestamp)]; dup {
			return nil, exception.NewConfigurationError(moduleName,
				fmt.Sprintf("catalog rows %d and %d share timestamp %s", prev+1, i+1, e.Timestamp.Format(time.RFC3339)), nil)
		}
		seen[key(e.Timestamp)] = i
		entries = append(entries, e)
	}
	return New(entries, columns), nil
}

func parseRow(row map[string]string, stationIDs []string) (Entry, error) {
	raw, ok := row["iso-datetime"]
	if !ok {
		raw, ok = row["datetime"]
	}
	if !ok {
		return Entry{}, fmt.Errorf("no iso-datetime or datetime column")
	}
	ts, err := parseTimestamp(raw)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		Timestamp:  ts,
		NCDFPath:   nullPath(row["ncdf_path"]),
		HDF5Path:   nullPath(row["hdf5_8bit_path"]),
		HDF5Offset: -1,
		Readings:   make(map[string]Reading, len(stationIDs)),
	}
	if off := nullFloat(row["hdf5_8bit_offset"]); !math.IsNaN(off) {
		e.HDF5Offset = int(off)
	}
	for _, id := range stationIDs {
		e.Readings[id] = Reading{
			Daytime:     nullFloat(row[id+DaytimeSuffix]),
			GHI:         nullFloat(row[id+GHISuffix]),
			ClearSkyGHI: nullFloat(row[id+ClearSkyGHISuffix]),
		}
	}
	return e, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func isNull(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "nan", "NaN", "NAN", "None", "NaT":
		return true
	}
	return false
}

func nullPath(s string) string {
	if isNull(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

func nullFloat(s string) float64 {
	if isNull(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
