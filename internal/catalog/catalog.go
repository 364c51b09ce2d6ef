// Package catalog holds the time-indexed table of imagery pointers and
// per-station irradiance readings.
package catalog

import (
	"math"
	"time"
)

// Column suffixes of the per-station readings.
const (
	DaytimeSuffix     = "_DAYTIME"
	GHISuffix         = "_GHI"
	ClearSkyGHISuffix = "_CLEARSKY_GHI"
)

// Reading is one station's values at one timestamp. Missing values are NaN.
type Reading struct {
	Daytime     float64
	GHI         float64
	ClearSkyGHI float64
}

// MissingReading is the reading of a station absent from a row.
func MissingReading() Reading {
	return Reading{Daytime: math.NaN(), GHI: math.NaN(), ClearSkyGHI: math.NaN()}
}

// Entry is one catalog row.
type Entry struct {
	Timestamp  time.Time
	NCDFPath   string
	HDF5Path   string
	HDF5Offset int
	Readings   map[string]Reading
}

// Reading returns the station's reading, or MissingReading when absent.
func (e Entry) Reading(stationID string) Reading {
	if r, ok := e.Readings[stationID]; ok {
		return r
	}
	return MissingReading()
}

// Usable reports whether the entry points to both archives.
func (e Entry) Usable() bool {
	return e.HDF5Path != "" && e.NCDFPath != ""
}

// Catalog is an ordered set of entries with unique timestamps and an index by
// timestamp. It is read-only once built and safe for concurrent readers.
type Catalog struct {
	entries []Entry
	index   map[int64]int
	columns map[string]bool
}

// New builds a catalog over entries, kept in the given order. columns lists
// the per-station columns present in the source.
func New(entries []Entry, columns []string) *Catalog {
	cols := make(map[string]bool, len(columns))
	for _, c := range columns {
		cols[c] = true
	}
	c := &Catalog{entries: entries, columns: cols}
	c.reindex()
	return c
}

func (c *Catalog) reindex() {
	c.index = make(map[int64]int, len(c.entries))
	for i, e := range c.entries {
		c.index[key(e.Timestamp)] = i
	}
}

func (c *Catalog) derive(entries []Entry) *Catalog {
	d := &Catalog{entries: entries, columns: c.columns}
	d.reindex()
	return d
}

func key(t time.Time) int64 { return t.UTC().UnixNano() }

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// At returns the i-th entry.
func (c *Catalog) At(i int) Entry { return c.entries[i] }

// Slice returns the entries in [start, end). end is clamped to Len.
func (c *Catalog) Slice(start, end int) []Entry {
	if end > len(c.entries) {
		end = len(c.entries)
	}
	if start >= end {
		return nil
	}
	return c.entries[start:end]
}

// Lookup returns the entry at ts.
func (c *Catalog) Lookup(ts time.Time) (Entry, bool) {
	i, ok := c.index[key(ts)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// HasColumn reports whether the source had the named column, e.g. "BND_GHI".
func (c *Catalog) HasColumn(name string) bool { return c.columns[name] }

// Window returns the entries with from <= Timestamp <= to, in the current order.
func (c *Catalog) Window(from, to time.Time) *Catalog {
	var out []Entry
	for _, e := range c.entries {
		if !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			out = append(out, e)
		}
	}
	return c.derive(out)
}

// Timestamps returns every entry's timestamp in catalog order.
func (c *Catalog) Timestamps() []time.Time {
	out := make([]time.Time, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Timestamp
	}
	return out
}

// IsNight reports whether the station's daytime flag at ts is exactly 0.
// Missing rows and NaN flags do not count as night.
func (c *Catalog) IsNight(ts time.Time, stationID string) bool {
	e, ok := c.Lookup(ts)
	if !ok {
		return false
	}
	return e.Reading(stationID).Daytime == 0
}
