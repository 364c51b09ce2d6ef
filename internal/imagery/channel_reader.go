package imagery

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

const readerModule = "imagery"

// ChannelSet holds the stacked channel grids of one archive record, indexed
// like model.ChannelNames.
type ChannelSet struct {
	Rows     int
	Cols     int
	Channels [model.NumChannels][][]float32
}

// ChannelReader reads the five crop channels of a record. Decoded sets are
// kept in an LRU cache shared by all workers.
type ChannelReader struct {
	opener Opener
	cache  *lru.Cache
}

// NewChannelReader creates a reader. A cacheSize below 1 disables caching.
func NewChannelReader(opener Opener, cacheSize int) (*ChannelReader, error) {
	r := &ChannelReader{opener: opener}
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create channel cache: %w", err)
		}
		r.cache = c
	}
	return r, nil
}

// Read returns the channels of path at record offset. Any failure is an
// exception.ErrArchiveIO error; nothing is substituted.
func (r *ChannelReader) Read(ctx context.Context, path string, offset int) (*ChannelSet, error) {
	key := fmt.Sprintf("%s#%d", path, offset)
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			return v.(*ChannelSet), nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, exception.NewArchiveError(readerModule, "entry has no archive path", nil)
	}
	if offset < 0 {
		return nil, exception.NewArchiveError(readerModule, fmt.Sprintf("%s: invalid record offset %d", path, offset), nil)
	}

	a, err := r.opener.Open(path)
	if err != nil {
		return nil, exception.NewArchiveError(readerModule, "failed to open archive", err)
	}
	defer a.Close()

	set := &ChannelSet{}
	for i, name := range model.ChannelNames {
		grid, err := a.Record(name, offset)
		if err != nil {
			return nil, exception.NewArchiveError(readerModule, fmt.Sprintf("failed to read %s", name), err)
		}
		rows, cols := len(grid), 0
		if rows > 0 {
			cols = len(grid[0])
		}
		if i == 0 {
			set.Rows, set.Cols = rows, cols
		}
		if rows != set.Rows || cols != set.Cols || !rectangular(grid, cols) {
			return nil, exception.NewArchiveError(readerModule,
				fmt.Sprintf("%s: %s is %dx%d, %s is %dx%d", path, name, rows, cols, model.ChannelNames[0], set.Rows, set.Cols), exception.ErrShapeMismatch)
		}
		set.Channels[i] = grid
	}
	if r.cache != nil {
		r.cache.Add(key, set)
	}
	return set, nil
}

func rectangular(grid [][]float32, cols int) bool {
	for _, row := range grid {
		if len(row) != cols {
			return false
		}
	}
	return true
}
