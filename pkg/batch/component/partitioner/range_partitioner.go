// Package partitioner splits an index space into disjoint half-open ranges
// that partition workers process independently.
package partitioner

import (
	"context"
	"fmt"

	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

// Range is one half-open index range [Start, End) with a stable partition name.
type Range struct {
	Name  string
	Start int
	End   int
}

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.End - r.Start }

func (r Range) String() string {
	return fmt.Sprintf("%s[%d, %d)", r.Name, r.Start, r.End)
}

// PartitionName returns the name of the i-th partition.
func PartitionName(i int) string {
	return fmt.Sprintf("partition%d", i)
}

// RangePartitioner cuts [Start, End) into consecutive ranges of Size indices.
type RangePartitioner struct {
	start int
	end   int
	size  int
}

// NewRangePartitioner validates the bounds and returns a partitioner.
func NewRangePartitioner(start, end, size int) (*RangePartitioner, error) {
	if size < 1 {
		return nil, fmt.Errorf("range size must be at least 1, got %d", size)
	}
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid index space [%d, %d)", start, end)
	}
	return &RangePartitioner{start: start, end: end, size: size}, nil
}

// Partition returns the ranges in ascending order. Ranges are clamped to
// limit (typically the catalog length); ranges that start at or beyond limit
// are not returned.
func (p *RangePartitioner) Partition(ctx context.Context, limit int) ([]Range, error) {
	end := p.end
	if limit < end {
		end = limit
	}
	var ranges []Range
	for lo := p.start; lo < end; lo += p.size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hi := lo + p.size
		if hi > end {
			hi = end
		}
		ranges = append(ranges, Range{Name: PartitionName(len(ranges)), Start: lo, End: hi})
	}
	logger.Debugf("RangePartitioner: [%d, %d) clamped to %d gives %d partitions of size %d.", p.start, p.end, limit, len(ranges), p.size)
	return ranges, nil
}
