package partitioner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/helios/pkg/batch/component/partitioner"
)

func TestRangePartitioner_Partition(t *testing.T) {
	p, err := partitioner.NewRangePartitioner(0, 2000, 500)
	require.NoError(t, err)

	ranges, err := p.Partition(context.Background(), 1200)
	require.NoError(t, err)
	assert.Equal(t, []partitioner.Range{
		{Name: "partition0", Start: 0, End: 500},
		{Name: "partition1", Start: 500, End: 1000},
		{Name: "partition2", Start: 1000, End: 1200},
	}, ranges)
	assert.Equal(t, 200, ranges[2].Len())
	assert.Equal(t, "partition2[1000, 1200)", ranges[2].String())
}

func TestRangePartitioner_Disjoint(t *testing.T) {
	p, err := partitioner.NewRangePartitioner(0, 90000, 500)
	require.NoError(t, err)
	ranges, err := p.Partition(context.Background(), 1<<30)
	require.NoError(t, err)
	require.Len(t, ranges, 180)

	next := 0
	for _, r := range ranges {
		assert.Equal(t, next, r.Start)
		next = r.End
	}
	assert.Equal(t, 90000, next)
}

func TestRangePartitioner_EmptyAndInvalid(t *testing.T) {
	p, err := partitioner.NewRangePartitioner(0, 500, 500)
	require.NoError(t, err)
	ranges, err := p.Partition(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, ranges)

	_, err = partitioner.NewRangePartitioner(0, 10, 0)
	assert.Error(t, err)
	_, err = partitioner.NewRangePartitioner(10, 5, 1)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Partition(ctx, 500)
	assert.ErrorIs(t, err, context.Canceled)
}
