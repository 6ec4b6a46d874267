package fitpool_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/fitpool"
	"github.com/vkngwrapper/fitpool/memutils"
	"github.com/vkngwrapper/fitpool/memutils/metadata"
)

func TestCalculateStatistics(t *testing.T) {
	pool := readyPool(t, metadata.AllocationStrategyBestFit, fitpool.CreateOptions{BufferSize: 1024})

	a := mustAllocate(t, pool, 80)
	mustAllocate(t, pool, 16)
	c := mustAllocate(t, pool, 40)
	mustAllocate(t, pool, 8)
	mustFree(t, pool, a)
	mustFree(t, pool, c)

	var stats memutils.DetailedStatistics
	require.NoError(t, pool.CalculateStatistics(&stats))
	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			PoolBytes:       1024,
			AllocationCount: 2,
			AllocationBytes: 24,
			DescriptorCount: 17,
		},
		UnusedRangeCount:   3,
		AllocationSizeMin:  8,
		AllocationSizeMax:  16,
		UnusedRangeSizeMin: 40,
		UnusedRangeSizeMax: 880,
		ReserveCount:       12,
	}, stats)
	require.InDelta(t, 1-880.0/1000.0, stats.FragmentationRatio(), 0.0001)
}

func TestBuildStatsString(t *testing.T) {
	pool := readyPool(t, metadata.AllocationStrategyFirstFit, fitpool.CreateOptions{BufferSize: 64})
	mustAllocate(t, pool, 16)

	require.JSONEq(t, `{
		"Total": {
			"PoolBytes": 64,
			"DescriptorCount": 2,
			"ReserveCount": 0,
			"AllocationCount": 1,
			"AllocationBytes": 16,
			"UnusedRangeCount": 1,
			"AllocationSizeMin": 16,
			"AllocationSizeMax": 16,
			"UnusedRangeSizeMin": 48,
			"UnusedRangeSizeMax": 48,
			"FragmentationRatio": 0
		}
	}`, pool.BuildStatsString(false))

	require.JSONEq(t, `{
		"Total": {
			"PoolBytes": 64,
			"DescriptorCount": 2,
			"ReserveCount": 0,
			"AllocationCount": 1,
			"AllocationBytes": 16,
			"UnusedRangeCount": 1,
			"AllocationSizeMin": 16,
			"AllocationSizeMax": 16,
			"UnusedRangeSizeMin": 48,
			"UnusedRangeSizeMax": 48,
			"FragmentationRatio": 0
		},
		"Pool": {
			"TotalBytes": 64,
			"Quantum": 8,
			"UnusedBytes": 48,
			"Allocations": 1,
			"UnusedRanges": 1,
			"ReserveDescriptors": 0,
			"Strategy": "FirstFit",
			"Suballocations": [
				{"Offset": 0, "Type": "ALLOCATED", "Size": 16},
				{"Offset": 16, "Type": "FREE", "Size": 48}
			]
		}
	}`, pool.BuildStatsString(true))
}

func TestBuildStatsStringEmptyPool(t *testing.T) {
	pool := readyPool(t, metadata.AllocationStrategyNextFit, fitpool.CreateOptions{BufferSize: 128})

	require.JSONEq(t, `{
		"Total": {
			"PoolBytes": 128,
			"DescriptorCount": 3,
			"ReserveCount": 2,
			"AllocationCount": 0,
			"AllocationBytes": 0,
			"UnusedRangeCount": 1,
			"UnusedRangeSizeMin": 128,
			"UnusedRangeSizeMax": 128,
			"FragmentationRatio": 0
		},
		"Pool": {
			"TotalBytes": 128,
			"Quantum": 8,
			"UnusedBytes": 128,
			"Allocations": 0,
			"UnusedRanges": 1,
			"ReserveDescriptors": 2,
			"Strategy": "NextFit",
			"Suballocations": [
				{"Offset": 0, "Type": "FREE", "Size": 128}
			]
		}
	}`, pool.BuildStatsString(true))
}
