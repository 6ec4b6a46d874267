package memutils

import "math"

// Statistics holds the basic byte and descriptor counts of a pool
type Statistics struct {
	PoolBytes       int
	AllocationCount int
	AllocationBytes int
	DescriptorCount int
}

func (s *Statistics) Clear() {
	s.PoolBytes = 0
	s.AllocationCount = 0
	s.AllocationBytes = 0
	s.DescriptorCount = 0
}

// UnusedBytes is the number of pool bytes not held by any allocation
func (s *Statistics) UnusedBytes() int {
	return s.PoolBytes - s.AllocationBytes
}

// DetailedStatistics extends Statistics with the shape of the pool's allocated
// and free regions and the state of the spare descriptor reserve
type DetailedStatistics struct {
	Statistics
	UnusedRangeCount   int
	AllocationSizeMin  int
	AllocationSizeMax  int
	UnusedRangeSizeMin int
	UnusedRangeSizeMax int
	ReserveCount       int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.UnusedRangeCount = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.UnusedRangeSizeMin = math.MaxInt
	s.UnusedRangeSizeMax = 0
	s.ReserveCount = 0
}

func (s *DetailedStatistics) AddUnusedRange(size int) {
	s.UnusedRangeCount++

	if size < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = size
	}

	if size > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

// FragmentationRatio reports how much of the unused space lies outside the largest
// unused range: 0 when all free bytes are contiguous, approaching 1 as they scatter.
func (s *DetailedStatistics) FragmentationRatio() float64 {
	unused := s.UnusedBytes()
	if unused == 0 || s.UnusedRangeCount == 0 {
		return 0
	}

	return 1 - float64(s.UnusedRangeSizeMax)/float64(unused)
}
