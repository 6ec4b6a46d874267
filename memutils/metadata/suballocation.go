package metadata

import "math"

// BlockAllocationHandle identifies a live allocation within a PartitionMetadata. Handles are
// reused once the allocation they identify has been freed.
type BlockAllocationHandle uint64

const (
	NoAllocation BlockAllocationHandle = math.MaxUint64
)

// SuballocationType distinguishes allocated regions from free regions when visiting a partition
type SuballocationType uint32

const (
	SuballocationFree SuballocationType = iota
	SuballocationAllocated
)

var suballocationTypeMapping = map[SuballocationType]string{
	SuballocationFree:      "FREE",
	SuballocationAllocated: "ALLOCATED",
}

func (t SuballocationType) String() string {
	return suballocationTypeMapping[t]
}
