package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/fitpool/memutils"
)

// BlockMetadata tracks how a single fixed-size buffer is divided into allocated and free
// regions. It never touches the buffer itself: offsets are in bytes from the start of the
// buffer and sizes are in quanta.
type BlockMetadata interface {
	// Init must be called before the BlockMetadata is used. extent is the size of the managed
	// buffer in quanta. The whole buffer starts out as a single free region.
	Init(extent int)
	// Extent retrieves the size in quanta that the block was initialized with
	Extent() int
	// Quantum retrieves the size in bytes of a single quantum
	Quantum() int

	// Validate performs internal consistency checks on the metadata. When the implementation is
	// functioning correctly, it should not be possible for this method to return an error.
	Validate() error
	// AllocationCount returns the number of allocations currently live in the block.
	AllocationCount() int
	// FreeRegionsCount returns the number of distinct free regions in the block.
	FreeRegionsCount() int
	// SumFreeExtent returns the number of free quanta in the block.
	SumFreeExtent() int
	// ReserveCount returns the number of spare descriptors available for splitting regions.
	ReserveCount() int
	// IsEmpty will return true if this block has no live allocations
	IsEmpty() bool

	// VisitAllRegions will call the provided callback once for each allocated and free region in
	// the block, in address order.
	VisitAllRegions(handleBlock func(handle BlockAllocationHandle, offset int, extent int, free bool) error) error
	// FindAllocation returns the handle of the live allocation whose region starts at the provided
	// byte offset. It must return an error wrapping memutils.ErrUnmanagedPointer if there is none.
	FindAllocation(offset int) (BlockAllocationHandle, error)
	// AllocationOffset returns the byte offset of a live allocation.
	AllocationOffset(allocHandle BlockAllocationHandle) (int, error)
	// AllocationExtent returns the extent in quanta of a live allocation. This may be larger than
	// the extent originally requested.
	AllocationExtent(allocHandle BlockAllocationHandle) (int, error)

	// AddDetailedStatistics sums this block's allocation statistics into the provided object.
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this block's allocation statistics into the provided object.
	AddStatistics(stats *memutils.Statistics)
	// BlockJsonData populates a json object with information about this block
	BlockJsonData(json *jwriter.ObjectState)

	// Alloc searches the block for a free region of at least extent quanta using the block's
	// placement strategy, marks it allocated and splits off any excess. found is false when no
	// free region is large enough, in which case nothing has been changed.
	Alloc(extent int) (handle BlockAllocationHandle, found bool, err error)
	// Free returns a live allocation to the free state and merges it with free neighbours.
	Free(allocHandle BlockAllocationHandle) error

	// Destroy releases every descriptor owned by the block. The block may not be used again
	// until Init is called.
	Destroy()
}

// BlockMetadataBase is a simple struct that provides a few shared utilities for BlockMetadata
// implementations.
type BlockMetadataBase struct {
	extent  int
	quantum int
}

// NewBlockMetadata creates a new BlockMetadataBase for a block that is accounted in units
// of quantum bytes.
func NewBlockMetadata(quantum int) BlockMetadataBase {
	memutils.DebugCheckPow2(quantum, "quantum")

	return BlockMetadataBase{
		extent:  0,
		quantum: quantum,
	}
}

// Init sizes the block in quanta based on the parameter extent.
func (m *BlockMetadataBase) Init(extent int) {
	m.extent = extent
}

// Extent returns the size of the block in quanta
func (m *BlockMetadataBase) Extent() int { return m.extent }

// Quantum returns the size of a quantum in bytes
func (m *BlockMetadataBase) Quantum() int { return m.quantum }

// Size returns the size of the block in bytes
func (m *BlockMetadataBase) Size() int { return m.extent * m.quantum }

// BlockJsonData populates a json object with information about this block
func (m *BlockMetadataBase) BlockJsonData(json *jwriter.ObjectState, unusedBytes, allocationCount, unusedRangeCount, reserveCount int) {
	json.Name("TotalBytes").Int(m.Size())
	json.Name("Quantum").Int(m.quantum)
	json.Name("UnusedBytes").Int(unusedBytes)
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
	json.Name("ReserveDescriptors").Int(reserveCount)
}
