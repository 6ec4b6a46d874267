package metadata

import (
	"fmt"

	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/fitpool/memutils"
)

// PartitionMetadata is a BlockMetadata implementation that keeps the whole block as an
// ordered partition of descriptors, each covering a contiguous run of quanta. Allocations are
// placed by first fit, next fit or best fit. Splitting a region draws a descriptor from a
// fixed reserve and freeing a region merges it with its immediate neighbours, returning the
// retired descriptors to the reserve.
//
// When the reserve is empty, an allocation that would need a split is granted the entire
// free region instead.
//
// Merging is single-level: Free merges the freed region with the region directly after it
// and the region directly before it, and nothing further.
type PartitionMetadata struct {
	BlockMetadataBase

	strategy         AllocationStrategy
	reserveCount     int
	arena            descriptorArena
	offsetKey        *swiss.Map[int, descriptorIndex]
	nextFitCursor    descriptorIndex
	allocCount       int
	freeExtent       int
	freeRegionsCount int
}

var _ BlockMetadata = &PartitionMetadata{}

// NewPartitionMetadata creates a PartitionMetadata that places allocations using strategy,
// accounts in units of quantum bytes and keeps reserveCount spare descriptors for splitting.
func NewPartitionMetadata(quantum int, strategy AllocationStrategy, reserveCount int) *PartitionMetadata {
	return &PartitionMetadata{
		BlockMetadataBase: NewBlockMetadata(quantum),
		strategy:          strategy,
		reserveCount:      reserveCount,
		nextFitCursor:     noDescriptor,
	}
}

// Strategy returns the placement strategy used by this metadata
func (m *PartitionMetadata) Strategy() AllocationStrategy {
	return m.strategy
}

func (m *PartitionMetadata) Init(extent int) {
	if extent < 1 {
		panic(fmt.Sprintf("cannot initialize a partition with an extent of %d", extent))
	}
	if !m.strategy.IsValid() {
		panic(fmt.Sprintf("unknown allocation strategy: %d", m.strategy))
	}

	m.BlockMetadataBase.Init(extent)
	m.arena.Init(m.reserveCount)
	m.offsetKey = swiss.NewMap[int, descriptorIndex](uint32(m.reserveCount + 1))

	index, _ := m.arena.popReserve()
	d := m.arena.get(index)
	d.offset = 0
	d.extent = extent
	d.free = true
	m.arena.pushTail(index)
	m.offsetKey.Put(0, index)

	m.nextFitCursor = noDescriptor
	m.allocCount = 0
	m.freeExtent = extent
	m.freeRegionsCount = 1
}

func (m *PartitionMetadata) Destroy() {
	m.arena.Destroy()
	m.offsetKey = nil
	m.nextFitCursor = noDescriptor
	m.allocCount = 0
	m.freeExtent = 0
	m.freeRegionsCount = 0
}

// DescriptorCount returns the number of descriptors owned by the metadata, whether they are in
// the partition or the reserve. It is zero after Destroy.
func (m *PartitionMetadata) DescriptorCount() int {
	return len(m.arena.descriptors)
}

func (m *PartitionMetadata) AllocationCount() int {
	return m.allocCount
}

func (m *PartitionMetadata) FreeRegionsCount() int {
	return m.freeRegionsCount
}

func (m *PartitionMetadata) SumFreeExtent() int {
	return m.freeExtent
}

func (m *PartitionMetadata) ReserveCount() int {
	return m.arena.reserveCount()
}

func (m *PartitionMetadata) IsEmpty() bool {
	return m.allocCount == 0
}

func (m *PartitionMetadata) Validate() error {
	if m.arena.descriptors == nil {
		return errors.New("the partition has not been initialized")
	}

	if m.arena.count+m.arena.reserveCount() != len(m.arena.descriptors) {
		return errors.Errorf("the partition holds %d descriptors and the reserve holds %d, but %d descriptors exist",
			m.arena.count, m.arena.reserveCount(), len(m.arena.descriptors))
	}

	if m.arena.head == noDescriptor {
		return errors.New("the partition is empty")
	}

	if m.arena.get(m.arena.head).prev != noDescriptor {
		return errors.New("the first descriptor in the partition has a previous descriptor")
	}

	nextOffset := 0
	var calculatedExtent, calculatedFreeExtent, allocCount, freeRegions, visited int
	cursorFound := m.nextFitCursor == noDescriptor
	prevFree := false
	last := noDescriptor

	for index := m.arena.head; index != noDescriptor; index = m.arena.next(index) {
		d := m.arena.get(index)
		visited++
		if visited > m.arena.count {
			return errors.New("the partition contains a cycle")
		}

		if !d.inPartition {
			return errors.Errorf("descriptor at offset %d is linked into the partition but not marked as a member", d.offset)
		}

		if d.prev != last {
			return errors.Errorf("descriptor at offset %d lists the wrong previous descriptor", d.offset)
		}

		if d.offset != nextOffset {
			return errors.Errorf("descriptor at offset %d should begin at offset %d", d.offset, nextOffset)
		}

		if d.extent < 1 {
			return errors.Errorf("descriptor at offset %d has an invalid extent %d", d.offset, d.extent)
		}

		mapped, ok := m.offsetKey.Get(d.offset)
		if !ok || mapped != index {
			return errors.Errorf("descriptor at offset %d is missing from the offset index", d.offset)
		}

		if d.free {
			if prevFree {
				return errors.Errorf("descriptor at offset %d is free and so is the descriptor before it", d.offset)
			}
			calculatedFreeExtent += d.extent
			freeRegions++
		} else {
			allocCount++
		}

		if index == m.nextFitCursor {
			cursorFound = true
		}

		prevFree = d.free
		nextOffset += d.extent * m.quantum
		calculatedExtent += d.extent
		last = index
	}

	if last != m.arena.tail {
		return errors.New("the last descriptor in the partition is not the tail")
	}

	if visited != m.arena.count {
		return errors.Errorf("the partition should hold %d descriptors but %d were found", m.arena.count, visited)
	}

	if m.offsetKey.Count() != visited {
		return errors.Errorf("the offset index holds %d entries but the partition holds %d descriptors", m.offsetKey.Count(), visited)
	}

	if !cursorFound {
		return errors.New("the next fit cursor does not point into the partition")
	}

	if calculatedExtent != m.extent {
		return errors.Errorf("the full extent of the metadata is %d, but the descriptors only added up to %d", m.extent, calculatedExtent)
	}

	if calculatedFreeExtent != m.freeExtent {
		return errors.Errorf("the free extent of the metadata is %d, but the free descriptors added up to %d", m.freeExtent, calculatedFreeExtent)
	}

	if allocCount != m.allocCount {
		return errors.Errorf("the allocation count of the metadata is %d, but the taken descriptors added up to %d", m.allocCount, allocCount)
	}

	if freeRegions != m.freeRegionsCount {
		return errors.Errorf("the free region count of the metadata is %d, but there were %d free descriptors", m.freeRegionsCount, freeRegions)
	}

	return nil
}

func (m *PartitionMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.PoolBytes += m.Size()
	stats.DescriptorCount += len(m.arena.descriptors)
	stats.ReserveCount += m.arena.reserveCount()

	for index := m.arena.head; index != noDescriptor; index = m.arena.next(index) {
		d := m.arena.get(index)
		if d.free {
			stats.AddUnusedRange(d.extent * m.quantum)
		} else {
			stats.AddAllocation(d.extent * m.quantum)
		}
	}
}

func (m *PartitionMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.PoolBytes += m.Size()
	stats.DescriptorCount += len(m.arena.descriptors)
	stats.AllocationCount += m.allocCount
	stats.AllocationBytes += (m.extent - m.freeExtent) * m.quantum
}

func (m *PartitionMetadata) BlockJsonData(json *jwriter.ObjectState) {
	m.BlockMetadataBase.BlockJsonData(
		json,
		m.freeExtent*m.quantum,
		m.allocCount,
		m.freeRegionsCount,
		m.arena.reserveCount(),
	)
	json.Name("Strategy").String(m.strategy.String())
}

func (m *PartitionMetadata) VisitAllRegions(handleBlock func(handle BlockAllocationHandle, offset int, extent int, free bool) error) error {
	for index := m.arena.head; index != noDescriptor; index = m.arena.next(index) {
		d := m.arena.get(index)
		err := handleBlock(BlockAllocationHandle(index), d.offset, d.extent, d.free)
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *PartitionMetadata) getAllocation(handle BlockAllocationHandle) (*blockDescriptor, error) {
	if handle == NoAllocation || handle >= BlockAllocationHandle(len(m.arena.descriptors)) {
		return nil, errors.Wrapf(memutils.ErrUnmanagedPointer, "handle %d is out of range", handle)
	}

	d := m.arena.get(descriptorIndex(handle))
	if !d.inPartition || d.free {
		return nil, errors.Wrapf(memutils.ErrUnmanagedPointer, "handle %d is not a live allocation", handle)
	}

	return d, nil
}

func (m *PartitionMetadata) FindAllocation(offset int) (BlockAllocationHandle, error) {
	index, ok := m.offsetKey.Get(offset)
	if !ok {
		return NoAllocation, errors.Wrapf(memutils.ErrUnmanagedPointer, "no region begins at offset %d", offset)
	}

	if m.arena.get(index).free {
		return NoAllocation, errors.Wrapf(memutils.ErrUnmanagedPointer, "the region at offset %d is already free", offset)
	}

	return BlockAllocationHandle(index), nil
}

func (m *PartitionMetadata) AllocationOffset(allocHandle BlockAllocationHandle) (int, error) {
	d, err := m.getAllocation(allocHandle)
	if err != nil {
		return 0, err
	}

	return d.offset, nil
}

func (m *PartitionMetadata) AllocationExtent(allocHandle BlockAllocationHandle) (int, error) {
	d, err := m.getAllocation(allocHandle)
	if err != nil {
		return 0, err
	}

	return d.extent, nil
}

func (m *PartitionMetadata) Alloc(extent int) (BlockAllocationHandle, bool, error) {
	if extent < 1 {
		return NoAllocation, false, errors.Wrapf(memutils.ErrInvalidSize, "extent is %d", extent)
	}

	memutils.DebugValidate(m)

	// Is pool big enough?
	if extent > m.freeExtent {
		return NoAllocation, false, nil
	}

	var index descriptorIndex
	var found bool

	switch m.strategy {
	case AllocationStrategyFirstFit:
		index, found = m.findFirstFit(extent)
	case AllocationStrategyNextFit:
		index, found = m.findNextFit(extent)
	case AllocationStrategyBestFit:
		index, found = m.findBestFit(extent)
	default:
		return NoAllocation, false, errors.Errorf("unknown allocation strategy: %d", m.strategy)
	}

	if !found {
		return NoAllocation, false, nil
	}

	remainder := m.split(index, extent)

	if m.strategy == AllocationStrategyNextFit {
		if remainder != noDescriptor {
			m.nextFitCursor = remainder
		} else {
			m.nextFitCursor = m.arena.next(index)
		}
	}

	m.allocCount++
	m.freeExtent -= m.arena.get(index).extent

	memutils.DebugValidate(m)

	return BlockAllocationHandle(index), true, nil
}

// take marks a free descriptor as allocated. The descriptor may still be larger than the
// request at this point.
func (m *PartitionMetadata) take(index descriptorIndex) {
	d := m.arena.get(index)
	if !d.free {
		panic(fmt.Sprintf("descriptor at offset %d is already taken", d.offset))
	}

	d.free = false
	m.freeRegionsCount--
}

func (m *PartitionMetadata) findFirstFit(extent int) (descriptorIndex, bool) {
	for index := m.arena.head; index != noDescriptor; index = m.arena.next(index) {
		d := m.arena.get(index)
		if d.free && d.extent >= extent {
			m.take(index)
			return index, true
		}
	}

	return noDescriptor, false
}

func (m *PartitionMetadata) findBestFit(extent int) (descriptorIndex, bool) {
	best := noDescriptor
	bestExtent := 0

	for index := m.arena.head; index != noDescriptor; index = m.arena.next(index) {
		d := m.arena.get(index)
		if !d.free || d.extent < extent {
			continue
		}

		// Strictly smaller, so the earliest of several equal candidates wins
		if best == noDescriptor || d.extent < bestExtent {
			best = index
			bestExtent = d.extent

			if bestExtent == extent {
				break
			}
		}
	}

	if best == noDescriptor {
		return noDescriptor, false
	}

	m.take(best)
	return best, true
}

func (m *PartitionMetadata) findNextFit(extent int) (descriptorIndex, bool) {
	start := m.nextFitCursor
	if start == noDescriptor {
		start = m.arena.head
	}

	for index := start; index != noDescriptor; index = m.arena.next(index) {
		d := m.arena.get(index)
		if d.free && d.extent >= extent {
			m.take(index)
			return index, true
		}
	}

	// Wrap around and stop before the descriptor we started from
	for index := m.arena.head; index != start; index = m.arena.next(index) {
		d := m.arena.get(index)
		if d.free && d.extent >= extent {
			m.take(index)
			return index, true
		}
	}

	return noDescriptor, false
}

// split shrinks the taken descriptor at index to extent quanta and places the excess in a
// new free descriptor directly after it. It returns the new descriptor, or noDescriptor if
// there was no excess or the reserve was empty.
func (m *PartitionMetadata) split(index descriptorIndex, extent int) descriptorIndex {
	d := m.arena.get(index)
	if d.extent < extent {
		panic(fmt.Sprintf("descriptor at offset %d holds %d quanta and cannot satisfy %d", d.offset, d.extent, extent))
	}

	if d.extent == extent {
		return noDescriptor
	}

	remainderIndex, ok := m.arena.popReserve()
	if !ok {
		// No spare descriptors: the caller gets the whole region
		return noDescriptor
	}

	remainder := m.arena.get(remainderIndex)
	remainder.offset = d.offset + extent*m.quantum
	remainder.extent = d.extent - extent
	remainder.free = true
	d.extent = extent

	m.arena.insertAfter(index, remainderIndex)
	m.offsetKey.Put(remainder.offset, remainderIndex)
	m.freeRegionsCount++

	return remainderIndex
}

func (m *PartitionMetadata) Free(allocHandle BlockAllocationHandle) error {
	d, err := m.getAllocation(allocHandle)
	if err != nil {
		return err
	}

	index := descriptorIndex(allocHandle)
	d.free = true
	m.allocCount--
	m.freeExtent += d.extent
	m.freeRegionsCount++

	next := d.next
	if next != noDescriptor && m.arena.get(next).free {
		d.extent += m.arena.get(next).extent
		m.retire(next, index)
	}

	prev := m.arena.prev(index)
	if prev != noDescriptor && m.arena.get(prev).free {
		m.arena.get(prev).extent += d.extent
		m.retire(index, prev)
	}

	memutils.DebugValidate(m)

	return nil
}

// retire removes a free descriptor whose space has been merged into survivor and returns it
// to the reserve.
func (m *PartitionMetadata) retire(index descriptorIndex, survivor descriptorIndex) {
	d := m.arena.get(index)
	if !d.free {
		panic(fmt.Sprintf("cannot retire the taken descriptor at offset %d", d.offset))
	}

	if m.nextFitCursor == index {
		m.nextFitCursor = survivor
	}

	m.offsetKey.Delete(d.offset)
	m.arena.remove(index)
	m.arena.pushReserve(index)
	m.freeRegionsCount--
}
