package fitpool

import (
	"context"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/fitpool/memutils"
	"github.com/vkngwrapper/fitpool/memutils/metadata"
	"golang.org/x/exp/slog"
)

// Pool is a fixed-capacity allocator that carves a single buffer into variable-sized
// regions. Every allocation is a whole number of quanta and begins on a quantum boundary
// relative to the start of the buffer.
//
// Pools are not synchronized. A Pool must only be used from one goroutine at a time,
// or callers must serialize access to it themselves.
//
// A Pool must be created with New. Once Cleanup has been called, every method returns
// memutils.ErrUninitializedPool.
type Pool struct {
	logger    *slog.Logger
	metadata  *metadata.PartitionMetadata
	buffer    []byte
	backing   BackingAllocator
	callbacks memoryCallbacks
	quantum   int
}

func (p *Pool) isInitialized() bool {
	return p != nil && p.metadata != nil
}

func (p *Pool) checkInitialized() error {
	if !p.isInitialized() {
		return errors.WithStack(memutils.ErrUninitializedPool)
	}
	return nil
}

func (p *Pool) offsetOf(ptr unsafe.Pointer) (int, error) {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(p.buffer)))
	addr := uintptr(ptr)
	if addr < base || addr >= base+uintptr(len(p.buffer)) {
		return 0, errors.Wrapf(memutils.ErrUnmanagedPointer, "pointer %p is outside the pool", ptr)
	}

	return int(addr - base), nil
}

func (p *Pool) pointerAt(offset int) unsafe.Pointer {
	return unsafe.Pointer(&p.buffer[offset])
}

func (p *Pool) findAllocation(ptr unsafe.Pointer) (metadata.BlockAllocationHandle, error) {
	offset, err := p.offsetOf(ptr)
	if err != nil {
		return metadata.NoAllocation, err
	}

	return p.metadata.FindAllocation(offset)
}

// Allocate reserves a region of at least size bytes, rounded to the nearest quantum, and
// returns a pointer to its first byte. The region's contents are whatever was last written
// there.
//
// size must be positive. If no free region can hold the request, memutils.ErrOutOfMemory
// is returned and the pool is left unchanged.
func (p *Pool) Allocate(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidSize, "size is %d", size)
	}
	if err := p.checkInitialized(); err != nil {
		return nil, err
	}

	p.logger.Debug("Pool::Allocate", slog.Int("Size", size))

	ptr, _, err := p.allocate(size)
	return ptr, err
}

func (p *Pool) allocate(size int) (unsafe.Pointer, metadata.BlockAllocationHandle, error) {
	extent, err := memutils.QuantaForSize(size, p.quantum)
	if err != nil {
		return nil, metadata.NoAllocation, err
	}

	handle, found, err := p.metadata.Alloc(extent)
	if err != nil {
		return nil, metadata.NoAllocation, err
	}
	if !found {
		p.logger.Debug("  Allocate FAILED", slog.Int("Extent", extent), slog.Int("FreeExtent", p.metadata.SumFreeExtent()))
		return nil, metadata.NoAllocation, errors.Wrapf(memutils.ErrOutOfMemory, "no free region of %d quanta for a %d byte request", extent, size)
	}

	offset, err := p.metadata.AllocationOffset(handle)
	if err != nil {
		return nil, metadata.NoAllocation, err
	}

	return p.pointerAt(offset), handle, nil
}

// Free returns the allocation *ptr points at to the pool and sets *ptr to nil. Free
// regions adjacent to it are merged into a single region.
//
// A nil ptr, or a ptr that points at nil, is ignored. A pointer that is not the start of a
// live allocation in this pool returns memutils.ErrUnmanagedPointer without changing
// anything.
func (p *Pool) Free(ptr *unsafe.Pointer) error {
	if ptr == nil || *ptr == nil {
		return nil
	}
	if err := p.checkInitialized(); err != nil {
		return err
	}

	p.logger.Debug("Pool::Free")

	handle, err := p.findAllocation(*ptr)
	if err != nil {
		return err
	}

	err = p.metadata.Free(handle)
	if err != nil {
		return err
	}

	*ptr = nil
	return nil
}

// Reallocate moves an allocation to a new region of size bytes. The leading bytes of the
// old region are copied, up to the smaller of the two regions, and the old region is freed.
// A nil ptr behaves like Allocate.
//
// If the new region cannot be allocated, the error is returned and the old allocation is
// left untouched.
func (p *Pool) Reallocate(ptr unsafe.Pointer, size int) (unsafe.Pointer, error) {
	if ptr == nil {
		return p.Allocate(size)
	}
	if err := p.checkInitialized(); err != nil {
		return nil, err
	}

	p.logger.Debug("Pool::Reallocate", slog.Int("Size", size))

	oldHandle, err := p.findAllocation(ptr)
	if err != nil {
		return nil, err
	}
	oldExtent, err := p.metadata.AllocationExtent(oldHandle)
	if err != nil {
		return nil, err
	}

	newPtr, newHandle, err := p.allocate(size)
	if err != nil {
		return nil, err
	}
	newExtent, err := p.metadata.AllocationExtent(newHandle)
	if err != nil {
		return nil, err
	}

	copyExtent := oldExtent
	if newExtent < copyExtent {
		copyExtent = newExtent
	}
	copyBytes := copyExtent * p.quantum
	copy(unsafe.Slice((*byte)(newPtr), copyBytes), unsafe.Slice((*byte)(ptr), copyBytes))

	err = p.metadata.Free(oldHandle)
	if err != nil {
		return nil, err
	}

	return newPtr, nil
}

// AllocationSize returns the number of bytes granted to the live allocation ptr points at.
// This may be larger than the size originally requested.
func (p *Pool) AllocationSize(ptr unsafe.Pointer) (int, error) {
	if err := p.checkInitialized(); err != nil {
		return 0, err
	}

	p.logger.Debug("Pool::AllocationSize")

	handle, err := p.findAllocation(ptr)
	if err != nil {
		return 0, err
	}

	extent, err := p.metadata.AllocationExtent(handle)
	if err != nil {
		return 0, err
	}

	return extent * p.quantum, nil
}

// AllocationBytes returns a slice over the bytes granted to the live allocation ptr points
// at. The slice must not be used after the allocation is freed.
func (p *Pool) AllocationBytes(ptr unsafe.Pointer) ([]byte, error) {
	if err := p.checkInitialized(); err != nil {
		return nil, err
	}

	p.logger.Debug("Pool::AllocationBytes")

	handle, err := p.findAllocation(ptr)
	if err != nil {
		return nil, err
	}

	offset, err := p.metadata.AllocationOffset(handle)
	if err != nil {
		return nil, err
	}
	extent, err := p.metadata.AllocationExtent(handle)
	if err != nil {
		return nil, err
	}

	end := offset + extent*p.quantum
	return p.buffer[offset:end:end], nil
}

// Cleanup releases the pool's buffer and metadata. Allocations still live at this point
// are logged at error level and released along with everything else. The pool cannot be
// used afterward.
func (p *Pool) Cleanup() error {
	if err := p.checkInitialized(); err != nil {
		return err
	}

	p.logger.Debug("Pool::Cleanup")

	if !p.metadata.IsEmpty() {
		err := p.metadata.VisitAllRegions(func(handle metadata.BlockAllocationHandle, offset int, extent int, free bool) error {
			if !free {
				p.logUnreleasedMemory(offset, extent*p.quantum)
			}
			return nil
		})
		if err != nil {
			p.logger.LogAttrs(context.Background(),
				slog.LevelError,
				"[UNRELEASED MEMORY] error while iterating unreleased memory",
				slog.Any("error", err))
		}
	}

	size := len(p.buffer)
	p.metadata.Destroy()
	p.metadata = nil

	p.backing.FreeBuffer(p.buffer)
	p.buffer = nil

	p.callbacks.Free(size)

	return nil
}

func (p *Pool) logUnreleasedMemory(offset, size int) {
	p.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unfreed allocation",
		slog.Int("offset", offset),
		slog.Int("size", size),
	)
}

// Validate checks the pool's bookkeeping for internal consistency. It should never return
// an error unless the pool has been corrupted.
func (p *Pool) Validate() error {
	if err := p.checkInitialized(); err != nil {
		return err
	}

	if p.metadata.Size() != len(p.buffer) {
		return errors.Newf("metadata covers %d bytes but the buffer is %d bytes", p.metadata.Size(), len(p.buffer))
	}

	return p.metadata.Validate()
}

func (p *Pool) Strategy() metadata.AllocationStrategy {
	if !p.isInitialized() {
		return metadata.AllocationStrategyFirstFit
	}
	return p.metadata.Strategy()
}

// Capacity returns the size of the pool in quanta, or 0 if the pool is not initialized
func (p *Pool) Capacity() int {
	if !p.isInitialized() {
		return 0
	}
	return p.metadata.Extent()
}

// Quantum returns the size of a quantum in bytes, or 0 if the pool is not initialized
func (p *Pool) Quantum() int {
	if !p.isInitialized() {
		return 0
	}
	return p.quantum
}

// ReserveCount returns the number of spare descriptors available for splitting free
// regions, or 0 if the pool is not initialized
func (p *Pool) ReserveCount() int {
	if !p.isInitialized() {
		return 0
	}
	return p.metadata.ReserveCount()
}
