package fitpool

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/fitpool/memutils"
	"github.com/vkngwrapper/fitpool/memutils/metadata"
	"golang.org/x/exp/slog"
)

const (
	// DefaultBufferSize is the value that is used as the BufferSize when none is provided
	// via CreateOptions. It is equal to 1Mb.
	DefaultBufferSize int = 1024 * 1024
)

// CreateOptions contains optional settings when creating a pool
type CreateOptions struct {
	// BufferSize is the number of bytes the pool manages. It must be a multiple of Quantum.
	// The pool never grows beyond this size.
	BufferSize int
	// Quantum is the granularity, in bytes, of every allocation. It must be a power of two
	// and defaults to memutils.DefaultQuantum.
	Quantum int
	// ReserveDescriptors is the number of spare descriptors available for splitting free
	// regions. When it is left at 0, the pool reserves one descriptor for every 8 quanta
	// of capacity. Once the reserve runs dry, requests are granted whole free regions.
	ReserveDescriptors int

	// Backing supplies the pool's buffer. When it is nil, the buffer is allocated on the
	// Go heap.
	Backing BackingAllocator

	// MemoryCallbackOptions is an optional set of callbacks that will be executed when the
	// pool acquires and releases its buffer.
	MemoryCallbackOptions *MemoryCallbackOptions
}

// New creates a new Pool that places allocations using the provided strategy
//
// logger - The logger that debug and cleanup messages are written to. When it is nil,
// slog.Default() is used.
//
// strategy - The placement strategy used to choose among free regions
//
// options - Optional settings; the zero value produces a 1Mb pool with an 8-byte quantum
func New(logger *slog.Logger, strategy metadata.AllocationStrategy, options CreateOptions) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("Pool::New",
		slog.String("Strategy", strategy.String()),
		slog.Int("BufferSize", options.BufferSize),
	)

	if !strategy.IsValid() {
		return nil, errors.Wrapf(memutils.ErrInvalidOptions, "unknown allocation strategy %d", strategy)
	}

	quantum := options.Quantum
	if quantum == 0 {
		quantum = memutils.DefaultQuantum
	}
	err := memutils.CheckPow2(quantum, "quantum")
	if err != nil {
		return nil, errors.Mark(err, memutils.ErrInvalidOptions)
	}

	bufferSize := options.BufferSize
	if bufferSize == 0 {
		bufferSize = DefaultBufferSize
	}
	if bufferSize < 0 || memutils.AlignDown(bufferSize, uint(quantum)) != bufferSize {
		return nil, errors.Wrapf(memutils.ErrInvalidOptions, "buffer size %d is not a positive multiple of the quantum %d", bufferSize, quantum)
	}
	capacity := bufferSize / quantum

	reserveCount := options.ReserveDescriptors
	if reserveCount < 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidOptions, "reserve descriptor count is %d", reserveCount)
	} else if reserveCount == 0 {
		reserveCount = capacity / 8
	}
	// Descriptor indices are int32 and the partition needs one descriptor beyond the reserve
	if reserveCount >= math.MaxInt32 {
		return nil, errors.Wrapf(memutils.ErrInvalidOptions, "reserve descriptor count %d exceeds %d", reserveCount, math.MaxInt32-1)
	}

	backing := options.Backing
	if backing == nil {
		backing = heapBackingAllocator{}
	}

	buffer, err := backing.AllocateBuffer(bufferSize)
	if err != nil {
		if buffer != nil {
			backing.FreeBuffer(buffer)
		}
		return nil, errors.Mark(errors.Wrapf(err, "failed to acquire a %d byte buffer", bufferSize), memutils.ErrAllocationBackendFailure)
	}
	if len(buffer) != bufferSize {
		if buffer != nil {
			backing.FreeBuffer(buffer)
		}
		return nil, errors.Wrapf(memutils.ErrAllocationBackendFailure, "requested a %d byte buffer but received %d bytes", bufferSize, len(buffer))
	}

	md := metadata.NewPartitionMetadata(quantum, strategy, reserveCount)
	md.Init(capacity)

	pool := &Pool{
		logger:   logger,
		metadata: md,
		buffer:   buffer,
		backing:  backing,
		quantum:  quantum,
	}
	pool.callbacks = memoryCallbacks{
		Callbacks: options.MemoryCallbackOptions,
		Pool:      pool,
	}
	pool.callbacks.Allocate(bufferSize)

	memutils.DebugValidate(md)

	return pool, nil
}
