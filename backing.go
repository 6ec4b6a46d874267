package fitpool

//go:generate mockgen -source backing.go -destination ./mocks/backing.go -package mocks

// BackingAllocator supplies the single buffer a Pool carves into allocations. The
// buffer is acquired once in New and handed back in Cleanup.
type BackingAllocator interface {
	// AllocateBuffer must return a buffer of exactly size bytes, or an error
	AllocateBuffer(size int) ([]byte, error)
	// FreeBuffer receives every buffer AllocateBuffer returned, including ones New
	// rejected because they were the wrong length
	FreeBuffer(buffer []byte)
}

type heapBackingAllocator struct{}

func (heapBackingAllocator) AllocateBuffer(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func (heapBackingAllocator) FreeBuffer(buffer []byte) {}
