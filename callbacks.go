package fitpool

type AllocateBufferCallback func(
	pool *Pool,
	size int,
	userData interface{},
)

type FreeBufferCallback func(
	pool *Pool,
	size int,
	userData interface{},
)

type MemoryCallbackOptions struct {
	Allocate AllocateBufferCallback
	Free     FreeBufferCallback
	UserData interface{}
}

type memoryCallbacks struct {
	Callbacks *MemoryCallbackOptions
	Pool      *Pool
}

func (c *memoryCallbacks) Allocate(size int) {
	if c.Callbacks != nil && c.Callbacks.Allocate != nil {
		c.Callbacks.Allocate(c.Pool, size, c.Callbacks.UserData)
	}
}

func (c *memoryCallbacks) Free(size int) {
	if c.Callbacks != nil && c.Callbacks.Free != nil {
		c.Callbacks.Free(c.Pool, size, c.Callbacks.UserData)
	}
}
