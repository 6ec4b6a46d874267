package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

var (
	// ErrInvalidSize is returned when an allocation is requested with a size of zero bytes or less
	ErrInvalidSize error = errors.New("requested size must be positive")
	// ErrUninitializedPool is returned by every pool operation made before the pool was created or
	// after it was cleaned up
	ErrUninitializedPool error = errors.New("the pool is not initialized")
	// ErrOutOfMemory is returned when no free region of the pool can satisfy a request. The pool
	// may be exhausted or too fragmented.
	ErrOutOfMemory error = errors.New("no free region large enough for the request")
	// ErrUnmanagedPointer is returned when a pointer passed to Free or Reallocate is not the base
	// of a live allocation in the pool
	ErrUnmanagedPointer error = errors.New("pointer is not a live allocation in this pool")
	// ErrAllocationBackendFailure is returned when the backing buffer or its metadata could not be
	// acquired while creating a pool
	ErrAllocationBackendFailure error = errors.New("failed to acquire pool backing memory")
	// ErrInvalidOptions is returned when a pool is created with options that cannot describe a pool
	ErrInvalidOptions error = errors.New("invalid pool options")
)
