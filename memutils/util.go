package memutils

import (
	"math"

	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// DefaultQuantum is the accounting unit, in bytes, used for all extent arithmetic
// unless a pool is created with a different one
const DefaultQuantum int = 8

func CheckPow2[T constraints.Integer](number T, name string) error {
	if number <= 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// QuantaForSize converts a size in bytes to a count of quanta, rounding to the nearest
// quantum. Any positive size is at least one quantum. Sizes of zero or less return
// ErrInvalidSize, and sizes that do not fit in an int return ErrOutOfMemory.
func QuantaForSize[T constraints.Integer](size T, quantum int) (int, error) {
	if size <= 0 {
		return 0, cerrors.Wrapf(ErrInvalidSize, "size is %d", size)
	}

	if uint64(size) > math.MaxInt {
		return 0, cerrors.Wrapf(ErrOutOfMemory, "size %d is too large to address", size)
	}

	// Round half up without adding to size, which may be close to math.MaxInt
	count := int(size) / quantum
	if int(size)%quantum >= quantum-quantum/2 {
		count++
	}
	if count < 1 {
		count = 1
	}

	return count, nil
}
