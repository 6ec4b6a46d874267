package fitpool_test

import (
	"io"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/fitpool"
	"github.com/vkngwrapper/fitpool/memutils"
	"github.com/vkngwrapper/fitpool/memutils/metadata"
	"github.com/vkngwrapper/fitpool/mocks"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard))
}

func readyPool(t *testing.T, strategy metadata.AllocationStrategy, options fitpool.CreateOptions) *fitpool.Pool {
	pool, err := fitpool.New(discardLogger(), strategy, options)
	require.NoError(t, err)
	require.NoError(t, pool.Validate())

	t.Cleanup(func() {
		_ = pool.Cleanup()
	})

	return pool
}

// mockBacking returns a backing allocator that hands out buffer once and expects it back
func mockBacking(ctrl *gomock.Controller, buffer []byte) *mocks.MockBackingAllocator {
	backing := mocks.NewMockBackingAllocator(ctrl)
	backing.EXPECT().AllocateBuffer(len(buffer)).Return(buffer, nil)
	backing.EXPECT().FreeBuffer(gomock.Any()).Do(func(freed []byte) {
		if len(freed) != len(buffer) || &freed[0] != &buffer[0] {
			ctrl.T.Fatalf("FreeBuffer received a buffer the pool did not allocate")
		}
	})

	return backing
}

func TestNewDefaults(t *testing.T) {
	pool, err := fitpool.New(nil, metadata.AllocationStrategyFirstFit, fitpool.CreateOptions{})
	require.NoError(t, err)

	require.Equal(t, metadata.AllocationStrategyFirstFit, pool.Strategy())
	require.Equal(t, 8, pool.Quantum())
	require.Equal(t, 131072, pool.Capacity())
	require.Equal(t, 16384, pool.ReserveCount())
	require.NoError(t, pool.Validate())

	var stats memutils.DetailedStatistics
	require.NoError(t, pool.CalculateStatistics(&stats))
	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			PoolBytes:       fitpool.DefaultBufferSize,
			AllocationCount: 0,
			AllocationBytes: 0,
			DescriptorCount: 16385,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  math.MaxInt,
		AllocationSizeMax:  0,
		UnusedRangeSizeMin: fitpool.DefaultBufferSize,
		UnusedRangeSizeMax: fitpool.DefaultBufferSize,
		ReserveCount:       16384,
	}, stats)

	require.NoError(t, pool.Cleanup())
}

func TestNewCustomOptions(t *testing.T) {
	pool := readyPool(t, metadata.AllocationStrategyBestFit, fitpool.CreateOptions{
		BufferSize:         4096,
		Quantum:            16,
		ReserveDescriptors: 3,
	})

	require.Equal(t, metadata.AllocationStrategyBestFit, pool.Strategy())
	require.Equal(t, 16, pool.Quantum())
	require.Equal(t, 256, pool.Capacity())
	require.Equal(t, 3, pool.ReserveCount())
}

func TestNewInvalidOptions(t *testing.T) {
	testCases := []struct {
		name     string
		strategy metadata.AllocationStrategy
		options  fitpool.CreateOptions
	}{
		{
			name:     "UnknownStrategy",
			strategy: metadata.AllocationStrategy(7),
		},
		{
			name:     "QuantumNotPowerOfTwo",
			strategy: metadata.AllocationStrategyFirstFit,
			options:  fitpool.CreateOptions{Quantum: 12},
		},
		{
			name:     "NegativeQuantum",
			strategy: metadata.AllocationStrategyFirstFit,
			options:  fitpool.CreateOptions{Quantum: -8},
		},
		{
			name:     "BufferNotMultipleOfQuantum",
			strategy: metadata.AllocationStrategyFirstFit,
			options:  fitpool.CreateOptions{BufferSize: 1001},
		},
		{
			name:     "NegativeBuffer",
			strategy: metadata.AllocationStrategyFirstFit,
			options:  fitpool.CreateOptions{BufferSize: -1024},
		},
		{
			name:     "NegativeReserve",
			strategy: metadata.AllocationStrategyNextFit,
			options:  fitpool.CreateOptions{ReserveDescriptors: -1},
		},
		{
			name:     "ReserveBeyondDescriptorIndex",
			strategy: metadata.AllocationStrategyBestFit,
			options:  fitpool.CreateOptions{ReserveDescriptors: math.MaxInt32},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			backing := mocks.NewMockBackingAllocator(ctrl)
			testCase.options.Backing = backing

			pool, err := fitpool.New(discardLogger(), testCase.strategy, testCase.options)
			require.Nil(t, pool)
			require.True(t, errors.Is(err, memutils.ErrInvalidOptions))
		})
	}
}

func TestNewQuantumErrorIsPowerOfTwoError(t *testing.T) {
	_, err := fitpool.New(discardLogger(), metadata.AllocationStrategyFirstFit, fitpool.CreateOptions{Quantum: 24})
	require.True(t, errors.Is(err, memutils.ErrInvalidOptions))
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))
}

func TestNewBackendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	backing := mocks.NewMockBackingAllocator(ctrl)
	backing.EXPECT().AllocateBuffer(1024).Return(nil, errors.New("out of pages"))

	pool, err := fitpool.New(discardLogger(), metadata.AllocationStrategyFirstFit, fitpool.CreateOptions{
		BufferSize: 1024,
		Backing:    backing,
	})
	require.Nil(t, pool)
	require.True(t, errors.Is(err, memutils.ErrAllocationBackendFailure))
	require.ErrorContains(t, err, "out of pages")
}

func TestNewShortBufferIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	short := make([]byte, 512)

	backing := mocks.NewMockBackingAllocator(ctrl)
	backing.EXPECT().AllocateBuffer(1024).Return(short, nil)
	backing.EXPECT().FreeBuffer(short)

	pool, err := fitpool.New(discardLogger(), metadata.AllocationStrategyFirstFit, fitpool.CreateOptions{
		BufferSize: 1024,
		Backing:    backing,
	})
	require.Nil(t, pool)
	require.True(t, errors.Is(err, memutils.ErrAllocationBackendFailure))
}

func TestMemoryCallbacks(t *testing.T) {
	type event struct {
		kind     string
		pool     *fitpool.Pool
		size     int
		userData interface{}
	}
	var events []event

	callbacks := &fitpool.MemoryCallbackOptions{
		Allocate: func(pool *fitpool.Pool, size int, userData interface{}) {
			events = append(events, event{"allocate", pool, size, userData})
		},
		Free: func(pool *fitpool.Pool, size int, userData interface{}) {
			events = append(events, event{"free", pool, size, userData})
		},
		UserData: "pool-a",
	}

	pool, err := fitpool.New(discardLogger(), metadata.AllocationStrategyFirstFit, fitpool.CreateOptions{
		BufferSize:            2048,
		MemoryCallbackOptions: callbacks,
	})
	require.NoError(t, err)
	require.Equal(t, []event{{"allocate", pool, 2048, "pool-a"}}, events)

	require.NoError(t, pool.Cleanup())
	require.Equal(t, []event{
		{"allocate", pool, 2048, "pool-a"},
		{"free", pool, 2048, "pool-a"},
	}, events)
}
