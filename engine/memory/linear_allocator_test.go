package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLinearAllocatorRejectsZeroCapacity(t *testing.T) {
	_, err := NewLinearAllocator(0)
	require.Error(t, err)
}

func TestAllocateAdvancesWatermark(t *testing.T) {
	la, err := NewLinearAllocator(1024)
	require.NoError(t, err)

	block, err := la.Allocate(64)
	require.NoError(t, err)
	require.Len(t, block, 64)
	require.EqualValues(t, 64, la.Offset())

	// Second allocation starts at the aligned watermark.
	block2, err := la.Allocate(10)
	require.NoError(t, err)
	require.Len(t, block2, 10)
	require.EqualValues(t, 64+10, la.Offset())
}

func TestAllocateAlignsUnevenSizes(t *testing.T) {
	la, err := NewLinearAllocator(1024)
	require.NoError(t, err)

	_, err = la.Allocate(3)
	require.NoError(t, err)
	require.EqualValues(t, 3, la.Offset())

	_, err = la.Allocate(8)
	require.NoError(t, err)
	// 3 is padded up to DefaultAlignment before the next block.
	require.EqualValues(t, DefaultAlignment+8, la.Offset())
}

func TestAllocateFailsDeterministicallyWhenExhausted(t *testing.T) {
	la, err := NewLinearAllocator(2048)
	require.NoError(t, err)

	_, err = la.Allocate(4096)
	require.ErrorIs(t, err, ErrOutOfMemory)
	// The failed request must not move the watermark.
	require.EqualValues(t, 0, la.Offset())

	// Prior allocations are not corrupted by a failing one.
	block, err := la.Allocate(32)
	require.NoError(t, err)
	block[0] = 0xAB
	_, err = la.Allocate(4096)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.EqualValues(t, 0xAB, block[0])
	require.EqualValues(t, 32, la.Offset())
}

func TestAllocateRejectsHugeRequestsWithoutWrapping(t *testing.T) {
	la, err := NewLinearAllocator(1024)
	require.NoError(t, err)

	_, err = la.Allocate(16)
	require.NoError(t, err)

	// A request near the uint64 ceiling must fail like any other
	// over-capacity request, not wrap past the capacity check.
	_, err = la.Allocate(^uint64(0) - 8)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.EqualValues(t, 16, la.Offset())

	_, err = la.Allocate(^uint64(0))
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestAllocateNeverFailsWithinCapacity(t *testing.T) {
	la, err := NewLinearAllocator(16 * 64)
	require.NoError(t, err)

	for i := 0; i < 64; i++ {
		_, err := la.Allocate(16)
		require.NoError(t, err, "allocation %d", i)
	}
	_, err = la.Allocate(1)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestFreeAllResetsToBase(t *testing.T) {
	la, err := NewLinearAllocator(256)
	require.NoError(t, err)

	retained, err := la.Allocate(16)
	require.NoError(t, err)
	retained[0] = 0xFF

	epoch := la.Epoch()
	la.FreeAll()
	require.EqualValues(t, 0, la.Offset())
	require.Equal(t, epoch+1, la.Epoch())
	// A block retained across the reset never exposes stale frame data.
	require.EqualValues(t, 0, retained[0])

	// The next allocation comes from the arena base again.
	block, err := la.Allocate(16)
	require.NoError(t, err)
	require.Len(t, block, 16)
	require.EqualValues(t, 16, la.Offset())
}

func TestAllocateRejectsZeroBytes(t *testing.T) {
	la, err := NewLinearAllocator(64)
	require.NoError(t, err)
	_, err = la.Allocate(0)
	require.ErrorIs(t, err, ErrZeroSize)
}
