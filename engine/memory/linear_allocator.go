package memory

import (
	"errors"
	"fmt"
)

// DefaultAlignment is applied to every allocation so returned blocks are
// usable as storage for any scalar payload.
const DefaultAlignment uint64 = 16

var (
	ErrOutOfMemory = errors.New("linear allocator out of memory")
	ErrZeroSize    = errors.New("linear allocator requested zero bytes")
)

// LinearAllocator is a bump allocator backing all per-frame transient
// allocations. There is no per-block free; FreeAll releases everything at
// once at the top of the next frame. It is not safe for concurrent use.
type LinearAllocator struct {
	buffer []byte
	offset uint64
	epoch  uint64
}

func NewLinearAllocator(totalSize uint64) (*LinearAllocator, error) {
	if totalSize == 0 {
		return nil, fmt.Errorf("linear allocator created with zero capacity")
	}
	return &LinearAllocator{
		buffer: make([]byte, totalSize),
	}, nil
}

// Allocate returns a zeroed block of size bytes at the current watermark,
// padded to DefaultAlignment. A request beyond the remaining capacity fails
// without moving the watermark; that is a frame-budget sizing defect, not a
// recoverable condition, so callers are expected to treat it loudly.
func (la *LinearAllocator) Allocate(size uint64) ([]byte, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	aligned := alignUp(la.offset, DefaultAlignment)
	// Compare by subtraction; aligned+size can wrap around for huge requests.
	if aligned > uint64(len(la.buffer)) || size > uint64(len(la.buffer))-aligned {
		remaining := uint64(len(la.buffer)) - la.offset
		return nil, fmt.Errorf("tried to allocate %dB, only %dB remaining of %dB: %w",
			size, remaining, len(la.buffer), ErrOutOfMemory)
	}
	block := la.buffer[aligned : aligned+size : aligned+size]
	la.offset = aligned + size
	return block, nil
}

// FreeAll resets the watermark to the base of the buffer and advances the
// epoch. Every block handed out before this call is invalid afterwards; the
// used region is zeroed so stale frame data can never be observed through a
// retained slice.
func (la *LinearAllocator) FreeAll() {
	used := la.buffer[:la.offset]
	for i := range used {
		used[i] = 0
	}
	la.offset = 0
	la.epoch++
}

// Offset reports the current watermark in bytes from the buffer base.
func (la *LinearAllocator) Offset() uint64 {
	return la.offset
}

// TotalSize reports the fixed capacity chosen at creation.
func (la *LinearAllocator) TotalSize() uint64 {
	return uint64(len(la.buffer))
}

// Epoch increments on every FreeAll. Frame-scoped containers record it to
// reject reads that straddle a reset.
func (la *LinearAllocator) Epoch() uint64 {
	return la.epoch
}

func alignUp(value, alignment uint64) uint64 {
	return (value + alignment - 1) &^ (alignment - 1)
}
