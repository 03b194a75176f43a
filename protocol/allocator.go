package protocol

import (
	"math/bits"
	"sync"
)

// Allocator supplies backing buffers for decoded byte strings.
// Implementations must be safe for concurrent use and must not change decoded
// contents: Allocate returns a slice of exactly size bytes that the Reader
// overwrites completely.
type Allocator interface {
	Allocate(size int) []byte
	Release(buf []byte)
}

// HeapAllocator allocates a fresh slice on every call.
type HeapAllocator struct{}

func (HeapAllocator) Allocate(size int) []byte { return make([]byte, size) }
func (HeapAllocator) Release([]byte)           {}

const (
	minBucketShift = 6  // 64 B
	maxBucketShift = 20 // 1 MiB
)

// PoolAllocator recycles released buffers in power-of-two buckets.
// Buffers larger than 1 MiB bypass the pool.
type PoolAllocator struct {
	buckets [maxBucketShift - minBucketShift + 1]sync.Pool
}

// NewPoolAllocator returns an empty pool.
func NewPoolAllocator() *PoolAllocator {
	return &PoolAllocator{}
}

func bucketFor(size int) int {
	if size <= 1<<minBucketShift {
		return 0
	}
	shift := bits.Len(uint(size - 1))
	if shift > maxBucketShift {
		return -1
	}
	return shift - minBucketShift
}

// Allocate returns a buffer of len size, reusing a released one when possible.
func (p *PoolAllocator) Allocate(size int) []byte {
	idx := bucketFor(size)
	if idx < 0 {
		return make([]byte, size)
	}
	if v := p.buckets[idx].Get(); v != nil {
		buf := *(v.(*[]byte))
		return buf[:size]
	}
	return make([]byte, size, 1<<(idx+minBucketShift))
}

// Release hands buf back for reuse. The caller must not touch buf afterwards.
func (p *PoolAllocator) Release(buf []byte) {
	c := cap(buf)
	idx := bucketFor(c)
	if idx < 0 || c != 1<<(idx+minBucketShift) {
		return
	}
	buf = buf[:0]
	p.buckets[idx].Put(&buf)
}
