// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// DefaultFrameSize fits a standard Ethernet frame with VLAN tag.
const DefaultFrameSize = 1518

// FramePool recycles fixed-size receive buffers.
type FramePool struct {
	pool sync.Pool
	size int
}

// NewFramePool creates a pool of buffers of size bytes.
func NewFramePool(size int) *FramePool {
	if size <= 0 {
		size = DefaultFrameSize
	}
	fp := &FramePool{size: size}
	fp.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return fp
}

// Size returns the capacity of buffers handed out.
func (fp *FramePool) Size() int { return fp.size }

// Get returns a buffer of full length Size.
func (fp *FramePool) Get() []byte {
	b := fp.pool.Get().(*[]byte)
	return (*b)[:fp.size]
}

// Put returns a buffer to the pool. Buffers of foreign capacity are dropped.
func (fp *FramePool) Put(buf []byte) {
	if cap(buf) != fp.size {
		return
	}
	buf = buf[:fp.size]
	fp.pool.Put(&buf)
}
