package bytebufferpool

import (
	"sync"
)

// FixedSizeByteBufferPool pools fixed size buffers of one size
type FixedSizeByteBufferPool struct {
	// Size of the buffers, MaxSize is used if not set
	Size int

	pool sync.Pool
}

func (p *FixedSizeByteBufferPool) size() int {
	if p.Size > 0 {
		return p.Size
	}
	return MaxSize
}

// Get returns an empty buffer
func (p *FixedSizeByteBufferPool) Get() *FixedSizeByteBuffer {
	value := p.pool.Get()
	if value != nil {
		return value.(*FixedSizeByteBuffer)
	}
	return MakeFixedSizeByteBuffer(p.size())
}

// Put resets the buffer and returns it into the pool,
// buffers of a different size are dropped
func (p *FixedSizeByteBufferPool) Put(byteBuffer *FixedSizeByteBuffer) {
	if byteBuffer == nil || byteBuffer.Cap() != p.size() {
		return
	}
	byteBuffer.Reset()
	p.pool.Put(byteBuffer)
}
