package bytebufferpool

import "sync"

// Pool pools growable byte buffers
type Pool struct {
	pool sync.Pool
}

// Get returns an empty byte buffer from the pool
func (p *Pool) Get() *ByteBuffer {
	v := p.pool.Get()
	if v != nil {
		return v.(*ByteBuffer)
	}
	return &ByteBuffer{B: make([]byte, 0, defaultByteBufferSize)}
}

// Put returns byte buffer to the pool.
//
// ByteBuffer.B mustn't be touched after returning it to the pool.
func (p *Pool) Put(b *ByteBuffer) {
	// oversized buffers are left for GC
	if cap(b.B) > maxPooledByteBufferSize {
		return
	}
	b.Reset()
	p.pool.Put(b)
}

const (
	defaultByteBufferSize   = 512
	maxPooledByteBufferSize = 1 << 20
)

var defaultPool Pool

// Get returns an empty byte buffer from the default pool.
func Get() *ByteBuffer { return defaultPool.Get() }

// Put returns byte buffer to the default pool.
func Put(b *ByteBuffer) { defaultPool.Put(b) }
