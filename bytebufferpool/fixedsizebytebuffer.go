package bytebufferpool

import (
	"io"
)

// MaxSize default max size for byte buffer
var MaxSize = 32 * 1024

// FixedSizeByteBuffer provides a bounded FIFO of bytes.
//
// Writers append at the tail until the buffer is full, readers consume
// from the head. Unread bytes are moved to the front lazily, only when
// the tail runs out of room.
//
// Use MakeFixedSizeByteBuffer or FixedSizeByteBufferPool.Get for
// obtaining an empty buffer.
type FixedSizeByteBuffer struct {
	// B is the backing storage, its length is the buffer capacity.
	B []byte
	r int
	w int
}

// MakeFixedSizeByteBuffer makes an empty fixed size buffer
func MakeFixedSizeByteBuffer(size int) *FixedSizeByteBuffer {
	return &FixedSizeByteBuffer{B: make([]byte, size)}
}

// Bytes returns the unread bytes, valid until the next buffer modification.
func (b *FixedSizeByteBuffer) Bytes() []byte {
	return b.B[b.r:b.w]
}

// Len returns the number of unread bytes
func (b *FixedSizeByteBuffer) Len() int {
	return b.w - b.r
}

// Cap returns the capacity of the buffer
func (b *FixedSizeByteBuffer) Cap() int {
	return len(b.B)
}

// Free returns how many bytes can still be written
func (b *FixedSizeByteBuffer) Free() int {
	return len(b.B) - b.Len()
}

// Write implements io.Writer, io.ErrShortBuffer is returned together
// with the written length if p doesn't fit
func (b *FixedSizeByteBuffer) Write(p []byte) (int, error) {
	tail := b.Tail()
	n := copy(tail, p)
	b.w += n
	if n < len(p) {
		return n, io.ErrShortBuffer
	}
	return n, nil
}

// Tail returns the writable region of the buffer, bytes copied into it
// become readable after Commit
func (b *FixedSizeByteBuffer) Tail() []byte {
	if b.r == b.w {
		b.r, b.w = 0, 0
	} else if b.w == len(b.B) && b.r > 0 {
		n := copy(b.B, b.B[b.r:b.w])
		b.r, b.w = 0, n
	}
	return b.B[b.w:]
}

// Commit makes n bytes previously copied into Tail readable
func (b *FixedSizeByteBuffer) Commit(n int) {
	if n < 0 || b.w+n > len(b.B) {
		panic("bytebufferpool: commit out of range")
	}
	b.w += n
}

// Read implements io.Reader, it returns io.EOF when the buffer is empty
func (b *FixedSizeByteBuffer) Read(p []byte) (int, error) {
	if b.r == b.w {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.B[b.r:b.w])
	b.r += n
	return n, nil
}

// Reset drops all unread bytes
func (b *FixedSizeByteBuffer) Reset() {
	b.r, b.w = 0, 0
}
