package bytebufferpool

import (
	"io"
)

// minRead is the smallest free space ReadFrom reads into
const minRead = 512

// ByteBuffer is a growable byte buffer used for request heads and for
// collecting whole response bodies.
//
// Use Get for obtaining an empty byte buffer.
type ByteBuffer struct {
	// B is a byte buffer to use in append-like workloads.
	B []byte
}

// Len returns the size of the byte buffer.
func (b *ByteBuffer) Len() int {
	return len(b.B)
}

// ReadFrom appends everything read from r until io.EOF, which is not
// reported. The bytes read before a failure stay in the buffer.
func (b *ByteBuffer) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	for {
		if cap(b.B)-len(b.B) < minRead {
			grown := make([]byte, len(b.B), 2*cap(b.B)+minRead)
			copy(grown, b.B)
			b.B = grown
		}
		n, err := r.Read(b.B[len(b.B):cap(b.B)])
		b.B = b.B[:len(b.B)+n]
		total += int64(n)
		switch {
		case err == io.EOF:
			return total, nil
		case err != nil:
			return total, err
		}
	}
}

// Bytes returns b.B, valid until the buffer is put back.
func (b *ByteBuffer) Bytes() []byte {
	return b.B
}

// Copy returns a copy of the buffered bytes that outlives the buffer
func (b *ByteBuffer) Copy() []byte {
	return append([]byte(nil), b.B...)
}

// Write implements io.Writer - it appends p to ByteBuffer.B
func (b *ByteBuffer) Write(p []byte) (int, error) {
	b.B = append(b.B, p...)
	return len(p), nil
}

// WriteByte appends the byte c to the buffer, it always returns nil.
func (b *ByteBuffer) WriteByte(c byte) error {
	b.B = append(b.B, c)
	return nil
}

// WriteString appends s to ByteBuffer.B.
func (b *ByteBuffer) WriteString(s string) (int, error) {
	b.B = append(b.B, s...)
	return len(s), nil
}

// Reset makes ByteBuffer.B empty.
func (b *ByteBuffer) Reset() {
	b.B = b.B[:0]
}
