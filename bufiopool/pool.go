// Package bufiopool pools the buffered readers and writers the engine
// wraps around connections. The reader size bounds the largest response
// header block the engine accepts.
package bufiopool

import (
	"bufio"
	"io"
	"sync"
)

// Pool buff io read and writer pool
type Pool struct {
	readBufferSize  int
	writeBufferSize int

	readerPool sync.Pool
	writerPool sync.Pool
}

const (
	// MinReadBufferSize default read size for buffer io
	MinReadBufferSize = 4096
	// MinWriteBufferSize default write size for buffer io
	MinWriteBufferSize = 4096
)

// New make a new buff io pool
// min read / write buffer size is set if they are
// smaller than MinReadBufferSize / MinWriteBufferSize
func New(readBufferSize, writeBufferSize int) *Pool {
	if readBufferSize < MinReadBufferSize {
		readBufferSize = MinReadBufferSize
	}
	if writeBufferSize < MinWriteBufferSize {
		writeBufferSize = MinWriteBufferSize
	}
	return &Pool{
		readBufferSize:  readBufferSize,
		writeBufferSize: writeBufferSize,
	}
}

// ReadBufferSize of the readers handed out
func (p *Pool) ReadBufferSize() int {
	return p.readBufferSize
}

// WriteBufferSize of the writers handed out
func (p *Pool) WriteBufferSize() int {
	return p.writeBufferSize
}

// AcquireReader acquire a buffered reader based on net connection
func (p *Pool) AcquireReader(c io.Reader) *bufio.Reader {
	v := p.readerPool.Get()
	if v == nil {
		return bufio.NewReaderSize(c, p.readBufferSize)
	}
	r := v.(*bufio.Reader)
	r.Reset(c)
	return r
}

// ReleaseReader release a buffered reader, it must not be used afterwards
func (p *Pool) ReleaseReader(r *bufio.Reader) {
	r.Reset(nil)
	p.readerPool.Put(r)
}

// AcquireWriter acquire a buffered writer based on net connection
func (p *Pool) AcquireWriter(c io.Writer) *bufio.Writer {
	v := p.writerPool.Get()
	if v == nil {
		return bufio.NewWriterSize(c, p.writeBufferSize)
	}
	bw := v.(*bufio.Writer)
	bw.Reset(c)
	return bw
}

// ReleaseWriter release a buffered writer, unflushed bytes are dropped
func (p *Pool) ReleaseWriter(bw *bufio.Writer) {
	bw.Reset(nil)
	p.writerPool.Put(bw)
}
