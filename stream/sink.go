package stream

import (
	"context"
	"io"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/haxii/fastresp/bytebufferpool"
)

// DefaultCapacity is the sink capacity used when none is configured
const DefaultCapacity = 32 * 1024

// ErrSinkClosed is returned when writing into a closed sink
var ErrSinkClosed = pkgerrors.New("sink closed")

var sinkBufferPools sync.Map // capacity -> *bytebufferpool.FixedSizeByteBufferPool

func sinkBufferPool(capacity int) *bytebufferpool.FixedSizeByteBufferPool {
	if p, ok := sinkBufferPools.Load(capacity); ok {
		return p.(*bytebufferpool.FixedSizeByteBufferPool)
	}
	p, _ := sinkBufferPools.LoadOrStore(capacity,
		&bytebufferpool.FixedSizeByteBufferPool{Size: capacity})
	return p.(*bytebufferpool.FixedSizeByteBufferPool)
}

// Sink is a bounded single producer single consumer byte channel.
//
// The producer never blocks: WriteFrom takes what fits and reports 0
// when the sink is full. The consumer blocks in Read until bytes are
// buffered or the sink is closed. A clean close delivers every buffered
// byte before io.EOF, a close with a cause drops buffered bytes and
// reports the cause.
type Sink struct {
	pool *bytebufferpool.FixedSizeByteBufferPool

	lock   sync.Mutex
	buf    *bytebufferpool.FixedSizeByteBuffer
	closed bool
	cause  error

	readable chan struct{}
	writable chan struct{}
	done     chan struct{}
}

// NewSink makes a sink buffering at most capacity bytes,
// DefaultCapacity is used if capacity is not positive
func NewSink(capacity int) *Sink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	pool := sinkBufferPool(capacity)
	return &Sink{
		pool:     pool,
		buf:      pool.Get(),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// WriteFrom reads once from src into the free space of the sink.
//
// It returns 0 without touching src when the sink is full, and
// ErrSinkClosed once the sink is closed. src must not block.
func (s *Sink) WriteFrom(src io.Reader) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return 0, ErrSinkClosed
	}
	tail := s.buf.Tail()
	if len(tail) == 0 {
		return 0, nil
	}
	n, err := src.Read(tail)
	if n > 0 {
		s.buf.Commit(n)
		notify(s.readable)
	}
	return n, err
}

// Read implements io.Reader, blocking until bytes are buffered or the
// sink is closed
func (s *Sink) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		s.lock.Lock()
		if s.buf != nil && s.buf.Len() > 0 {
			n, _ := s.buf.Read(p)
			notify(s.writable)
			s.lock.Unlock()
			return n, nil
		}
		if s.closed {
			cause := s.cause
			s.lock.Unlock()
			if cause == nil {
				return 0, io.EOF
			}
			return 0, cause
		}
		s.lock.Unlock()

		select {
		case <-s.readable:
		case <-s.done:
		}
	}
}

// AwaitFreeSpace blocks until at least one byte can be written.
//
// It fails with the close cause, or ErrSinkClosed, once the sink is
// closed, and with the context error when ctx is done first.
func (s *Sink) AwaitFreeSpace(ctx context.Context) error {
	for {
		s.lock.Lock()
		if s.closed {
			cause := s.cause
			s.lock.Unlock()
			if cause == nil {
				return ErrSinkClosed
			}
			return cause
		}
		free := s.buf.Free()
		s.lock.Unlock()
		if free > 0 {
			return nil
		}

		select {
		case <-s.writable:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes the sink with cause, nil meaning a clean end of stream.
// Only the first call has effect, it reports whether this call closed
// the sink.
func (s *Sink) Close(cause error) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.cause = cause
	if cause != nil && s.buf != nil {
		s.buf.Reset()
	}
	close(s.done)
	return true
}

// Done is closed when the sink is closed
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether the sink is closed
func (s *Sink) Closed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

// Buffered returns the number of unread bytes
func (s *Sink) Buffered() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.buf == nil {
		return 0
	}
	return s.buf.Len()
}

// Release closes the sink if still open and hands its buffer back to
// the pool. Unread bytes are dropped.
func (s *Sink) Release() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.closed {
		s.closed = true
		s.cause = ErrSinkClosed
		close(s.done)
	}
	if s.buf != nil {
		s.pool.Put(s.buf)
		s.buf = nil
	}
}
