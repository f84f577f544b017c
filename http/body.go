package http

import (
	"bufio"
	"bytes"
	"io"

	pkgerrors "github.com/pkg/errors"
)

// BodyType how http body is formed
type BodyType int

const (
	// BodyTypeFixedSize body size is specified in `content-length` header
	BodyTypeFixedSize BodyType = iota
	// BodyTypeChunked body is chunked with `Transfer-Encoding: chunked` in header
	BodyTypeChunked
	// BodyTypeIdentity body lasts until the connection is closed
	BodyTypeIdentity
)

var (
	errEmptyHexNum    = pkgerrors.New("empty hex number")
	errTooLargeHexNum = pkgerrors.New("too large hex number")
	errChunkTooLarge  = pkgerrors.New("chunk header exceeds the read buffer")
)

// BodyReader decodes a response body out of a buffered connection.
//
// Fill is the only blocking call: it waits until body bytes are
// buffered, the body is complete or reading fails. Read then hands out
// buffered body bytes only, returning 0, nil when nothing is buffered
// and 0, io.EOF once the body is complete.
type BodyReader struct {
	r         *bufio.Reader
	bodyType  BodyType
	remaining int64
	chunks    int
	inChunk   bool
	completed bool
	err       error
}

// Reset prepares the reader for a body of the given type, contentLength
// is only used for BodyTypeFixedSize
func (b *BodyReader) Reset(r *bufio.Reader, bodyType BodyType, contentLength int64) {
	*b = BodyReader{r: r, bodyType: bodyType}
	if bodyType == BodyTypeFixedSize {
		b.remaining = contentLength
		b.completed = contentLength <= 0
	}
}

// IsCompleted reports whether every body byte has been handed out by Read
func (b *BodyReader) IsCompleted() bool {
	return b.completed
}

// Err returns the read error, if any
func (b *BodyReader) Err() error {
	return b.err
}

// Fill blocks until Read has something to return
func (b *BodyReader) Fill() error {
	for b.err == nil && !b.completed {
		switch b.bodyType {
		case BodyTypeFixedSize:
			return b.waitBuffered(io.ErrUnexpectedEOF)
		case BodyTypeIdentity:
			err := b.waitBuffered(nil)
			if err == io.EOF {
				b.completed = true
				return nil
			}
			return err
		case BodyTypeChunked:
			if b.inChunk {
				return b.waitBuffered(io.ErrUnexpectedEOF)
			}
			if err := b.readChunkHeader(true); err != nil {
				b.err = err
			}
		default:
			b.err = pkgerrors.Errorf("unknown body type %d", b.bodyType)
		}
	}
	return b.err
}

// waitBuffered waits for at least one buffered byte, io.EOF is replaced
// by eofErr if it is not nil
func (b *BodyReader) waitBuffered(eofErr error) error {
	if b.r.Buffered() > 0 {
		return nil
	}
	if _, err := b.r.Peek(1); err != nil {
		if err == io.EOF {
			if eofErr == nil {
				return io.EOF
			}
			err = eofErr
		}
		b.err = err
		return err
	}
	return nil
}

// Read implements io.Reader without ever blocking
func (b *BodyReader) Read(p []byte) (int, error) {
	for {
		if b.err != nil {
			return 0, b.err
		}
		if b.completed {
			return 0, io.EOF
		}
		if b.bodyType == BodyTypeChunked && !b.inChunk {
			if err := b.readChunkHeader(false); err != nil {
				if err == errNeedMore {
					return 0, nil
				}
				b.err = err
				return 0, err
			}
			continue
		}

		k := int64(b.r.Buffered())
		if k > int64(len(p)) {
			k = int64(len(p))
		}
		if b.bodyType != BodyTypeIdentity && k > b.remaining {
			k = b.remaining
		}
		if k == 0 {
			return 0, nil
		}
		n, _ := b.r.Read(p[:k])
		if b.bodyType != BodyTypeIdentity {
			b.remaining -= int64(n)
			if b.remaining == 0 {
				if b.bodyType == BodyTypeFixedSize {
					b.completed = true
				} else {
					b.inChunk = false
				}
			}
		}
		return n, nil
	}
}

// readChunkHeader consumes the CRLF ending the previous chunk, the next
// chunk size line and, after the last chunk, the trailer section.
// Without block it only looks at bytes already buffered.
func (b *BodyReader) readChunkHeader(block bool) error {
	afterData := b.chunks > 0
	if !block {
		return b.applyChunkHeader(peekBuffered(b.r), afterData)
	}
	n := 1
	for {
		if _, err := b.r.Peek(n); err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			if err == bufio.ErrBufferFull {
				return errChunkTooLarge
			}
			return err
		}
		err := b.applyChunkHeader(peekBuffered(b.r), afterData)
		if err != errNeedMore {
			return err
		}
		n = b.r.Buffered() + 1
		if n > b.r.Size() {
			return errChunkTooLarge
		}
	}
}

func (b *BodyReader) applyChunkHeader(buf []byte, afterData bool) error {
	size, consumed, err := parseChunkHeader(buf, afterData)
	if err != nil {
		return err
	}
	if _, err := b.r.Discard(consumed); err != nil {
		return err
	}
	b.chunks++
	if size == 0 {
		b.completed = true
		return nil
	}
	b.inChunk = true
	b.remaining = size
	return nil
}

// parseChunkHeader parses
//
//	[CRLF] chunk-size [ chunk-ext ] CRLF [ trailer-section CRLF ]
//
// where the leading CRLF ends the previous chunk's data and the
// trailer section follows the last, zero sized, chunk
func parseChunkHeader(buf []byte, afterData bool) (size int64, n int, err error) {
	if afterData {
		switch {
		case len(buf) == 0:
			return 0, 0, errNeedMore
		case buf[0] == '\n':
			n = 1
		case buf[0] != '\r':
			return 0, 0, pkgerrors.Errorf("unexpected char %q at the end of chunk data, expected %q", buf[0], '\r')
		case len(buf) < 2:
			return 0, 0, errNeedMore
		case buf[1] != '\n':
			return 0, 0, pkgerrors.Errorf("unexpected char %q at the end of chunk data, expected %q", buf[1], '\n')
		default:
			n = 2
		}
	}
	end := bytes.IndexByte(buf[n:], '\n')
	if end < 0 {
		return 0, 0, errNeedMore
	}
	line := buf[n : n+end]
	n += end + 1
	if size, err = parseHexInt(line); err != nil {
		return 0, 0, pkgerrors.Wrapf(err, "fail to parse chunk size %q", line)
	}
	if size > 0 {
		return size, n, nil
	}
	for {
		end = bytes.IndexByte(buf[n:], '\n')
		if end < 0 {
			return 0, 0, errNeedMore
		}
		trailer := buf[n : n+end]
		n += end + 1
		if len(trailer) == 0 || (len(trailer) == 1 && trailer[0] == '\r') {
			return 0, n, nil
		}
	}
}
