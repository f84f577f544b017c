package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Field a single header field
type Field struct {
	Name  string
	Value string
}

// Fields header fields in the order received
type Fields []Field

// Get returns the first value of name, names are case-insensitive
func (f Fields) Get(name string) string {
	for _, field := range f {
		if strings.EqualFold(field.Name, name) {
			return field.Value
		}
	}
	return ""
}

// Values returns all values of name
func (f Fields) Values(name string) []string {
	var values []string
	for _, field := range f {
		if strings.EqualFold(field.Name, name) {
			values = append(values, field.Value)
		}
	}
	return values
}

// Add appends a field
func (f *Fields) Add(name, value string) {
	*f = append(*f, Field{Name: name, Value: value})
}

// Header header part of http response
type Header struct {
	isConnectionClose bool
	// content length >= 0 means the length of the body
	// content length < 0 means the transfer encoding is set,
	//  -1 means chunked
	//  -2 means identity
	//  -3 means no length given at all
	contentLength int64
	contentType   string
	fields        Fields
}

const (
	lengthChunked  = -1
	lengthIdentity = -2
	lengthUnknown  = -3
)

// Reset reset header info into default val
func (header *Header) Reset() {
	header.isConnectionClose = false
	header.contentLength = lengthUnknown
	header.contentType = ""
	header.fields = nil
}

// IsConnectionClose is connection header set to `close`
func (header *Header) IsConnectionClose() bool {
	return header.isConnectionClose
}

// ContentType content type in header
func (header *Header) ContentType() string {
	return header.contentType
}

// ContentLength content length header value, -1 if not given
func (header *Header) ContentLength() int64 {
	if header.contentLength >= 0 {
		return header.contentLength
	}
	return -1
}

// Fields all parsed header fields
func (header *Header) Fields() Fields {
	return header.fields
}

// BodyType return body type parsed from header
func (header *Header) BodyType() BodyType {
	switch header.contentLength {
	case lengthChunked:
		return BodyTypeChunked
	case lengthIdentity, lengthUnknown:
		return BodyTypeIdentity
	}
	return BodyTypeFixedSize
}

// ParseHeaderFields parse http header fields from reader up to and
// including the empty line ending the header block.
//
// Each header field consists of a case-insensitive field name followed
// by a colon (":"), optional leading whitespace, the field value, and
// optional trailing whitespace.
func (header *Header) ParseHeaderFields(reader *bufio.Reader) error {
	header.Reset()
	n := 1
	for {
		err := header.tryRead(reader, n)
		if err == nil {
			return nil
		}
		header.Reset()
		if err != errNeedMore {
			return err
		}
		n = reader.Buffered() + 1
		if n > reader.Size() {
			return errHeaderTooLarge
		}
	}
}

var (
	errNeedMore       = pkgerrors.New("need more data: cannot find trailing lf")
	errHeaderTooLarge = pkgerrors.New("header block exceeds the read buffer")
)

func (header *Header) tryRead(reader *bufio.Reader, n int) error {
	// do NOT use reader.ReadBytes here
	// which would allocate extra byte memory
	if b, err := reader.Peek(n); err != nil {
		if err == io.EOF && len(b) > 0 {
			return io.ErrUnexpectedEOF
		}
		return err
	} else if len(b) == 0 {
		return io.EOF
	}
	b := peekBuffered(reader)
	headersLen, err := header.readHeaders(b)
	if err != nil {
		return err
	}
	// jump over the header fields
	_, err = reader.Discard(headersLen)
	return err
}

func (header *Header) readHeaders(buf []byte) (int, error) {
	n := 0
	for {
		m := bytes.IndexByte(buf[n:], '\n')
		if m < 0 {
			return 0, errNeedMore
		}
		line := buf[n : n+m]
		n += m + 1
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			return n, nil
		}
		if err := header.parseLine(line); err != nil {
			return 0, err
		}
	}
}

func (header *Header) parseLine(line []byte) error {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return pkgerrors.Errorf("malformed header line %q", line)
	}
	name := string(bytes.TrimSpace(line[:colon]))
	value := string(bytes.TrimSpace(line[colon+1:]))
	header.fields.Add(name, value)

	switch {
	case strings.EqualFold(name, "Connection"):
		if strings.Contains(strings.ToLower(value), "close") {
			header.isConnectionClose = true
		}
	case strings.EqualFold(name, "Transfer-Encoding"):
		lower := strings.ToLower(value)
		if strings.Contains(lower, "chunked") {
			header.contentLength = lengthChunked
		} else if strings.Contains(lower, "identity") {
			header.contentLength = lengthIdentity
		}
	case strings.EqualFold(name, "Content-Length"):
		// content-length header only counts with transfer encoding unset
		if header.contentLength >= 0 || header.contentLength == lengthUnknown {
			length, err := strconv.ParseInt(value, 10, 64)
			if err != nil || length < 0 {
				return pkgerrors.Errorf("invalid content length %q", value)
			}
			header.contentLength = length
		}
	case strings.EqualFold(name, "Content-Type"):
		header.contentType = value
	}
	return nil
}
