package bytebufferpool

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestByteBufferReadFromAppends(t *testing.T) {
	var bb ByteBuffer
	bb.WriteString("head:")
	body := strings.Repeat("0123456789", 300)
	n, err := bb.ReadFrom(iotest.OneByteReader(strings.NewReader(body)))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if n != int64(len(body)) {
		t.Fatalf("unexpected n=%d. Expecting %d", n, len(body))
	}
	if string(bb.Bytes()) != "head:"+body {
		t.Fatalf("unexpected buffer of length %d", bb.Len())
	}
}

func TestByteBufferReadFromKeepsPartialRead(t *testing.T) {
	broken := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(broken))
	b := Get()
	defer Put(b)
	n, err := b.ReadFrom(r)
	if err != broken {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 || string(b.Bytes()) != "partial" {
		t.Fatalf("unexpected partial read n=%d %q", n, b.Bytes())
	}
}

func TestByteBufferCopyOutlivesPut(t *testing.T) {
	b := Get()
	b.WriteString("GET / HTTP/1.1\r\n")
	b.WriteByte('\r')
	b.WriteByte('\n')
	c := b.Copy()
	Put(b)

	reused := Get()
	reused.WriteString("overwritten overwritten")
	if string(c) != "GET / HTTP/1.1\r\n\r\n" {
		t.Fatalf("copy changed after the buffer was reused: %q", c)
	}
	Put(reused)
}

func TestByteBufferGetPutConcurrent(t *testing.T) {
	done := make(chan error, 10)
	for g := 0; g < 10; g++ {
		go func(g int) {
			for i := 0; i < 10; i++ {
				b := Get()
				if b.Len() != 0 {
					done <- fmt.Errorf("buffer not reset, length %d", b.Len())
					return
				}
				fmt.Fprintf(b, "%d-%d", g, i)
				if !bytes.Equal(b.Bytes(), []byte(fmt.Sprintf("%d-%d", g, i))) {
					done <- fmt.Errorf("unexpected content %q", b.Bytes())
					return
				}
				Put(b)
			}
			done <- nil
		}(g)
	}
	for g := 0; g < 10; g++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}
