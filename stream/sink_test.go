package stream

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkCleanCloseDeliversBufferedBytes(t *testing.T) {
	s := NewSink(8)
	n, err := s.WriteFrom(bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.True(t, s.Close(nil))
	assert.False(t, s.Close(pkgerrors.New("late")), "close happens once")

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestSinkFailureCloseSurfacesCause(t *testing.T) {
	s := NewSink(8)
	s.WriteFrom(bytes.NewReader([]byte("partial")))
	cause := pkgerrors.New("boom")
	s.Close(cause)

	p := make([]byte, 8)
	n, err := s.Read(p)
	assert.Equal(t, 0, n, "buffered bytes are dropped on failure")
	assert.Equal(t, cause, err)

	_, err = s.WriteFrom(bytes.NewReader([]byte("x")))
	assert.Equal(t, ErrSinkClosed, err)
	assert.Equal(t, cause, s.AwaitFreeSpace(context.Background()))
}

func TestSinkFullTakesNothing(t *testing.T) {
	s := NewSink(4)
	src := bytes.NewReader([]byte("abcdef"))
	n, err := s.WriteFrom(src)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = s.WriteFrom(src)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, src.Len(), "full sink must not read from the source")
}

func TestSinkAwaitFreeSpace(t *testing.T) {
	s := NewSink(2)
	s.WriteFrom(bytes.NewReader([]byte("ab")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, s.AwaitFreeSpace(ctx))

	done := make(chan error, 1)
	go func() { done <- s.AwaitFreeSpace(context.Background()) }()
	p := make([]byte, 1)
	_, err := s.Read(p)
	require.NoError(t, err)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reading did not free space")
	}
}

func TestSinkReadBlocksUntilWrite(t *testing.T) {
	s := NewSink(8)
	got := make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(s)
		got <- string(b)
	}()
	time.Sleep(10 * time.Millisecond)
	s.WriteFrom(bytes.NewReader([]byte("ab")))
	s.WriteFrom(bytes.NewReader([]byte("cd")))
	s.Close(nil)
	select {
	case v := <-got:
		assert.Equal(t, "abcd", v)
	case <-time.After(time.Second):
		t.Fatal("reader never finished")
	}
}

func TestSinkRelease(t *testing.T) {
	s := NewSink(8)
	s.WriteFrom(bytes.NewReader([]byte("ab")))
	s.Release()
	assert.True(t, s.Closed())
	assert.Equal(t, 0, s.Buffered())
	_, err := s.Read(make([]byte, 1))
	assert.Equal(t, ErrSinkClosed, err)
	s.Release()
}
