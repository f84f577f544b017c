package client

import (
	"bufio"
	"context"
	"mime"
	"strings"
	"sync"
)

const eventStreamType = "text/event-stream"

// maxLineSize longest line Lines accepts
const maxLineSize = 1 << 20

// LineStream delivers the non blank lines of an event stream
type LineStream struct {
	// C is closed when the stream ends, check Err afterwards
	C <-chan string

	resp      *Response
	err       error
	stop      chan struct{}
	closeOnce sync.Once
}

// Response the lines are read from
func (s *LineStream) Response() *Response {
	return s.resp
}

// Err returns why the stream ended early, nil after a clean end. Only
// valid once C is closed.
func (s *LineStream) Err() error {
	return s.err
}

// Close stops the stream and cleans up the response
func (s *LineStream) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return s.resp.Cleanup()
}

// Lines sends req and, for a text/event-stream response, streams its
// non blank lines. Any other response is cleaned up and nil returned.
func (c *Client) Lines(ctx context.Context, req *Request) (*LineStream, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.ContentType()); mediaType != eventStreamType {
		return nil, resp.Cleanup()
	}
	lines := make(chan string)
	s := &LineStream{C: lines, resp: resp, stop: make(chan struct{})}
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body())
		scanner.Buffer(make([]byte, 4096), maxLineSize)
		for scanner.Scan() {
			line := scanner.Text()
			if len(strings.TrimSpace(line)) == 0 {
				continue
			}
			select {
			case lines <- line:
			case <-s.stop:
				return
			case <-ctx.Done():
				s.err = context.Cause(ctx)
				resp.Cleanup()
				return
			}
		}
		s.err = scanner.Err()
		resp.Cleanup()
	}()
	return s, nil
}
