package client

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/haxii/fastresp/bytebufferpool"
	"github.com/haxii/fastresp/errors"
	"github.com/haxii/fastresp/http"
	"github.com/haxii/fastresp/stream"
)

// Response of one exchange. Its body streams while it is read; call
// Cleanup, or let a result.Result do it, once done with it.
type Response struct {
	head         stream.ResponseHead
	requestTime  time.Time
	responseTime time.Time

	consumer *stream.Consumer
	body     io.ReadCloser
	cancel   context.CancelCauseFunc
	done     <-chan error

	cleanupOnce sync.Once
	execErr     error
}

// StatusCode of the response
func (r *Response) StatusCode() int {
	return r.head.StatusCode
}

// Status is the code and reason phrase, e.g. "404 Not Found"
func (r *Response) Status() string {
	if len(r.head.Reason) == 0 {
		return strconv.Itoa(r.head.StatusCode)
	}
	return strconv.Itoa(r.head.StatusCode) + " " + r.head.Reason
}

// Protocol e.g. HTTP/1.1
func (r *Response) Protocol() string {
	return r.head.Protocol
}

// Header fields in arrival order
func (r *Response) Header() http.Fields {
	return r.head.Header
}

// ContentType value of the Content-Type header
func (r *Response) ContentType() string {
	return r.head.Header.Get("Content-Type")
}

// RequestTime is when the request was issued
func (r *Response) RequestTime() time.Time {
	return r.requestTime
}

// ResponseTime is when the response head arrived
func (r *Response) ResponseTime() time.Time {
	return r.responseTime
}

// Body streams the response body. Reading it after a failure returns
// the classified error instead of io.EOF.
func (r *Response) Body() io.Reader {
	return r.body
}

// State of the underlying exchange
func (r *Response) State() stream.State {
	return r.consumer.State()
}

// Bytes reads the rest of the body
func (r *Response) Bytes() ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(r.body); err != nil {
		return nil, err
	}
	return buf.Copy(), nil
}

// Cleanup abandons whatever is left of the body and waits for the
// connection to be released. It returns the error the exchange failed
// with, if any, ignoring the cancellation Cleanup itself caused.
func (r *Response) Cleanup() error {
	r.cleanupOnce.Do(func() {
		r.body.Close()
		// a completed exchange is releasing its connection, cancelling
		// it now could close a reusable connection
		if r.consumer.State() != stream.StateCompleted {
			r.cancel(stream.ErrBodyClosed)
		}
		err := <-r.done
		r.cancel(stream.ErrBodyClosed)
		if err != nil && !errors.Is(err, errors.ErrCancelled) {
			r.execErr = err
		}
	})
	return r.execErr
}
