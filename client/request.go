package client

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/haxii/fastresp/engine"
	"github.com/haxii/fastresp/http"
)

// Request http request used for client
type Request struct {
	// ID identifies the request in errors and logs, a random uuid is
	// assigned by the client if empty
	ID string

	Method string
	URL    *url.URL
	Header http.Fields

	// Body is sent when not nil, ContentLength < 0 sends it chunked
	Body          io.Reader
	ContentLength int64

	// Close asks the server to close the connection after the response
	Close bool
}

// NewRequest makes a request without a body
func NewRequest(method, rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid url %q", rawURL)
	}
	return &Request{Method: strings.ToUpper(method), URL: u}, nil
}

// SetBody sets a body of known length
func (r *Request) SetBody(b []byte) {
	r.Body = bytes.NewReader(b)
	r.ContentLength = int64(len(b))
}

// SetBodyStream sets a body sent chunked
func (r *Request) SetBodyStream(body io.Reader) {
	r.Body = body
	r.ContentLength = -1
}

func (r *Request) engineRequest() *engine.Request {
	if len(r.ID) == 0 {
		r.ID = uuid.NewString()
	}
	return &engine.Request{
		ID:            r.ID,
		Method:        r.Method,
		URL:           r.URL,
		Header:        r.Header,
		Body:          r.Body,
		ContentLength: r.ContentLength,
		Close:         r.Close,
	}
}
