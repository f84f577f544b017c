package errors

import (
	"context"
	"io"
	"net"
	"os"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	req := RequestInfo{ID: "1", Method: "GET", URL: "http://example.com/"}
	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"dial timeout", &net.OpError{Op: "dial", Net: "tcp", Err: timeoutErr{}}, KindConnectTimeout},
		{"wrapped dial", &DialError{Addr: "a:80", Err: timeoutErr{}}, KindConnectTimeout},
		{"connect message", pkgerrors.New("Timeout connecting to [a:80]"), KindConnectTimeout},
		{"read timeout", &net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}}, KindReadTimeout},
		{"deadline", pkgerrors.Wrap(os.ErrDeadlineExceeded, "read body"), KindReadTimeout},
		{"context deadline", context.DeadlineExceeded, KindReadTimeout},
		{"cancelled", pkgerrors.Wrap(context.Canceled, "exchange"), KindCancelled},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: pkgerrors.New("connection refused")}, KindTransport},
		{"eof", io.ErrUnexpectedEOF, KindTransport},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Classify(c.err, req)
			require.Error(t, err)
			assert.Equal(t, c.kind, KindOf(err))
			var e *Error
			require.True(t, As(err, &e))
			assert.Equal(t, req, e.Request)
			assert.True(t, Is(err, c.err), "cause must stay reachable")
		})
	}
}

func TestClassifyKeepsClassified(t *testing.T) {
	assert.Nil(t, Classify(nil, RequestInfo{}))

	pv := ProtocolViolation("second header event")
	err := Classify(pkgerrors.Wrap(pv, "consumer"), RequestInfo{Method: "GET", URL: "/x"})
	assert.True(t, Is(err, ErrProtocolViolation))
	assert.Equal(t, "GET", pv.Request.Method)
}

func TestSentinels(t *testing.T) {
	err := New(KindReadTimeout, RequestInfo{}, io.EOF)
	assert.True(t, Is(err, ErrReadTimeout))
	assert.False(t, Is(err, ErrConnectTimeout))
	assert.True(t, err.Retryable())
	assert.False(t, ProtocolViolation("x").Retryable())
	assert.True(t, Is(Cancelled(RequestInfo{}, nil), context.Canceled))
}

func TestErrorMessage(t *testing.T) {
	err := New(KindTransport, RequestInfo{ID: "42", Method: "POST", URL: "http://h/p"}, io.ErrUnexpectedEOF)
	assert.Equal(t, "transport error (POST http://h/p [42]): unexpected EOF", err.Error())
	assert.Equal(t, "protocol violation: bad", ProtocolViolation("bad").Error())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestInterrupted(t *testing.T) {
	req := RequestInfo{Method: "GET", URL: "http://h/"}
	err := Interrupted(req, context.DeadlineExceeded)
	assert.Equal(t, KindReadTimeout, err.Kind)
	assert.True(t, Is(err, context.DeadlineExceeded))
	assert.True(t, err.Retryable())

	err = Interrupted(req, pkgerrors.Wrap(context.DeadlineExceeded, "exchange"))
	assert.Equal(t, KindReadTimeout, err.Kind)

	err = Interrupted(req, context.Canceled)
	assert.Equal(t, KindCancelled, err.Kind)
	assert.Equal(t, KindCancelled, Interrupted(req, nil).Kind)
}
