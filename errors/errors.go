// Package errors provides the error taxonomy shared by the interest
// controller, the streaming consumer and the request executor.
package errors

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a failed exchange
type Kind int

const (
	// KindTransport is any engine failure not classified otherwise.
	// Callers decide whether to retry.
	KindTransport Kind = iota
	// KindProtocolViolation means the engine or the caller broke the
	// consumer contract, e.g. a second header event. Never retried.
	KindProtocolViolation
	// KindConnectTimeout connecting to the remote timed out.
	KindConnectTimeout
	// KindReadTimeout reading from an established connection timed out.
	KindReadTimeout
	// KindCancelled the exchange was cancelled by its owner.
	KindCancelled
)

var kindNames = [...]string{
	KindTransport:         "transport error",
	KindProtocolViolation: "protocol violation",
	KindConnectTimeout:    "connect timeout",
	KindReadTimeout:       "read timeout",
	KindCancelled:         "cancelled",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Retryable reports whether a caller's retry policy may repeat the request
func (k Kind) Retryable() bool {
	return k == KindConnectTimeout || k == KindReadTimeout
}

// Sentinels matched with Is against any *Error of the same kind.
var (
	ErrTransport         = &Error{Kind: KindTransport}
	ErrProtocolViolation = &Error{Kind: KindProtocolViolation}
	ErrConnectTimeout    = &Error{Kind: KindConnectTimeout}
	ErrReadTimeout       = &Error{Kind: KindReadTimeout}
	ErrCancelled         = &Error{Kind: KindCancelled}
)

// RequestInfo identifies the request an error belongs to. It is
// carried for context only and never parsed.
type RequestInfo struct {
	ID     string
	Method string
	URL    string
}

func (r RequestInfo) String() string {
	if len(r.ID) == 0 {
		return r.Method + " " + r.URL
	}
	return r.Method + " " + r.URL + " [" + r.ID + "]"
}

// Error is a classified failure of a request/response exchange
type Error struct {
	Kind    Kind
	Request RequestInfo
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if len(e.Request.Method) > 0 || len(e.Request.URL) > 0 {
		b.WriteString(" (")
		b.WriteString(e.Request.String())
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so the package sentinels work
// with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable see Kind.Retryable
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// New makes a classified error of the given kind
func New(kind Kind, req RequestInfo, err error) *Error {
	return &Error{Kind: kind, Request: req, Err: err}
}

// ProtocolViolation makes a protocol violation with a formatted reason
func ProtocolViolation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindProtocolViolation, Err: pkgerrors.Errorf(format, args...)}
}

// Cancelled makes a cancellation error caused by cause, which may be nil
func Cancelled(req RequestInfo, cause error) *Error {
	if cause == nil {
		cause = context.Canceled
	}
	return &Error{Kind: KindCancelled, Request: req, Err: cause}
}

// Interrupted classifies an exchange stopped by its context: an
// expired deadline is a KindReadTimeout, any other cause a cancellation
func Interrupted(req RequestInfo, cause error) *Error {
	if pkgerrors.Is(cause, context.DeadlineExceeded) {
		return New(KindReadTimeout, req, cause)
	}
	return Cancelled(req, cause)
}

// KindOf returns the kind of err, KindTransport for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if pkgerrors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return pkgerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return pkgerrors.As(err, target)
}

// Wrap annotates err with message, nil stays nil
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message, nil stays nil
func Wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// Classify maps a low level engine failure to a classified *Error.
//
// Timeouts while dialing become KindConnectTimeout, timeouts on an
// established connection become KindReadTimeout, context cancellation
// becomes KindCancelled and every other failure passes through as
// KindTransport. Errors already classified are returned untouched.
func Classify(err error, req RequestInfo) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if pkgerrors.As(err, &classified) {
		if len(classified.Request.Method) == 0 && len(classified.Request.URL) == 0 {
			classified.Request = req
		}
		return classified
	}
	switch {
	case pkgerrors.Is(err, context.Canceled):
		return New(KindCancelled, req, err)
	case isConnectTimeout(err):
		return New(KindConnectTimeout, req, err)
	case isReadTimeout(err):
		return New(KindReadTimeout, req, err)
	}
	return New(KindTransport, req, err)
}

func isConnectTimeout(err error) bool {
	var opErr *net.OpError
	if pkgerrors.As(err, &opErr) && opErr.Op == "dial" {
		return opErr.Timeout()
	}
	var dialErr *DialError
	if pkgerrors.As(err, &dialErr) {
		return isTimeout(dialErr.Err)
	}
	return strings.Contains(err.Error(), "Timeout connecting")
}

func isReadTimeout(err error) bool {
	if pkgerrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return isTimeout(err)
}

func isTimeout(err error) bool {
	if pkgerrors.Is(err, os.ErrDeadlineExceeded) || pkgerrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if pkgerrors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// DialError marks a failure that happened while establishing the
// connection, so it can be told apart from read failures
type DialError struct {
	Addr string
	Err  error
}

func (e *DialError) Error() string {
	return "fail to dial " + e.Addr + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *DialError) Unwrap() error {
	return e.Err
}
