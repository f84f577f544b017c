// Package result classifies finished responses into status kinds and
// recycles the classified values through bounded per kind pools.
package result

import (
	"strconv"
	"sync/atomic"
)

// Response is the handle a result keeps alive, cleaned up once the last
// reference is consumed
type Response interface {
	StatusCode() int
	Cleanup() error
}

// Token identifies one lease of a pooled result. It changes every time
// the result is acquired, so holders of a stale token cannot consume a
// recycled result.
type Token uint32

const refMask = 1<<32 - 1

// Result is a classified response. Acquire it from a Pool and hand it
// back with Consume, once per Acquire or CopyOf.
type Result struct {
	kind Kind
	pool *Pool

	// state holds the lease generation in the high 32 bits and the
	// reference count in the low 32 bits
	state atomic.Uint64

	response Response
	payload  interface{}
}

func unpack(state uint64) (Token, uint32) {
	return Token(state >> 32), uint32(state & refMask)
}

// Kind of the result
func (r *Result) Kind() Kind {
	return r.kind
}

// Category of the result's kind
func (r *Result) Category() Category {
	return r.kind.Category()
}

// Is reports whether the result is of kind k
func (r *Result) Is(k Kind) bool {
	return r.kind == k
}

// Success reports whether the status code is 2xx
func (r *Result) Success() bool {
	return r.Category() == CategorySuccess
}

// StatusCode of the bound response, the kind's code if none is bound
func (r *Result) StatusCode() int {
	if resp := r.response; resp != nil {
		return resp.StatusCode()
	}
	return r.kind.Code()
}

// Response bound by Acquire, nil after the last Consume
func (r *Result) Response() Response {
	return r.response
}

// Payload bound by Acquire, always nil for kinds that carry no payload
func (r *Result) Payload() interface{} {
	return r.payload
}

// Token of the current lease
func (r *Result) Token() Token {
	t, _ := unpack(r.state.Load())
	return t
}

// Refs returns the outstanding reference count
func (r *Result) Refs() int {
	_, refs := unpack(r.state.Load())
	return int(refs)
}

// CopyOf adds a reference and returns r. It returns nil if r was
// already released.
func (r *Result) CopyOf() *Result {
	for {
		state := r.state.Load()
		if _, refs := unpack(state); refs == 0 {
			return nil
		}
		if r.state.CompareAndSwap(state, state+1) {
			return r
		}
	}
}

// Consume drops one reference of the current lease, see ConsumeToken
func (r *Result) Consume() bool {
	return r.ConsumeToken(r.Token())
}

// ConsumeToken drops one reference if token still names the current
// lease, otherwise it does nothing. The last reference cleans up the
// response, clears the payload and returns r to its pool. It reports
// whether a reference was dropped.
func (r *Result) ConsumeToken(token Token) bool {
	for {
		state := r.state.Load()
		gen, refs := unpack(state)
		if gen != token || refs == 0 {
			return false
		}
		if !r.state.CompareAndSwap(state, state-1) {
			continue
		}
		if refs == 1 {
			r.release()
		}
		return true
	}
}

func (r *Result) release() {
	resp := r.response
	r.response = nil
	r.payload = nil
	var err error
	if resp != nil {
		err = resp.Cleanup()
	}
	if r.pool != nil {
		r.pool.put(r, err)
	}
}

// lease rebinds an idle result, the caller owns r exclusively
func (r *Result) lease(resp Response, payload interface{}) {
	r.response = resp
	if r.kind.CarriesPayload() {
		r.payload = payload
	}
	gen, _ := unpack(r.state.Load())
	r.state.Store(uint64(gen+1)<<32 | 1)
}

// Err describes a non 2xx result as an error, nil for success
func (r *Result) Err() error {
	if r.Success() {
		return nil
	}
	e := &StatusError{Code: r.StatusCode(), Kind: r.kind}
	if resp, ok := r.response.(interface{ Status() string }); ok {
		e.Status = resp.Status()
	}
	return e
}

// StatusError reports a result that is not a success. It copies what it
// needs so it outlives the pooled result.
type StatusError struct {
	Code int
	Kind Kind
	// Status line text, e.g. "404 Not Found", when the response offers one
	Status string
}

func (e *StatusError) Error() string {
	status := e.Status
	if len(status) == 0 {
		status = strconv.Itoa(e.Code)
		if reason := e.Kind.Reason(); len(reason) > 0 {
			status += " " + reason
		}
	}
	class := e.Kind.Category().Class()
	if len(class) == 0 {
		return "response has unknown status code - " + status
	}
	return "response has status code " + class + " - " + status
}

// PayloadAs returns the payload of r as T
func PayloadAs[T any](r *Result) (T, bool) {
	v, ok := r.payload.(T)
	return v, ok
}
