package result

import (
	"github.com/haxii/fastresp/log"
	"github.com/haxii/fastresp/ringbuffer"
)

// DefaultCapacity idle results kept per kind
const DefaultCapacity = 100

// Observer of pool activity
type Observer interface {
	// ObserveAcquire reused is false when a fresh result was allocated
	ObserveAcquire(kind Kind, reused bool)
	// ObserveRelease pooled is false when the idle ring was full
	ObserveRelease(kind Kind, pooled bool)
	ObserveCleanupError(kind Kind)
}

type nopObserver struct{}

func (nopObserver) ObserveAcquire(Kind, bool) {}
func (nopObserver) ObserveRelease(Kind, bool) {}
func (nopObserver) ObserveCleanupError(Kind)  {}

// Options of a Pool
type Options struct {
	Logger   log.Logger
	Observer Observer
}

// Pool keeps a bounded ring of idle results per kind. Results that come
// back while their ring is full are dropped.
type Pool struct {
	idle     [kindCount]*ringbuffer.Ring[*Result]
	logger   log.Logger
	observer Observer
}

// NewPool makes a pool keeping up to capacity idle results per kind,
// DefaultCapacity if capacity <= 0
func NewPool(capacity int, opts Options) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	p := &Pool{
		logger:   log.OrDefault(opts.Logger, "pool"),
		observer: opts.Observer,
	}
	if p.observer == nil {
		p.observer = nopObserver{}
	}
	for k := range p.idle {
		p.idle[k] = ringbuffer.New[*Result](capacity)
	}
	return p
}

// Acquire returns a result of kind bound to resp with one reference.
// payload is kept only for kinds that carry one.
func (p *Pool) Acquire(kind Kind, resp Response, payload interface{}) *Result {
	if !kind.valid() {
		kind = KindOther
	}
	r, reused := p.idle[kind].Pop()
	if !reused {
		r = &Result{kind: kind, pool: p}
	}
	r.lease(resp, payload)
	p.observer.ObserveAcquire(kind, reused)
	return r
}

// AcquireFor classifies resp by its status code and acquires a result
func (p *Pool) AcquireFor(resp Response, payload interface{}) *Result {
	return p.Acquire(Classify(resp.StatusCode()), resp, payload)
}

// Idle returns the number of pooled results of kind
func (p *Pool) Idle(kind Kind) int {
	if !kind.valid() {
		return 0
	}
	return p.idle[kind].Len()
}

func (p *Pool) put(r *Result, cleanupErr error) {
	if cleanupErr != nil {
		p.logger.Errorf(cleanupErr, "fail to clean up %s response", r.kind)
		p.observer.ObserveCleanupError(r.kind)
	}
	pooled := p.idle[r.kind].Push(r)
	p.observer.ObserveRelease(r.kind, pooled)
}
