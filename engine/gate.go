package engine

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// gate is the IOControl of one exchange. Suspending input parks the
// reading goroutine in wait until RequestInput.
type gate struct {
	inputPaused  atomic.Bool
	outputPaused atomic.Bool
	wake         chan struct{}
}

func newGate() *gate {
	return &gate{wake: make(chan struct{}, 1)}
}

func (g *gate) SuspendInput() {
	g.inputPaused.Store(true)
}

func (g *gate) RequestInput() {
	g.inputPaused.Store(false)
	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// The request is written in full before the response is read, so
// output interest is only recorded.
func (g *gate) SuspendOutput() {
	g.outputPaused.Store(true)
}

func (g *gate) RequestOutput() {
	g.outputPaused.Store(false)
}

// wait blocks while input is suspended
func (g *gate) wait(ctx context.Context) error {
	for g.inputPaused.Load() {
		select {
		case <-g.wake:
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}
	return nil
}

var aLongTimeAgo = time.Unix(1, 0)

// deadlines serializes deadline updates with cancellation, so a refresh
// never revives a connection that cancel already expired
type deadlines struct {
	conn net.Conn

	lock      sync.Mutex
	cancelled bool
	lastRead  time.Time
	lastWrite time.Time
}

func (d *deadlines) cancel() {
	d.lock.Lock()
	d.cancelled = true
	d.conn.SetDeadline(aLongTimeAgo)
	d.lock.Unlock()
}

func (d *deadlines) isCancelled() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.cancelled
}

// Optimization: update the deadline only if more than 25% of the
// timeout passed since the last update.
// See https://github.com/golang/go/issues/15133 for details.
func (d *deadlines) setRead(timeout time.Duration) error {
	return d.set(timeout, &d.lastRead, d.conn.SetReadDeadline)
}

func (d *deadlines) setWrite(timeout time.Duration) error {
	return d.set(timeout, &d.lastWrite, d.conn.SetWriteDeadline)
}

func (d *deadlines) set(timeout time.Duration, last *time.Time, apply func(time.Time) error) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.cancelled {
		return context.Canceled
	}
	if timeout <= 0 {
		return nil
	}
	now := time.Now()
	if now.Sub(*last) <= timeout>>2 {
		return nil
	}
	if err := apply(now.Add(timeout)); err != nil {
		return err
	}
	*last = now
	return nil
}

// clear removes every deadline before the connection goes idle
func (d *deadlines) clear() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.cancelled {
		return context.Canceled
	}
	return d.conn.SetDeadline(time.Time{})
}
