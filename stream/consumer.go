package stream

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"

	"github.com/haxii/fastresp/errors"
	"github.com/haxii/fastresp/interest"
	"github.com/haxii/fastresp/log"
)

var (
	// ErrBodyClosed is the cancellation cause when the application
	// closes the body before the exchange ends
	ErrBodyClosed = pkgerrors.New("response body closed")

	errClosedBeforeHead = pkgerrors.New("connection closed before response head")
	errClosedBeforeEnd  = pkgerrors.Wrap(io.ErrUnexpectedEOF, "connection closed before body completed")
)

// Options of a Consumer
type Options struct {
	// Capacity of the body sink, DefaultCapacity if not set
	Capacity int
	Logger   log.Logger
	Observer Observer
}

// Consumer implements Handler, buffering the body of one exchange into
// a bounded Sink.
//
// When the sink cannot take more bytes, input is suspended through the
// engine's IOControl and a goroutine waits for the application to free
// space before resuming it. The engine's goroutine never blocks here.
type Consumer struct {
	ctx      context.Context
	req      errors.RequestInfo
	sink     *Sink
	ctl      interest.Controller
	logger   log.Logger
	observer Observer

	state   atomic.Int32
	waiting atomic.Bool

	// head and headErr are written once before headDone is closed
	head     ResponseHead
	headErr  error
	headDone chan struct{}

	errLock sync.Mutex
	err     error

	stopCancel func() bool
}

// NewConsumer makes a consumer for the exchange of req. Cancelling ctx
// cancels the exchange.
func NewConsumer(ctx context.Context, req errors.RequestInfo, opts Options) *Consumer {
	c := &Consumer{
		ctx:      ctx,
		req:      req,
		sink:     NewSink(opts.Capacity),
		logger:   log.OrDefault(opts.Logger, "stream"),
		observer: opts.Observer,
		headDone: make(chan struct{}),
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	c.stopCancel = context.AfterFunc(ctx, func() {
		c.interrupt(context.Cause(ctx))
	})
	return c
}

// State returns the current state
func (c *Consumer) State() State {
	return State(c.state.Load())
}

// Err returns the failure or cancellation cause once terminal
func (c *Consumer) Err() error {
	c.errLock.Lock()
	defer c.errLock.Unlock()
	return c.err
}

// Request returns the request info the consumer reports errors with
func (c *Consumer) Request() errors.RequestInfo {
	return c.req
}

// AwaitHeaders waits for the response head. A failure before the head
// arrived is returned here and by the body alike.
func (c *Consumer) AwaitHeaders(ctx context.Context) (ResponseHead, error) {
	select {
	case <-c.headDone:
		if c.headErr != nil {
			return ResponseHead{}, c.headErr
		}
		return c.head, nil
	case <-ctx.Done():
		return ResponseHead{}, ctx.Err()
	}
}

// Body returns the response body. Read blocks until bytes arrive,
// returning io.EOF after a complete body or the failure cause
// otherwise. Closing it before the end cancels the exchange.
func (c *Consumer) Body() io.ReadCloser {
	return &body{c: c}
}

type body struct {
	c *Consumer
}

func (b *body) Read(p []byte) (int, error) {
	return b.c.sink.Read(p)
}

func (b *body) Close() error {
	b.c.cancel(ErrBodyClosed)
	b.c.sink.Release()
	return nil
}

// OnHeaders resolves the header promise and starts streaming
func (c *Consumer) OnHeaders(head ResponseHead) error {
	if !c.transit(StateIdle, StateStreaming) {
		if c.State().Terminal() {
			return c.Err()
		}
		err := errors.ProtocolViolation("response head delivered twice")
		c.fail(err)
		return c.Err()
	}
	c.head = head
	close(c.headDone)
	return nil
}

// OnData moves every byte dec can give without blocking into the sink.
//
// When nothing more can be taken, either because the sink is full or
// because dec has nothing buffered, input is suspended until the sink
// has room again. Calls arriving while input is suspended, or after the
// exchange ended, take nothing.
func (c *Consumer) OnData(dec ContentDecoder, ctl interest.IOControl) error {
	switch c.State() {
	case StateStreaming:
	case StateIdle:
		c.fail(errors.ProtocolViolation("body data before response head"))
		return c.Err()
	default:
		return c.Err()
	}
	if c.waiting.Load() {
		return nil
	}

	for {
		n, err := c.sink.WriteFrom(dec)
		if n > 0 {
			c.observer.ObserveBytes(n)
		}
		if err == io.EOF || (err == nil && n == 0 && dec.IsCompleted()) {
			c.complete()
			return nil
		}
		if err != nil {
			if err != ErrSinkClosed {
				c.fail(err)
			}
			return c.Err()
		}
		if n == 0 {
			break
		}
	}

	c.waiting.Store(true)
	if err := c.ctl.SuspendInput(ctl); err != nil {
		c.waiting.Store(false)
		c.fail(err)
		return c.Err()
	}
	c.observer.ObserveSuspend()
	go c.awaitSpace()
	return nil
}

func (c *Consumer) awaitSpace() {
	if err := c.sink.AwaitFreeSpace(c.ctx); err != nil {
		c.logger.Debugf("%s stops waiting for sink space: %s", c.req, err)
	}
	c.waiting.Store(false)
	c.ctl.ResumeInputIfPossible()
}

// OnFailure fails the exchange with the classified err
func (c *Consumer) OnFailure(err error) {
	c.fail(err)
}

// OnCancelled cancels the exchange with cause, context.Canceled if nil
func (c *Consumer) OnCancelled(cause error) {
	c.cancel(cause)
}

// OnClose ends the exchange, an exchange that did not complete by now
// is failed
func (c *Consumer) OnClose() {
	switch c.State() {
	case StateIdle:
		c.fail(errClosedBeforeHead)
	case StateStreaming:
		c.fail(errClosedBeforeEnd)
	}
}

func (c *Consumer) transit(from, to State) bool {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	c.observer.ObserveTransition(from, to)
	return true
}

func (c *Consumer) complete() {
	if !c.transit(StateStreaming, StateCompleted) {
		return
	}
	c.sink.Close(nil)
	c.finish(StateCompleted)
}

func (c *Consumer) fail(err error) {
	c.terminate(StateFailed, errors.Classify(err, c.req))
}

func (c *Consumer) cancel(cause error) {
	c.terminate(StateCancelled, errors.Cancelled(c.req, cause))
}

// interrupt ends the exchange when its context is done
func (c *Consumer) interrupt(cause error) {
	err := errors.Interrupted(c.req, cause)
	if err.Kind == errors.KindCancelled {
		c.terminate(StateCancelled, err)
		return
	}
	c.terminate(StateFailed, err)
}

// terminate moves a live consumer into a terminal state, failing the
// header promise if unresolved and closing the sink with err.
//
// err is stored under errLock together with the transition, so Err is
// never nil once State is terminal by failure or cancellation.
func (c *Consumer) terminate(to State, err error) {
	var from State
	c.errLock.Lock()
	for {
		from = c.State()
		if from.Terminal() {
			c.errLock.Unlock()
			return
		}
		if c.transit(from, to) {
			break
		}
	}
	c.err = err
	c.errLock.Unlock()

	if from == StateIdle {
		c.headErr = err
		close(c.headDone)
	}
	c.sink.Close(err)
	c.finish(to)
}

func (c *Consumer) finish(state State) {
	c.stopCancel()
	c.ctl.Release()
	if err := c.Err(); err != nil {
		c.logger.Debugf("%s %s: %s", c.req, state, err)
		return
	}
	c.logger.Debugf("%s %s", c.req, state)
}
