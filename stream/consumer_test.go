package stream

import (
	"context"
	"io"
	"net"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haxii/fastresp/errors"
	"github.com/haxii/fastresp/log"
)

// chunkDecoder hands out queued chunks, reporting 0, nil when the queue
// is empty and the body is not finished yet
type chunkDecoder struct {
	lock     sync.Mutex
	chunks   [][]byte
	finished bool
}

func (d *chunkDecoder) add(s string) *chunkDecoder {
	d.lock.Lock()
	d.chunks = append(d.chunks, []byte(s))
	d.lock.Unlock()
	return d
}

func (d *chunkDecoder) finish() *chunkDecoder {
	d.lock.Lock()
	d.finished = true
	d.lock.Unlock()
	return d
}

func (d *chunkDecoder) Read(p []byte) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.chunks) == 0 {
		if d.finished {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(p, d.chunks[0])
	d.chunks[0] = d.chunks[0][n:]
	if len(d.chunks[0]) == 0 {
		d.chunks = d.chunks[1:]
	}
	return n, nil
}

func (d *chunkDecoder) IsCompleted() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.finished && len(d.chunks) == 0
}

// gateControl mimics an engine whose reads can be paused
type gateControl struct {
	lock      sync.Mutex
	paused    bool
	suspends  int
	resumes   int
	resumedCh chan struct{}
}

func newGateControl() *gateControl {
	return &gateControl{resumedCh: make(chan struct{}, 1)}
}

func (g *gateControl) SuspendInput() {
	g.lock.Lock()
	g.paused = true
	g.suspends++
	g.lock.Unlock()
}

func (g *gateControl) RequestInput() {
	g.lock.Lock()
	g.paused = false
	g.resumes++
	g.lock.Unlock()
	select {
	case g.resumedCh <- struct{}{}:
	default:
	}
}

func (g *gateControl) SuspendOutput() {}
func (g *gateControl) RequestOutput() {}

func (g *gateControl) counts() (suspends, resumes int) {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.suspends, g.resumes
}

func (g *gateControl) isPaused() bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.paused
}

// deliver calls OnData like an engine would: never while paused
func deliver(t *testing.T, c *Consumer, dec ContentDecoder, g *gateControl) {
	require.Eventually(t, func() bool { return !g.isPaused() }, time.Second, time.Millisecond)
	require.NoError(t, c.OnData(dec, g))
}

func newTestConsumer(ctx context.Context, capacity int) *Consumer {
	return NewConsumer(ctx, errors.RequestInfo{Method: "GET", URL: "http://example.com/"},
		Options{Capacity: capacity, Logger: log.NopLogger{}})
}

func readAll(t *testing.T, r io.Reader) (string, error) {
	type result struct {
		b   []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := io.ReadAll(r)
		ch <- result{b, err}
	}()
	select {
	case res := <-ch:
		return string(res.b), res.err
	case <-time.After(2 * time.Second):
		t.Fatal("body read timed out")
		return "", nil
	}
}

func TestConsumerHeadersThenChunks(t *testing.T) {
	c := newTestConsumer(context.Background(), 0)
	g := newGateControl()
	require.NoError(t, c.OnHeaders(ResponseHead{StatusCode: 200, Reason: "OK", Protocol: "HTTP/1.1"}))
	assert.Equal(t, StateStreaming, c.State())

	dec := (&chunkDecoder{}).add("hel")
	deliver(t, c, dec, g)
	dec.add("lo").finish()
	deliver(t, c, dec, g)

	head, err := c.AwaitHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, head.StatusCode)

	body, err := readAll(t, c.Body())
	require.NoError(t, err)
	assert.Equal(t, "hello", body)
	assert.Equal(t, StateCompleted, c.State())
	assert.NoError(t, c.Err())
}

func TestConsumerSuspendsWhenNothingAvailable(t *testing.T) {
	c := newTestConsumer(context.Background(), 0)
	g := newGateControl()
	require.NoError(t, c.OnHeaders(ResponseHead{StatusCode: 200}))

	dec := &chunkDecoder{}
	require.NoError(t, c.OnData(dec, g))
	suspends, _ := g.counts()
	assert.Equal(t, 1, suspends)

	select {
	case <-g.resumedCh:
	case <-time.After(time.Second):
		t.Fatal("input never resumed")
	}
	_, resumes := g.counts()
	assert.Equal(t, 1, resumes)

	dec.add("x").finish()
	deliver(t, c, dec, g)
	body, err := readAll(t, c.Body())
	require.NoError(t, err)
	assert.Equal(t, "x", body)
	_, resumes = g.counts()
	assert.Equal(t, 1, resumes, "completion must not resume again")
}

func TestConsumerBackpressureKeepsOrder(t *testing.T) {
	c := newTestConsumer(context.Background(), 4)
	g := newGateControl()
	require.NoError(t, c.OnHeaders(ResponseHead{StatusCode: 200}))

	var want strings.Builder
	dec := &chunkDecoder{}
	for i := 0; i < 50; i++ {
		s := strings.Repeat(string(rune('a'+i%26)), i%7+1)
		want.WriteString(s)
		dec.add(s)
	}
	dec.finish()

	got := make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(c.Body())
		got <- string(b)
	}()

	for i := 0; c.State() == StateStreaming; i++ {
		require.Less(t, i, 10000, "engine loop did not finish")
		deliver(t, c, dec, g)
	}
	select {
	case body := <-got:
		assert.Equal(t, want.String(), body)
	case <-time.After(2 * time.Second):
		t.Fatal("body read timed out")
	}
	assert.Equal(t, StateCompleted, c.State())
	suspends, resumes := g.counts()
	assert.Greater(t, suspends, 0)
	assert.Equal(t, suspends, resumes)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestConsumerFailureMidBody(t *testing.T) {
	c := newTestConsumer(context.Background(), 0)
	g := newGateControl()
	require.NoError(t, c.OnHeaders(ResponseHead{StatusCode: 200}))
	deliver(t, c, (&chunkDecoder{}).add("abc"), g)

	c.OnFailure(&net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}})
	assert.Equal(t, StateFailed, c.State())

	_, err := c.Body().Read(make([]byte, 8))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrReadTimeout))
	assert.Equal(t, c.Err(), err)

	// the header promise was already resolved and stays resolved
	head, err := c.AwaitHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, head.StatusCode)

	// terminal states are final
	c.OnCancelled(nil)
	assert.Equal(t, StateFailed, c.State())
	assert.Error(t, c.OnData((&chunkDecoder{}).add("late"), g))
}

func TestConsumerFailureBeforeHead(t *testing.T) {
	c := newTestConsumer(context.Background(), 0)
	c.OnFailure(&errors.DialError{Addr: "example.com:80", Err: timeoutErr{}})

	_, err := c.AwaitHeaders(context.Background())
	assert.True(t, errors.Is(err, errors.ErrConnectTimeout))
	_, bodyErr := c.Body().Read(make([]byte, 1))
	assert.Equal(t, err, bodyErr, "both paths observe the same failure")
	assert.Equal(t, StateFailed, c.State())
}

func TestConsumerSecondHeadIsViolation(t *testing.T) {
	c := newTestConsumer(context.Background(), 0)
	require.NoError(t, c.OnHeaders(ResponseHead{StatusCode: 200}))
	err := c.OnHeaders(ResponseHead{StatusCode: 500})
	assert.True(t, errors.Is(err, errors.ErrProtocolViolation))
	assert.Equal(t, StateFailed, c.State())
}

func TestConsumerDataBeforeHeadIsViolation(t *testing.T) {
	c := newTestConsumer(context.Background(), 0)
	err := c.OnData((&chunkDecoder{}).add("x"), newGateControl())
	assert.True(t, errors.Is(err, errors.ErrProtocolViolation))
	_, err = c.AwaitHeaders(context.Background())
	assert.True(t, errors.Is(err, errors.ErrProtocolViolation))
}

func TestConsumerCancelReleasesSuspendedInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestConsumer(ctx, 2)
	g := newGateControl()
	require.NoError(t, c.OnHeaders(ResponseHead{StatusCode: 200}))

	// fill the sink so the waiter blocks
	require.NoError(t, c.OnData((&chunkDecoder{}).add("abcd"), g))
	assert.True(t, g.isPaused())

	cancel()
	require.Eventually(t, func() bool { return !g.isPaused() }, time.Second, time.Millisecond)
	_, resumes := g.counts()
	assert.Equal(t, 1, resumes)
	assert.Equal(t, StateCancelled, c.State())

	_, err := c.Body().Read(make([]byte, 1))
	assert.True(t, errors.Is(err, errors.ErrCancelled))
	assert.True(t, errors.Is(err, context.Canceled))

	err = c.OnData((&chunkDecoder{}).add("more"), g)
	assert.True(t, errors.Is(err, errors.ErrCancelled))
}

func TestConsumerDeadlineIsReadTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	c := newTestConsumer(ctx, 0)

	_, err := c.AwaitHeaders(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, c.State())
	assert.True(t, errors.Is(err, errors.ErrReadTimeout))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, errors.ErrCancelled))
}

func TestConsumerCancelledWithCause(t *testing.T) {
	c := newTestConsumer(context.Background(), 0)
	require.NoError(t, c.OnHeaders(ResponseHead{StatusCode: 200}))
	c.OnCancelled(ErrBodyClosed)
	assert.Equal(t, StateCancelled, c.State())
	assert.True(t, errors.Is(c.Err(), errors.ErrCancelled))
	assert.True(t, errors.Is(c.Err(), ErrBodyClosed))

	c = newTestConsumer(context.Background(), 0)
	c.OnCancelled(nil)
	assert.True(t, errors.Is(c.Err(), context.Canceled))
}

func TestConsumerTerminalStateHasError(t *testing.T) {
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		c := newTestConsumer(ctx, 0)
		go cancel()
		for !c.State().Terminal() {
			runtime.Gosched()
		}
		// a head arriving after the cancellation must be refused
		require.Error(t, c.OnHeaders(ResponseHead{StatusCode: 200}))
	}
}

func TestConsumerBodyCloseCancels(t *testing.T) {
	c := newTestConsumer(context.Background(), 0)
	g := newGateControl()
	require.NoError(t, c.OnHeaders(ResponseHead{StatusCode: 200}))
	deliver(t, c, (&chunkDecoder{}).add("abc"), g)

	require.NoError(t, c.Body().Close())
	assert.Equal(t, StateCancelled, c.State())
	assert.True(t, errors.Is(c.Err(), ErrBodyClosed))
}

func TestConsumerCloseBeforeEnd(t *testing.T) {
	c := newTestConsumer(context.Background(), 0)
	c.OnClose()
	_, err := c.AwaitHeaders(context.Background())
	assert.True(t, errors.Is(err, errors.ErrTransport))

	c = newTestConsumer(context.Background(), 0)
	require.NoError(t, c.OnHeaders(ResponseHead{StatusCode: 200}))
	c.OnClose()
	_, err = c.Body().Read(make([]byte, 1))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

type recordingObserver struct {
	lock        sync.Mutex
	transitions []State
	bytes       int
}

func (o *recordingObserver) ObserveTransition(_, to State) {
	o.lock.Lock()
	o.transitions = append(o.transitions, to)
	o.lock.Unlock()
}

func (o *recordingObserver) ObserveBytes(n int) {
	o.lock.Lock()
	o.bytes += n
	o.lock.Unlock()
}

func (o *recordingObserver) ObserveSuspend() {}

func TestConsumerObserver(t *testing.T) {
	o := &recordingObserver{}
	c := NewConsumer(context.Background(), errors.RequestInfo{}, Options{Logger: log.NopLogger{}, Observer: o})
	require.NoError(t, c.OnHeaders(ResponseHead{StatusCode: 204}))
	require.NoError(t, c.OnData((&chunkDecoder{}).add("1234").finish(), newGateControl()))

	o.lock.Lock()
	defer o.lock.Unlock()
	assert.Equal(t, []State{StateStreaming, StateCompleted}, o.transitions)
	assert.Equal(t, 4, o.bytes)
}
