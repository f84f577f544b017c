// Package engine executes HTTP/1.x requests over pooled keep-alive
// connections and streams each response into a stream.Handler.
//
// The goroutine calling Execute reads the connection. Suspending input
// through the IOControl handed to OnData parks that goroutine until
// input is requested again, so a slow handler stops the socket reads
// instead of growing buffers.
package engine

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/haxii/fastresp/bufiopool"
	"github.com/haxii/fastresp/bytebufferpool"
	"github.com/haxii/fastresp/errors"
	"github.com/haxii/fastresp/http"
	"github.com/haxii/fastresp/log"
	"github.com/haxii/fastresp/servertime"
	"github.com/haxii/fastresp/stream"
	"github.com/haxii/fastresp/transport"
	"github.com/haxii/fastresp/usage"
)

// ErrConnectionClosed may be returned if the server closes connection
// before returning the first response byte.
//
// If you see this error, then either fix the server by returning
// 'Connection: close' response header before closing the connection
// or add 'Connection: close' request header before sending requests
// to broken server.
var ErrConnectionClosed = pkgerrors.New("the server closed connection before returning the first response byte. " +
	"Make sure the server returns 'Connection: close' response header before closing the connection")

const maxAttempts = 5

// Engine implements the connection engine.
//
// Copying Engine by value is prohibited. Create new instance instead.
//
// It is safe calling Engine methods from concurrently running go routines.
type Engine struct {
	// Maximum number of connections per each host which may be established.
	//
	// transport.DefaultMaxConnsPerHost is used if not set.
	MaxConnsPerHost int

	// Idle keep-alive connections are closed after this duration.
	//
	// By default idle connections are closed after
	// transport.DefaultMaxIdleConnDuration.
	MaxIdleConnDuration time.Duration

	// Keep-alive connections are closed after this duration.
	//
	// By default connection duration is unlimited.
	MaxConnDuration time.Duration

	// Maximum duration for establishing a connection, tls handshake
	// included. Exceeding it is a connect timeout.
	//
	// By default dialing is only bounded by the request context.
	DialTimeout time.Duration

	// Maximum duration of a single read from the connection. Exceeding
	// it is a read timeout.
	//
	// By default reads are unlimited.
	ReadTimeout time.Duration

	// Maximum duration for full request writing (including body).
	//
	// By default request write timeout is unlimited.
	WriteTimeout time.Duration

	// BufioPool buffer connection reader & writer pool, its read buffer
	// size bounds the response header block
	BufioPool *bufiopool.Pool

	// TLSConfig for https targets, the server name is filled in per host
	TLSConfig *tls.Config

	// Usage counts the bytes of every connection when set
	Usage *usage.Traffic

	Logger log.Logger

	initOnce sync.Once

	hostsLock sync.Mutex
	// host connections, separate common and TLS hosts
	hosts    map[string]*hostConns
	tlsHosts map[string]*hostConns
}

func (e *Engine) init() {
	e.initOnce.Do(func() {
		if e.BufioPool == nil {
			e.BufioPool = bufiopool.New(bufiopool.MinReadBufferSize, bufiopool.MinWriteBufferSize)
		}
		e.Logger = log.OrDefault(e.Logger, "engine")
	})
}

// hostConns keep-alive connections of one host
type hostConns struct {
	transport.ConnManager

	addr      string
	tlsConfig *tls.Config

	lastUseTime atomic.Int64
}

func (hc *hostConns) touch() {
	hc.lastUseTime.Store(servertime.CoarseTimeNow().Unix())
}

func (hc *hostConns) idleSince() time.Time {
	return time.Unix(hc.lastUseTime.Load(), 0)
}

func (hc *hostConns) dial(ctx context.Context, timeout time.Duration) (net.Conn, error) {
	if hc.tlsConfig != nil {
		return transport.DialTLS(ctx, hc.addr, timeout, hc.tlsConfig)
	}
	return transport.Dial(ctx, hc.addr, timeout)
}

func (e *Engine) tlsConfigFor(hostWithPort string) *tls.Config {
	if e.TLSConfig == nil {
		return transport.MakeClientTLSConfig(hostWithPort, "", false)
	}
	cfg := e.TLSConfig.Clone()
	if len(cfg.ServerName) == 0 {
		if host, _, err := net.SplitHostPort(hostWithPort); err == nil {
			cfg.ServerName = host
		}
	}
	return cfg
}

// getHostConns get or add the connections of a host
func (e *Engine) getHostConns(hostWithPort string, isTLS bool) *hostConns {
	startCleaner := false

	e.hostsLock.Lock()
	var hosts map[string]*hostConns
	if isTLS {
		if e.tlsHosts == nil {
			e.tlsHosts = make(map[string]*hostConns)
		}
		hosts = e.tlsHosts
	} else {
		if e.hosts == nil {
			e.hosts = make(map[string]*hostConns)
		}
		hosts = e.hosts
	}
	hc := hosts[hostWithPort]
	if hc == nil {
		hc = &hostConns{
			addr: hostWithPort,
			ConnManager: transport.ConnManager{
				MaxConns:            e.MaxConnsPerHost,
				MaxConnDuration:     e.MaxConnDuration,
				MaxIdleConnDuration: e.MaxIdleConnDuration,
			},
		}
		if isTLS {
			hc.tlsConfig = e.tlsConfigFor(hostWithPort)
		}
		hosts[hostWithPort] = hc
		if len(hosts) == 1 {
			startCleaner = true
		}
	}
	hc.touch()
	e.hostsLock.Unlock()

	if startCleaner {
		go e.mCleaner(hosts)
	}
	return hc
}

func (e *Engine) mCleaner(m map[string]*hostConns) {
	mustStop := false
	for {
		t := time.Now()
		var stale []*hostConns
		e.hostsLock.Lock()
		for k, v := range m {
			if open, _ := v.Stats(); open == 0 && t.Sub(v.idleSince()) > time.Minute {
				delete(m, k)
				stale = append(stale, v)
			}
		}
		if len(m) == 0 {
			mustStop = true
		}
		e.hostsLock.Unlock()

		for _, hc := range stale {
			hc.CloseIdle()
		}
		if mustStop {
			break
		}
		time.Sleep(10 * time.Second)
	}
}

func (e *Engine) allHostConns() []*hostConns {
	e.hostsLock.Lock()
	defer e.hostsLock.Unlock()
	all := make([]*hostConns, 0, len(e.hosts)+len(e.tlsHosts))
	for _, hc := range e.hosts {
		all = append(all, hc)
	}
	for _, hc := range e.tlsHosts {
		all = append(all, hc)
	}
	return all
}

// CloseIdleConnections closes the idle keep-alive connections of every host
func (e *Engine) CloseIdleConnections() {
	for _, hc := range e.allHostConns() {
		hc.CloseIdle()
	}
}

// ConnStats returns the open and idle connections summed over all hosts
func (e *Engine) ConnStats() (open, idle int) {
	for _, hc := range e.allHostConns() {
		o, i := hc.Stats()
		open += o
		idle += i
	}
	return open, idle
}

// Execute sends req and drives h with the response. It returns once the
// exchange is over: the body was fully handed to h, h stopped it, it
// failed or ctx was cancelled.
//
// h sees OnHeaders and OnData while the response flows, then one of
// OnFailure or OnCancelled if it did not complete, and OnClose last.
// An expired ctx deadline is a read timeout failure, not a cancellation.
// The returned error is the classified failure, the cancellation, or
// the error h returned to stop the exchange.
func (e *Engine) Execute(ctx context.Context, req *Request, h stream.Handler) error {
	e.init()
	stopErr, err := e.execute(ctx, req, h)
	switch {
	case stopErr != nil:
		err = stopErr
	case err != nil && ctx.Err() != nil:
		cause := context.Cause(ctx)
		err = errors.Interrupted(req.Info(), cause)
		if errors.KindOf(err) == errors.KindCancelled {
			h.OnCancelled(cause)
		} else {
			h.OnFailure(err)
		}
	case err != nil:
		err = errors.Classify(err, req.Info())
		e.Logger.Debugf("%s failed: %s", req.Info(), err)
		h.OnFailure(err)
	}
	h.OnClose()
	return err
}

func (e *Engine) execute(ctx context.Context, req *Request, h stream.Handler) (stopErr, err error) {
	hostWithPort, isTLS, err := req.target()
	if err != nil {
		return nil, err
	}
	hc := e.getHostConns(hostWithPort, isTLS)

	head := bytebufferpool.Get()
	defer bytebufferpool.Put(head)
	writeHead(head, req, hostWithPort)

	var retry bool
	for attempts := 1; ; attempts++ {
		retry, stopErr, err = e.do(ctx, hc, req, head.Bytes(), h)
		if err == nil || !retry || attempts >= maxAttempts || ctx.Err() != nil {
			break
		}
		e.Logger.Debugf("retrying %s on a fresh connection: %s", req.Info(), err)
	}
	if err == io.EOF {
		err = ErrConnectionClosed
	}
	return stopErr, err
}

// do runs one attempt. retry reports that nothing reached h yet and the
// request may be sent again.
func (e *Engine) do(ctx context.Context, hc *hostConns, req *Request, head []byte,
	h stream.Handler) (retry bool, stopErr, err error) {
	hc.touch()
	cc, err := hc.AcquireConn(func() (net.Conn, error) {
		conn, err := hc.dial(ctx, e.DialTimeout)
		return usage.WrapConn(conn, e.Usage), err
	})
	if err != nil {
		return false, nil, err
	}
	conn := cc.Get()
	dl := &deadlines{conn: conn}
	stopCancel := context.AfterFunc(ctx, dl.cancel)
	reuse := false
	defer func() {
		stopCancel()
		if reuse && dl.clear() == nil {
			hc.ReleaseConn(cc)
		} else {
			hc.CloseConn(cc)
		}
	}()
	replayable := cc.Reused() && req.replayable()

	// write request
	if err = dl.setWrite(e.WriteTimeout); err != nil {
		return false, nil, err
	}
	bw := e.BufioPool.AcquireWriter(conn)
	_, err = bw.Write(head)
	if err == nil {
		err = writeBody(bw, req)
	}
	e.BufioPool.ReleaseWriter(bw)
	if err != nil {
		return replayable, nil, err
	}

	// get response
	br := e.BufioPool.AcquireReader(conn)
	defer e.BufioPool.ReleaseReader(br)
	if err = dl.setRead(e.ReadTimeout); err != nil {
		return false, nil, err
	}
	// read a byte from response to test if the connection has been closed by remote
	if _, err = br.Peek(1); err != nil {
		return replayable && err == io.EOF, nil, err
	}

	var line http.ResponseLine
	var header http.Header
	for {
		line.Reset()
		if err = line.Parse(br); err != nil {
			return false, nil, err
		}
		if err = header.ParseHeaderFields(br); err != nil {
			return false, nil, err
		}
		// skip interim responses, 101 ends the exchange as is
		if code := line.GetStatusCode(); code < 100 || code >= 200 || code == 101 {
			break
		}
	}
	statusCode := line.GetStatusCode()
	if stopErr = h.OnHeaders(stream.ResponseHead{
		StatusCode: statusCode,
		Reason:     string(line.GetStatusMessage()),
		Protocol:   string(line.GetProtocol()),
		Header:     header.Fields(),
	}); stopErr != nil {
		return false, stopErr, nil
	}

	var body http.BodyReader
	bodyType := http.BodyTypeFixedSize
	if hasBody(req.method(), statusCode) {
		bodyType = header.BodyType()
		body.Reset(br, bodyType, header.ContentLength())
	} else {
		body.Reset(br, bodyType, 0)
	}
	g := newGate()
	for {
		if err = dl.setRead(e.ReadTimeout); err != nil {
			return false, nil, err
		}
		if err = body.Fill(); err != nil {
			return false, nil, err
		}
		if stopErr = h.OnData(&body, g); stopErr != nil {
			return false, stopErr, nil
		}
		if body.IsCompleted() {
			break
		}
		if err = g.wait(ctx); err != nil {
			return false, nil, err
		}
	}

	reuse = statusCode != 101 &&
		string(line.GetProtocol()) == protocolHTTP11 &&
		bodyType != http.BodyTypeIdentity &&
		!header.IsConnectionClose() &&
		!wantsClose(req)
	return false, nil, nil
}
