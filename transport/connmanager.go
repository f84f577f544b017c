package transport

import (
	"io"
	"math/rand"
	"net"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/haxii/fastresp/servertime"
)

const (
	// DefaultMaxConnsPerHost is the maximum number of concurrent connections
	// the engine may establish per host by default
	DefaultMaxConnsPerHost = 512

	// DefaultMaxIdleConnDuration is the default duration before idle keep-alive
	// connection is closed.
	DefaultMaxIdleConnDuration = 10 * time.Second
)

// ConnManager manages the keep-alive connections of one host
type ConnManager struct {
	// Maximum number of connections which may be established to the host
	//
	// DefaultMaxConnsPerHost is used if not set.
	MaxConns int

	// Keep-alive connections are closed after this duration.
	//
	// By default connection duration is unlimited.
	MaxConnDuration time.Duration

	// Idle keep-alive connections are closed after this duration.
	//
	// By default idle connections are closed
	// after DefaultMaxIdleConnDuration.
	MaxIdleConnDuration time.Duration

	connsLock  sync.Mutex
	connsCount int
	conns      []*Conn

	connsCleanerRun bool
}

// ErrNoFreeConns is returned when no free connections available
// to the given host.
//
// Increase the allowed number of connections per host if you
// see this error.
var ErrNoFreeConns = pkgerrors.New("no free connections available to host")

// DialFunc makes a new connection to the host
type DialFunc func() (net.Conn, error)

// AcquireConn returns an idle keep-alive connection, or a new one made
// by dial if there is none
func (c *ConnManager) AcquireConn(dial DialFunc) (*Conn, error) {
	var cc *Conn
	createConn := false
	startCleaner := false

	var n int
	c.connsLock.Lock()
	n = len(c.conns)
	if n == 0 {
		maxConns := c.MaxConns
		if maxConns <= 0 {
			maxConns = DefaultMaxConnsPerHost
		}
		if c.connsCount < maxConns {
			c.connsCount++
			createConn = true
			if !c.connsCleanerRun {
				startCleaner = true
				c.connsCleanerRun = true
			}
		}
	} else {
		n--
		cc = c.conns[n]
		c.conns[n] = nil
		c.conns = c.conns[:n]
	}
	c.connsLock.Unlock()

	if cc != nil {
		cc.reused = true
		return cc, nil
	}
	if !createConn {
		return nil, ErrNoFreeConns
	}

	if startCleaner {
		go c.connsCleaner()
	}

	conn, err := dial()
	if err != nil {
		c.decConnsCount()
		return nil, err
	}
	return acquireConn(conn), nil
}

func (c *ConnManager) connsCleaner() {
	maxIdleConnDuration := c.MaxIdleConnDuration
	if maxIdleConnDuration <= 0 {
		maxIdleConnDuration = DefaultMaxIdleConnDuration
	}

	var scratch []*Conn
	for {
		currentTime := time.Now()

		// Determine idle connections to be closed.
		c.connsLock.Lock()
		conns := c.conns
		n := len(conns)
		i := 0
		for i < n && currentTime.Sub(conns[i].lastUseTime) > maxIdleConnDuration {
			i++
		}
		scratch = append(scratch[:0], conns[:i]...)
		if i > 0 {
			m := copy(conns, conns[i:])
			for i = m; i < n; i++ {
				conns[i] = nil
			}
			c.conns = conns[:m]
		}
		c.connsLock.Unlock()

		// Close idle connections.
		for i, cc := range scratch {
			c.CloseConn(cc)
			scratch[i] = nil
		}

		// Determine whether to stop the connsCleaner.
		c.connsLock.Lock()
		mustStop := c.connsCount == 0
		if mustStop {
			c.connsCleanerRun = false
		}
		c.connsLock.Unlock()
		if mustStop {
			break
		}

		time.Sleep(maxIdleConnDuration)
	}
}

// CloseConn closes the connection and frees its slot
func (c *ConnManager) CloseConn(cc *Conn) {
	c.decConnsCount()
	cc.c.Close()
	releaseConn(cc)
}

func (c *ConnManager) decConnsCount() {
	c.connsLock.Lock()
	c.connsCount--
	c.connsLock.Unlock()
}

// ReleaseConn puts the connection back into the idle pool, or closes
// it if the remote already closed it or it outlived MaxConnDuration
func (c *ConnManager) ReleaseConn(cc *Conn) {
	if c.MaxConnDuration > 0 && time.Since(cc.createdTime) > c.MaxConnDuration {
		c.CloseConn(cc)
		return
	}
	go func() { // release the connection in new go routine cause of the delay
		if isConnClosedByRemote(cc.c, 10*time.Microsecond) {
			c.CloseConn(cc)
			return
		}
		cc.lastUseTime = servertime.CoarseTimeNow()
		c.connsLock.Lock()
		c.conns = append(c.conns, cc)
		c.connsLock.Unlock()
	}()
}

// CloseIdle closes every idle connection
func (c *ConnManager) CloseIdle() {
	c.connsLock.Lock()
	idle := c.conns
	c.conns = nil
	c.connsLock.Unlock()
	for _, cc := range idle {
		c.CloseConn(cc)
	}
}

// Stats returns the number of open and idle connections
func (c *ConnManager) Stats() (open, idle int) {
	c.connsLock.Lock()
	defer c.connsLock.Unlock()
	return c.connsCount, len(c.conns)
}

func isConnClosedByRemote(conn net.Conn, delay time.Duration) bool {
	one := []byte{'1'}
	conn.SetReadDeadline(time.Now().Add(delay))
	if _, err := conn.Read(one); err == io.EOF {
		return true
	}
	var zero time.Time
	conn.SetReadDeadline(zero)
	return false
}

var connPool sync.Pool

func acquireConn(conn net.Conn) *Conn {
	v := connPool.Get()
	if v == nil {
		v = &Conn{}
	}
	cc := v.(*Conn)
	cc.c = conn
	cc.id = rand.Uint64()
	cc.reused = false
	cc.createdTime = servertime.CoarseTimeNow()
	return cc
}

func releaseConn(cc *Conn) {
	*cc = Conn{}
	connPool.Put(cc)
}

// Conn wrapper of net.conn as a manager
type Conn struct {
	c      net.Conn
	id     uint64
	reused bool

	createdTime time.Time
	lastUseTime time.Time

	// last read and write deadline time
	LastReadDeadlineTime  time.Time
	LastWriteDeadlineTime time.Time
}

// Get get the net conn in cc
func (cc *Conn) Get() net.Conn {
	return cc.c
}

// ID returns the id for this connection
func (cc *Conn) ID() uint64 {
	return cc.id
}

// Reused reports whether cc came out of the idle pool
func (cc *Conn) Reused() bool {
	return cc.reused
}

// CreatedTime get the net conn created time
func (cc *Conn) CreatedTime() time.Time {
	return cc.createdTime
}

// LastUseTime get the net conn last use time
func (cc *Conn) LastUseTime() time.Time {
	return cc.lastUseTime
}
