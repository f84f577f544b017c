// Package usage counts the bytes the engine moves over its connections.
package usage

import (
	"net"
	"sync/atomic"
)

// Traffic counts bytes sent to and received from remote hosts
type Traffic struct {
	sent     atomic.Uint64
	received atomic.Uint64
}

// AddSent adds n sent bytes
func (t *Traffic) AddSent(n uint64) {
	t.sent.Add(n)
}

// AddReceived adds n received bytes
func (t *Traffic) AddReceived(n uint64) {
	t.received.Add(n)
}

// Sent returns the bytes sent so far
func (t *Traffic) Sent() uint64 {
	return t.sent.Load()
}

// Received returns the bytes received so far
func (t *Traffic) Received() uint64 {
	return t.received.Load()
}

// Conn counts the traffic of a connection
type Conn struct {
	net.Conn
	traffic *Traffic
}

// WrapConn counts the traffic of conn into t, conn is returned as is
// when t is nil
func WrapConn(conn net.Conn, t *Traffic) net.Conn {
	if t == nil || conn == nil {
		return conn
	}
	return &Conn{Conn: conn, traffic: t}
}

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.traffic.AddReceived(uint64(n))
	}
	return n, err
}

func (c *Conn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if n > 0 {
		c.traffic.AddSent(uint64(n))
	}
	return n, err
}
