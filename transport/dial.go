package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/haxii/fastresp/errors"
)

// Dial connects to addr over tcp. It gives up after timeout, unless
// timeout <= 0, or when ctx is done. Failures are *errors.DialError.
func Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &errors.DialError{Addr: addr, Err: err}
	}
	return conn, nil
}

// DialTLS connects to addr and completes the tls handshake within the
// same timeout
func DialTLS(ctx context.Context, addr string, timeout time.Duration, tlsConfig *tls.Config) (net.Conn, error) {
	d := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    tlsConfig,
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &errors.DialError{Addr: addr, Err: err}
	}
	return conn, nil
}

// MakeClientTLSConfig makes a client tls config for host. serverName
// overrides the name verified against the certificate, which defaults to
// the host part of host.
func MakeClientTLSConfig(host, serverName string, insecureSkipVerify bool) *tls.Config {
	tlsConfig := &tls.Config{
		ClientSessionCache: tls.NewLRUClientSessionCache(0),
		InsecureSkipVerify: insecureSkipVerify,
	}
	if len(serverName) > 0 {
		tlsConfig.ServerName = serverName
		return tlsConfig
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if len(host) == 0 {
		tlsConfig.InsecureSkipVerify = true
	} else {
		tlsConfig.ServerName = host
	}
	return tlsConfig
}
