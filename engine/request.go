package engine

import (
	"bufio"
	"io"
	"net"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/haxii/fastresp/bytebufferpool"
	"github.com/haxii/fastresp/errors"
	"github.com/haxii/fastresp/http"
)

// Request is what the engine sends. Host, Content-Length and
// Transfer-Encoding are derived from the request and dropped from Header.
type Request struct {
	ID     string
	Method string
	URL    *url.URL
	Header http.Fields

	// Body is sent when not nil. ContentLength >= 0 sends exactly that
	// many bytes, a negative value sends the body chunked.
	Body          io.Reader
	ContentLength int64

	// Close asks the server to close the connection after the response
	Close bool
}

// Info identifies the request in errors
func (r *Request) Info() errors.RequestInfo {
	if r == nil {
		return errors.RequestInfo{}
	}
	info := errors.RequestInfo{ID: r.ID, Method: r.Method}
	if r.URL != nil {
		info.URL = r.URL.String()
	}
	return info
}

var (
	errNilRequest        = pkgerrors.New("nil request")
	errNoHost            = pkgerrors.New("no host in request url")
	errUnsupportedScheme = pkgerrors.New("unsupported url scheme")
)

// target returns host with port and whether the connection needs tls
func (r *Request) target() (hostWithPort string, isTLS bool, err error) {
	if r == nil || r.URL == nil {
		return "", false, errNilRequest
	}
	switch strings.ToLower(r.URL.Scheme) {
	case "http", "":
	case "https":
		isTLS = true
	default:
		return "", false, pkgerrors.Wrap(errUnsupportedScheme, r.URL.Scheme)
	}
	host := r.URL.Host
	if len(host) == 0 {
		return "", false, errNoHost
	}
	if len(r.URL.Port()) == 0 {
		port := defaultHTTPPort
		if isTLS {
			port = defaultHTTPSPort
		}
		host = net.JoinHostPort(r.URL.Hostname(), port)
	}
	return host, isTLS, nil
}

func (r *Request) method() string {
	if len(r.Method) == 0 {
		return methodGet
	}
	return strings.ToUpper(r.Method)
}

// replayable requests may be sent again on a fresh connection when a
// reused keep-alive connection turns out to be closed
func (r *Request) replayable() bool {
	return r.Body == nil && isHeadOrGet(r.method())
}

const (
	methodGet        = "GET"
	methodHead       = "HEAD"
	defaultHTTPPort  = "80"
	defaultHTTPSPort = "443"
	protocolHTTP11   = "HTTP/1.1"
	defaultUserAgent = "fastresp"
)

func isHead(method string) bool {
	return method == methodHead
}

// isHeadOrGet get, head as idempotent methods
func isHeadOrGet(method string) bool {
	return method == methodGet || isHead(method)
}

// hasBody reports whether a response to method with status code may
// carry a body
func hasBody(method string, statusCode int) bool {
	if isHead(method) {
		return false
	}
	if statusCode >= 100 && statusCode < 200 {
		return false
	}
	return statusCode != 204 && statusCode != 304
}

var (
	startLineSP      = byte(' ')
	startLinePathSep = byte('/')
	crlf             = "\r\n"
	colonSpace       = ": "
)

// writeHead writes the request line and header of r into buf
func writeHead(buf *bytebufferpool.ByteBuffer, r *Request, hostWithPort string) {
	method := r.method()
	buf.WriteString(method)
	buf.WriteByte(startLineSP)
	path := r.URL.RequestURI()
	if len(path) == 0 || path[0] != startLinePathSep {
		buf.WriteByte(startLinePathSep)
	}
	buf.WriteString(path)
	buf.WriteByte(startLineSP)
	buf.WriteString(protocolHTTP11)
	buf.WriteString(crlf)

	host := r.Header.Get("Host")
	if len(host) == 0 {
		host = r.URL.Host
		if len(host) == 0 {
			host = hostWithPort
		}
	}
	writeField(buf, "Host", host)
	if len(r.Header.Get("User-Agent")) == 0 {
		writeField(buf, "User-Agent", defaultUserAgent)
	}
	for _, f := range r.Header {
		switch {
		case strings.EqualFold(f.Name, "Host"),
			strings.EqualFold(f.Name, "Content-Length"),
			strings.EqualFold(f.Name, "Transfer-Encoding"):
			continue
		case strings.EqualFold(f.Name, "Connection") && r.Close:
			continue
		}
		writeField(buf, f.Name, f.Value)
	}
	if r.Close {
		writeField(buf, "Connection", "close")
	}
	switch {
	case r.Body == nil:
		if !isHeadOrGet(method) {
			writeField(buf, "Content-Length", "0")
		}
	case r.ContentLength >= 0:
		writeField(buf, "Content-Length", strconv.FormatInt(r.ContentLength, 10))
	default:
		writeField(buf, "Transfer-Encoding", "chunked")
	}
	buf.WriteString(crlf)
}

func writeField(buf *bytebufferpool.ByteBuffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(colonSpace)
	buf.WriteString(value)
	buf.WriteString(crlf)
}

// wantsClose reports whether r's own header asks to close the connection
func wantsClose(r *Request) bool {
	if r.Close {
		return true
	}
	for _, v := range r.Header.Values("Connection") {
		if strings.EqualFold(strings.TrimSpace(v), "close") {
			return true
		}
	}
	return false
}

var errShortBody = pkgerrors.New("request body shorter than its content length")

// writeBody streams r's body into bw and flushes
func writeBody(bw *bufio.Writer, r *Request) error {
	if r.Body == nil {
		return bw.Flush()
	}
	if r.ContentLength >= 0 {
		n, err := io.CopyN(bw, r.Body, r.ContentLength)
		if err == io.EOF && n < r.ContentLength {
			return errShortBody
		}
		if err != nil {
			return err
		}
		return bw.Flush()
	}
	cw := httputil.NewChunkedWriter(bw)
	if _, err := io.Copy(cw, r.Body); err != nil {
		return err
	}
	if err := cw.Close(); err != nil {
		return err
	}
	if _, err := bw.WriteString(crlf); err != nil {
		return err
	}
	return bw.Flush()
}
