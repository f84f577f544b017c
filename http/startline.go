package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	pkgerrors "github.com/pkg/errors"
)

// ResponseLine start line of a http response
type ResponseLine struct {
	fullLine   []byte
	protocol   []byte
	statusCode int
	statusMsg  []byte
}

// GetResponseLine get full response line
func (l *ResponseLine) GetResponseLine() []byte {
	return l.fullLine
}

// GetProtocol get response protocol i.e. http version
func (l *ResponseLine) GetProtocol() []byte {
	return l.protocol
}

// GetStatusCode get response status code
func (l *ResponseLine) GetStatusCode() int {
	return l.statusCode
}

// GetStatusMessage get response status message
func (l *ResponseLine) GetStatusMessage() []byte {
	return l.statusMsg
}

// Reset reset response line
func (l *ResponseLine) Reset() {
	l.fullLine = l.fullLine[:0]
	l.protocol = l.protocol[:0]
	l.statusCode = 0
	l.statusMsg = l.statusMsg[:0]
}

var (
	errRespLineNOProtocol   = pkgerrors.New("no protocol provided")
	errRespLineNOStatusCode = pkgerrors.New("no status code provided")
	errNotStartLine         = pkgerrors.New("not a http start line")
)

// Parse parse response line
//
//	status-line = HTTP-version SP status-code SP reason-phrase CRLF
//
// The reason phrase may be empty, and the SP before it may be missing
// entirely when it is.
func (l *ResponseLine) Parse(reader *bufio.Reader) error {
	respLineWithCRLF, err := parseStartLine(reader)
	if err != nil {
		return err
	}

	respLine := bytes.TrimRight(respLineWithCRLF, "\r\n")

	// http version token
	protocolEndIndex := bytes.IndexByte(respLine, ' ')
	if protocolEndIndex <= 0 {
		return errRespLineNOProtocol
	}
	l.protocol = respLine[:protocolEndIndex]

	// 3-digit status code
	rest := respLine[protocolEndIndex+1:]
	statusCode := rest
	var statusMsg []byte
	if i := bytes.IndexByte(rest, ' '); i >= 0 {
		statusCode = rest[:i]
		statusMsg = rest[i+1:]
	}
	if len(statusCode) == 0 {
		return errRespLineNOStatusCode
	}
	code, err := strconv.Atoi(string(statusCode))
	if err != nil || code <= 0 {
		return pkgerrors.Errorf("fail to parse status code %q", statusCode)
	}
	l.statusCode = code
	l.statusMsg = statusMsg
	l.fullLine = respLineWithCRLF
	return nil
}

func parseStartLine(reader *bufio.Reader) ([]byte, error) {
	startLineWithCRLF, err := reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, "fail to read start line")
	}
	if len(startLineWithCRLF) <= 2 {
		return nil, errNotStartLine
	}
	return startLineWithCRLF, nil
}
