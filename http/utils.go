package http

import (
	"bufio"
	"fmt"
)

// peekBuffered peek buffered bytes for buffer reader
func peekBuffered(r *bufio.Reader) []byte {
	if r.Buffered() == 0 {
		return nil
	}
	buf, err := r.Peek(r.Buffered())
	if len(buf) == 0 || err != nil {
		panic(fmt.Sprintf("bufio.Reader.Peek() returned unexpected data (%q, %v)", buf, err))
	}
	return buf
}

const maxHexIntChars = 15

var hex2intTable = func() []byte {
	b := make([]byte, 256)
	for i := 0; i < 256; i++ {
		c := byte(16)
		if i >= '0' && i <= '9' {
			c = byte(i) - '0'
		} else if i >= 'a' && i <= 'f' {
			c = byte(i) - 'a' + 10
		} else if i >= 'A' && i <= 'F' {
			c = byte(i) - 'A' + 10
		}
		b[i] = c
	}
	return b
}()

// parseHexInt parses the leading hex digits of b
func parseHexInt(b []byte) (int64, error) {
	var n int64
	i := 0
	for ; i < len(b); i++ {
		k := hex2intTable[b[i]]
		if k == 16 {
			break
		}
		if i >= maxHexIntChars {
			return -1, errTooLargeHexNum
		}
		n = (n << 4) | int64(k)
	}
	if i == 0 {
		return -1, errEmptyHexNum
	}
	return n, nil
}
