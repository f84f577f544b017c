package usage

import (
	"io"
	"net"
	"sync"
	"testing"
)

func TestTraffic(t *testing.T) {
	var traffic Traffic
	var wg sync.WaitGroup
	for i := 1; i < 100; i++ {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			traffic.AddSent(n)
			traffic.AddReceived(n)
		}(uint64(i))
	}
	wg.Wait()
	if traffic.Sent() != 4950 {
		t.Fatalf("sent count error: %d", traffic.Sent())
	}
	if traffic.Received() != 4950 {
		t.Fatalf("received count error: %d", traffic.Received())
	}
}

func TestWrapConn(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	var traffic Traffic
	conn := WrapConn(local, &traffic)
	defer conn.Close()

	go func() {
		buf := make([]byte, 5)
		io.ReadFull(remote, buf)
		remote.Write([]byte("pong!!"))
	}()
	if _, err := conn.Write([]byte("ping!")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	buf := make([]byte, 6)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if traffic.Sent() != 5 || traffic.Received() != 6 {
		t.Fatalf("unexpected traffic sent=%d received=%d", traffic.Sent(), traffic.Received())
	}
	if WrapConn(local, nil) != local {
		t.Fatal("nil traffic must not wrap")
	}
}
