// Package servertime keeps a coarse clock refreshed once a second, used
// where a per call time.Now is not worth it: idle connection bookkeeping
// and deadline refreshes.
package servertime

import (
	"sync/atomic"
	"time"
)

var coarseTime atomic.Pointer[time.Time]

func init() {
	refresh()
	go func() {
		for {
			time.Sleep(time.Second)
			refresh()
		}
	}()
}

func refresh() {
	t := time.Now().Truncate(time.Second)
	coarseTime.Store(&t)
}

// CoarseTimeNow returns the current time truncated to the nearest second.
//
// This is a faster alternative to time.Now().
func CoarseTimeNow() time.Time {
	return *coarseTime.Load()
}

// Since returns the coarse time elapsed since t
func Since(t time.Time) time.Duration {
	return CoarseTimeNow().Sub(t)
}
