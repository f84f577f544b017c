package servertime

import (
	"testing"
	"time"
)

func TestCoarseTimeNow(t *testing.T) {
	now := time.Now()
	coarse := CoarseTimeNow()
	if coarse.After(now) {
		t.Fatalf("coarse time %s is ahead of %s", coarse, now)
	}
	if now.Sub(coarse) > 2*time.Second {
		t.Fatalf("coarse time %s lags %s by more than the refresh period", coarse, now)
	}
	if coarse.Nanosecond() != 0 {
		t.Fatalf("coarse time %s is not truncated to the second", coarse)
	}
	if Since(coarse) < 0 {
		t.Fatal("negative duration since the coarse time")
	}
}
