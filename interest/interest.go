// Package interest coordinates pausing and resuming of I/O readiness
// between an engine's I/O callbacks and the task waiting for buffer space.
package interest

import (
	"sync/atomic"

	"github.com/haxii/fastresp/errors"
)

// IOControl is the engine side handle toggling I/O interest of a single
// exchange. Implementations must be comparable, usually pointers.
type IOControl interface {
	SuspendInput()
	RequestInput()
	SuspendOutput()
	RequestOutput()
}

// Controller remembers the handle used to suspend each direction so
// the direction can be resumed exactly once later, possibly from
// another goroutine.
//
// The zero value is ready to use. A Controller serves one exchange.
type Controller struct {
	input  direction
	output direction
}

type handle struct {
	ctl IOControl
}

type direction struct {
	saved     atomic.Pointer[handle]
	suspended atomic.Bool
}

// SuspendInput pauses input through ctl and records ctl for
// ResumeInputIfPossible.
//
// A protocol violation is returned when another handle is still
// recorded. Suspending again with the same handle is allowed.
func (c *Controller) SuspendInput(ctl IOControl) error {
	return c.input.suspend("input", ctl, IOControl.SuspendInput)
}

// ResumeInputIfPossible takes the recorded handle and requests input
// through it. It reports whether a handle was present, so only one of
// several concurrent callers resumes.
func (c *Controller) ResumeInputIfPossible() bool {
	return c.input.resume(IOControl.RequestInput)
}

// InputSuspended reports whether input is currently suspended
func (c *Controller) InputSuspended() bool {
	return c.input.suspended.Load()
}

// SuspendOutput is SuspendInput for the write direction
func (c *Controller) SuspendOutput(ctl IOControl) error {
	return c.output.suspend("output", ctl, IOControl.SuspendOutput)
}

// ResumeOutputIfPossible is ResumeInputIfPossible for the write direction
func (c *Controller) ResumeOutputIfPossible() bool {
	return c.output.resume(IOControl.RequestOutput)
}

// OutputSuspended reports whether output is currently suspended
func (c *Controller) OutputSuspended() bool {
	return c.output.suspended.Load()
}

// Release resumes both directions, used when the exchange ends so the
// engine is never left paused
func (c *Controller) Release() {
	c.ResumeInputIfPossible()
	c.ResumeOutputIfPossible()
}

func (d *direction) suspend(name string, ctl IOControl, pause func(IOControl)) error {
	if ctl == nil {
		return errors.ProtocolViolation("suspend %s with nil io control", name)
	}
	if prev := d.saved.Load(); prev != nil && prev.ctl != ctl {
		return errors.ProtocolViolation("%s already suspended by another io control", name)
	}
	d.suspended.Store(true)
	pause(ctl)
	h := &handle{ctl: ctl}
	for {
		prev := d.saved.Load()
		if prev != nil && prev.ctl != ctl {
			return errors.ProtocolViolation("%s already suspended by another io control", name)
		}
		if d.saved.CompareAndSwap(prev, h) {
			return nil
		}
	}
}

func (d *direction) resume(request func(IOControl)) bool {
	h := d.saved.Swap(nil)
	d.suspended.Store(false)
	if h == nil {
		return false
	}
	request(h.ctl)
	return true
}
