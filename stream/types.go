// Package stream turns the callbacks of an I/O engine into a byte
// stream the application drains at its own pace, pausing the engine
// while the application falls behind.
package stream

import (
	"github.com/haxii/fastresp/http"
	"github.com/haxii/fastresp/interest"
)

// ResponseHead status line and header of a response
type ResponseHead struct {
	StatusCode int
	Reason     string
	Protocol   string
	Header     http.Fields
}

// ContentDecoder is the engine's zero-copy view of the body.
//
// Read never blocks: it returns 0, nil when no body bytes are available
// right now and 0, io.EOF once the body is complete. IsCompleted
// reports whether every body byte has been handed out.
type ContentDecoder interface {
	Read(p []byte) (int, error)
	IsCompleted() bool
}

// Handler receives the events of one exchange from the engine.
//
// OnData may be called any number of times after OnHeaders. OnClose is
// always the last call.
type Handler interface {
	OnHeaders(head ResponseHead) error
	OnData(dec ContentDecoder, ctl interest.IOControl) error
	OnFailure(err error)
	OnCancelled(cause error)
	OnClose()
}

// State of a Consumer
type State int32

const (
	// StateIdle no header received yet
	StateIdle State = iota
	// StateStreaming header received, body flowing
	StateStreaming
	// StateCompleted body fully buffered
	StateCompleted
	// StateFailed the engine failed or broke the callback contract
	StateFailed
	// StateCancelled the owner gave up on the exchange
	StateCancelled
)

var stateNames = [...]string{"idle", "streaming", "completed", "failed", "cancelled"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s >= StateCompleted
}

// Observer is notified about consumer activity, it must not block
type Observer interface {
	ObserveTransition(from, to State)
	ObserveBytes(n int)
	ObserveSuspend()
}

type nopObserver struct{}

func (nopObserver) ObserveTransition(State, State) {}
func (nopObserver) ObserveBytes(int)               {}
func (nopObserver) ObserveSuspend()                {}
