// Package timing provides the discrete event engine that drives simulated
// time forward.
package timing

import (
	"errors"

	"github.com/sarchlab/netsim/hooking"
)

// VTimeInSec is a point in simulated time, in seconds.
type VTimeInSec = float64

// ErrCausalityViolation reports an event placed before the current time. It is
// always a defect and the engine panics with it.
var ErrCausalityViolation = errors.New("timing: causality violation")

// Handler processes event payloads. Payloads are plain data; handlers type
// switch on them:
//
//	func (h *MyHandler) Handle(event any) error {
//	    switch e := event.(type) {
//	    case *MyEvent:
//	        // handle MyEvent
//	    default:
//	        return fmt.Errorf("unknown event type: %T", event)
//	    }
//	    return nil
//	}
type Handler interface {
	Handle(event any) error
}

// TimeTeller exposes the current simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler places events on the timeline.
type EventScheduler interface {
	TimeTeller
	Schedule(event ScheduledEvent)
}

// ScheduledEvent is the engine-facing wrapper of a payload.
type ScheduledEvent struct {
	// Event is the payload delivered to the handler, typically a pointer.
	Event any

	// Time is when the event happens.
	Time VTimeInSec

	// Handler is the component that owns and processes the event.
	Handler Handler
}

// HookPosBeforeEvent fires before an event is handled.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent fires after an event is handled.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}
