package timing

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/sarchlab/netsim/hooking"
)

// SerialEngine dispatches events one after another in (time, insertion) order.
type SerialEngine struct {
	*hooking.HookableBase

	timeLock sync.RWMutex
	now      VTimeInSec

	queueLock sync.Mutex
	queue     *futureEventQueue

	stopRequested bool

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewSerialEngine creates a SerialEngine at time 0.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		HookableBase: hooking.NewHookableBase(),
		queue:        newFutureEventQueue(),
	}
}

// Schedule registers an event to be handled in the future. Scheduling an event
// before the current time, or at a time that is not a number, panics with
// ErrCausalityViolation.
func (e *SerialEngine) Schedule(evt ScheduledEvent) {
	now := e.readNow()
	if !(evt.Time >= now) || math.IsInf(float64(evt.Time), 1) {
		panic(fmt.Errorf(
			"%w: cannot schedule %s @ %.10f, now %.10f",
			ErrCausalityViolation, reflect.TypeOf(evt.Event), evt.Time, now,
		))
	}

	e.queueLock.Lock()
	e.queue.Push(evt)
	e.queueLock.Unlock()
}

func (e *SerialEngine) readNow() VTimeInSec {
	e.timeLock.RLock()
	t := e.now
	e.timeLock.RUnlock()

	return t
}

func (e *SerialEngine) writeNow(t VTimeInSec) {
	e.timeLock.Lock()
	e.now = t
	e.timeLock.Unlock()
}

// Run dispatches events until the queue is empty, Stop is called, or the next
// event is not earlier than until. Events at or after until stay queued. A
// handler error aborts the run.
func (e *SerialEngine) Run(until VTimeInSec) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	e.stopRequested = false

	for {
		e.pauseLock.Lock()

		evt := e.nextEventBefore(until)
		if evt == nil {
			e.pauseLock.Unlock()
			return nil
		}

		err := e.dispatch(evt)

		e.pauseLock.Unlock()

		if err != nil {
			return err
		}

		if e.stopRequested {
			return nil
		}
	}
}

func (e *SerialEngine) nextEventBefore(until VTimeInSec) *queuedEvent {
	e.queueLock.Lock()
	defer e.queueLock.Unlock()

	next := e.queue.Peek()
	if next == nil || next.Time >= until {
		return nil
	}

	return e.queue.Pop()
}

func (e *SerialEngine) dispatch(evt *queuedEvent) error {
	now := e.readNow()
	if evt.Time < now {
		panic(fmt.Errorf(
			"%w: cannot run %s @ %.10f, now %.10f",
			ErrCausalityViolation, reflect.TypeOf(evt.Event), evt.Time, now,
		))
	}

	e.writeNow(evt.Time)

	hookCtx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt.ScheduledEvent,
	}
	e.InvokeHook(hookCtx)

	if evt.Handler != nil {
		if err := evt.Handler.Handle(evt.Event); err != nil {
			return fmt.Errorf("timing: handling %s @ %.10f: %w",
				reflect.TypeOf(evt.Event), evt.Time, err)
		}
	}

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)

	return nil
}

// Stop ends Run after the event being handled completes. It is meant to be
// called from inside a handler.
func (e *SerialEngine) Stop() {
	e.stopRequested = true
}

// Pause prevents the engine from dispatching more events until Continue is
// called. It returns once the event in flight, if any, completes.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue resumes event processing after a Pause.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// IsPaused tells whether Pause is in effect.
func (e *SerialEngine) IsPaused() bool {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	return e.isPaused
}

// CurrentTime returns the time of the most recently dispatched event.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	return e.readNow()
}

// Pending returns the number of queued events.
func (e *SerialEngine) Pending() int {
	e.queueLock.Lock()
	defer e.queueLock.Unlock()

	return e.queue.Len()
}
