// Package sessionfsm is the session state machine: single active session,
// the transition graph from spec.md §4.3, and the ordered event queue the
// client drains via GetNextEvent.
package sessionfsm

import (
	"sync"
	"time"

	"github.com/ox-runtime/ox/internal/proto"
)

// MaxQueuedEvents bounds the event queue; spec.md §4.3 allows an
// implementer to cap it and drop the oldest entry on overflow.
const MaxQueuedEvents = 256

// InterStateDelay separates CreateSession's automatic Ready→Synchronized→
// Focused walk so the client's drain loop observes each as a distinct
// event, per spec.md §4.3.
const InterStateDelay = 10 * time.Millisecond

// Event is an internal representation of proto.SessionStateEventWire with
// a time.Time instead of a raw nanosecond count, for readability in the
// service's own logging.
type Event struct {
	Handle    proto.Handle
	NewState  proto.SessionState
	Timestamp time.Time
}

func (e Event) wire() proto.SessionStateEventWire {
	return proto.SessionStateEventWire{
		Handle:         e.Handle,
		NewState:       e.NewState,
		TimestampNanos: e.Timestamp.UnixNano(),
	}
}

// Machine owns the single active session's state and its event queue.
// session state is a single atomic-adjacent cell per spec.md §5
// ("writes from control task only; reads from both"); the queue and the
// active-session bookkeeping share one mutex because both only ever
// change together.
type Machine struct {
	mu      sync.Mutex
	state   proto.SessionState
	active  proto.Handle
	queue   []Event
	nowFunc func() time.Time
}

// New returns a Machine in the Idle state with no active session.
func New() *Machine {
	return &Machine{state: proto.SessionStateIdle, nowFunc: time.Now}
}

// State returns the current session state. Safe to call from any task.
func (m *Machine) State() proto.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ActiveSession returns the active session handle, or 0 if none.
func (m *Machine) ActiveSession() proto.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// CreateSession records handle, assigned by the caller (the service's
// handle allocator), as the active session and transitions Idle→Ready.
// The automatic Ready→Synchronized→Focused walk is driven by
// AdvanceToFocused, called separately so tests can control timing.
func (m *Machine) CreateSession(handle proto.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = handle
	m.setLocked(proto.SessionStateReady)
}

// AdvanceToFocused walks Ready→Synchronized→Focused, appending one event
// per transition with InterStateDelay between them, per spec.md §4.3. It
// blocks until the walk completes. The dispatcher runs it on its own
// goroutine, so each step applies only while the machine is still in the
// state that step starts from: a RequestExit or DestroySession that lands
// mid-walk ends the walk instead of being overwritten.
func (m *Machine) AdvanceToFocused() {
	time.Sleep(InterStateDelay)
	m.advance(proto.SessionStateReady, proto.SessionStateSynchronized)
	time.Sleep(InterStateDelay)
	m.advance(proto.SessionStateSynchronized, proto.SessionStateFocused)
}

// advance transitions to next only if the machine is still in from.
func (m *Machine) advance(from, next proto.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == from {
		m.setLocked(next)
	}
}

// RequestExit transitions the active session to Stopping. It does not go
// on to Idle and leaves the active session in place; DestroySession makes
// the Idle transition and clears it.
func (m *Machine) RequestExit() {
	m.transition(proto.SessionStateStopping)
}

// DestroySession clears the active session and transitions to Idle.
func (m *Machine) DestroySession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(proto.SessionStateIdle)
	m.active = 0
}

func (m *Machine) transition(s proto.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(s)
}

func (m *Machine) setLocked(s proto.SessionState) {
	m.state = s
	ev := Event{Handle: m.active, NewState: s, Timestamp: m.nowFunc()}
	if len(m.queue) >= MaxQueuedEvents {
		m.queue = m.queue[1:] // drop oldest on overflow, per spec.md §4.3
	}
	m.queue = append(m.queue, ev)
}

// NextEvent pops and returns the oldest queued event. ok is false if the
// queue is empty, matching GetNextEvent's "empty response if none."
func (m *Machine) NextEvent() (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return Event{}, false
	}
	ev := m.queue[0]
	m.queue = m.queue[1:]
	return ev, true
}

// NextEventWire is NextEvent encoded for the control channel.
func (m *Machine) NextEventWire() (proto.SessionStateEventWire, bool) {
	ev, ok := m.NextEvent()
	if !ok {
		return proto.SessionStateEventWire{}, false
	}
	return ev.wire(), true
}
