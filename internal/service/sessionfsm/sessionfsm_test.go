package sessionfsm

import (
	"testing"

	"github.com/ox-runtime/ox/internal/proto"
)

func TestCreateSessionSequence(t *testing.T) {
	m := New()
	m.CreateSession(proto.Handle(1))
	m.AdvanceToFocused()

	wantStates := []proto.SessionState{
		proto.SessionStateReady,
		proto.SessionStateSynchronized,
		proto.SessionStateFocused,
	}
	var lastTS int64 = -1
	for i, want := range wantStates {
		ev, ok := m.NextEvent()
		if !ok {
			t.Fatalf("event %d missing", i)
		}
		if ev.NewState != want {
			t.Fatalf("event %d state = %v, want %v", i, ev.NewState, want)
		}
		ts := ev.Timestamp.UnixNano()
		if ts < lastTS {
			t.Fatalf("event %d timestamp went backwards", i)
		}
		lastTS = ts
	}
	if _, ok := m.NextEvent(); ok {
		t.Fatal("expected no more events")
	}
	if m.State() != proto.SessionStateFocused {
		t.Fatalf("final state = %v, want Focused", m.State())
	}
}

func TestRequestExitThenDestroy(t *testing.T) {
	m := New()
	m.CreateSession(proto.Handle(5))
	m.AdvanceToFocused()
	m.NextEvent()
	m.NextEvent()
	m.NextEvent() // drain Ready/Synchronized/Focused

	m.RequestExit()
	m.DestroySession()

	ev, ok := m.NextEvent()
	if !ok || ev.NewState != proto.SessionStateStopping {
		t.Fatalf("expected Stopping event, got %+v ok=%v", ev, ok)
	}
	ev, ok = m.NextEvent()
	if !ok || ev.NewState != proto.SessionStateIdle {
		t.Fatalf("expected Idle event, got %+v ok=%v", ev, ok)
	}
	if m.ActiveSession() != 0 {
		t.Fatalf("expected cleared active session, got %v", m.ActiveSession())
	}
}

func TestEventQueueOverflowDropsOldest(t *testing.T) {
	m := New()
	for i := 0; i < MaxQueuedEvents+10; i++ {
		m.transition(proto.SessionStateReady)
	}
	count := 0
	for {
		if _, ok := m.NextEvent(); !ok {
			break
		}
		count++
	}
	if count != MaxQueuedEvents {
		t.Fatalf("queue held %d events, want cap %d", count, MaxQueuedEvents)
	}
}
