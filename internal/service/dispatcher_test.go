package service

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ox-runtime/ox/internal/driverabi"
	"github.com/ox-runtime/ox/internal/ipc/control"
	"github.com/ox-runtime/ox/internal/ipc/shm"
	"github.com/ox-runtime/ox/internal/proto"
	"github.com/ox-runtime/ox/internal/service/sessionfsm"
	"github.com/ox-runtime/ox/pkg/oxdriver"
)

func testDispatcher(t *testing.T) (*Dispatcher, *shm.FramePlane) {
	name := fmt.Sprintf("dispatcher-test-%d", time.Now().UnixNano())
	plane, err := shm.CreateFramePlane(name)
	if err != nil {
		t.Fatalf("CreateFramePlane: %v", err)
	}
	t.Cleanup(func() { plane.Close(); shm.Unlink(name) })

	host, err := driverabi.NewHost(&oxdriver.Callbacks{
		Initialize:        func() error { return nil },
		IsDeviceConnected: func() bool { return true },
		UpdateViewPose:    func(int64, uint32) (proto.Pose, error) { return proto.Pose{}, nil },
	})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := New(NewHandleAllocator(), sessionfsm.New(), plane, host,
		proto.RuntimeProperties{RuntimeName: "ox runtime", RuntimeVersion: 1},
		proto.SystemProperties{SystemName: "ox system"},
		proto.ViewConfigurations{RecommendedWidth: 1832, RecommendedHeight: 1920},
		log,
	)
	return d, plane
}

func TestDispatchAllocateHandleUniqueness(t *testing.T) {
	d, _ := testDispatcher(t)
	seen := map[proto.Handle]bool{}
	for i := 0; i < 50; i++ {
		req := proto.AllocateHandleRequest{Kind: proto.HandleKindAction}.Encode()
		_, payload := d.dispatch(proto.Header{Type: proto.MessageAllocateHandle, Sequence: uint32(i)}, req)
		resp, err := proto.DecodeHandleResponse(payload)
		if err != nil {
			t.Fatalf("DecodeHandleResponse: %v", err)
		}
		if resp.Handle == 0 {
			t.Fatal("allocated handle must be non-zero")
		}
		if seen[resp.Handle] {
			t.Fatalf("duplicate handle %d", resp.Handle)
		}
		seen[resp.Handle] = true
	}
}

func TestDispatchSessionLifecycle(t *testing.T) {
	d, plane := testDispatcher(t)

	_, payload := d.dispatch(proto.Header{Type: proto.MessageCreateSession}, nil)
	created, err := proto.DecodeHandleResponse(payload)
	if err != nil {
		t.Fatalf("DecodeHandleResponse: %v", err)
	}
	if created.Handle == 0 {
		t.Fatal("expected non-zero session handle")
	}
	if plane.ActiveSessionHandle() != created.Handle {
		t.Fatalf("frame plane active session = %d, want %d", plane.ActiveSessionHandle(), created.Handle)
	}

	wantSequence := []proto.SessionState{proto.SessionStateReady}
	_, evPayload := d.dispatch(proto.Header{Type: proto.MessageGetNextEvent}, nil)
	ev, err := proto.DecodeSessionStateEventWire(evPayload)
	if err != nil {
		t.Fatalf("DecodeSessionStateEventWire: %v", err)
	}
	if ev.NewState != wantSequence[0] {
		t.Fatalf("first event state = %v, want %v", ev.NewState, wantSequence[0])
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if d.sessions.State() == proto.SessionStateFocused {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if d.sessions.State() != proto.SessionStateFocused {
		t.Fatalf("expected Focused state eventually, got %v", d.sessions.State())
	}

	exitReq := proto.RequestExitSessionRequest{SessionHandle: created.Handle}.Encode()
	d.dispatch(proto.Header{Type: proto.MessageRequestExitSession}, exitReq)
	if d.sessions.State() != proto.SessionStateStopping {
		t.Fatalf("expected Stopping after RequestExitSession, got %v", d.sessions.State())
	}

	d.dispatch(proto.Header{Type: proto.MessageDestroySession}, nil)
	if plane.ActiveSessionHandle() != 0 {
		t.Fatalf("expected cleared active session handle, got %d", plane.ActiveSessionHandle())
	}
}

func TestDispatchCreateSessionRejectsSecondWhileActive(t *testing.T) {
	d, _ := testDispatcher(t)

	_, payload := d.dispatch(proto.Header{Type: proto.MessageCreateSession}, nil)
	first, err := proto.DecodeHandleResponse(payload)
	if err != nil {
		t.Fatalf("DecodeHandleResponse: %v", err)
	}

	_, second := d.dispatch(proto.Header{Type: proto.MessageCreateSession}, nil)
	if second != nil {
		t.Fatalf("expected empty response for second CreateSession while active, got %v", second)
	}
	if d.sessions.ActiveSession() != first.Handle {
		t.Fatalf("active session changed to %d, want unchanged %d", d.sessions.ActiveSession(), first.Handle)
	}
}

func TestDispatchDestroySessionWithNoActiveSessionIsNoop(t *testing.T) {
	d, plane := testDispatcher(t)

	_, payload := d.dispatch(proto.Header{Type: proto.MessageDestroySession}, nil)
	if payload != nil {
		t.Fatalf("expected empty response, got %v", payload)
	}
	if plane.ActiveSessionHandle() != 0 {
		t.Fatalf("expected active session handle to remain 0, got %d", plane.ActiveSessionHandle())
	}
}

func TestDispatchRequestExitSessionForWrongHandleIsIgnored(t *testing.T) {
	d, _ := testDispatcher(t)

	_, payload := d.dispatch(proto.Header{Type: proto.MessageCreateSession}, nil)
	created, err := proto.DecodeHandleResponse(payload)
	if err != nil {
		t.Fatalf("DecodeHandleResponse: %v", err)
	}

	exitReq := proto.RequestExitSessionRequest{SessionHandle: created.Handle + 1}.Encode()
	d.dispatch(proto.Header{Type: proto.MessageRequestExitSession}, exitReq)
	if d.sessions.State() == proto.SessionStateStopping {
		t.Fatal("RequestExitSession for an unknown handle must not transition the active session")
	}
}

// TestHandleConnectionGracefulReconnect covers spec.md S6: a client that
// disconnects without calling DestroySession leaves the service running
// with client_connected cleared, and a second client can connect and obtain
// a fresh session handle rather than being rejected as ErrSessionAlreadyActive.
func TestHandleConnectionGracefulReconnect(t *testing.T) {
	d, plane := testDispatcher(t)

	sockName := fmt.Sprintf("dispatcher-reconnect-test-%d", time.Now().UnixNano())
	srv, err := control.CreateServer(sockName)
	if err != nil {
		t.Fatalf("CreateServer: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	go d.Serve(srv)

	// First client: connect, create a session, then drop the connection
	// without ever calling Disconnect or DestroySession.
	first, err := control.Dial(sockName, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := first.Send(proto.Header{Type: proto.MessageConnect}, nil); err != nil {
		t.Fatalf("Send Connect: %v", err)
	}
	if _, err := first.Recv(); err != nil {
		t.Fatalf("Recv Connect response: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !plane.ClientConnected() {
		time.Sleep(time.Millisecond)
	}
	if !plane.ClientConnected() {
		t.Fatal("expected client_connected to become true after Connect")
	}

	if err := first.Send(proto.Header{Type: proto.MessageCreateSession}, nil); err != nil {
		t.Fatalf("Send CreateSession: %v", err)
	}
	firstMsg, err := first.Recv()
	if err != nil {
		t.Fatalf("Recv CreateSession response: %v", err)
	}
	firstSession, err := proto.DecodeHandleResponse(firstMsg.Payload)
	if err != nil {
		t.Fatalf("DecodeHandleResponse: %v", err)
	}
	if firstSession.Handle == 0 {
		t.Fatal("expected non-zero first session handle")
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close first connection: %v", err)
	}

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) && plane.ClientConnected() {
		time.Sleep(time.Millisecond)
	}
	if plane.ClientConnected() {
		t.Fatal("expected client_connected to become false after dropping the connection")
	}
	if plane.ActiveSessionHandle() != 0 {
		t.Fatalf("expected active session handle cleared after disconnect, got %d", plane.ActiveSessionHandle())
	}

	// Second client: connect and create a session of its own. The service
	// must still be running and must not reject this as a second active
	// session.
	second, err := control.Dial(sockName, time.Second)
	if err != nil {
		t.Fatalf("Dial (second client): %v", err)
	}
	defer second.Close()

	if err := second.Send(proto.Header{Type: proto.MessageConnect}, nil); err != nil {
		t.Fatalf("Send Connect (second client): %v", err)
	}
	if _, err := second.Recv(); err != nil {
		t.Fatalf("Recv Connect response (second client): %v", err)
	}

	if err := second.Send(proto.Header{Type: proto.MessageCreateSession}, nil); err != nil {
		t.Fatalf("Send CreateSession (second client): %v", err)
	}
	secondMsg, err := second.Recv()
	if err != nil {
		t.Fatalf("Recv CreateSession response (second client): %v", err)
	}
	secondSession, err := proto.DecodeHandleResponse(secondMsg.Payload)
	if err != nil {
		t.Fatalf("DecodeHandleResponse (second client): %v", err)
	}
	if secondSession.Handle == 0 {
		t.Fatal("expected non-zero second session handle")
	}
	if secondSession.Handle == firstSession.Handle {
		t.Fatalf("expected second session handle to differ from first, both were %d", firstSession.Handle)
	}
}

func TestDispatchUnknownMessageStillResponds(t *testing.T) {
	d, _ := testDispatcher(t)
	resp, payload := d.dispatch(proto.Header{Type: proto.MessageType(9999)}, []byte{1, 2, 3})
	if resp.Type != proto.MessageResponse {
		t.Fatalf("expected a Response header even for unknown message, got %v", resp.Type)
	}
	if payload != nil {
		t.Fatalf("expected empty payload for unknown message, got %v", payload)
	}
}
