package control

import (
	"fmt"
	"testing"
	"time"

	"github.com/ox-runtime/ox/internal/proto"
)

func tempSocketName(t *testing.T) string {
	return fmt.Sprintf("ox-control-test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestSendRecvRoundTrip(t *testing.T) {
	name := tempSocketName(t)
	srv, err := CreateServer(name)
	if err != nil {
		t.Fatalf("CreateServer: %v", err)
	}
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := srv.Accept()
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		defer conn.Close()
		msg, err := conn.Recv()
		if err != nil {
			t.Errorf("server Recv: %v", err)
			return
		}
		if msg.Header.Type != proto.MessageConnect {
			t.Errorf("got type %v, want Connect", msg.Header.Type)
		}
		resp := proto.Header{Type: proto.MessageResponse, Sequence: msg.Header.Sequence}
		if err := conn.Send(resp, nil); err != nil {
			t.Errorf("server Send: %v", err)
		}
	}()

	cli, err := Dial(name, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer cli.Close()

	req := proto.Header{Type: proto.MessageConnect, Sequence: 1}
	if err := cli.Send(req, nil); err != nil {
		t.Fatalf("client Send: %v", err)
	}
	resp, err := cli.Recv()
	if err != nil {
		t.Fatalf("client Recv: %v", err)
	}
	if resp.Header.Type != proto.MessageResponse || resp.Header.Sequence != 1 {
		t.Fatalf("unexpected response header: %+v", resp.Header)
	}
	<-done
}

func TestSendRecvWithPayload(t *testing.T) {
	name := tempSocketName(t)
	srv, err := CreateServer(name)
	if err != nil {
		t.Fatalf("CreateServer: %v", err)
	}
	defer srv.Close()

	go func() {
		conn, err := srv.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		msg, err := conn.Recv()
		if err != nil {
			return
		}
		conn.Send(proto.Header{Type: proto.MessageResponse, Sequence: msg.Header.Sequence}, msg.Payload)
	}()

	cli, err := Dial(name, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer cli.Close()

	req := proto.AllocateHandleRequest{Kind: proto.HandleKindSession}.Encode()
	if err := cli.Send(proto.Header{Type: proto.MessageAllocateHandle, Sequence: 7}, req); err != nil {
		t.Fatalf("Send: %v", err)
	}
	resp, err := cli.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	got, err := proto.DecodeAllocateHandleRequest(resp.Payload)
	if err != nil {
		t.Fatalf("DecodeAllocateHandleRequest: %v", err)
	}
	if got.Kind != proto.HandleKindSession {
		t.Fatalf("got kind %v, want Session", got.Kind)
	}
}

func TestDialMissingServerFails(t *testing.T) {
	_, err := Dial(tempSocketName(t), 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected error dialing nonexistent server")
	}
}

func TestRecvAfterPeerCloseIsDisconnect(t *testing.T) {
	name := tempSocketName(t)
	srv, err := CreateServer(name)
	if err != nil {
		t.Fatalf("CreateServer: %v", err)
	}
	defer srv.Close()

	go func() {
		conn, err := srv.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	cli, err := Dial(name, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer cli.Close()

	time.Sleep(50 * time.Millisecond)
	if _, err := cli.Recv(); err == nil {
		t.Fatal("expected Recv to fail after peer close")
	}
}
