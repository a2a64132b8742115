package client

import (
	"testing"

	"github.com/ox-runtime/ox/internal/proto"
)

func TestPathInternerRoundTrip(t *testing.T) {
	interner := newPathInterner()
	tok := interner.StringToPath("/user/hand/left/input/trigger/value")
	got, ok := interner.PathToString(tok)
	if !ok {
		t.Fatal("expected token to resolve")
	}
	if got != "/user/hand/left/input/trigger/value" {
		t.Fatalf("got %q", got)
	}
	if interner.StringToPath("/user/hand/left/input/trigger/value") != tok {
		t.Fatal("re-interning the same string must return the same token")
	}
}

func TestPathInternerUnknownTokenFails(t *testing.T) {
	interner := newPathInterner()
	if _, ok := interner.PathToString(PathToken(12345)); ok {
		t.Fatal("expected unknown token to fail")
	}
}

func TestSplitBindingPath(t *testing.T) {
	cases := []struct {
		in, user, component string
	}{
		{"/user/hand/left/input/trigger/value", "/user/hand/left", "/input/trigger/value"},
		{"/user/hand/right/input/thumbstick/x", "/user/hand/right", "/input/thumbstick/x"},
	}
	for _, c := range cases {
		user, component := splitBindingPath(c.in)
		if user != c.user || component != c.component {
			t.Fatalf("splitBindingPath(%q) = (%q, %q), want (%q, %q)", c.in, user, component, c.user, c.component)
		}
	}
}

func TestInferSubactionPath(t *testing.T) {
	declared := []string{"/user/hand/left", "/user/hand/right"}
	if got := inferSubactionPath("/user/hand/right", declared); got != "/user/hand/right" {
		t.Fatalf("got %q", got)
	}
	if got := inferSubactionPath("/user/head", declared); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
}

func TestDestroyedInstanceRejectsFurtherCalls(t *testing.T) {
	inst := newInstance(proto.Handle(1), nil)
	inst.destroyed = true
	if err := inst.checkAlive(); err != ErrInstanceLost {
		t.Fatalf("checkAlive() = %v, want ErrInstanceLost", err)
	}
}


