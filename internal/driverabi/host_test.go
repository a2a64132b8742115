package driverabi

import (
	"testing"

	"github.com/ox-runtime/ox/internal/proto"
	"github.com/ox-runtime/ox/pkg/oxdriver"
)

func fakeHost() *Host {
	return &Host{cb: &oxdriver.Callbacks{
		Initialize:        func() error { return nil },
		IsDeviceConnected: func() bool { return true },
		UpdateViewPose: func(t int64, eye uint32) (proto.Pose, error) {
			return proto.Pose{Timestamp: t, Flags: proto.PoseFlagPositionValid}, nil
		},
	}}
}

func TestRequiredSlotsPresent(t *testing.T) {
	cb := &oxdriver.Callbacks{}
	if cb.RequiredSlotsPresent() {
		t.Fatal("empty callbacks should not satisfy required slots")
	}
	cb.Initialize = func() error { return nil }
	cb.IsDeviceConnected = func() bool { return true }
	cb.UpdateViewPose = func(int64, uint32) (proto.Pose, error) { return proto.Pose{}, nil }
	if !cb.RequiredSlotsPresent() {
		t.Fatal("expected required slots satisfied")
	}
}

func TestHostSerializesUpdateViewPose(t *testing.T) {
	h := fakeHost()
	pose, err := h.UpdateViewPose(42, 0)
	if err != nil {
		t.Fatalf("UpdateViewPose: %v", err)
	}
	if pose.Timestamp != 42 {
		t.Fatalf("pose.Timestamp = %d, want 42", pose.Timestamp)
	}
}

func TestHostDefaultsInputGettersToUnavailable(t *testing.T) {
	h := fakeHost()
	b, err := h.GetInputStateBoolean(0, "/user/hand/left", "/input/trigger/click")
	if err != nil {
		t.Fatalf("GetInputStateBoolean: %v", err)
	}
	if b.Availability != proto.Unavailable {
		t.Fatalf("expected Unavailable for unimplemented getter, got %v", b.Availability)
	}
}

func TestHostDefaultInteractionProfile(t *testing.T) {
	h := fakeHost()
	profiles := h.InteractionProfiles()
	if len(profiles) != 1 || profiles[0] != DefaultInteractionProfile {
		t.Fatalf("InteractionProfiles = %v, want [%s]", profiles, DefaultInteractionProfile)
	}
}

func TestDiscoverNoDriversDir(t *testing.T) {
	dir := t.TempDir()
	if _, err := Discover(dir); err == nil {
		t.Fatal("expected error discovering drivers in an empty directory")
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	if _, err := Discover("/nonexistent/drivers/path"); err == nil {
		t.Fatal("expected error for missing drivers directory")
	}
}
