package frameproducer

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ox-runtime/ox/internal/driverabi"
	"github.com/ox-runtime/ox/internal/ipc/shm"
	"github.com/ox-runtime/ox/internal/proto"
	"github.com/ox-runtime/ox/pkg/oxdriver"
)

func fakeDriverHost(t *testing.T) *driverabi.Host {
	h, err := driverabi.NewHost(&oxdriver.Callbacks{
		Initialize:        func() error { return nil },
		IsDeviceConnected: func() bool { return true },
		UpdateViewPose: func(t int64, eye uint32) (proto.Pose, error) {
			return proto.Pose{Timestamp: t, Flags: proto.PoseFlagPositionValid}, nil
		},
		UpdateDevices: func(t int64) ([]proto.DeviceState, error) {
			return []proto.DeviceState{{UserPath: "/user/head", IsActive: true}}, nil
		},
	})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	return h
}

func TestProducerPublishesFrames(t *testing.T) {
	name := fmt.Sprintf("frameproducer-test-%d", time.Now().UnixNano())
	plane, err := shm.CreateFramePlane(name)
	if err != nil {
		t.Fatalf("CreateFramePlane: %v", err)
	}
	defer func() { plane.Close(); shm.Unlink(name) }()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(plane, fakeDriverHost(t), log)

	go p.Run(time.Millisecond)
	defer p.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if plane.FrameID() >= 3 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	f := plane.ReadFrame()
	if f.FrameID < 3 {
		t.Fatalf("expected at least 3 published frames, got %d", f.FrameID)
	}
	if f.DeviceCount != 1 || f.Devices[0].UserPath != "/user/head" {
		t.Fatalf("unexpected device table: count=%d devices=%+v", f.DeviceCount, f.Devices[:f.DeviceCount])
	}
}
