package shm

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ox-runtime/ox/internal/proto"
)

func tempPlaneName(t *testing.T) string {
	return fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestCreateOpenRoundTrip(t *testing.T) {
	name := tempPlaneName(t)
	svc, err := CreateFramePlane(name)
	if err != nil {
		t.Fatalf("CreateFramePlane: %v", err)
	}
	defer func() {
		svc.Close()
		Unlink(name)
	}()

	if !svc.ServiceReady() {
		t.Fatal("expected ServiceReady after create")
	}
	if svc.ProtocolVersion() != ProtocolVersion {
		t.Fatalf("ProtocolVersion = %d, want %d", svc.ProtocolVersion(), ProtocolVersion)
	}

	cli, err := OpenFramePlane(name)
	if err != nil {
		t.Fatalf("OpenFramePlane: %v", err)
	}
	defer cli.Close()

	cli.SetClientConnected(true)
	if !svc.ClientConnected() {
		t.Fatal("expected client_connected visible to service side")
	}
}

func TestOpenMissingReturnsNotFound(t *testing.T) {
	_, err := OpenFramePlane(tempPlaneName(t))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("OpenFramePlane on a nonexistent frame plane = %v, want ErrNotFound", err)
	}
}

func TestFrameMonotonicity(t *testing.T) {
	name := tempPlaneName(t)
	p, err := CreateFramePlane(name)
	if err != nil {
		t.Fatalf("CreateFramePlane: %v", err)
	}
	defer func() { p.Close(); Unlink(name) }()

	var lastID uint64
	var lastTime int64
	for i := 0; i < 100; i++ {
		views := [2]proto.View{{}, {}}
		p.WriteFrame(int64(i)*1000, views, nil)
		f := p.ReadFrame()
		if f.FrameID < lastID {
			t.Fatalf("frame id went backwards: %d -> %d", lastID, f.FrameID)
		}
		if f.PredictedDisplayTime < lastTime {
			t.Fatalf("predicted display time went backwards: %d -> %d", lastTime, f.PredictedDisplayTime)
		}
		lastID, lastTime = f.FrameID, f.PredictedDisplayTime
	}
}

// TestSeqlockTornRead mirrors the teacher's concurrency stress tests
// (ring_test.go, futex_race_test.go): a producer publishes frames while
// many readers race to observe a torn view, per spec.md §8.5.
func TestSeqlockTornRead(t *testing.T) {
	name := tempPlaneName(t)
	p, err := CreateFramePlane(name)
	if err != nil {
		t.Fatalf("CreateFramePlane: %v", err)
	}
	defer func() { p.Close(); Unlink(name) }()

	const iterations = 2000
	var stop atomic.Bool
	var tornReads atomic.Int64

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				f := p.ReadFrame()
				// Every view in a consistent frame shares the same
				// timestamp-derived angle the producer wrote together;
				// detect inconsistency across views within one read.
				want := float32(f.FrameID)
				for eye := 0; eye < 2; eye++ {
					if f.Views[eye].Fov.AngleLeft != want {
						tornReads.Add(1)
					}
				}
			}
		}()
	}

	for i := 0; i < iterations; i++ {
		v := proto.View{Fov: proto.Fov{AngleLeft: float32(i + 1)}}
		p.WriteFrame(int64(i), [2]proto.View{v, v}, nil)
	}
	stop.Store(true)
	wg.Wait()

	if n := tornReads.Load(); n != 0 {
		t.Fatalf("observed %d torn reads", n)
	}
}

func TestTextureReadyHandoff(t *testing.T) {
	name := tempPlaneName(t)
	p, err := CreateFramePlane(name)
	if err != nil {
		t.Fatalf("CreateFramePlane: %v", err)
	}
	defer func() { p.Close(); Unlink(name) }()

	if p.TextureReady(0) {
		t.Fatal("texture should not be ready before any write")
	}
	pixels := make([]byte, 16)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	if err := p.WriteTexture(0, 2, 2, 1, pixels); err != nil {
		t.Fatalf("WriteTexture: %v", err)
	}
	if !p.TextureReady(0) {
		t.Fatal("expected texture ready after write")
	}

	dst := make([]byte, 16)
	w, h, format, n := p.ReadTexture(0, dst)
	if w != 2 || h != 2 || format != 1 || n != 16 {
		t.Fatalf("ReadTexture = (%d,%d,%d,%d)", w, h, format, n)
	}
	p.ClearTextureReady(0)
	if p.TextureReady(0) {
		t.Fatal("expected texture ready cleared")
	}
}
