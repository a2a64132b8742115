// Package frameproducer runs the fixed-cadence tick that drives the driver
// and publishes the shared-memory frame plane, per spec.md §4.4.
package frameproducer

import (
	"log/slog"
	"time"

	"github.com/ox-runtime/ox/internal/driverabi"
	"github.com/ox-runtime/ox/internal/ipc/shm"
	"github.com/ox-runtime/ox/internal/proto"
)

// DefaultTickRate is the producer's target cadence, per spec.md §4.4.
const DefaultTickRate = 90

// DefaultTickInterval is the producer's tick period at DefaultTickRate Hz.
const DefaultTickInterval = time.Second / DefaultTickRate

// TickInterval converts a tick rate in Hz to its period, for callers that
// take a configurable rate (e.g. cmd/ox-service's -tick-rate flag).
func TickInterval(hz int) time.Duration {
	if hz <= 0 {
		return DefaultTickInterval
	}
	return time.Second / time.Duration(hz)
}

// Producer ticks the driver host and writes results into the frame plane,
// per spec.md §4.4's five-step order. It is the service's frame task; the
// control task never calls it directly.
type Producer struct {
	plane  *shm.FramePlane
	driver *driverabi.Host
	log    *slog.Logger
	stop   chan struct{}
	done   chan struct{}
	texBuf [2][]byte
}

// New constructs a Producer. It does not start ticking until Run is
// called.
func New(plane *shm.FramePlane, driver *driverabi.Host, log *slog.Logger) *Producer {
	p := &Producer{plane: plane, driver: driver, log: log, stop: make(chan struct{}), done: make(chan struct{})}
	p.texBuf[0] = make([]byte, shm.MaxTextureWidth*shm.MaxTextureHeight*4)
	p.texBuf[1] = make([]byte, shm.MaxTextureWidth*shm.MaxTextureHeight*4)
	return p
}

// Run ticks at interval until Stop is called. Intended to be launched in
// its own goroutine by the service main.
func (p *Producer) Run(interval time.Duration) {
	defer close(p.done)
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// Stop signals Run to return and blocks until it has.
func (p *Producer) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Producer) tick() {
	now := time.Now().UnixNano()

	var views [2]proto.View
	display := p.driver.DisplayProperties()
	for eye := uint32(0); eye < 2; eye++ {
		pose, err := p.driver.UpdateViewPose(now, eye)
		if err != nil {
			p.log.Warn("driver UpdateViewPose failed", "eye", eye, "err", err)
			continue
		}
		views[eye] = proto.View{Pose: pose, Fov: display.Fov}
	}

	devices, err := p.driver.UpdateDevices(now)
	if err != nil {
		p.log.Warn("driver UpdateDevices failed", "err", err)
		devices = nil
	}

	p.plane.WriteFrame(now, views, devices)

	for eye := 0; eye < 2; eye++ {
		if !p.plane.TextureReady(eye) {
			continue
		}
		w, h, format, n := p.plane.ReadTexture(eye, p.texBuf[eye])
		p.driver.SubmitFrameTexture(uint32(eye), w, h, format, p.texBuf[eye][:n])
		p.plane.ClearTextureReady(eye)
	}
}
