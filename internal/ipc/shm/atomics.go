package shm

import (
	"sync/atomic"
	"unsafe"

	"github.com/ox-runtime/ox/internal/proto"
)

// Scalar header accessors. Each is a single atomic load/store against the
// mapped memory, exactly the hdrView pattern in the teacher's
// shm_segment.go — one accessor pair per spec.md §3 table row.

func (p *FramePlane) ProtocolVersion() uint32 {
	return atomic.LoadUint32(&p.hdr.protocolVersion)
}

func (p *FramePlane) setProtocolVersion(v uint32) {
	atomic.StoreUint32(&p.hdr.protocolVersion, v)
}

func (p *FramePlane) ServiceReady() bool {
	return atomic.LoadUint32(&p.hdr.serviceReady) != 0
}

func (p *FramePlane) SetServiceReady(ready bool) {
	atomic.StoreUint32(&p.hdr.serviceReady, boolU32(ready))
}

func (p *FramePlane) ClientConnected() bool {
	return atomic.LoadUint32(&p.hdr.clientConnected) != 0
}

func (p *FramePlane) SetClientConnected(connected bool) {
	atomic.StoreUint32(&p.hdr.clientConnected, boolU32(connected))
}

func (p *FramePlane) SessionState() proto.SessionState {
	return proto.SessionState(atomic.LoadUint32(&p.hdr.sessionState))
}

func (p *FramePlane) SetSessionState(s proto.SessionState) {
	atomic.StoreUint32(&p.hdr.sessionState, uint32(s))
}

func (p *FramePlane) ActiveSessionHandle() proto.Handle {
	return proto.Handle(atomic.LoadUint64(&p.hdr.activeSessionHandle))
}

func (p *FramePlane) SetActiveSessionHandle(h proto.Handle) {
	atomic.StoreUint64(&p.hdr.activeSessionHandle, uint64(h))
}

// rawFrameID returns the raw seqlock counter (even when stable, odd while
// a writer is mid-tick). FrameID returns the logical, monotonically
// increasing frame identifier derived from it.
func (p *FramePlane) rawFrameID() uint64 {
	return atomic.LoadUint64(&p.hdr.frameID)
}

// FrameID returns the most recently published, fully-written frame number.
func (p *FramePlane) FrameID() uint64 {
	return p.rawFrameID() / 2
}

func (p *FramePlane) PredictedDisplayTime() int64 {
	return atomic.LoadInt64(&p.hdr.predictedDisplayTime)
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Frame is the client-visible, copied-out snapshot of one producer tick:
// everything the seqlock protects, safe to read without further retries
// once returned by ReadFrame.
type Frame struct {
	FrameID              uint64
	PredictedDisplayTime int64
	Views                [2]proto.View
	DeviceCount          uint32
	Devices              [MaxDevices]proto.DeviceState
}

// WriteFrame publishes one producer tick. It follows spec.md §4.4's
// five-step order: the caller supplies fully computed views/devices; this
// increments frameID to odd, writes the views, the device table and
// predictedDisplayTime, then increments frameID back to even as the last
// store, which publishes the whole frame — the seqlock discipline from
// spec.md §3.
func (p *FramePlane) WriteFrame(predictedDisplayTime int64, views [2]proto.View, devices []proto.DeviceState) {
	atomic.AddUint64(&p.hdr.frameID, 1) // now odd: readers must retry

	atomic.StoreUint32(&p.hdr.viewCount, 2)
	for eye := 0; eye < 2; eye++ {
		p.hdr.views[eye] = toRawView(views[eye])
	}

	n := len(devices)
	if n > MaxDevices {
		n = MaxDevices
	}
	for i := 0; i < n; i++ {
		p.hdr.devices[i] = toRawDevice(devices[i])
	}
	atomic.StoreUint32(&p.hdr.deviceCount, uint32(n))

	atomic.StoreInt64(&p.hdr.predictedDisplayTime, predictedDisplayTime)
	atomic.AddUint64(&p.hdr.frameID, 1) // now even again: frame is consistent
}

// ReadFrame performs a seqlock-style read of the current frame: it
// re-reads frameID before and after copying views/devices and retries on
// mismatch or on an odd (writer-in-progress) value, per spec.md §3 and
// §8.4's torn-read invariant.
func (p *FramePlane) ReadFrame() Frame {
	for {
		before := atomic.LoadUint64(&p.hdr.frameID)
		if before%2 != 0 {
			continue // writer mid-tick
		}

		var f Frame
		f.PredictedDisplayTime = atomic.LoadInt64(&p.hdr.predictedDisplayTime)
		for eye := 0; eye < 2; eye++ {
			f.Views[eye] = fromRawView(p.hdr.views[eye])
		}
		count := atomic.LoadUint32(&p.hdr.deviceCount)
		if count > MaxDevices {
			count = MaxDevices
		}
		for i := uint32(0); i < count; i++ {
			f.Devices[i] = fromRawDevice(p.hdr.devices[i])
		}
		f.DeviceCount = count

		after := atomic.LoadUint64(&p.hdr.frameID)
		if after != before {
			continue // torn read, retry
		}
		f.FrameID = before / 2
		return f
	}
}

func toRawPose(p proto.Pose) rawPose {
	return rawPose{
		Position:    [3]float32{p.Position.X, p.Position.Y, p.Position.Z},
		Orientation: [4]float32{p.Orientation.X, p.Orientation.Y, p.Orientation.Z, p.Orientation.W},
		Timestamp:   p.Timestamp,
		Flags:       p.Flags,
	}
}

func fromRawPose(r rawPose) proto.Pose {
	return proto.Pose{
		Position:    proto.Vector3f{X: r.Position[0], Y: r.Position[1], Z: r.Position[2]},
		Orientation: proto.Quaternion{X: r.Orientation[0], Y: r.Orientation[1], Z: r.Orientation[2], W: r.Orientation[3]},
		Timestamp:   r.Timestamp,
		Flags:       r.Flags,
	}
}

func toRawView(v proto.View) rawView {
	return rawView{
		Pose: toRawPose(v.Pose),
		Fov:  rawFov{v.Fov.AngleLeft, v.Fov.AngleRight, v.Fov.AngleUp, v.Fov.AngleDown},
	}
}

func fromRawView(r rawView) proto.View {
	return proto.View{
		Pose: fromRawPose(r.Pose),
		Fov:  proto.Fov{AngleLeft: r.Fov.AngleLeft, AngleRight: r.Fov.AngleRight, AngleUp: r.Fov.AngleUp, AngleDown: r.Fov.AngleDown},
	}
}

func toRawDevice(d proto.DeviceState) rawDevice {
	var rd rawDevice
	copy(rd.UserPath[:], d.UserPath)
	rd.Pose = toRawPose(d.Pose)
	rd.IsActive = boolU32(d.IsActive)
	return rd
}

func fromRawDevice(r rawDevice) proto.DeviceState {
	n := 0
	for n < len(r.UserPath) && r.UserPath[n] != 0 {
		n++
	}
	return proto.DeviceState{
		UserPath: string(r.UserPath[:n]),
		Pose:     fromRawPose(r.Pose),
		IsActive: r.IsActive != 0,
	}
}

// textureHeader returns a pointer to eye's texture header+payload block,
// located TextureRegionOffset + eye*sizeof(rawTexture) into the mapping —
// a clearly delimited tail of the mapping, kept out of the 4KiB seqlock
// page per spec.md §9.
func (p *FramePlane) textureHeader(eye int) *rawTexture {
	return p.tex[eye]
}

// TextureReady reports whether the client has finished writing eye's
// submitted texture for the current frame (acquire-load).
func (p *FramePlane) TextureReady(eye int) bool {
	t := p.textureHeader(eye)
	return atomic.LoadUint32(&t.Ready) != 0
}

// ClearTextureReady is called by the service/frame producer once it has
// forwarded a submitted texture to the driver, per spec.md §4.4.
func (p *FramePlane) ClearTextureReady(eye int) {
	t := p.textureHeader(eye)
	atomic.StoreUint32(&t.Ready, 0)
}

// WriteTexture is called by the client after reading back the acquired
// swapchain image; it writes width/height/format/pixels then
// release-stores Ready=1 last.
func (p *FramePlane) WriteTexture(eye int, width, height, format uint32, pixels []byte) error {
	if width > MaxTextureWidth || height > MaxTextureHeight {
		return errTextureTooLarge
	}
	t := p.textureHeader(eye)
	n := copy(t.Pixels[:], pixels)
	t.Width, t.Height, t.Format = width, height, format
	atomic.StoreUint32(&t.DataSize, uint32(n))
	atomic.StoreUint32(&t.Ready, 1)
	return nil
}

// ReadTexture copies out eye's submitted texture for forwarding to the
// driver's frame-submit callback. Call only after TextureReady returns
// true.
func (p *FramePlane) ReadTexture(eye int, dst []byte) (width, height, format uint32, n int) {
	t := p.textureHeader(eye)
	n = copy(dst, t.Pixels[:atomic.LoadUint32(&t.DataSize)])
	return t.Width, t.Height, t.Format, n
}

func texturePointer(mem []byte, eye int) *rawTexture {
	off := TextureRegionOffset + eye*int(unsafe.Sizeof(rawTexture{}))
	return (*rawTexture)(unsafe.Pointer(&mem[off]))
}
