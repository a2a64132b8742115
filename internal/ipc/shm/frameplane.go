// Package shm implements the shared-memory frame plane: the page-aligned
// region that carries 90Hz pose, view, device, and submitted-eye-texture
// data one-way from the service's frame producer to any client-visible
// reader. Layout and access discipline follow spec.md §3's frame plane
// table: a seqlock-guarded header page plus a separately delimited texture
// tail, both mapped from the same named region.
//
// The struct-of-atomics / hdrView pointer-arithmetic idiom here is ported
// directly from the teacher's SegmentHeader/hdrView split
// (shm_segment.go), generalized from a gRPC byte-stream ring pair to a
// fixed-layout pose/device/texture plane.
package shm

import (
	"errors"
	"fmt"
	"os"
	"unsafe"
)

// ProtocolVersion is the compile-time constant the client checks against
// the mapped region's protocol_version field on connect (spec.md §8.7).
const ProtocolVersion = uint32(1)

const (
	// FramePlaneMagic identifies a mapped region as an ox runtime frame
	// plane, mirroring the teacher's SegmentMagic check.
	FramePlaneMagic = "OXFRAME\x00"

	// MaxDevices bounds the per-tick device table, per include/ox_driver.h's
	// OX_MAX_DEVICES.
	MaxDevices = 16

	// MaxTextureWidth and MaxTextureHeight bound the per-eye submitted
	// texture footprint (spec.md §9's "Texture size bound").
	MaxTextureWidth  = 2048
	MaxTextureHeight = 2048
	bytesPerPixel    = 4

	// HeaderPageSize is the size of the seqlock-guarded header region;
	// kept separate from the texture tail per spec.md §9.
	HeaderPageSize = 4096

	// maxUserPathLen bounds one device's NUL-terminated user path in the
	// frame plane; at 128 bytes the MaxDevices-entry device table keeps
	// the header within HeaderPageSize.
	maxUserPathLen = 128
)

// ErrPlatformUnsupported is returned by platform stub implementations of
// CreateFramePlane/OpenFramePlane on GOOS/GOARCH combinations without a
// native mmap path, mirroring the teacher's handshake_stub.go split.
var ErrPlatformUnsupported = errors.New("shm: platform not supported")

// ErrVersionMismatch is returned by OpenFramePlane when the mapped region's
// protocol_version does not match ProtocolVersion.
var ErrVersionMismatch = errors.New("shm: protocol version mismatch")

var unmapMemory func([]byte) error

// FramePlaneHeaderSize is the on-wire size, in bytes, of FramePlaneHeader's
// fixed fields (everything up through the device table). It must not
// exceed HeaderPageSize.
var FramePlaneHeaderSize = int(unsafe.Sizeof(rawHeader{}))

// rawPose/rawFov/rawView/rawDevice are the fixed-layout POD forms written
// directly into mapped memory, field-for-field identical to
// original_source's protocol::Pose/View and include/ox_driver.h's
// OxDeviceState — no pointers, no variable-length fields, per spec.md §9.
type rawPose struct {
	Position    [3]float32
	Orientation [4]float32
	Timestamp   int64
	Flags       uint32
	_           uint32 // padding to match the teacher's explicit pad fields
}

type rawFov struct {
	AngleLeft, AngleRight, AngleUp, AngleDown float32
}

type rawView struct {
	Pose rawPose
	Fov  rawFov
}

type rawDevice struct {
	UserPath [maxUserPathLen]byte
	Pose     rawPose
	IsActive uint32
	_        uint32
}

// rawHeader is the seqlock-guarded header page layout. FrameID doubles as
// the seqlock counter per spec.md §3: the producer increments it once
// (becoming odd) before writing views/devices, writes, then increments it
// again (becoming even) after. A stable frame's logical id is FrameID/2.
type rawHeader struct {
	magic               [8]byte
	protocolVersion     uint32
	serviceReady        uint32
	clientConnected     uint32
	sessionState        uint32
	activeSessionHandle uint64
	frameID             uint64
	predictedDisplayTime int64
	viewCount           uint32
	views               [2]rawView
	deviceCount         uint32
	devices             [MaxDevices]rawDevice
}

// FrameTextureHeaderSize is the fixed size of one eye's texture header
// (everything but the pixel payload).
const FrameTextureHeaderSize = 4 * 5 // width,height,format,dataSize,ready as u32

type rawTexture struct {
	Width, Height, Format, DataSize, Ready uint32
	Pixels                                 [MaxTextureWidth * MaxTextureHeight * bytesPerPixel]byte
}

// TextureRegionOffset is where the two per-eye texture blocks begin,
// immediately after the header page.
const TextureRegionOffset = HeaderPageSize

// TotalRegionSize is the full size of the mapped frame-plane region: the
// header page plus two fixed per-eye texture blocks.
var TotalRegionSize = TextureRegionOffset + 2*int(unsafe.Sizeof(rawTexture{}))

func init() {
	if FramePlaneHeaderSize > HeaderPageSize {
		panic(fmt.Sprintf("shm: FramePlaneHeader (%d bytes) exceeds HeaderPageSize (%d)", FramePlaneHeaderSize, HeaderPageSize))
	}
}

// FramePlane is a mapped frame-plane region: a typed view over the header
// page plus the texture tail, owned by whichever side created it (the
// service) or simply mapped (the client), exactly mirroring the teacher's
// Segment/hdrView split.
type FramePlane struct {
	file *os.File
	mem  []byte
	hdr  *rawHeader
	tex  [2]*rawTexture
	name string
	// owner is true for the side that created (and must unlink) the
	// region; false for a side that only opened an existing mapping.
	owner bool
}

// Close unmaps the region and closes the backing file descriptor. It does
// not unlink the name; call Unlink separately from the owning side.
func (p *FramePlane) Close() error {
	var firstErr error
	if p.mem != nil {
		if err := unmapMemory(p.mem); err != nil && firstErr == nil {
			firstErr = err
		}
		p.mem = nil
	}
	if p.file != nil {
		if err := p.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.file = nil
	}
	return firstErr
}

func (p *FramePlane) header() *rawHeader { return p.hdr }
