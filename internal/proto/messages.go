// Payload codecs for each control-channel message kind. Every type here
// round-trips through Encode/Decode exactly as the fixed 16-byte Header
// does: little-endian, fixed-width, no variable-length framing beyond the
// header's payload_size field.
package proto

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Fixed buffer sizes for wire strings. InputStateRequest's sizes are given
// directly by spec.md §6; the others follow OpenXR's own
// XR_MAX_RUNTIME_NAME_SIZE-style convention of a generous fixed char array.
const (
	maxUserPathWire      = 256
	maxComponentPathWire = 128
	maxNameWire          = 128
	maxProfilePathWire   = 128
	maxInteractionProfiles = 8
)

// AllocateHandleRequest is the payload for message type AllocateHandle.
type AllocateHandleRequest struct {
	Kind HandleKind
}

func (r AllocateHandleRequest) Encode() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(r.Kind))
	return b
}

func DecodeAllocateHandleRequest(b []byte) (AllocateHandleRequest, error) {
	if len(b) < 4 {
		return AllocateHandleRequest{}, fmt.Errorf("proto: AllocateHandleRequest too short")
	}
	return AllocateHandleRequest{Kind: HandleKind(binary.LittleEndian.Uint32(b))}, nil
}

// HandleResponse carries a single u64 handle; used for AllocateHandle and
// CreateSession responses alike.
type HandleResponse struct {
	Handle Handle
}

func (r HandleResponse) Encode() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(r.Handle))
	return b
}

func DecodeHandleResponse(b []byte) (HandleResponse, error) {
	if len(b) < 8 {
		return HandleResponse{}, fmt.Errorf("proto: HandleResponse too short")
	}
	return HandleResponse{Handle: Handle(binary.LittleEndian.Uint64(b))}, nil
}

// RequestExitSessionRequest is the payload for message type RequestExitSession.
type RequestExitSessionRequest struct {
	SessionHandle Handle
}

func (r RequestExitSessionRequest) Encode() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(r.SessionHandle))
	return b
}

func DecodeRequestExitSessionRequest(b []byte) (RequestExitSessionRequest, error) {
	if len(b) < 8 {
		return RequestExitSessionRequest{}, fmt.Errorf("proto: RequestExitSessionRequest too short")
	}
	return RequestExitSessionRequest{SessionHandle: Handle(binary.LittleEndian.Uint64(b))}, nil
}

// SessionStateEventWire is the on-wire form of a SessionStateEvent. An empty
// GetNextEvent response (no queued event) is encoded as a zero-length
// payload; callers tell the two apart by payload length before decoding.
type SessionStateEventWire struct {
	Handle         Handle
	NewState       SessionState
	TimestampNanos int64
}

const sessionStateEventWireSize = 8 + 4 + 8

func (e SessionStateEventWire) Encode() []byte {
	b := make([]byte, sessionStateEventWireSize)
	binary.LittleEndian.PutUint64(b[0:8], uint64(e.Handle))
	binary.LittleEndian.PutUint32(b[8:12], uint32(e.NewState))
	binary.LittleEndian.PutUint64(b[12:20], uint64(e.TimestampNanos))
	return b
}

func DecodeSessionStateEventWire(b []byte) (SessionStateEventWire, error) {
	if len(b) < sessionStateEventWireSize {
		return SessionStateEventWire{}, fmt.Errorf("proto: SessionStateEventWire too short")
	}
	return SessionStateEventWire{
		Handle:         Handle(binary.LittleEndian.Uint64(b[0:8])),
		NewState:       SessionState(binary.LittleEndian.Uint32(b[8:12])),
		TimestampNanos: int64(binary.LittleEndian.Uint64(b[12:20])),
	}, nil
}

// RuntimeProperties answers GetRuntimeProperties.
type RuntimeProperties struct {
	RuntimeName    string
	RuntimeVersion uint64
}

func (r RuntimeProperties) Encode() ([]byte, error) {
	b := make([]byte, maxNameWire+8)
	if err := putFixedString(b[0:maxNameWire], r.RuntimeName); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(b[maxNameWire:], r.RuntimeVersion)
	return b, nil
}

func DecodeRuntimeProperties(b []byte) (RuntimeProperties, error) {
	if len(b) < maxNameWire+8 {
		return RuntimeProperties{}, fmt.Errorf("proto: RuntimeProperties too short")
	}
	return RuntimeProperties{
		RuntimeName:    getFixedString(b[0:maxNameWire]),
		RuntimeVersion: binary.LittleEndian.Uint64(b[maxNameWire:]),
	}, nil
}

// SystemProperties answers GetSystemProperties.
type SystemProperties struct {
	SystemName          string
	VendorID             uint32
	MaxLayerCount        uint32
	PositionTracking     bool
	OrientationTracking  bool
}

const systemPropertiesWireSize = maxNameWire + 4 + 4 + 1 + 1

func (s SystemProperties) Encode() ([]byte, error) {
	b := make([]byte, systemPropertiesWireSize)
	if err := putFixedString(b[0:maxNameWire], s.SystemName); err != nil {
		return nil, err
	}
	off := maxNameWire
	binary.LittleEndian.PutUint32(b[off:], s.VendorID)
	off += 4
	binary.LittleEndian.PutUint32(b[off:], s.MaxLayerCount)
	off += 4
	b[off] = boolByte(s.PositionTracking)
	off++
	b[off] = boolByte(s.OrientationTracking)
	return b, nil
}

func DecodeSystemProperties(b []byte) (SystemProperties, error) {
	if len(b) < systemPropertiesWireSize {
		return SystemProperties{}, fmt.Errorf("proto: SystemProperties too short")
	}
	off := maxNameWire
	s := SystemProperties{
		SystemName:    getFixedString(b[0:maxNameWire]),
		VendorID:      binary.LittleEndian.Uint32(b[off:]),
		MaxLayerCount: binary.LittleEndian.Uint32(b[off+4:]),
	}
	s.PositionTracking = b[off+8] != 0
	s.OrientationTracking = b[off+9] != 0
	return s, nil
}

// ViewConfigurations answers GetViewConfigurations: the single stereo view
// configuration's recommended render-target dimensions and sample count.
type ViewConfigurations struct {
	RecommendedWidth  uint32
	RecommendedHeight uint32
	SampleCount       uint32
}

func (v ViewConfigurations) Encode() []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:4], v.RecommendedWidth)
	binary.LittleEndian.PutUint32(b[4:8], v.RecommendedHeight)
	binary.LittleEndian.PutUint32(b[8:12], v.SampleCount)
	return b
}

func DecodeViewConfigurations(b []byte) (ViewConfigurations, error) {
	if len(b) < 12 {
		return ViewConfigurations{}, fmt.Errorf("proto: ViewConfigurations too short")
	}
	return ViewConfigurations{
		RecommendedWidth:  binary.LittleEndian.Uint32(b[0:4]),
		RecommendedHeight: binary.LittleEndian.Uint32(b[4:8]),
		SampleCount:       binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// InteractionProfiles answers GetInteractionProfiles: the driver-supported
// interaction profile paths, capped at maxInteractionProfiles entries.
type InteractionProfiles struct {
	Profiles []string
}

func (p InteractionProfiles) Encode() ([]byte, error) {
	if len(p.Profiles) > maxInteractionProfiles {
		return nil, fmt.Errorf("proto: %d interaction profiles exceeds max %d", len(p.Profiles), maxInteractionProfiles)
	}
	b := make([]byte, 4+maxInteractionProfiles*maxProfilePathWire)
	binary.LittleEndian.PutUint32(b[0:4], uint32(len(p.Profiles)))
	for i, prof := range p.Profiles {
		off := 4 + i*maxProfilePathWire
		if err := putFixedString(b[off:off+maxProfilePathWire], prof); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func DecodeInteractionProfiles(b []byte) (InteractionProfiles, error) {
	if len(b) < 4 {
		return InteractionProfiles{}, fmt.Errorf("proto: InteractionProfiles too short")
	}
	count := binary.LittleEndian.Uint32(b[0:4])
	if count > maxInteractionProfiles {
		return InteractionProfiles{}, fmt.Errorf("proto: InteractionProfiles count %d exceeds max %d", count, maxInteractionProfiles)
	}
	need := 4 + int(count)*maxProfilePathWire
	if len(b) < need {
		return InteractionProfiles{}, fmt.Errorf("proto: InteractionProfiles truncated")
	}
	out := InteractionProfiles{Profiles: make([]string, count)}
	for i := range out.Profiles {
		off := 4 + i*maxProfilePathWire
		out.Profiles[i] = getFixedString(b[off : off+maxProfilePathWire])
	}
	return out, nil
}

// InputStateRequest is the payload shared by GetInputStateBool/Float/Vec2,
// laid out exactly as spec.md §6 specifies.
type InputStateRequest struct {
	UserPath      string
	ComponentPath string
	PredictedTime int64
}

const inputStateRequestWireSize = maxUserPathWire + maxComponentPathWire + 8

func (r InputStateRequest) Encode() ([]byte, error) {
	b := make([]byte, inputStateRequestWireSize)
	if err := putFixedString(b[0:maxUserPathWire], r.UserPath); err != nil {
		return nil, err
	}
	if err := putFixedString(b[maxUserPathWire:maxUserPathWire+maxComponentPathWire], r.ComponentPath); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(b[maxUserPathWire+maxComponentPathWire:], uint64(r.PredictedTime))
	return b, nil
}

func DecodeInputStateRequest(b []byte) (InputStateRequest, error) {
	if len(b) < inputStateRequestWireSize {
		return InputStateRequest{}, fmt.Errorf("proto: InputStateRequest too short")
	}
	return InputStateRequest{
		UserPath:      getFixedString(b[0:maxUserPathWire]),
		ComponentPath: getFixedString(b[maxUserPathWire : maxUserPathWire+maxComponentPathWire]),
		PredictedTime: int64(binary.LittleEndian.Uint64(b[maxUserPathWire+maxComponentPathWire:])),
	}, nil
}

// InputStateBoolResponse answers GetInputStateBool.
type InputStateBoolResponse struct {
	Availability Availability
	Value        bool
}

func (r InputStateBoolResponse) Encode() []byte {
	return []byte{byte(r.Availability), boolByte(r.Value)}
}

func DecodeInputStateBoolResponse(b []byte) (InputStateBoolResponse, error) {
	if len(b) < 2 {
		return InputStateBoolResponse{}, fmt.Errorf("proto: InputStateBoolResponse too short")
	}
	return InputStateBoolResponse{Availability: Availability(b[0]), Value: b[1] != 0}, nil
}

// InputStateFloatResponse answers GetInputStateFloat.
type InputStateFloatResponse struct {
	Availability Availability
	Value        float32
}

func (r InputStateFloatResponse) Encode() []byte {
	b := make([]byte, 8)
	b[0] = byte(r.Availability)
	binary.LittleEndian.PutUint32(b[4:8], float32bits(r.Value))
	return b
}

func DecodeInputStateFloatResponse(b []byte) (InputStateFloatResponse, error) {
	if len(b) < 8 {
		return InputStateFloatResponse{}, fmt.Errorf("proto: InputStateFloatResponse too short")
	}
	return InputStateFloatResponse{
		Availability: Availability(b[0]),
		Value:        float32frombits(binary.LittleEndian.Uint32(b[4:8])),
	}, nil
}

// InputStateVec2Response answers GetInputStateVec2.
type InputStateVec2Response struct {
	Availability Availability
	X, Y         float32
}

func (r InputStateVec2Response) Encode() []byte {
	b := make([]byte, 12)
	b[0] = byte(r.Availability)
	binary.LittleEndian.PutUint32(b[4:8], float32bits(r.X))
	binary.LittleEndian.PutUint32(b[8:12], float32bits(r.Y))
	return b
}

func DecodeInputStateVec2Response(b []byte) (InputStateVec2Response, error) {
	if len(b) < 12 {
		return InputStateVec2Response{}, fmt.Errorf("proto: InputStateVec2Response too short")
	}
	return InputStateVec2Response{
		Availability: Availability(b[0]),
		X:            float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		Y:            float32frombits(binary.LittleEndian.Uint32(b[8:12])),
	}, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func float32bits(f float32) uint32    { return math.Float32bits(f) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }
