package client

import (
	"fmt"

	"github.com/ox-runtime/ox/internal/proto"
)

// DefaultEyeHeightMeters is the documented fixed eye height used for
// reference space locate results, per spec.md §4.5.4. Standing/seated
// distinctions and floor-relative offsets are out of core scope; a single
// constant eye height is the documented stand-in.
const DefaultEyeHeightMeters = 1.5

// ReferenceSpaceType distinguishes the handful of reference space kinds an
// application can create. The core does not distinguish their locate
// behavior (spec.md §4.5.4 gives one fixed identity pose for any
// reference space), but the type is retained for API fidelity.
type ReferenceSpaceType int

const (
	ReferenceSpaceView ReferenceSpaceType = iota
	ReferenceSpaceLocal
	ReferenceSpaceStage
)

// CreateReferenceSpace allocates a handle for a reference space bound to
// session.
func (inst *Instance) CreateReferenceSpace(session proto.Handle, _ ReferenceSpaceType) (proto.Handle, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return 0, err
	}
	if _, ok := inst.sessions[session]; !ok {
		return 0, fmt.Errorf("%w: unknown session %d", ErrHandleInvalid, session)
	}
	h, err := inst.conn.AllocateHandle(proto.HandleKindSpace)
	if err != nil {
		return 0, err
	}
	inst.spaces[h] = spaceInfo{session: session}
	return h, nil
}

// CreateActionSpace allocates a handle for an action space: a space whose
// pose tracks the device bound to action under subactionPath, per spec.md
// §4.5.1's action_spaces overlay.
func (inst *Instance) CreateActionSpace(session, action proto.Handle, subactionPath string) (proto.Handle, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return 0, err
	}
	if _, ok := inst.sessions[session]; !ok {
		return 0, fmt.Errorf("%w: unknown session %d", ErrHandleInvalid, session)
	}
	if _, ok := inst.actions[action]; !ok {
		return 0, fmt.Errorf("%w: unknown action %d", ErrHandleInvalid, action)
	}
	h, err := inst.conn.AllocateHandle(proto.HandleKindSpace)
	if err != nil {
		return 0, err
	}
	inst.actionSpaces[h] = actionSpaceInfo{session: session, action: action, subactionPath: subactionPath}
	return h, nil
}

// LocateSpace resolves a space's pose against the most recent published
// frame, per spec.md §4.5.4:
//
//   - reference space: fixed identity-orientation pose at
//     DefaultEyeHeightMeters.
//   - action space: resolve the user path from the bound action's
//     subaction path, look up the device by that user path in the current
//     frame's device table, and return its pose with both valid flags set
//     if found and active; otherwise a flags-zero pose (NotAvailable, not
//     an error).
func (inst *Instance) LocateSpace(space proto.Handle, predictedTime int64) (proto.Pose, error) {
	inst.mu.Lock()
	ai, isAction := inst.actionSpaces[space]
	_, isReference := inst.spaces[space]
	conn := inst.conn
	err := inst.checkAlive()
	inst.mu.Unlock()

	if err != nil {
		return proto.Pose{}, err
	}
	if !isAction && !isReference {
		return proto.Pose{}, fmt.Errorf("%w: unknown space %d", ErrHandleInvalid, space)
	}

	if isReference {
		return proto.Pose{
			Position:    proto.Vector3f{X: 0, Y: DefaultEyeHeightMeters, Z: 0},
			Orientation: proto.Quaternion{W: 1},
			Timestamp:   predictedTime,
			Flags:       proto.PoseFlagPositionValid | proto.PoseFlagOrientationValid,
		}, nil
	}

	userPath := ai.subactionPath
	frame := conn.ReadFrame()
	for i := uint32(0); i < frame.DeviceCount; i++ {
		dev := frame.Devices[i]
		if dev.UserPath != userPath {
			continue
		}
		if !dev.IsActive {
			break
		}
		pose := dev.Pose
		pose.Flags = proto.PoseFlagPositionValid | proto.PoseFlagOrientationValid
		return pose, nil
	}
	return proto.Pose{Timestamp: predictedTime}, nil
}
