package client_test

import (
	"testing"

	"github.com/ox-runtime/ox/internal/client"
	"github.com/ox-runtime/ox/internal/client/clienttest"
	"github.com/ox-runtime/ox/internal/ipc/shm"
	"github.com/ox-runtime/ox/internal/proto"
)

// TestActionStateResolution covers spec.md's S4 scenario: a binding
// suggestion for /user/hand/right/input/trigger/value under
// /interaction_profiles/khr/simple_controller, with the driver reporting
// that profile and an available 0.75 float, resolves to
// {active: true, current: 0.75}.
func TestActionStateResolution(t *testing.T) {
	const profile = "/interaction_profiles/khr/simple_controller"

	mock := clienttest.NewMockConnection()
	mock.Interaction = proto.InteractionProfiles{Profiles: []string{profile}}
	mock.SetInputFloat("/user/hand/right", "/input/trigger/value", proto.InputStateFloatResponse{
		Availability: proto.Available,
		Value:        0.75,
	})

	inst, err := client.CreateInstance(mock)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	session, err := inst.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	actionSet, err := inst.CreateActionSet(client.ActionSetInfo{Name: "gameplay"})
	if err != nil {
		t.Fatalf("CreateActionSet: %v", err)
	}
	action, err := inst.CreateAction(client.ActionInfo{
		ActionSet:      actionSet,
		Name:           "grip",
		Type:           client.ActionTypeFloat,
		SubactionPaths: []string{"/user/hand/left", "/user/hand/right"},
	})
	if err != nil {
		t.Fatalf("CreateAction: %v", err)
	}

	if err := inst.SuggestBindings([]client.BindingSuggestion{{
		Action:        action,
		BindingPath:   "/user/hand/right/input/trigger/value",
		SubactionPath: "/user/hand/right",
		Profiles:      []string{profile},
	}}); err != nil {
		t.Fatalf("SuggestBindings: %v", err)
	}

	if err := inst.AttachSessionActionSets(session, []proto.Handle{actionSet}); err != nil {
		t.Fatalf("AttachSessionActionSets: %v", err)
	}
	if got := inst.CurrentInteractionProfile(); got != profile {
		t.Fatalf("CurrentInteractionProfile() = %q, want %q", got, profile)
	}

	state, err := inst.GetActionStateFloat(action, "/user/hand/right", 0)
	if err != nil {
		t.Fatalf("GetActionStateFloat: %v", err)
	}
	if !state.Active || state.Current != 0.75 {
		t.Fatalf("GetActionStateFloat() = %+v, want {Active:true Current:0.75}", state)
	}
}

// TestActionStateResolutionInactiveWhenNoneAvailable covers the
// complementary spec.md §4.5.3 step 5 branch: if no surviving binding
// reports available, the action state is inactive.
func TestActionStateResolutionInactiveWhenNoneAvailable(t *testing.T) {
	mock := clienttest.NewMockConnection()
	inst, err := client.CreateInstance(mock)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	actionSet, _ := inst.CreateActionSet(client.ActionSetInfo{Name: "gameplay"})
	action, _ := inst.CreateAction(client.ActionInfo{ActionSet: actionSet, Name: "grip", Type: client.ActionTypeBoolean})
	if err := inst.SuggestBindings([]client.BindingSuggestion{{
		Action:      action,
		BindingPath: "/user/hand/left/input/trigger/touch",
	}}); err != nil {
		t.Fatalf("SuggestBindings: %v", err)
	}

	state, err := inst.GetActionStateBoolean(action, "", 0)
	if err != nil {
		t.Fatalf("GetActionStateBoolean: %v", err)
	}
	if state.Active {
		t.Fatalf("expected inactive state when no binding is available, got %+v", state)
	}
}

// TestLocateReferenceSpace covers spec.md §4.5.4's reference-space branch:
// a fixed identity-orientation pose at the documented eye height.
func TestLocateReferenceSpace(t *testing.T) {
	mock := clienttest.NewMockConnection()
	inst, err := client.CreateInstance(mock)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	session, _ := inst.CreateSession()
	space, err := inst.CreateReferenceSpace(session, client.ReferenceSpaceLocal)
	if err != nil {
		t.Fatalf("CreateReferenceSpace: %v", err)
	}

	pose, err := inst.LocateSpace(space, 0)
	if err != nil {
		t.Fatalf("LocateSpace: %v", err)
	}
	if pose.Orientation != (proto.Quaternion{W: 1}) {
		t.Fatalf("expected identity orientation, got %+v", pose.Orientation)
	}
	if pose.Position.Y != client.DefaultEyeHeightMeters {
		t.Fatalf("expected eye height %v, got %v", client.DefaultEyeHeightMeters, pose.Position.Y)
	}
}

// TestLocateActionSpaceFollowsDevice covers spec.md §4.5.4's action-space
// branch: the pose comes from the device matching the subaction's user
// path in the current frame, with both valid flags set when active.
func TestLocateActionSpaceFollowsDevice(t *testing.T) {
	mock := clienttest.NewMockConnection()
	mock.Frame = shm.Frame{
		DeviceCount: 1,
		Devices: [shm.MaxDevices]proto.DeviceState{
			{
				UserPath: "/user/hand/right",
				Pose:     proto.Pose{Position: proto.Vector3f{X: 1, Y: 2, Z: 3}},
				IsActive: true,
			},
		},
	}

	inst, err := client.CreateInstance(mock)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	session, _ := inst.CreateSession()
	actionSet, _ := inst.CreateActionSet(client.ActionSetInfo{Name: "gameplay"})
	action, _ := inst.CreateAction(client.ActionInfo{ActionSet: actionSet, Name: "pose", Type: client.ActionTypePose})

	space, err := inst.CreateActionSpace(session, action, "/user/hand/right")
	if err != nil {
		t.Fatalf("CreateActionSpace: %v", err)
	}

	pose, err := inst.LocateSpace(space, 0)
	if err != nil {
		t.Fatalf("LocateSpace: %v", err)
	}
	if pose.Position != (proto.Vector3f{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("got position %+v", pose.Position)
	}
	if pose.Flags&proto.PoseFlagPositionValid == 0 || pose.Flags&proto.PoseFlagOrientationValid == 0 {
		t.Fatalf("expected both valid flags set, got %x", pose.Flags)
	}
}

// TestLocateActionSpaceInactiveDeviceReturnsFlagsZero covers the
// "otherwise return flags-zero" branch of spec.md §4.5.4.
func TestLocateActionSpaceInactiveDeviceReturnsFlagsZero(t *testing.T) {
	mock := clienttest.NewMockConnection()
	mock.Frame = shm.Frame{
		DeviceCount: 1,
		Devices: [shm.MaxDevices]proto.DeviceState{
			{
				UserPath: "/user/hand/left",
				Pose:     proto.Pose{Position: proto.Vector3f{X: 1, Y: 2, Z: 3}},
				IsActive: false,
			},
		},
	}
	inst, err := client.CreateInstance(mock)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	session, _ := inst.CreateSession()
	actionSet, _ := inst.CreateActionSet(client.ActionSetInfo{Name: "gameplay"})
	action, _ := inst.CreateAction(client.ActionInfo{ActionSet: actionSet, Name: "pose", Type: client.ActionTypePose})
	space, err := inst.CreateActionSpace(session, action, "/user/hand/left")
	if err != nil {
		t.Fatalf("CreateActionSpace: %v", err)
	}

	pose, err := inst.LocateSpace(space, 0)
	if err != nil {
		t.Fatalf("LocateSpace: %v", err)
	}
	if pose.Flags != 0 {
		t.Fatalf("expected flags-zero pose, got %x", pose.Flags)
	}
}

// TestDestroyInstanceInvalidatesFurtherCalls covers spec.md S1: any other
// call on an already-destroyed instance fails with ErrInstanceLost, while a
// second DestroyInstance on the same handle returns ErrHandleInvalid.
func TestDestroyInstanceInvalidatesFurtherCalls(t *testing.T) {
	mock := clienttest.NewMockConnection()
	inst, err := client.CreateInstance(mock)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if err := client.DestroyInstance(inst); err != nil {
		t.Fatalf("DestroyInstance: %v", err)
	}
	if _, err := inst.CreateSession(); err != client.ErrInstanceLost {
		t.Fatalf("CreateSession after destroy = %v, want ErrInstanceLost", err)
	}
	if err := client.DestroyInstance(inst); err != client.ErrHandleInvalid {
		t.Fatalf("second DestroyInstance = %v, want ErrHandleInvalid", err)
	}
}

// TestSetServiceConnectionSwapsConnection covers the client library's test
// hook from spec.md §6 ("set_service_connection"): swapping in a second
// mock after construction takes effect on the next call.
func TestSetServiceConnectionSwapsConnection(t *testing.T) {
	first := clienttest.NewMockConnection()
	inst, err := client.CreateInstance(first)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	second := clienttest.NewMockConnection()
	second.Runtime = proto.RuntimeProperties{RuntimeName: "second", RuntimeVersion: 2}
	inst.SetServiceConnection(second)

	if got := inst.RuntimeProperties(); got.RuntimeName != "second" {
		t.Fatalf("RuntimeProperties() after SetServiceConnection = %+v, want the second mock's values", got)
	}
}
