package client

import (
	"sync"

	"github.com/ox-runtime/ox/internal/proto"
)

// sessionInfo records which instance a session handle belongs to.
type sessionInfo struct {
	instance proto.Handle
}

// spaceInfo records a reference space's owning session.
type spaceInfo struct {
	session proto.Handle
}

// actionSpaceInfo is the action_spaces overlay from spec.md §4.5.1: a
// space created from an action carries the action and the subaction path
// it was created with, instead of (or in addition to) a session.
type actionSpaceInfo struct {
	session        proto.Handle
	action         proto.Handle
	subactionPath  string
}

// actionInfo is an action's declared metadata, per spec.md §3.
type actionInfo struct {
	actionSet      proto.Handle
	name           string
	valueType      ActionType
	subactionPaths []string
}

// ActionType mirrors OpenXR's XrActionType subset this core cares about.
type ActionType int

const (
	ActionTypeBoolean ActionType = iota
	ActionTypeFloat
	ActionTypeVector2f
	ActionTypePose
)

// Instance is the single owning struct for one live OpenXR instance: the
// handle table, path interner, action/binding metadata, and swapchain
// data, per spec.md §9's "Global mutable state" redesign note. Entry
// points look this up by instance handle (see registry.go) instead of
// touching package globals.
type Instance struct {
	handle proto.Handle
	conn   IServiceConnection

	mu sync.Mutex

	interner *pathInterner

	sessions     map[proto.Handle]sessionInfo
	spaces       map[proto.Handle]spaceInfo
	actionSpaces map[proto.Handle]actionSpaceInfo
	actionSets   map[proto.Handle]struct{}
	actions      map[proto.Handle]actionInfo
	swapchains   map[proto.Handle]*SwapchainData

	bindings bindingTable

	// currentInteractionProfile is set by AttachSessionActionSets, per
	// spec.md §4.5.3's attach-time negotiation.
	currentInteractionProfile string

	destroyed bool
}

// newInstance constructs an empty Instance bound to handle and conn.
func newInstance(handle proto.Handle, conn IServiceConnection) *Instance {
	return &Instance{
		handle:       handle,
		conn:         conn,
		interner:     newPathInterner(),
		sessions:     make(map[proto.Handle]sessionInfo),
		spaces:       make(map[proto.Handle]spaceInfo),
		actionSpaces: make(map[proto.Handle]actionSpaceInfo),
		actionSets:   make(map[proto.Handle]struct{}),
		actions:      make(map[proto.Handle]actionInfo),
		swapchains:   make(map[proto.Handle]*SwapchainData),
		bindings:     newBindingTable(),
	}
}

// Handle returns the instance's own handle.
func (inst *Instance) Handle() proto.Handle { return inst.handle }

// SetServiceConnection replaces inst's service connection. This is the
// client library's one test hook, per spec.md §6's
// "set_service_connection(IServiceConnection*)": the test harness swaps in
// a clienttest.MockConnection after construction instead of going through
// a live service process. Adapted to the instance-scoped redesign (spec.md
// §9) as a method on *Instance rather than a process-global setter.
func (inst *Instance) SetServiceConnection(conn IServiceConnection) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.conn = conn
}

// checkAlive returns ErrInstanceLost if the instance has been destroyed.
// Callers hold inst.mu.
func (inst *Instance) checkAlive() error {
	if inst.destroyed {
		return ErrInstanceLost
	}
	return nil
}

// StringToPath interns s and returns its token, per spec.md §8.1's
// round-trip invariant.
func (inst *Instance) StringToPath(s string) PathToken {
	return inst.interner.StringToPath(s)
}

// PathToString resolves a token back to its original string, or
// ErrHandleInvalid if unknown to this instance.
func (inst *Instance) PathToString(tok PathToken) (string, error) {
	s, ok := inst.interner.PathToString(tok)
	if !ok {
		return "", ErrHandleInvalid
	}
	return s, nil
}
