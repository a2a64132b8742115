package client

import (
	"fmt"
	"sync"

	"github.com/ox-runtime/ox/internal/proto"
)

// instanceRegistry maps instance handles to their owning Instance, per
// spec.md §9's redesign note: the thin translation layer that would sit
// over OpenXR's C entry points looks instances up here by handle instead
// of reaching into process-global maps.
type instanceRegistry struct {
	mu        sync.Mutex
	instances map[proto.Handle]*Instance
}

var globalRegistry = &instanceRegistry{instances: make(map[proto.Handle]*Instance)}

// CreateInstance connects conn, allocates an instance handle, and
// registers the resulting Instance. Mirrors xrCreateInstance's core
// responsibility without any of the XrInstanceCreateInfo extension
// negotiation, which belongs to the (out-of-scope) C translation layer.
func CreateInstance(conn IServiceConnection) (*Instance, error) {
	if err := conn.Connect(); err != nil {
		return nil, err
	}
	handle, err := conn.AllocateHandle(proto.HandleKindInstance)
	if err != nil {
		conn.Disconnect()
		return nil, err
	}
	inst := newInstance(handle, conn)

	globalRegistry.mu.Lock()
	globalRegistry.instances[handle] = inst
	globalRegistry.mu.Unlock()

	return inst, nil
}

// LookupInstance returns the Instance registered for handle, or
// ErrHandleInvalid if none is registered.
func LookupInstance(handle proto.Handle) (*Instance, error) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	inst, ok := globalRegistry.instances[handle]
	if !ok {
		return nil, ErrHandleInvalid
	}
	return inst, nil
}

// DestroyInstance disconnects inst's service connection, marks it
// destroyed so every subsequent call on it (and its derived handles)
// returns ErrInstanceLost, and removes it from the registry. A second
// DestroyInstance on the same handle returns ErrHandleInvalid rather than
// ErrInstanceLost, per spec.md S1: the handle no longer names a live
// instance, distinct from an operation attempted on a still-referenced but
// destroyed one.
func DestroyInstance(inst *Instance) error {
	inst.mu.Lock()
	if inst.destroyed {
		inst.mu.Unlock()
		return ErrHandleInvalid
	}
	inst.destroyed = true
	conn := inst.conn
	inst.mu.Unlock()

	conn.Disconnect()

	globalRegistry.mu.Lock()
	delete(globalRegistry.instances, inst.handle)
	globalRegistry.mu.Unlock()

	return nil
}

// CreateSession allocates a session handle through the service, per
// spec.md §4.4/§5: the session begins in Idle and the service drives it
// to Ready (and onward) via queued SessionStateEvents.
func (inst *Instance) CreateSession() (proto.Handle, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return 0, err
	}
	payload, err := inst.conn.SendRequest(proto.MessageCreateSession, nil)
	if err != nil {
		return 0, err
	}
	resp, err := proto.DecodeHandleResponse(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
	}
	inst.sessions[resp.Handle] = sessionInfo{instance: inst.handle}
	return resp.Handle, nil
}

// DestroySession removes a session from the instance's handle table and
// notifies the service.
func (inst *Instance) DestroySession(session proto.Handle) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return err
	}
	if _, ok := inst.sessions[session]; !ok {
		return fmt.Errorf("%w: unknown session %d", ErrHandleInvalid, session)
	}
	if _, err := inst.conn.SendRequest(proto.MessageDestroySession, nil); err != nil {
		return err
	}
	delete(inst.sessions, session)
	return nil
}

// RequestExitSession asks the service to begin tearing the session down,
// per spec.md §5's Stopping transition.
func (inst *Instance) RequestExitSession(session proto.Handle) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return err
	}
	if _, ok := inst.sessions[session]; !ok {
		return fmt.Errorf("%w: unknown session %d", ErrHandleInvalid, session)
	}
	req := proto.RequestExitSessionRequest{SessionHandle: session}.Encode()
	_, err := inst.conn.SendRequest(proto.MessageRequestExitSession, req)
	return err
}

// PollEvent returns the next queued session-state event, or ok=false if
// the queue is currently empty (spec.md §7's NotAvailable case).
func (inst *Instance) PollEvent() (proto.SessionStateEventWire, bool, error) {
	inst.mu.Lock()
	conn := inst.conn
	err := inst.checkAlive()
	inst.mu.Unlock()
	if err != nil {
		return proto.SessionStateEventWire{}, false, err
	}
	return conn.GetNextEvent()
}

// RuntimeProperties returns the service's cached static runtime metadata.
func (inst *Instance) RuntimeProperties() proto.RuntimeProperties {
	return inst.conn.RuntimeProperties()
}

// SystemProperties returns the service's cached static system metadata.
func (inst *Instance) SystemProperties() proto.SystemProperties {
	return inst.conn.SystemProperties()
}

// ViewConfigurations returns the service's cached recommended view
// configuration.
func (inst *Instance) ViewConfigurations() proto.ViewConfigurations {
	return inst.conn.ViewConfigurations()
}

// CurrentInteractionProfile returns the profile negotiated by the most
// recent AttachSessionActionSets call, or "" if none has been attached
// yet.
func (inst *Instance) CurrentInteractionProfile() string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.currentInteractionProfile
}
