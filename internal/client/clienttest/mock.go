// Package clienttest provides a MockConnection implementing
// client.IServiceConnection for tests, grounded on
// original_source/tests/runtime/mock_service_connection.h: a test double
// that lets client-package tests drive binding resolution, space
// location, and action-state queries without a real service process or
// shared-memory segment.
package clienttest

import (
	"sync"

	"github.com/ox-runtime/ox/internal/client"
	"github.com/ox-runtime/ox/internal/ipc/shm"
	"github.com/ox-runtime/ox/internal/proto"
)

var _ client.IServiceConnection = (*MockConnection)(nil)

// InputSample is one (user_path, component_path) driver response the mock
// will answer GetInputState* queries with.
type InputSample struct {
	Bool  proto.InputStateBoolResponse
	Float proto.InputStateFloatResponse
	Vec2  proto.InputStateVec2Response
}

// MockConnection is a fully in-memory IServiceConnection. Tests populate
// its fields directly (it holds no goroutines, no sockets, no shared
// memory) and then hand it to client.CreateInstance.
type MockConnection struct {
	mu sync.Mutex

	connected bool

	Frame shm.Frame
	State proto.SessionState

	Runtime     proto.RuntimeProperties
	System      proto.SystemProperties
	ViewCfg     proto.ViewConfigurations
	Interaction proto.InteractionProfiles

	// Inputs maps "userPath|componentPath" to the response the mock
	// returns for that pair. Missing pairs answer Unavailable.
	Inputs map[string]InputSample

	// Events is drained in order by GetNextEvent.
	Events []proto.SessionStateEventWire

	nextHandle proto.Handle

	// WrittenTextures records every WriteTexture call for assertions.
	WrittenTextures []WrittenTexture
}

// WrittenTexture is one recorded WriteTexture call.
type WrittenTexture struct {
	Eye                   int
	Width, Height, Format uint32
	Pixels                []byte
}

// NewMockConnection returns a MockConnection with empty maps ready for use.
func NewMockConnection() *MockConnection {
	return &MockConnection{Inputs: make(map[string]InputSample)}
}

func (m *MockConnection) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *MockConnection) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func (m *MockConnection) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockConnection) ReadFrame() shm.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Frame
}

func (m *MockConnection) WriteTexture(eye int, width, height, format uint32, pixels []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(pixels))
	copy(cp, pixels)
	m.WrittenTextures = append(m.WrittenTextures, WrittenTexture{eye, width, height, format, cp})
	return nil
}

func (m *MockConnection) SessionState() proto.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.State
}

func (m *MockConnection) ActiveSessionHandle() proto.Handle {
	return 0
}

// SendRequest answers CreateSession with a freshly allocated handle, per
// spec.md §6 row 3, so client tests exercise the same decode path a real
// connection does. Every other message type is a no-op returning an empty
// response, since no client-package test depends on their payloads.
func (m *MockConnection) SendRequest(msgType proto.MessageType, payload []byte) ([]byte, error) {
	if msgType == proto.MessageCreateSession {
		m.mu.Lock()
		m.nextHandle++
		h := m.nextHandle
		m.mu.Unlock()
		return proto.HandleResponse{Handle: h}.Encode(), nil
	}
	return nil, nil
}

// AllocateHandle hands out monotonically increasing handles, mirroring the
// service's own allocator semantics closely enough for client tests.
func (m *MockConnection) AllocateHandle(kind proto.HandleKind) (proto.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandle++
	return m.nextHandle, nil
}

func (m *MockConnection) GetNextEvent() (proto.SessionStateEventWire, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Events) == 0 {
		return proto.SessionStateEventWire{}, false, nil
	}
	ev := m.Events[0]
	m.Events = m.Events[1:]
	return ev, true, nil
}

func (m *MockConnection) RuntimeProperties() proto.RuntimeProperties     { return m.Runtime }
func (m *MockConnection) SystemProperties() proto.SystemProperties       { return m.System }
func (m *MockConnection) ViewConfigurations() proto.ViewConfigurations   { return m.ViewCfg }
func (m *MockConnection) InteractionProfiles() proto.InteractionProfiles { return m.Interaction }

func inputKey(userPath, componentPath string) string { return userPath + "|" + componentPath }

// SetInputBoolean records the response the mock returns for
// (userPath, componentPath) boolean queries.
func (m *MockConnection) SetInputBoolean(userPath, componentPath string, resp proto.InputStateBoolResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.Inputs[inputKey(userPath, componentPath)]
	s.Bool = resp
	m.Inputs[inputKey(userPath, componentPath)] = s
}

// SetInputFloat records the response the mock returns for
// (userPath, componentPath) float queries.
func (m *MockConnection) SetInputFloat(userPath, componentPath string, resp proto.InputStateFloatResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.Inputs[inputKey(userPath, componentPath)]
	s.Float = resp
	m.Inputs[inputKey(userPath, componentPath)] = s
}

// SetInputVec2 records the response the mock returns for
// (userPath, componentPath) vector2 queries.
func (m *MockConnection) SetInputVec2(userPath, componentPath string, resp proto.InputStateVec2Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.Inputs[inputKey(userPath, componentPath)]
	s.Vec2 = resp
	m.Inputs[inputKey(userPath, componentPath)] = s
}

func (m *MockConnection) GetInputStateBoolean(userPath, componentPath string, _ int64) (proto.InputStateBoolResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Inputs[inputKey(userPath, componentPath)].Bool, nil
}

func (m *MockConnection) GetInputStateFloat(userPath, componentPath string, _ int64) (proto.InputStateFloatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Inputs[inputKey(userPath, componentPath)].Float, nil
}

func (m *MockConnection) GetInputStateVector2f(userPath, componentPath string, _ int64) (proto.InputStateVec2Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Inputs[inputKey(userPath, componentPath)].Vec2, nil
}
