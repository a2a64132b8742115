package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/ox-runtime/ox/internal/ipc/control"
	"github.com/ox-runtime/ox/internal/ipc/shm"
	"github.com/ox-runtime/ox/internal/proto"
)

// FramePlaneName and ControlChannelName are the well-known IPC endpoint
// names from spec.md §6. internal/config uses the same values as its flag
// defaults, written out as its own literals rather than these constants.
const (
	FramePlaneName     = "ox_runtime_shm"
	ControlChannelName = "ox_runtime_control"
)

// IServiceConnection is the client's seam over the service connection,
// ported directly from original_source's IServiceConnection: it lets the
// rest of the client package (and its own tests) depend on an interface
// rather than a concrete socket+shared-memory implementation, per spec.md
// §6's "one test hook, set_service_connection."
type IServiceConnection interface {
	Connect() error
	Disconnect()
	IsConnected() bool

	ReadFrame() shm.Frame
	WriteTexture(eye int, width, height, format uint32, pixels []byte) error
	SessionState() proto.SessionState
	ActiveSessionHandle() proto.Handle

	SendRequest(msgType proto.MessageType, payload []byte) ([]byte, error)
	AllocateHandle(kind proto.HandleKind) (proto.Handle, error)
	GetNextEvent() (proto.SessionStateEventWire, bool, error)

	RuntimeProperties() proto.RuntimeProperties
	SystemProperties() proto.SystemProperties
	ViewConfigurations() proto.ViewConfigurations
	InteractionProfiles() proto.InteractionProfiles

	GetInputStateBoolean(userPath, componentPath string, predictedTime int64) (proto.InputStateBoolResponse, error)
	GetInputStateFloat(userPath, componentPath string, predictedTime int64) (proto.InputStateFloatResponse, error)
	GetInputStateVector2f(userPath, componentPath string, predictedTime int64) (proto.InputStateVec2Response, error)
}

// RealConnection is the production IServiceConnection: shared-memory frame
// plane plus control-channel socket, per spec.md §4.5.2.
type RealConnection struct {
	mu sync.Mutex // send_mutex_, per spec.md §4.5.2/§5: serializes control requests

	segmentName    string
	controlName    string
	connectTimeout time.Duration

	plane *shm.FramePlane
	conn  *control.Conn

	nextSequence uint32

	runtimeProps  proto.RuntimeProperties
	systemProps   proto.SystemProperties
	viewCfg       proto.ViewConfigurations
	interaction   proto.InteractionProfiles
}

// NewRealConnection constructs an unconnected RealConnection that will dial
// the named frame plane and control channel, per SPEC_FULL.md §2's
// configurable endpoint names. A zero connectTimeout falls back to
// control.DefaultConnectTimeout.
func NewRealConnection(segmentName, controlName string, connectTimeout time.Duration) *RealConnection {
	return &RealConnection{segmentName: segmentName, controlName: controlName, connectTimeout: connectTimeout}
}

// Connect opens shared memory, verifies the protocol version, opens the
// control channel, sends Connect, and caches the four static-metadata
// responses once, per spec.md §4.5.2 and §8.7's version-gate invariant:
// on a version mismatch it returns before touching the control channel.
func (c *RealConnection) Connect() error {
	plane, err := shm.OpenFramePlane(c.segmentName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
	}
	if plane.ProtocolVersion() != shm.ProtocolVersion {
		plane.Close()
		return fmt.Errorf("%w: protocol version mismatch", ErrRuntimeFailure)
	}

	conn, err := control.Dial(c.controlName, c.connectTimeout)
	if err != nil {
		plane.Close()
		return fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
	}

	c.mu.Lock()
	c.plane, c.conn = plane, conn
	c.mu.Unlock()

	if _, err := c.SendRequest(proto.MessageConnect, nil); err != nil {
		c.Disconnect()
		return err
	}
	plane.SetClientConnected(true)

	if err := c.cacheStaticMetadata(); err != nil {
		c.Disconnect()
		return err
	}
	return nil
}

func (c *RealConnection) cacheStaticMetadata() error {
	if b, err := c.SendRequest(proto.MessageGetRuntimeProperties, nil); err == nil {
		if rp, err := proto.DecodeRuntimeProperties(b); err == nil {
			c.runtimeProps = rp
		}
	} else {
		return err
	}
	if b, err := c.SendRequest(proto.MessageGetSystemProperties, nil); err == nil {
		if sp, err := proto.DecodeSystemProperties(b); err == nil {
			c.systemProps = sp
		}
	} else {
		return err
	}
	if b, err := c.SendRequest(proto.MessageGetViewConfigurations, nil); err == nil {
		if vc, err := proto.DecodeViewConfigurations(b); err == nil {
			c.viewCfg = vc
		}
	} else {
		return err
	}
	if b, err := c.SendRequest(proto.MessageGetInteractionProfiles, nil); err == nil {
		if ip, err := proto.DecodeInteractionProfiles(b); err == nil {
			c.interaction = ip
		}
	} else {
		return err
	}
	return nil
}

// Disconnect sends Disconnect, clears client_connected, and closes both
// endpoints.
func (c *RealConnection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		hdr := proto.Header{Type: proto.MessageDisconnect, Sequence: c.nextSequence}
		c.nextSequence++
		c.conn.Send(hdr, nil)
		c.conn.Close()
		c.conn = nil
	}
	if c.plane != nil {
		c.plane.SetClientConnected(false)
		c.plane.Close()
		c.plane = nil
	}
}

func (c *RealConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.plane != nil
}

func (c *RealConnection) ReadFrame() shm.Frame {
	c.mu.Lock()
	plane := c.plane
	c.mu.Unlock()
	if plane == nil {
		return shm.Frame{}
	}
	return plane.ReadFrame()
}

func (c *RealConnection) WriteTexture(eye int, width, height, format uint32, pixels []byte) error {
	c.mu.Lock()
	plane := c.plane
	c.mu.Unlock()
	if plane == nil {
		return ErrRuntimeFailure
	}
	return plane.WriteTexture(eye, width, height, format, pixels)
}

func (c *RealConnection) SessionState() proto.SessionState {
	c.mu.Lock()
	plane := c.plane
	c.mu.Unlock()
	if plane == nil {
		return proto.SessionStateIdle
	}
	return plane.SessionState()
}

func (c *RealConnection) ActiveSessionHandle() proto.Handle {
	c.mu.Lock()
	plane := c.plane
	c.mu.Unlock()
	if plane == nil {
		return 0
	}
	return plane.ActiveSessionHandle()
}

// SendRequest serializes one request/response round trip over the
// connection-wide send mutex, per spec.md §4.5.2: the protocol is strictly
// synchronous, so the sequence number is a sanity check, not a
// demultiplexer.
func (c *RealConnection) SendRequest(msgType proto.MessageType, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrRuntimeFailure
	}
	seq := c.nextSequence
	c.nextSequence++

	if err := c.conn.Send(proto.Header{Type: msgType, Sequence: seq}, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
	}
	msg, err := c.conn.Recv()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
	}
	if msg.Header.Sequence != seq {
		return nil, fmt.Errorf("%w: response sequence %d does not match request %d", ErrRuntimeFailure, msg.Header.Sequence, seq)
	}
	return msg.Payload, nil
}

func (c *RealConnection) AllocateHandle(kind proto.HandleKind) (proto.Handle, error) {
	payload, err := c.SendRequest(proto.MessageAllocateHandle, proto.AllocateHandleRequest{Kind: kind}.Encode())
	if err != nil {
		return 0, err
	}
	resp, err := proto.DecodeHandleResponse(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
	}
	return resp.Handle, nil
}

func (c *RealConnection) GetNextEvent() (proto.SessionStateEventWire, bool, error) {
	payload, err := c.SendRequest(proto.MessageGetNextEvent, nil)
	if err != nil {
		return proto.SessionStateEventWire{}, false, err
	}
	if len(payload) == 0 {
		return proto.SessionStateEventWire{}, false, nil
	}
	ev, err := proto.DecodeSessionStateEventWire(payload)
	if err != nil {
		return proto.SessionStateEventWire{}, false, fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
	}
	return ev, true, nil
}

func (c *RealConnection) RuntimeProperties() proto.RuntimeProperties     { return c.runtimeProps }
func (c *RealConnection) SystemProperties() proto.SystemProperties       { return c.systemProps }
func (c *RealConnection) ViewConfigurations() proto.ViewConfigurations   { return c.viewCfg }
func (c *RealConnection) InteractionProfiles() proto.InteractionProfiles { return c.interaction }

func (c *RealConnection) GetInputStateBoolean(userPath, componentPath string, predictedTime int64) (proto.InputStateBoolResponse, error) {
	req, err := proto.InputStateRequest{UserPath: userPath, ComponentPath: componentPath, PredictedTime: predictedTime}.Encode()
	if err != nil {
		return proto.InputStateBoolResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	payload, err := c.SendRequest(proto.MessageGetInputStateBool, req)
	if err != nil {
		return proto.InputStateBoolResponse{}, err
	}
	resp, err := proto.DecodeInputStateBoolResponse(payload)
	if err != nil {
		return proto.InputStateBoolResponse{}, fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
	}
	return resp, nil
}

func (c *RealConnection) GetInputStateFloat(userPath, componentPath string, predictedTime int64) (proto.InputStateFloatResponse, error) {
	req, err := proto.InputStateRequest{UserPath: userPath, ComponentPath: componentPath, PredictedTime: predictedTime}.Encode()
	if err != nil {
		return proto.InputStateFloatResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	payload, err := c.SendRequest(proto.MessageGetInputStateFloat, req)
	if err != nil {
		return proto.InputStateFloatResponse{}, err
	}
	resp, err := proto.DecodeInputStateFloatResponse(payload)
	if err != nil {
		return proto.InputStateFloatResponse{}, fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
	}
	return resp, nil
}

func (c *RealConnection) GetInputStateVector2f(userPath, componentPath string, predictedTime int64) (proto.InputStateVec2Response, error) {
	req, err := proto.InputStateRequest{UserPath: userPath, ComponentPath: componentPath, PredictedTime: predictedTime}.Encode()
	if err != nil {
		return proto.InputStateVec2Response{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	payload, err := c.SendRequest(proto.MessageGetInputStateVec2, req)
	if err != nil {
		return proto.InputStateVec2Response{}, err
	}
	resp, err := proto.DecodeInputStateVec2Response(payload)
	if err != nil {
		return proto.InputStateVec2Response{}, fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
	}
	return resp, nil
}
