package service

import (
	"log/slog"

	"github.com/ox-runtime/ox/internal/driverabi"
	"github.com/ox-runtime/ox/internal/ipc/control"
	"github.com/ox-runtime/ox/internal/ipc/shm"
	"github.com/ox-runtime/ox/internal/proto"
	"github.com/ox-runtime/ox/internal/service/sessionfsm"
)

// Dispatcher is the control task's single-threaded message loop, per
// spec.md §5: "The message loop is single-threaded per client; all
// message handlers run on it." It is constructed once per service and
// reused across successive client connections.
type Dispatcher struct {
	handles  *HandleAllocator
	sessions *sessionfsm.Machine
	plane    *shm.FramePlane
	driver   *driverabi.Host
	runtime  proto.RuntimeProperties
	system   proto.SystemProperties
	viewCfg  proto.ViewConfigurations
	log      *slog.Logger
}

// New constructs a Dispatcher sharing the service's handle allocator,
// session machine, frame plane, and driver host.
func New(handles *HandleAllocator, sessions *sessionfsm.Machine, plane *shm.FramePlane, driver *driverabi.Host, runtime proto.RuntimeProperties, system proto.SystemProperties, viewCfg proto.ViewConfigurations, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handles: handles, sessions: sessions, plane: plane, driver: driver,
		runtime: runtime, system: system, viewCfg: viewCfg, log: log,
	}
}

// Serve runs the accept→message-loop→close→re-create cycle on srv until
// srv is closed, per spec.md §5.
func (d *Dispatcher) Serve(srv *control.Server) {
	for {
		conn, err := srv.Accept()
		if err != nil {
			d.log.Info("control server stopped accepting", "err", err)
			return
		}
		d.handleConnection(conn)
	}
}

// handleConnection runs the message loop for one client connection until
// it disconnects, then closes the endpoint. A receive failure is treated
// as client disconnect per spec.md §4.1/§7: the control task returns to
// Accept without ever signalling the frame task. Per spec.md S6, a dropped
// client also clears the session it held so the next client's CreateSession
// is allocatable rather than rejected as ErrSessionAlreadyActive: nothing
// else will ever call DestroySession for a client that is simply gone.
func (d *Dispatcher) handleConnection(conn *control.Conn) {
	defer conn.Close()
	defer d.plane.SetClientConnected(false)
	defer func() {
		if d.sessions.ActiveSession() != 0 {
			d.sessions.DestroySession()
			d.plane.SetSessionState(d.sessions.State())
			d.plane.SetActiveSessionHandle(0)
		}
	}()

	for {
		msg, err := conn.Recv()
		if err != nil {
			d.log.Info("client disconnected", "err", err)
			return
		}
		resp, payload := d.dispatch(msg.Header, msg.Payload)
		if err := conn.Send(resp, payload); err != nil {
			d.log.Info("send failed, treating as disconnect", "err", err)
			return
		}
	}
}

// dispatch handles one request and builds its response header/payload.
// Every malformed or unrecognized request still gets a (possibly empty)
// response, per spec.md §7: "The service never crashes the client."
func (d *Dispatcher) dispatch(req proto.Header, payload []byte) (proto.Header, []byte) {
	resp := proto.Header{Type: proto.MessageResponse, Sequence: req.Sequence}

	switch req.Type {
	case proto.MessageConnect:
		d.plane.SetClientConnected(true)
		return resp, nil

	case proto.MessageDisconnect:
		d.plane.SetClientConnected(false)
		return resp, nil

	case proto.MessageCreateSession:
		return resp, d.handleCreateSession()

	case proto.MessageDestroySession:
		return resp, d.handleDestroySession()

	case proto.MessageAllocateHandle:
		return resp, d.handleAllocateHandle(payload)

	case proto.MessageGetNextEvent:
		return resp, d.handleGetNextEvent()

	case proto.MessageGetRuntimeProperties:
		b, err := d.runtime.Encode()
		if err != nil {
			d.log.Warn("encode RuntimeProperties", "err", err)
			return resp, nil
		}
		return resp, b

	case proto.MessageGetSystemProperties:
		b, err := d.system.Encode()
		if err != nil {
			d.log.Warn("encode SystemProperties", "err", err)
			return resp, nil
		}
		return resp, b

	case proto.MessageGetViewConfigurations:
		return resp, d.viewCfg.Encode()

	case proto.MessageGetInteractionProfiles:
		profiles := proto.InteractionProfiles{Profiles: d.driver.InteractionProfiles()}
		b, err := profiles.Encode()
		if err != nil {
			d.log.Warn("encode InteractionProfiles", "err", err)
			return resp, nil
		}
		return resp, b

	case proto.MessageGetInputStateBool:
		return resp, d.handleInputBool(payload)

	case proto.MessageGetInputStateFloat:
		return resp, d.handleInputFloat(payload)

	case proto.MessageGetInputStateVec2:
		return resp, d.handleInputVec2(payload)

	case proto.MessageRequestExitSession:
		d.handleRequestExitSession(payload)
		return resp, nil

	default:
		d.log.Warn("unrecognized message type", "type", req.Type)
		return resp, nil
	}
}

func (d *Dispatcher) handleCreateSession() []byte {
	if d.sessions.ActiveSession() != 0 {
		d.log.Warn("CreateSession rejected", "err", ErrSessionAlreadyActive)
		return nil
	}
	h := d.handles.Allocate(proto.HandleKindSession)
	d.plane.SetActiveSessionHandle(h)
	d.sessions.CreateSession(h)
	d.plane.SetSessionState(d.sessions.State())
	go func() {
		d.sessions.AdvanceToFocused()
		d.plane.SetSessionState(d.sessions.State())
	}()
	return proto.HandleResponse{Handle: h}.Encode()
}

func (d *Dispatcher) handleRequestExitSession(payload []byte) {
	req, err := proto.DecodeRequestExitSessionRequest(payload)
	if err != nil {
		d.log.Warn("malformed RequestExitSession request", "err", err)
		return
	}
	active := d.sessions.ActiveSession()
	if active == 0 {
		d.log.Warn("RequestExitSession rejected", "err", ErrNoActiveSession)
		return
	}
	if req.SessionHandle != active {
		d.log.Warn("RequestExitSession rejected", "err", ErrUnknownSession, "requested", req.SessionHandle, "active", active)
		return
	}
	d.sessions.RequestExit()
	d.plane.SetSessionState(d.sessions.State())
}

func (d *Dispatcher) handleDestroySession() []byte {
	if d.sessions.ActiveSession() == 0 {
		d.log.Warn("DestroySession rejected", "err", ErrNoActiveSession)
		return nil
	}
	d.sessions.DestroySession()
	d.plane.SetSessionState(d.sessions.State())
	d.plane.SetActiveSessionHandle(0)
	return nil
}

func (d *Dispatcher) handleAllocateHandle(payload []byte) []byte {
	req, err := proto.DecodeAllocateHandleRequest(payload)
	if err != nil {
		d.log.Warn("malformed AllocateHandle request", "err", err)
		return nil
	}
	h := d.handles.Allocate(req.Kind)
	return proto.HandleResponse{Handle: h}.Encode()
}

func (d *Dispatcher) handleGetNextEvent() []byte {
	ev, ok := d.sessions.NextEventWire()
	if !ok {
		return nil
	}
	return ev.Encode()
}

func (d *Dispatcher) handleInputBool(payload []byte) []byte {
	req, err := proto.DecodeInputStateRequest(payload)
	if err != nil {
		d.log.Warn("malformed GetInputStateBool request", "err", err)
		return nil
	}
	result, err := d.driver.GetInputStateBoolean(req.PredictedTime, req.UserPath, req.ComponentPath)
	if err != nil {
		d.log.Warn("driver GetInputStateBoolean failed", "err", err)
		return proto.InputStateBoolResponse{Availability: proto.Unavailable}.Encode()
	}
	return proto.InputStateBoolResponse{Availability: result.Availability, Value: result.Value}.Encode()
}

func (d *Dispatcher) handleInputFloat(payload []byte) []byte {
	req, err := proto.DecodeInputStateRequest(payload)
	if err != nil {
		d.log.Warn("malformed GetInputStateFloat request", "err", err)
		return nil
	}
	result, err := d.driver.GetInputStateFloat(req.PredictedTime, req.UserPath, req.ComponentPath)
	if err != nil {
		d.log.Warn("driver GetInputStateFloat failed", "err", err)
		return proto.InputStateFloatResponse{Availability: proto.Unavailable}.Encode()
	}
	return proto.InputStateFloatResponse{Availability: result.Availability, Value: result.Value}.Encode()
}

func (d *Dispatcher) handleInputVec2(payload []byte) []byte {
	req, err := proto.DecodeInputStateRequest(payload)
	if err != nil {
		d.log.Warn("malformed GetInputStateVec2 request", "err", err)
		return nil
	}
	result, err := d.driver.GetInputStateVector2f(req.PredictedTime, req.UserPath, req.ComponentPath)
	if err != nil {
		d.log.Warn("driver GetInputStateVector2f failed", "err", err)
		return proto.InputStateVec2Response{Availability: proto.Unavailable}.Encode()
	}
	return proto.InputStateVec2Response{Availability: result.Availability, X: result.X, Y: result.Y}.Encode()
}
