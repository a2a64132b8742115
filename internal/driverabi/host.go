// Package driverabi loads a device driver plugin and serializes every call
// into it behind a single mutex, resolving spec.md §9's open question on
// driver re-entrancy: the service — not the driver author — guarantees
// thread safety across the frame task's continuous pose/device polling and
// the control task's synchronous input queries.
package driverabi

import (
	"errors"
	"fmt"
	"plugin"
	"sync"

	"github.com/ox-runtime/ox/internal/proto"
	"github.com/ox-runtime/ox/pkg/oxdriver"
)

// ErrMissingRequiredCallbacks is returned when a driver's register call
// leaves Initialize, IsDeviceConnected, or UpdateViewPose nil, per
// include/ox_driver.h's required-slot contract.
var ErrMissingRequiredCallbacks = errors.New("driverabi: driver missing required callbacks")

// ErrRegisterFailed is returned when OxDriverRegister itself returns false.
var ErrRegisterFailed = errors.New("driverabi: driver registration failed")

// ErrNotConnected is returned by Initialize's caller when the loaded
// driver reports no physical device connected.
var ErrNotConnected = errors.New("driverabi: no device connected")

// DefaultInteractionProfile is used when a driver does not implement
// GetInteractionProfiles, per spec.md §4.2.
const DefaultInteractionProfile = "/interaction_profiles/khr/simple_controller"

// Host owns one loaded driver's callback table and serializes every call
// into it, mirroring the teacher's single coarse send_mutex discipline
// (ServiceConnection.send_mutex_) applied to the driver boundary instead of
// the wire boundary, per spec.md §5.
type Host struct {
	mu   sync.Mutex
	cb   *oxdriver.Callbacks
	path string

	display DisplayProperties
	device  oxdriver.DeviceInfo
	tracking oxdriver.TrackingCapabilities
}

// DisplayProperties is an alias kept local to avoid importing oxdriver in
// every caller just to spell the type out.
type DisplayProperties = oxdriver.DisplayProperties

// NewHost wraps an already-constructed callback table in a Host, caching
// its static metadata exactly as Load does. Used directly by tests and by
// any caller that builds a driver in-process rather than through a Go
// plugin (e.g. a statically linked reference driver).
func NewHost(cb *oxdriver.Callbacks) (*Host, error) {
	if !cb.RequiredSlotsPresent() {
		return nil, ErrMissingRequiredCallbacks
	}
	h := &Host{cb: cb}
	if cb.GetDisplayProperties != nil {
		h.display = cb.GetDisplayProperties()
	}
	if cb.GetDeviceInfo != nil {
		h.device = cb.GetDeviceInfo()
	}
	if cb.GetTrackingCapabilities != nil {
		h.tracking = cb.GetTrackingCapabilities()
	}
	return h, nil
}

// Load opens the Go plugin at path, looks up its OxDriverRegister symbol,
// validates required slots, and calls Initialize. It does not check
// IsDeviceConnected — callers wanting "first connected driver wins"
// semantics should call IsDeviceConnected themselves and Unload on
// failure (see Discover).
func Load(path string) (*Host, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("driverabi: open %s: %w", path, err)
	}
	sym, err := p.Lookup("OxDriverRegister")
	if err != nil {
		return nil, fmt.Errorf("driverabi: lookup OxDriverRegister in %s: %w", path, err)
	}
	register, ok := sym.(func(*oxdriver.Callbacks) bool)
	if !ok {
		return nil, fmt.Errorf("driverabi: %s exports OxDriverRegister with the wrong signature", path)
	}

	cb := &oxdriver.Callbacks{}
	if !register(cb) {
		return nil, fmt.Errorf("%w: %s", ErrRegisterFailed, path)
	}
	if !cb.RequiredSlotsPresent() {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredCallbacks, path)
	}

	if err := cb.Initialize(); err != nil {
		return nil, fmt.Errorf("driverabi: initialize %s: %w", path, err)
	}

	h := &Host{cb: cb, path: path}
	if cb.GetDisplayProperties != nil {
		h.display = cb.GetDisplayProperties()
	}
	if cb.GetDeviceInfo != nil {
		h.device = cb.GetDeviceInfo()
	}
	if cb.GetTrackingCapabilities != nil {
		h.tracking = cb.GetTrackingCapabilities()
	}
	return h, nil
}

// IsDeviceConnected reports whether the loaded driver's physical device is
// present, serialized behind the host mutex.
func (h *Host) IsDeviceConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cb.IsDeviceConnected()
}

// DisplayProperties returns the static display metadata cached at Load.
func (h *Host) DisplayProperties() DisplayProperties { return h.display }

// DeviceInfo returns the static device metadata cached at Load.
func (h *Host) DeviceInfo() oxdriver.DeviceInfo { return h.device }

// TrackingCapabilities returns the static tracking metadata cached at Load.
func (h *Host) TrackingCapabilities() oxdriver.TrackingCapabilities { return h.tracking }

// UpdateViewPose calls the driver's hot-path pose callback for one eye.
func (h *Host) UpdateViewPose(predictedTimeNanos int64, eye uint32) (proto.Pose, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cb.UpdateViewPose(predictedTimeNanos, eye)
}

// UpdateDevices calls the driver's optional per-tick device-table
// callback. It returns (nil, nil) if the driver does not implement it.
func (h *Host) UpdateDevices(predictedTimeNanos int64) ([]proto.DeviceState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cb.UpdateDevices == nil {
		return nil, nil
	}
	return h.cb.UpdateDevices(predictedTimeNanos)
}

// GetInputStateBoolean, GetInputStateFloat, and GetInputStateVector2f call
// the driver's optional typed input getters from the control task; a nil
// callback answers Unavailable rather than erroring, matching spec.md
// §4.2's "may return Unavailable for any component the device does not
// expose."
func (h *Host) GetInputStateBoolean(predictedTimeNanos int64, userPath, componentPath string) (oxdriver.BoolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cb.GetInputStateBoolean == nil {
		return oxdriver.BoolResult{Availability: proto.Unavailable}, nil
	}
	return h.cb.GetInputStateBoolean(predictedTimeNanos, userPath, componentPath)
}

func (h *Host) GetInputStateFloat(predictedTimeNanos int64, userPath, componentPath string) (oxdriver.FloatResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cb.GetInputStateFloat == nil {
		return oxdriver.FloatResult{Availability: proto.Unavailable}, nil
	}
	return h.cb.GetInputStateFloat(predictedTimeNanos, userPath, componentPath)
}

func (h *Host) GetInputStateVector2f(predictedTimeNanos int64, userPath, componentPath string) (oxdriver.Vec2Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cb.GetInputStateVector2f == nil {
		return oxdriver.Vec2Result{Availability: proto.Unavailable}, nil
	}
	return h.cb.GetInputStateVector2f(predictedTimeNanos, userPath, componentPath)
}

// InteractionProfiles returns the driver's supported interaction profiles,
// defaulting to the KHR simple controller profile when unimplemented.
func (h *Host) InteractionProfiles() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cb.GetInteractionProfiles == nil {
		return []string{DefaultInteractionProfile}
	}
	return h.cb.GetInteractionProfiles()
}

// SubmitFrameTexture forwards a submitted eye texture to the driver's
// optional frame-submit callback, per spec.md §4.4's last bullet.
func (h *Host) SubmitFrameTexture(eye uint32, width, height, format uint32, pixels []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cb.SubmitFrameTexture != nil {
		h.cb.SubmitFrameTexture(eye, width, height, format, pixels)
	}
}

// Unload calls the driver's Shutdown callback, if it has one. Go plugins
// cannot be dlclose'd once opened, so the plugin stays loaded and the Host
// keeps its callback table.
func (h *Host) Unload() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cb.Shutdown != nil {
		h.cb.Shutdown()
	}
}
