// Package oxdriver is the public, driver-facing callback ABI: a
// transliteration of include/ox_driver.h's OxDriverCallbacks function
// table into Go function fields, per spec.md §4.2 and §6. Third-party
// driver authors import this package, build a *Callbacks, and export a
// Go-plugin symbol named OxDriverRegister with the signature
// func(*oxdriver.Callbacks) bool.
package oxdriver

import "github.com/ox-runtime/ox/internal/proto"

// APIVersion mirrors OX_DRIVER_API_VERSION.
const APIVersion = 1

// MaxDevices mirrors OX_MAX_DEVICES.
const MaxDevices = 16

// DeviceInfo mirrors OxDeviceInfo.
type DeviceInfo struct {
	Name, Manufacturer, Serial string
	VendorID, ProductID        uint32
}

// DisplayProperties mirrors OxDisplayProperties.
type DisplayProperties struct {
	DisplayWidth, DisplayHeight         uint32
	RecommendedWidth, RecommendedHeight uint32
	RefreshRateHz                       float32
	Fov                                  proto.Fov
}

// TrackingCapabilities mirrors OxTrackingCapabilities.
type TrackingCapabilities struct {
	HasPositionTracking    bool
	HasOrientationTracking bool
}

// BoolResult, FloatResult, and Vec2Result carry a driver input-getter's
// Availability tag alongside its value, preserving the "component does not
// exist" vs "value is zero" distinction from OxComponentResult (spec.md
// §9's "Tagged variant for driver component results").
type BoolResult struct {
	Availability proto.Availability
	Value        bool
}

type FloatResult struct {
	Availability proto.Availability
	Value        float32
}

type Vec2Result struct {
	Availability proto.Availability
	X, Y         float32
}

// Callbacks is the driver plugin's callback table. Initialize,
// IsDeviceConnected, and UpdateViewPose are required; every other field
// may be left nil, per spec.md §4.2.
type Callbacks struct {
	// Lifecycle.
	Initialize func() error
	Shutdown   func()

	// Device discovery.
	IsDeviceConnected func() bool
	GetDeviceInfo     func() DeviceInfo

	// Display properties, fetched once at init.
	GetDisplayProperties    func() DisplayProperties
	GetTrackingCapabilities func() TrackingCapabilities

	// Hot path, called once per eye per frame.
	UpdateViewPose func(predictedTimeNanos int64, eyeIndex uint32) (proto.Pose, error)

	// Optional: called once per frame if non-nil.
	UpdateDevices func(predictedTimeNanos int64) ([]proto.DeviceState, error)

	// Optional typed input getters, called synchronously from a
	// control-channel input query.
	GetInputStateBoolean  func(predictedTimeNanos int64, userPath, componentPath string) (BoolResult, error)
	GetInputStateFloat    func(predictedTimeNanos int64, userPath, componentPath string) (FloatResult, error)
	GetInputStateVector2f func(predictedTimeNanos int64, userPath, componentPath string) (Vec2Result, error)

	// Optional: interaction profiles this driver supports. If nil, the
	// host defaults to ["/interaction_profiles/khr/simple_controller"].
	GetInteractionProfiles func() []string

	// Optional: receives a submitted eye texture once the frame producer
	// observes FrameTexture.Ready set, per spec.md §4.4.
	SubmitFrameTexture func(eye uint32, width, height, format uint32, pixels []byte)
}

// RequiredSlotsPresent reports whether the three callbacks the host
// requires before calling Initialize are non-nil, per spec.md §4.2.
func (c *Callbacks) RequiredSlotsPresent() bool {
	return c.Initialize != nil && c.IsDeviceConnected != nil && c.UpdateViewPose != nil
}

// RegisterFunc is the signature every driver plugin must export as
// OxDriverRegister.
type RegisterFunc func(*Callbacks) bool
