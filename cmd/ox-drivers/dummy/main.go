// Package main builds as a Go plugin (buildmode=plugin) exporting
// OxDriverRegister, the sample/reference driver mirroring
// include/ox_driver.h's intended use: a synthetic HMD with no physical
// hardware, useful for exercising the full service↔client path without
// real devices. A head pose orbits slowly around the origin; one
// controller on /user/hand/right reports a trigger value that ramps
// 0..1 and back.
package main

import (
	"math"
	"sync"
	"time"

	"github.com/ox-runtime/ox/internal/proto"
	"github.com/ox-runtime/ox/pkg/oxdriver"
)

const (
	headOrbitRadiusMeters = 0.02
	headOrbitPeriod       = 8 * time.Second
	triggerRampPeriod     = 3 * time.Second
)

type dummyDriver struct {
	mu        sync.Mutex
	startTime int64
}

func (d *dummyDriver) initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startTime = time.Now().UnixNano()
	return nil
}

func (d *dummyDriver) shutdown() {}

func (d *dummyDriver) isDeviceConnected() bool { return true }

func (d *dummyDriver) deviceInfo() oxdriver.DeviceInfo {
	return oxdriver.DeviceInfo{
		Name:         "Dummy VR Headset",
		Manufacturer: "ox runtime",
		Serial:       "DUMMY-12345",
		VendorID:     0xDEAD,
		ProductID:    0xBEEF,
	}
}

func (d *dummyDriver) displayProperties() oxdriver.DisplayProperties {
	return oxdriver.DisplayProperties{
		DisplayWidth:      1832,
		DisplayHeight:     1920,
		RecommendedWidth:  1832,
		RecommendedHeight: 1920,
		RefreshRateHz:     90,
		Fov: proto.Fov{
			AngleLeft:  -0.907571,
			AngleRight: 0.767549,
			AngleUp:    0.83773,
			AngleDown:  -0.85408,
		},
	}
}

func (d *dummyDriver) trackingCapabilities() oxdriver.TrackingCapabilities {
	return oxdriver.TrackingCapabilities{HasPositionTracking: true, HasOrientationTracking: true}
}

func (d *dummyDriver) elapsed(predictedTimeNanos int64) time.Duration {
	d.mu.Lock()
	start := d.startTime
	d.mu.Unlock()
	return time.Duration(predictedTimeNanos - start)
}

func (d *dummyDriver) updateViewPose(predictedTimeNanos int64, eyeIndex uint32) (proto.Pose, error) {
	phase := 2 * math.Pi * float64(d.elapsed(predictedTimeNanos)) / float64(headOrbitPeriod)
	x := headOrbitRadiusMeters * math.Cos(phase)
	z := headOrbitRadiusMeters * math.Sin(phase)

	eyeOffset := float32(0.032)
	if eyeIndex == 0 {
		eyeOffset = -eyeOffset
	}

	return proto.Pose{
		Position:    proto.Vector3f{X: float32(x) + eyeOffset, Y: 1.6, Z: float32(z)},
		Orientation: proto.Quaternion{W: 1},
		Timestamp:   predictedTimeNanos,
		Flags:       proto.PoseFlagPositionValid | proto.PoseFlagOrientationValid,
	}, nil
}

func (d *dummyDriver) updateDevices(predictedTimeNanos int64) ([]proto.DeviceState, error) {
	pose, _ := d.updateViewPose(predictedTimeNanos, 0)
	head := proto.DeviceState{UserPath: "/user/head", Pose: pose, IsActive: true}

	controller := proto.DeviceState{
		UserPath: "/user/hand/right",
		Pose: proto.Pose{
			Position:    proto.Vector3f{X: 0.2, Y: 1.3, Z: -0.3},
			Orientation: proto.Quaternion{W: 1},
			Timestamp:   predictedTimeNanos,
			Flags:       proto.PoseFlagPositionValid | proto.PoseFlagOrientationValid,
		},
		IsActive: true,
	}
	return []proto.DeviceState{head, controller}, nil
}

func (d *dummyDriver) triggerValue(predictedTimeNanos int64) float32 {
	phase := 2 * math.Pi * float64(d.elapsed(predictedTimeNanos)) / float64(triggerRampPeriod)
	return float32((math.Sin(phase) + 1) / 2)
}

func (d *dummyDriver) getInputStateBoolean(predictedTimeNanos int64, userPath, componentPath string) (oxdriver.BoolResult, error) {
	if userPath == "/user/hand/right" && componentPath == "/input/trigger/click" {
		return oxdriver.BoolResult{Availability: proto.Available, Value: d.triggerValue(predictedTimeNanos) > 0.9}, nil
	}
	return oxdriver.BoolResult{Availability: proto.Unavailable}, nil
}

func (d *dummyDriver) getInputStateFloat(predictedTimeNanos int64, userPath, componentPath string) (oxdriver.FloatResult, error) {
	if userPath == "/user/hand/right" && componentPath == "/input/trigger/value" {
		return oxdriver.FloatResult{Availability: proto.Available, Value: d.triggerValue(predictedTimeNanos)}, nil
	}
	return oxdriver.FloatResult{Availability: proto.Unavailable}, nil
}

func (d *dummyDriver) getInputStateVector2f(predictedTimeNanos int64, userPath, componentPath string) (oxdriver.Vec2Result, error) {
	if userPath == "/user/hand/right" && componentPath == "/input/thumbstick" {
		phase := 2 * math.Pi * float64(d.elapsed(predictedTimeNanos)) / float64(triggerRampPeriod)
		return oxdriver.Vec2Result{Availability: proto.Available, X: float32(math.Cos(phase)), Y: float32(math.Sin(phase))}, nil
	}
	return oxdriver.Vec2Result{Availability: proto.Unavailable}, nil
}

func (d *dummyDriver) interactionProfiles() []string {
	return []string{"/interaction_profiles/khr/simple_controller"}
}

// OxDriverRegister is the symbol the runtime's plugin loader looks up, per
// pkg/oxdriver.RegisterFunc.
func OxDriverRegister(cb *oxdriver.Callbacks) bool {
	d := &dummyDriver{}
	cb.Initialize = d.initialize
	cb.Shutdown = d.shutdown
	cb.IsDeviceConnected = d.isDeviceConnected
	cb.GetDeviceInfo = d.deviceInfo
	cb.GetDisplayProperties = d.displayProperties
	cb.GetTrackingCapabilities = d.trackingCapabilities
	cb.UpdateViewPose = d.updateViewPose
	cb.UpdateDevices = d.updateDevices
	cb.GetInputStateBoolean = d.getInputStateBoolean
	cb.GetInputStateFloat = d.getInputStateFloat
	cb.GetInputStateVector2f = d.getInputStateVector2f
	cb.GetInteractionProfiles = d.interactionProfiles
	return true
}

func main() {}
