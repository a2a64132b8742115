// Command ox-service is the runtime service process: it owns the
// shared-memory frame plane and the control-channel socket, discovers a
// driver plugin, runs the session state machine and frame producer, and
// dispatches control-channel requests until terminated.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ox-runtime/ox/internal/config"
	"github.com/ox-runtime/ox/internal/driverabi"
	"github.com/ox-runtime/ox/internal/ipc/control"
	"github.com/ox-runtime/ox/internal/ipc/shm"
	"github.com/ox-runtime/ox/internal/obslog"
	"github.com/ox-runtime/ox/internal/proto"
	"github.com/ox-runtime/ox/internal/service"
	"github.com/ox-runtime/ox/internal/service/frameproducer"
	"github.com/ox-runtime/ox/internal/service/sessionfsm"
)

func main() {
	cfg, err := config.ParseServiceConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "ox-service:", err)
		os.Exit(2)
	}
	log := obslog.New(os.Stderr, "ox-service", cfg.LogLevel)

	// Reap a stale region/socket left by a prior crash, per spec.md §9.
	shm.Unlink(cfg.SegmentName)

	plane, err := shm.CreateFramePlane(cfg.SegmentName)
	if err != nil {
		log.Error("create frame plane", "err", err)
		os.Exit(1)
	}
	defer func() {
		plane.Close()
		shm.Unlink(cfg.SegmentName)
	}()

	host, err := driverabi.Discover(cfg.DriversDir)
	if err != nil {
		log.Error("discover driver", "err", err)
		os.Exit(1)
	}
	defer host.Unload()
	log.Info("driver loaded", "device", host.DeviceInfo().Name)

	srv, err := control.CreateServer(cfg.ControlName)
	if err != nil {
		log.Error("create control server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	sessions := sessionfsm.New()

	producer := frameproducer.New(plane, host, log)
	go producer.Run(frameproducer.TickInterval(cfg.TickRate))
	defer producer.Stop()

	display := host.DisplayProperties()
	tracking := host.TrackingCapabilities()
	dispatcher := service.New(
		service.NewHandleAllocator(),
		sessions,
		plane,
		host,
		proto.RuntimeProperties{RuntimeName: "ox runtime", RuntimeVersion: 1},
		proto.SystemProperties{
			SystemName:          host.DeviceInfo().Manufacturer + " " + host.DeviceInfo().Name,
			VendorID:            host.DeviceInfo().VendorID,
			MaxLayerCount:       1,
			PositionTracking:    tracking.HasPositionTracking,
			OrientationTracking: tracking.HasOrientationTracking,
		},
		proto.ViewConfigurations{
			RecommendedWidth:  display.RecommendedWidth,
			RecommendedHeight: display.RecommendedHeight,
			SampleCount:       1,
		},
		log,
	)

	plane.SetServiceReady(true)
	log.Info("service ready", "segment", cfg.SegmentName, "control", cfg.ControlName)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		srv.Close()
		os.Exit(0)
	}()

	dispatcher.Serve(srv)
}
