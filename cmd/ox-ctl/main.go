// Command ox-ctl is a small debug/ops tool that connects to a running
// ox-service as a client, prints its static metadata, and can replay
// queued session events or dump live frame-plane state — the client-side
// analogue of the teacher's cmd/debug-capacity probe, generalized from a
// one-shot ring-capacity dump to a handful of subcommands against the
// two-process runtime.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ox-runtime/ox/internal/client"
	"github.com/ox-runtime/ox/internal/config"
	"github.com/ox-runtime/ox/internal/obslog"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(arguments []string, stdout, stderr io.Writer) int {
	if len(arguments) == 0 {
		printUsage(stderr)
		return 2
	}

	probeID := uuid.New().String()

	switch arguments[0] {
	case "probe":
		return runProbe(arguments[1:], stdout, stderr, probeID)
	case "events":
		return runEvents(arguments[1:], stdout, stderr, probeID)
	case "frame":
		return runFrame(arguments[1:], stdout, stderr, probeID)
	default:
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: ox-ctl <probe|events|frame> [flags]")
}

func runProbe(arguments []string, stdout, stderr io.Writer, probeID string) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg, err := config.ParseClientHarnessConfig(fs, arguments)
	if err != nil {
		fmt.Fprintln(stderr, "ox-ctl probe:", err)
		return 2
	}
	log := obslog.New(stderr, "ox-ctl", cfg.LogLevel)
	log.Info("probing service", "probe_id", probeID)

	conn := client.NewRealConnection(cfg.SegmentName, cfg.ControlName, cfg.Timeout)
	inst, err := client.CreateInstance(conn)
	if err != nil {
		fmt.Fprintln(stderr, "ox-ctl probe: connect:", err)
		return 1
	}
	defer client.DestroyInstance(inst)

	rp := inst.RuntimeProperties()
	sp := inst.SystemProperties()
	vc := inst.ViewConfigurations()

	fmt.Fprintf(stdout, "runtime:   %s (version %d)\n", rp.RuntimeName, rp.RuntimeVersion)
	fmt.Fprintf(stdout, "system:    %s (vendor 0x%04x)\n", sp.SystemName, sp.VendorID)
	fmt.Fprintf(stdout, "tracking:  position=%v orientation=%v\n", sp.PositionTracking, sp.OrientationTracking)
	fmt.Fprintf(stdout, "view cfg:  %dx%d, samples=%d\n", vc.RecommendedWidth, vc.RecommendedHeight, vc.SampleCount)
	return 0
}

func runEvents(arguments []string, stdout, stderr io.Writer, probeID string) int {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var duration time.Duration
	fs.DurationVar(&duration, "duration", 5*time.Second, "how long to listen for session events")
	cfg, err := config.ParseClientHarnessConfig(fs, arguments)
	if err != nil {
		fmt.Fprintln(stderr, "ox-ctl events:", err)
		return 2
	}
	log := obslog.New(stderr, "ox-ctl", cfg.LogLevel)
	log.Info("replaying session events", "probe_id", probeID)

	conn := client.NewRealConnection(cfg.SegmentName, cfg.ControlName, cfg.Timeout)
	inst, err := client.CreateInstance(conn)
	if err != nil {
		fmt.Fprintln(stderr, "ox-ctl events: connect:", err)
		return 1
	}
	defer client.DestroyInstance(inst)

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		ev, ok, err := inst.PollEvent()
		if err != nil {
			fmt.Fprintln(stderr, "ox-ctl events: poll:", err)
			return 1
		}
		if ok {
			fmt.Fprintf(stdout, "session %d -> %s at %d\n", ev.Handle, ev.NewState, ev.TimestampNanos)
			continue
		}
		time.Sleep(10 * time.Millisecond)
	}
	return 0
}

func runFrame(arguments []string, stdout, stderr io.Writer, probeID string) int {
	fs := flag.NewFlagSet("frame", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg, err := config.ParseClientHarnessConfig(fs, arguments)
	if err != nil {
		fmt.Fprintln(stderr, "ox-ctl frame:", err)
		return 2
	}
	log := obslog.New(stderr, "ox-ctl", cfg.LogLevel)
	log.Info("dumping current frame", "probe_id", probeID)

	conn := client.NewRealConnection(cfg.SegmentName, cfg.ControlName, cfg.Timeout)
	inst, err := client.CreateInstance(conn)
	if err != nil {
		fmt.Fprintln(stderr, "ox-ctl frame: connect:", err)
		return 1
	}
	defer client.DestroyInstance(inst)

	frame := conn.ReadFrame()
	fmt.Fprintf(stdout, "frame %d, predicted_display_time=%d\n", frame.FrameID, frame.PredictedDisplayTime)
	for i := uint32(0); i < frame.DeviceCount; i++ {
		dev := frame.Devices[i]
		fmt.Fprintf(stdout, "  device %-24s active=%v pos=(%.3f,%.3f,%.3f)\n",
			dev.UserPath, dev.IsActive, dev.Pose.Position.X, dev.Pose.Position.Y, dev.Pose.Position.Z)
	}
	return 0
}
