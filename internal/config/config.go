// Package config parses process startup configuration for ox-service and
// ox-ctl via the stdlib flag package, one flag.NewFlagSet per command,
// grounded on davidahmann-gait's cmd/gait subcommand idiom
// (flagSet.StringVar/IntVar/BoolVar, flagSet.Parse(arguments), env var
// fallbacks applied before flag parsing so flags always win).
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ox-runtime/ox/internal/obslog"
)

// ServiceConfig is ox-service's startup configuration, per spec.md §9's
// "reaper on startup" note and the frame-rate/driver-directory knobs
// SPEC_FULL.md §2 adds.
type ServiceConfig struct {
	DriversDir   string
	SegmentName  string
	ControlName  string
	TickRate     int
	LogLevel     obslog.Level
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ParseServiceConfig parses arguments (normally os.Args[1:]) into a
// ServiceConfig, with OX_* environment variables supplying defaults that
// flags override.
func ParseServiceConfig(arguments []string) (ServiceConfig, error) {
	fs := flag.NewFlagSet("ox-service", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var cfg ServiceConfig
	var logLevel string

	fs.StringVar(&cfg.DriversDir, "drivers-dir", envOr("OX_DRIVERS_DIR", "/usr/local/lib/ox/drivers"), "directory to search for driver plugins")
	fs.StringVar(&cfg.SegmentName, "segment-name", envOr("OX_SEGMENT_NAME", "ox_runtime_shm"), "shared-memory frame plane name")
	fs.StringVar(&cfg.ControlName, "control-name", envOr("OX_CONTROL_NAME", "ox_runtime_control"), "control-channel socket name")
	fs.IntVar(&cfg.TickRate, "tick-rate", 90, "frame producer tick rate in Hz")
	fs.StringVar(&logLevel, "log-level", envOr("OX_LOG_LEVEL", "info"), "log level: debug, info, warn, error")

	if err := fs.Parse(arguments); err != nil {
		return ServiceConfig{}, err
	}
	if cfg.TickRate <= 0 {
		return ServiceConfig{}, fmt.Errorf("config: tick-rate must be positive, got %d", cfg.TickRate)
	}
	cfg.LogLevel = parseLevel(logLevel)
	return cfg, nil
}

// ClientHarnessConfig is the test-harness configuration used by tools
// (and integration tests) that connect to a running service as a client,
// per SPEC_FULL.md §2.
type ClientHarnessConfig struct {
	SegmentName string
	ControlName string
	Timeout     time.Duration
	LogLevel    obslog.Level
}

// ParseClientHarnessConfig parses a client-side probe tool's flags (used
// by cmd/ox-ctl).
func ParseClientHarnessConfig(fs *flag.FlagSet, arguments []string) (ClientHarnessConfig, error) {
	var cfg ClientHarnessConfig
	var timeoutStr, logLevel string

	fs.StringVar(&cfg.SegmentName, "segment-name", envOr("OX_SEGMENT_NAME", "ox_runtime_shm"), "shared-memory frame plane name")
	fs.StringVar(&cfg.ControlName, "control-name", envOr("OX_CONTROL_NAME", "ox_runtime_control"), "control-channel socket name")
	fs.StringVar(&timeoutStr, "timeout", "5s", "connect timeout")
	fs.StringVar(&logLevel, "log-level", envOr("OX_LOG_LEVEL", "warn"), "log level: debug, info, warn, error")

	if err := fs.Parse(arguments); err != nil {
		return ClientHarnessConfig{}, err
	}
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return ClientHarnessConfig{}, fmt.Errorf("config: invalid -timeout: %w", err)
	}
	cfg.Timeout = timeout
	cfg.LogLevel = parseLevel(logLevel)
	return cfg, nil
}

func parseLevel(s string) obslog.Level {
	switch obslog.Level(s) {
	case obslog.LevelDebug, obslog.LevelWarn, obslog.LevelError:
		return obslog.Level(s)
	default:
		return obslog.LevelInfo
	}
}
