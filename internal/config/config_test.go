package config

import (
	"flag"
	"testing"
)

func TestParseServiceConfigDefaults(t *testing.T) {
	cfg, err := ParseServiceConfig(nil)
	if err != nil {
		t.Fatalf("ParseServiceConfig: %v", err)
	}
	if cfg.TickRate != 90 {
		t.Fatalf("TickRate = %d, want 90", cfg.TickRate)
	}
	if cfg.SegmentName == "" || cfg.ControlName == "" {
		t.Fatal("expected non-empty default segment/control names")
	}
}

func TestParseServiceConfigOverrides(t *testing.T) {
	cfg, err := ParseServiceConfig([]string{"-tick-rate=60", "-drivers-dir=/tmp/drivers"})
	if err != nil {
		t.Fatalf("ParseServiceConfig: %v", err)
	}
	if cfg.TickRate != 60 {
		t.Fatalf("TickRate = %d, want 60", cfg.TickRate)
	}
	if cfg.DriversDir != "/tmp/drivers" {
		t.Fatalf("DriversDir = %q", cfg.DriversDir)
	}
}

func TestParseServiceConfigRejectsNonPositiveTickRate(t *testing.T) {
	if _, err := ParseServiceConfig([]string{"-tick-rate=0"}); err == nil {
		t.Fatal("expected error for zero tick rate")
	}
}

func TestParseClientHarnessConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("ox-ctl", flag.ContinueOnError)
	cfg, err := ParseClientHarnessConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseClientHarnessConfig: %v", err)
	}
	if cfg.Timeout <= 0 {
		t.Fatalf("Timeout = %v, want positive", cfg.Timeout)
	}
}

func TestParseClientHarnessConfigInvalidTimeout(t *testing.T) {
	fs := flag.NewFlagSet("ox-ctl", flag.ContinueOnError)
	if _, err := ParseClientHarnessConfig(fs, []string{"-timeout=notaduration"}); err == nil {
		t.Fatal("expected error for invalid timeout")
	}
}
