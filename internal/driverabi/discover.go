package driverabi

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
)

// pluginFilename is the Go-plugin equivalent of include/ox_driver.h's
// fixed per-platform library name (driver.dll / libdriver.so /
// libdriver.dylib): Go plugins are always POSIX shared objects, so only
// the linux/darwin names are meaningful, per spec.md §6's driver discovery
// section.
func pluginFilename() string {
	switch runtime.GOOS {
	case "darwin":
		return "libdriver.dylib"
	default:
		return "libdriver.so"
	}
}

// Discover walks driversDir's immediate subdirectories in sorted order and
// loads the first one whose plugin loads, registers, and reports
// IsDeviceConnected() == true, per spec.md §4.2's "first directory whose
// plugin loads ... wins." It calls Unload on every candidate it rejects.
func Discover(driversDir string) (*Host, error) {
	entries, err := os.ReadDir(driversDir)
	if err != nil {
		return nil, fmt.Errorf("driverabi: read %s: %w", driversDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var lastErr error
	for _, name := range names {
		libPath := filepath.Join(driversDir, name, pluginFilename())
		if _, err := os.Stat(libPath); err != nil {
			continue
		}
		h, err := Load(libPath)
		if err != nil {
			lastErr = err
			continue
		}
		if h.IsDeviceConnected() {
			return h, nil
		}
		h.Unload()
		lastErr = fmt.Errorf("%w: %s", ErrNotConnected, libPath)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("driverabi: no driver subdirectories found under %s", driversDir)
	}
	return nil, lastErr
}
