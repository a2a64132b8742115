//go:build linux || darwin

package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"unsafe"
)

func init() {
	unmapMemory = munmapImpl
}

// regionPath resolves name to a filesystem path backing the named mapping,
// preferring /dev/shm (tmpfs) when present and falling back to the OS temp
// directory, mirroring generateSegmentPath in the teacher's
// shm_mmap_unix.go.
func regionPath(name string) string {
	shmPath := filepath.Join("/dev/shm", "ox_shm_"+name)
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return shmPath
	}
	return filepath.Join(os.TempDir(), "ox_shm_"+name)
}

// CreateFramePlane creates a new frame-plane region under name, owned by
// the caller (the service). The region is zero-initialized, sized to
// TotalRegionSize, and restricted to owner-only permissions per spec.md
// §4.1.
func CreateFramePlane(name string) (*FramePlane, error) {
	path := regionPath(name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return nil, fmt.Errorf("shm: create %s: %w", path, err)
	}
	cleanup := func() {
		file.Close()
		os.Remove(path)
	}

	if err := file.Truncate(int64(TotalRegionSize)); err != nil {
		cleanup()
		return nil, fmt.Errorf("shm: truncate %s: %w", path, err)
	}

	mem, err := mmapFile(file, TotalRegionSize)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	p := &FramePlane{
		file:  file,
		mem:   mem,
		hdr:   (*rawHeader)(unsafe.Pointer(&mem[0])),
		name:  name,
		owner: true,
	}
	p.tex[0] = texturePointer(mem, 0)
	p.tex[1] = texturePointer(mem, 1)

	copy(p.hdr.magic[:], FramePlaneMagic)
	p.setProtocolVersion(ProtocolVersion)
	p.SetServiceReady(true)

	return p, nil
}

// OpenFramePlane maps an existing frame-plane region created by the
// service. It rejects a region without the frame-plane magic and returns
// ErrVersionMismatch when the mapped protocol_version differs from
// ProtocolVersion, per spec.md §8.7.
func OpenFramePlane(name string) (*FramePlane, error) {
	path := regionPath(name)

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}
	if info.Size() < int64(TotalRegionSize) {
		file.Close()
		return nil, fmt.Errorf("shm: region %s too small: %d bytes", path, info.Size())
	}

	mem, err := mmapFile(file, TotalRegionSize)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	p := &FramePlane{
		file: file,
		mem:  mem,
		hdr:  (*rawHeader)(unsafe.Pointer(&mem[0])),
		name: name,
	}
	p.tex[0] = texturePointer(mem, 0)
	p.tex[1] = texturePointer(mem, 1)

	if string(p.hdr.magic[:]) != FramePlaneMagic {
		p.Close()
		return nil, fmt.Errorf("shm: %s is not an ox frame plane", path)
	}
	if p.ProtocolVersion() != ProtocolVersion {
		p.Close()
		return nil, fmt.Errorf("%w: mapped %d, compiled %d", ErrVersionMismatch, p.ProtocolVersion(), ProtocolVersion)
	}

	return p, nil
}

// Unlink removes the backing file for name. The service calls this on
// orderly shutdown and, per spec.md §9, at startup to clear any stale
// region left by a prior crash.
func Unlink(name string) error {
	err := os.Remove(regionPath(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func mmapFile(file *os.File, size int) ([]byte, error) {
	data, err := syscall.Mmap(int(file.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return data, nil
}

func munmapImpl(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := syscall.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}
