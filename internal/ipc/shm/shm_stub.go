//go:build !(linux || darwin)

package shm

// CreateFramePlane and OpenFramePlane have no native mmap implementation
// outside linux/darwin; this mirrors the teacher's shm_futex_stub.go split
// for platforms the pack's own shm engine does not ship on.
func CreateFramePlane(name string) (*FramePlane, error) {
	return nil, ErrPlatformUnsupported
}

func OpenFramePlane(name string) (*FramePlane, error) {
	return nil, ErrPlatformUnsupported
}

func Unlink(name string) error {
	return ErrPlatformUnsupported
}
