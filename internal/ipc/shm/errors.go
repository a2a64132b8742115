package shm

import "errors"

var (
	errTextureTooLarge = errors.New("shm: texture dimensions exceed MaxTextureWidth/MaxTextureHeight")

	// ErrAlreadyExists is returned by CreateFramePlane when a region with
	// the same name is already present (O_CREAT|O_EXCL semantics, mirroring
	// the teacher's CreateSegment).
	ErrAlreadyExists = errors.New("shm: frame plane already exists")

	// ErrNotFound is returned by OpenFramePlane when no region with that
	// name exists.
	ErrNotFound = errors.New("shm: frame plane not found")
)
