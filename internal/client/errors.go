// Package client implements the client-side runtime core: handle tables,
// the path interner, the service connection, the binding resolver, space
// resolution, and swapchain/texture submission (spec.md §4.5). Everything
// here is instance-scoped per spec.md §9's redesign note: one *Instance per
// live OpenXR instance, looked up by handle, rather than the original's
// process-global maps.
package client

import "errors"

// Error kinds from spec.md §7, realized as sentinel errors wrapped with
// errors.Is, mirroring the teacher's ErrRingClosed/ErrFutexTimeout family
// rather than a custom exception hierarchy.
var (
	// ErrValidation: malformed caller arguments. Surfaced immediately, no
	// IPC performed.
	ErrValidation = errors.New("client: validation failed")

	// ErrHandleInvalid: handle unknown to the local table.
	ErrHandleInvalid = errors.New("client: handle invalid")

	// ErrRuntimeFailure: any IPC error. Caller's operation fails;
	// subsequent calls also fail until a fresh instance is created.
	ErrRuntimeFailure = errors.New("client: runtime failure")

	// ErrNotAvailable: the operation succeeded but the queried datum is
	// absent. Not an error in the propagation sense.
	ErrNotAvailable = errors.New("client: not available")

	// ErrFunctionUnsupported: requested entry point is not implemented.
	ErrFunctionUnsupported = errors.New("client: function unsupported")

	// ErrInstanceLost: returned after Destroy, per spec.md §5's
	// cancellation-by-destruction model.
	ErrInstanceLost = errors.New("client: instance lost")
)
