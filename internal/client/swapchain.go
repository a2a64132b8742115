package client

import (
	"fmt"
	"sync"

	"github.com/ox-runtime/ox/internal/proto"
)

// SwapchainImageCount is the fixed-count image set spec.md §4.5.5
// describes ("a fixed-count set, e.g. 3").
const SwapchainImageCount = 3

// GraphicsAPI is the external collaborator each supported graphics binding
// must implement, per spec.md §4.5.5: detect itself in the session-create
// next-chain, allocate backing textures, and read pixel bytes out of a
// texture into a caller-supplied buffer. The core is agnostic to which
// concrete APIs exist; it only calls through this interface.
type GraphicsAPI interface {
	// Name identifies the binding for diagnostics (e.g. "opengl", "d3d11").
	Name() string

	// DetectInNextChain reports whether this API's binding struct is
	// present in a session-create next-chain value; the concrete API
	// knows how to type-assert its own binding type out of it.
	// Instance.CreateSession takes no next-chain and does not call this
	// method.
	DetectInNextChain(nextChain any) bool

	// AllocateTextures creates count backing textures of the given
	// dimensions/format and returns opaque per-image handles.
	AllocateTextures(width, height, format uint32, count int) ([]Texture, error)

	// ReadPixels copies tex's current pixel bytes into dst, returning the
	// number of bytes written.
	ReadPixels(tex Texture, dst []byte) (int, error)
}

// Texture is an opaque per-image graphics-API resource handle. Its
// contents are meaningful only to the GraphicsAPI implementation that
// created it.
type Texture struct {
	API   string
	Index int
	Value any
}

// SwapchainData is one swapchain's state: its declared properties, its
// fixed image set (lazily created on first EnumerateSwapchainImages call),
// and an acquire/release cursor. Per spec.md §9's redesign note, the
// cursor tracks which image was actually acquired so frame submission
// reads back the image the application rendered into, rather than always
// index 0.
type SwapchainData struct {
	mu sync.Mutex

	width, height, format uint32
	api                   GraphicsAPI

	textures []Texture // lazily populated, len == SwapchainImageCount once created

	acquired    bool
	cursor      int  // index returned by the most recent Acquire
	everAcquired bool
}

// CreateSwapchainInfo mirrors spec.md §4.5.5's create_swapchain arguments.
type CreateSwapchainInfo struct {
	Width, Height, Format uint32
	GraphicsAPI           GraphicsAPI
}

// CreateSwapchain records a swapchain's declared properties against
// session and returns its handle. Backing textures are not created until
// the first EnumerateSwapchainImages call.
func (inst *Instance) CreateSwapchain(session proto.Handle, info CreateSwapchainInfo) (proto.Handle, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if err := inst.checkAlive(); err != nil {
		return 0, err
	}
	if _, ok := inst.sessions[session]; !ok {
		return 0, fmt.Errorf("%w: unknown session %d", ErrHandleInvalid, session)
	}
	if info.GraphicsAPI == nil {
		return 0, fmt.Errorf("%w: swapchain requires a graphics API", ErrValidation)
	}
	h, err := inst.conn.AllocateHandle(proto.HandleKindSwapchain)
	if err != nil {
		return 0, err
	}
	inst.swapchains[h] = &SwapchainData{
		width:  info.Width,
		height: info.Height,
		format: info.Format,
		api:    info.GraphicsAPI,
	}
	return h, nil
}

func (inst *Instance) swapchainFor(handle proto.Handle) (*SwapchainData, error) {
	inst.mu.Lock()
	sc, ok := inst.swapchains[handle]
	err := inst.checkAlive()
	inst.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: unknown swapchain %d", ErrHandleInvalid, handle)
	}
	return sc, nil
}

// EnumerateSwapchainImages returns the swapchain's fixed image set,
// allocating the backing textures through its GraphicsAPI on first call.
func (inst *Instance) EnumerateSwapchainImages(handle proto.Handle) ([]Texture, error) {
	sc, err := inst.swapchainFor(handle)
	if err != nil {
		return nil, err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.textures == nil {
		textures, err := sc.api.AllocateTextures(sc.width, sc.height, sc.format, SwapchainImageCount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
		}
		sc.textures = textures
	}
	out := make([]Texture, len(sc.textures))
	copy(out, sc.textures)
	return out, nil
}

// AcquireSwapchainImage advances the swapchain's cursor to the next image
// in round-robin order and returns its index, per spec.md §9's redesign
// note: unlike the original, the index actually rotates.
func (inst *Instance) AcquireSwapchainImage(handle proto.Handle) (int, error) {
	sc, err := inst.swapchainFor(handle)
	if err != nil {
		return 0, err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.textures == nil {
		return 0, fmt.Errorf("%w: swapchain images not yet enumerated", ErrValidation)
	}
	if sc.acquired {
		return 0, fmt.Errorf("%w: image already acquired, call ReleaseSwapchainImage first", ErrValidation)
	}
	if sc.everAcquired {
		sc.cursor = (sc.cursor + 1) % len(sc.textures)
	}
	sc.everAcquired = true
	sc.acquired = true
	return sc.cursor, nil
}

// ReleaseSwapchainImage marks the currently acquired image released,
// making the swapchain eligible for another Acquire.
func (inst *Instance) ReleaseSwapchainImage(handle proto.Handle) error {
	sc, err := inst.swapchainFor(handle)
	if err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.acquired {
		return fmt.Errorf("%w: no image currently acquired", ErrValidation)
	}
	sc.acquired = false
	return nil
}

// SubmitFrameView is one projection layer view's swapchain submission, per
// spec.md §4.5.5.
type SubmitFrameView struct {
	Eye       uint32 // 0 or 1
	Swapchain proto.Handle
}

// SubmitFrame reads back the currently-acquired image of each view's
// swapchain into the shared-memory FrameTexture for that eye and releases
// ready=1, per spec.md §4.5.5.
func (inst *Instance) SubmitFrame(views []SubmitFrameView) error {
	inst.mu.Lock()
	conn := inst.conn
	err := inst.checkAlive()
	inst.mu.Unlock()
	if err != nil {
		return err
	}

	for _, v := range views {
		sc, err := inst.swapchainFor(v.Swapchain)
		if err != nil {
			return err
		}

		sc.mu.Lock()
		if sc.textures == nil {
			sc.mu.Unlock()
			return fmt.Errorf("%w: swapchain images not yet enumerated", ErrValidation)
		}
		tex := sc.textures[sc.cursor]
		width, height, format := sc.width, sc.height, sc.format
		api := sc.api
		sc.mu.Unlock()

		buf := make([]byte, width*height*4)
		n, err := api.ReadPixels(tex, buf)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
		}
		if err := conn.WriteTexture(int(v.Eye), width, height, format, buf[:n]); err != nil {
			return fmt.Errorf("%w: %v", ErrRuntimeFailure, err)
		}
	}
	return nil
}
