package renderer

import (
	"errors"
	"fmt"

	"github.com/kestrel-engine/kestrel/engine/core"
	"github.com/kestrel-engine/kestrel/engine/renderer/metadata"
)

var (
	ErrNotInitialized     = errors.New("renderer backend not initialized")
	ErrAlreadyInitialized = errors.New("renderer backend already initialized")
)

// Renderer is the front-end over the currently bound backend capability
// table. It owns the usage protocol: the initialize…shutdown bracket and the
// begin/draw/end bracket are enforced here, by construction, so a backend is
// never asked to defend itself against out-of-order calls.
type Renderer struct {
	backend     Backend
	appName     string
	width       uint32
	height      uint32
	initialized bool
	frameNumber uint64
}

func New(backend Backend) *Renderer {
	return &Renderer{
		backend: backend,
	}
}

func (r *Renderer) Initialize(appName string, width, height uint32) error {
	if r.initialized {
		return ErrAlreadyInitialized
	}
	if r.backend == nil {
		return fmt.Errorf("renderer created without a backend")
	}
	if err := r.backend.Initialize(appName, width, height); err != nil {
		return fmt.Errorf("renderer backend failed to initialize: %w", err)
	}
	r.appName = appName
	r.width = width
	r.height = height
	r.initialized = true
	return nil
}

// Shutdown releases the backend. Safe to call when never initialized; never
// called twice on the same backend.
func (r *Renderer) Shutdown() error {
	if !r.initialized {
		return nil
	}
	r.initialized = false
	return r.backend.Shutdown()
}

// OnResized forwards the new framebuffer size to the backend. Delivered by
// the application strictly between frames.
func (r *Renderer) OnResized(width, height uint16) error {
	if !r.initialized {
		return ErrNotInitialized
	}
	r.width = uint32(width)
	r.height = uint32(height)
	return r.backend.Resized(width, height)
}

// DrawFrame consumes one complete render packet: begin, one draw per
// geometry record in packet order, end. A backend reporting
// core.ErrBackendBooting from BeginFrame skips the frame without failing it.
func (r *Renderer) DrawFrame(packet *metadata.RenderPacket) error {
	if !r.initialized {
		return ErrNotInitialized
	}
	r.frameNumber++

	if err := r.backend.BeginFrame(packet.DeltaTime); err != nil {
		if errors.Is(err, core.ErrBackendBooting) {
			// Target is being recreated (resize, swapchain rebuild). Not an
			// error; the next frame will pick it up.
			return nil
		}
		return fmt.Errorf("begin frame failed: %w", err)
	}

	// From here the frame must be closed no matter what, so the backend is
	// never left with a dangling begin.
	var drawErr error
	for i := range packet.Geometries {
		if err := r.backend.DrawGeometry(&packet.Geometries[i]); err != nil {
			drawErr = fmt.Errorf("draw geometry %q failed: %w", packet.Geometries[i].Geometry.Name, err)
			break
		}
	}

	if err := r.backend.EndFrame(packet.DeltaTime); err != nil {
		if drawErr == nil {
			drawErr = fmt.Errorf("end frame failed: %w", err)
		}
	}
	return drawErr
}

// CreateGeometry uploads geometry through the backend and stamps it with a
// process-unique id.
func (r *Renderer) CreateGeometry(geometry *metadata.Geometry, vertices []float32, indices []uint32) error {
	if !r.initialized {
		return ErrNotInitialized
	}
	if err := r.backend.CreateGeometry(geometry, vertices, indices); err != nil {
		return err
	}
	geometry.ID = core.IdentifierAcquireNewID(geometry)
	return nil
}

func (r *Renderer) DestroyGeometry(geometry *metadata.Geometry) {
	if !r.initialized {
		return
	}
	r.backend.DestroyGeometry(geometry)
	if err := core.IdentifierReleaseID(geometry.ID); err != nil {
		core.LogWarn(err.Error())
	}
}

// SwapBackend replaces the capability table with an already-initialized
// replacement, shutting the previous backend down. Used on renderer module
// hot-reload; must run between frames.
func (r *Renderer) SwapBackend(backend Backend) {
	old := r.backend
	r.backend = backend
	if old != nil && r.initialized {
		if err := old.Shutdown(); err != nil {
			core.LogWarn("previous renderer backend reported an error on shutdown: %s", err)
		}
	}
	r.initialized = true
}

// FrameNumber reports how many frames have been submitted to the backend.
func (r *Renderer) FrameNumber() uint64 {
	return r.frameNumber
}

// Size reports the framebuffer dimensions last seen by the backend.
func (r *Renderer) Size() (uint32, uint32) {
	return r.width, r.height
}

// IsMultithreaded reports whether the bound backend consumes packets on its
// own threads.
func (r *Renderer) IsMultithreaded() bool {
	if !r.initialized {
		return false
	}
	return r.backend.IsMultithreaded()
}
