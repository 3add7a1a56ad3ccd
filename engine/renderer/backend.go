package renderer

import "github.com/kestrel-engine/kestrel/engine/renderer/metadata"

// Backend is the capability table a renderer module must fully implement to
// be loadable. The front-end guarantees call ordering: no operation before
// Initialize succeeds or after Shutdown, and DrawGeometry/EndFrame only
// between a successful BeginFrame and its matching EndFrame. Implementations
// never need to self-check the bracket.
type Backend interface {
	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	Resized(width, height uint16) error
	BeginFrame(deltaTime float64) error
	DrawGeometry(data *metadata.GeometryRenderData) error
	EndFrame(deltaTime float64) error
	CreateGeometry(geometry *metadata.Geometry, vertices []float32, indices []uint32) error
	DestroyGeometry(geometry *metadata.Geometry)
	IsMultithreaded() bool
}
