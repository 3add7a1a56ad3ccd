package renderer

import (
	"fmt"

	"github.com/kestrel-engine/kestrel/engine/core"
	"github.com/kestrel-engine/kestrel/engine/renderer/metadata"
)

// HeadlessBackend is a capability table with no graphics device behind it.
// It validates the call protocol and counts work, which makes it the default
// backend for tests and for running the engine on machines without a GPU.
type HeadlessBackend struct {
	appName     string
	width       uint32
	height      uint32
	initialized bool
	frameOpen   bool

	FramesBegun  uint64
	FramesEnded  uint64
	DrawsIssued  uint64
	ResizeEvents uint64
}

func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{}
}

func (b *HeadlessBackend) Initialize(appName string, appWidth, appHeight uint32) error {
	if b.initialized {
		return fmt.Errorf("headless backend initialized twice")
	}
	b.appName = appName
	b.width = appWidth
	b.height = appHeight
	b.initialized = true
	core.LogInfo("headless renderer backend initialized for '%s' (%dx%d)", appName, appWidth, appHeight)
	return nil
}

func (b *HeadlessBackend) Shutdown() error {
	if !b.initialized {
		return fmt.Errorf("headless backend shut down while not initialized")
	}
	b.initialized = false
	return nil
}

func (b *HeadlessBackend) Resized(width, height uint16) error {
	b.width = uint32(width)
	b.height = uint32(height)
	b.ResizeEvents++
	return nil
}

func (b *HeadlessBackend) BeginFrame(deltaTime float64) error {
	if b.frameOpen {
		return fmt.Errorf("begin frame while a frame is already open")
	}
	b.frameOpen = true
	b.FramesBegun++
	return nil
}

func (b *HeadlessBackend) DrawGeometry(data *metadata.GeometryRenderData) error {
	if !b.frameOpen {
		return fmt.Errorf("draw geometry outside of a frame")
	}
	b.DrawsIssued++
	return nil
}

func (b *HeadlessBackend) EndFrame(deltaTime float64) error {
	if !b.frameOpen {
		return fmt.Errorf("end frame without a begin")
	}
	b.frameOpen = false
	b.FramesEnded++
	return nil
}

func (b *HeadlessBackend) CreateGeometry(geometry *metadata.Geometry, vertices []float32, indices []uint32) error {
	geometry.InternalData = len(vertices)
	return nil
}

func (b *HeadlessBackend) DestroyGeometry(geometry *metadata.Geometry) {
	geometry.InternalData = nil
}

func (b *HeadlessBackend) IsMultithreaded() bool {
	return false
}

func (b *HeadlessBackend) Size() (uint32, uint32) {
	return b.width, b.height
}
