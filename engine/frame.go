package engine

import (
	"github.com/kestrel-engine/kestrel/engine/renderer/metadata"
)

// FrameData is built up, used, and discarded every frame: the ordered list of
// world-geometry draw records the game hands to the renderer. It is reset in
// the same operation that resets the frame arena and stamped with the arena
// epoch, so a record can never leak across a frame boundary unnoticed.
type FrameData struct {
	epoch           uint64
	worldGeometries []metadata.GeometryRenderData
}

func newFrameData(reserve int) *FrameData {
	return &FrameData{
		worldGeometries: make([]metadata.GeometryRenderData, 0, reserve),
	}
}

func (fd *FrameData) reset(epoch uint64) {
	fd.epoch = epoch
	fd.worldGeometries = fd.worldGeometries[:0]
}

// AddWorldGeometry appends one draw record. Insertion order is preserved all
// the way to the backend.
func (fd *FrameData) AddWorldGeometry(record metadata.GeometryRenderData) {
	fd.worldGeometries = append(fd.worldGeometries, record)
}

// WorldGeometries returns this frame's complete record sequence. The slice is
// only valid until the next frame's reset.
func (fd *FrameData) WorldGeometries() []metadata.GeometryRenderData {
	return fd.worldGeometries
}

// Epoch reports the arena epoch this frame data belongs to.
func (fd *FrameData) Epoch() uint64 {
	return fd.epoch
}
