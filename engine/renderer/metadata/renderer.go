package metadata

import (
	"github.com/kestrel-engine/kestrel/engine/math"
)

// Geometry is a renderable piece of world data. The backend stores whatever
// it needs to draw it in InternalData; the engine never looks inside.
type Geometry struct {
	ID         uint32
	Generation uint32
	Name       string
	// Backend-owned payload, opaque to the engine core.
	InternalData interface{}
}

// GeometryRenderData is one world-geometry draw record staged for a single
// frame. SortKey is an explicit ordering key (z-order/material grouping) the
// backend must honour even when it re-batches internally.
type GeometryRenderData struct {
	Model    math.Mat4
	Geometry *Geometry
	UniqueID uint32
	SortKey  uint64
}

// RenderPacket carries everything the renderer needs for one frame: the
// frame's complete geometry sequence plus the camera/view parameters. It is
// populated by the render callback and consumed by exactly one draw call.
type RenderPacket struct {
	DeltaTime        float64
	ViewMatrix       math.Mat4
	ProjectionMatrix math.Mat4
	ViewPosition     math.Vec3
	Geometries       []GeometryRenderData
}
