// Sandbox is the testbed game built as a loadable module image:
//
//	go build -buildmode=plugin -o bin/sandbox.so ./plugins/sandbox
//
// The engine resolves the exported callbacks below by name. Game state lives
// in the application's state block and survives a hot-reload of this code;
// its type comes from plugins/sandbox/state so identity holds across images.
package main

import (
	"fmt"

	"github.com/kestrel-engine/kestrel/engine"
	"github.com/kestrel-engine/kestrel/engine/core"
	"github.com/kestrel-engine/kestrel/engine/math"
	"github.com/kestrel-engine/kestrel/engine/renderer/metadata"
	"github.com/kestrel-engine/kestrel/plugins/sandbox/state"
)

// Required by buildmode=plugin; never run.
func main() {}

func Boot(app *engine.Application) error {
	core.LogInfo("booting sandbox module...")
	return app.SetConfig(&engine.ApplicationConfig{
		Name:            "Kestrel Sandbox",
		StartWidth:      1280,
		StartHeight:     720,
		LogLevel:        "debug",
		LimitFrameRate:  true,
		TargetFrameRate: 60,
		HotReload:       true,
	})
}

func Initialize(app *engine.Application) error {
	st := &state.State{
		Quad: &metadata.Geometry{Name: "sandbox_quad"},
	}
	app.SetGameState(st)

	vertices := []float32{
		-0.5, -0.5, 0,
		0.5, -0.5, 0,
		0.5, 0.5, 0,
		-0.5, 0.5, 0,
	}
	return app.Renderer().CreateGeometry(st.Quad, vertices, []uint32{0, 1, 2, 2, 3, 0})
}

func Update(app *engine.Application, deltaTime float64) error {
	st, ok := app.GameState().(*state.State)
	if !ok {
		return fmt.Errorf("sandbox state block has unexpected type %T", app.GameState())
	}
	st.SpinAngle += float32(0.5 * deltaTime)

	app.FrameData().AddWorldGeometry(metadata.GeometryRenderData{
		Model:    math.NewMat4Translation(math.NewVec3(0, 0, 0)),
		Geometry: st.Quad,
		UniqueID: st.Quad.ID,
	})
	return nil
}

func Render(app *engine.Application, packet *metadata.RenderPacket, deltaTime float64) error {
	packet.ViewMatrix = math.NewMat4Identity()
	packet.ProjectionMatrix = math.NewMat4Identity()
	packet.Geometries = app.FrameData().WorldGeometries()
	return nil
}

func OnResize(app *engine.Application, width, height uint32) {
	core.LogDebug("sandbox resized to %dx%d", width, height)
}

func Shutdown(app *engine.Application) {
	st, ok := app.GameState().(*state.State)
	if !ok {
		return
	}
	if st.Quad != nil {
		app.Renderer().DestroyGeometry(st.Quad)
	}
}

// OnLibraryUnload runs just before this image is swapped out. State stays in
// the application; only transient hooks need detaching here.
func OnLibraryUnload(app *engine.Application) {
	core.LogInfo("sandbox module unloading")
}

// OnLibraryLoad runs right after a fresh image is swapped in, against the
// still-live state block.
func OnLibraryLoad(app *engine.Application) {
	st, ok := app.GameState().(*state.State)
	if !ok {
		core.LogWarn("sandbox state block has unexpected type %T", app.GameState())
		return
	}
	st.Reloads++
	core.LogInfo("sandbox module loaded (reload #%d)", st.Reloads)
}
