package testbed

import (
	"encoding/binary"
	"os"

	"github.com/kestrel-engine/kestrel/engine"
	"github.com/kestrel-engine/kestrel/engine/core"
	"github.com/kestrel-engine/kestrel/engine/math"
	"github.com/kestrel-engine/kestrel/engine/renderer/metadata"
)

// TestGame is the statically bound sample game. The same callbacks are
// exported by plugins/sandbox for the hot-reload path.
type TestGame struct {
	*engine.Game
}

type gameState struct {
	spinAngle float32
	width     uint32
	height    uint32

	quad *metadata.Geometry
	tri  *metadata.Geometry
}

func NewTestGame(configPath string) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{},
		},
	}

	tg.FnBoot = func(app *engine.Application) error { return tg.Boot(app, configPath) }
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Boot(app *engine.Application, configPath string) error {
	core.LogInfo("booting testbed...")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			cfg, err := engine.LoadApplicationConfig(configPath)
			if err != nil {
				return err
			}
			return app.SetConfig(cfg)
		}
		core.LogWarn("config file %s not found, using defaults", configPath)
	}

	return app.SetConfig(&engine.ApplicationConfig{
		Name:            "Kestrel Testbed",
		StartPosX:       100,
		StartPosY:       100,
		StartWidth:      1280,
		StartHeight:     720,
		LogLevel:        "debug",
		LimitFrameRate:  true,
		TargetFrameRate: 60,
	})
}

func (g *TestGame) Initialize(app *engine.Application) error {
	core.LogInfo("initializing testbed...")
	st := g.State.(*gameState)
	st.width, st.height = app.Size()

	st.quad = &metadata.Geometry{Name: "test_quad"}
	quadVertices := []float32{
		-0.5, -0.5, 0,
		0.5, -0.5, 0,
		0.5, 0.5, 0,
		-0.5, 0.5, 0,
	}
	if err := app.Renderer().CreateGeometry(st.quad, quadVertices, []uint32{0, 1, 2, 2, 3, 0}); err != nil {
		return err
	}

	st.tri = &metadata.Geometry{Name: "test_triangle"}
	triVertices := []float32{
		0, 0.5, 0,
		-0.5, -0.5, 0,
		0.5, -0.5, 0,
	}
	return app.Renderer().CreateGeometry(st.tri, triVertices, []uint32{0, 1, 2})
}

func (g *TestGame) Update(app *engine.Application, deltaTime float64) error {
	st := g.State.(*gameState)
	st.spinAngle += float32(0.5 * deltaTime)

	// Per-frame scratch comes from the frame arena; it vanishes at the next
	// frame's reset.
	scratch, err := app.FrameArena().Allocate(8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(scratch, app.FrameNumber())

	frame := app.FrameData()
	frame.AddWorldGeometry(metadata.GeometryRenderData{
		Model:    math.NewMat4Translation(math.NewVec3(0, 0, 0)),
		Geometry: st.quad,
		UniqueID: st.quad.ID,
		SortKey:  0,
	})
	frame.AddWorldGeometry(metadata.GeometryRenderData{
		Model:    math.NewMat4Translation(math.NewVec3(1.5, 0, 0)),
		Geometry: st.tri,
		UniqueID: st.tri.ID,
		SortKey:  1,
	})
	return nil
}

func (g *TestGame) Render(app *engine.Application, packet *metadata.RenderPacket, deltaTime float64) error {
	packet.ViewMatrix = math.NewMat4Identity()
	packet.ProjectionMatrix = math.NewMat4Identity()
	packet.ViewPosition = math.NewVec3(0, 0, -5)
	packet.Geometries = app.FrameData().WorldGeometries()
	return nil
}

func (g *TestGame) OnResize(app *engine.Application, width, height uint32) {
	st := g.State.(*gameState)
	st.width = width
	st.height = height
	core.LogDebug("testbed resized to %dx%d", width, height)
}

func (g *TestGame) Shutdown(app *engine.Application) {
	core.LogInfo("testbed shutting down")
	st := g.State.(*gameState)
	if st.quad != nil {
		app.Renderer().DestroyGeometry(st.quad)
	}
	if st.tri != nil {
		app.Renderer().DestroyGeometry(st.tri)
	}
}
