package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-engine/kestrel/engine/core"
	"github.com/kestrel-engine/kestrel/engine/renderer/metadata"
)

// mockBackend records every capability call in order and can be scripted to
// fail at specific points.
type mockBackend struct {
	calls []string

	initializeErr error
	beginErr      error
	drawErr       error
	endErr        error
	shutdownErr   error
}

func (m *mockBackend) Initialize(appName string, w, h uint32) error {
	m.calls = append(m.calls, "initialize")
	return m.initializeErr
}

func (m *mockBackend) Shutdown() error {
	m.calls = append(m.calls, "shutdown")
	return m.shutdownErr
}

func (m *mockBackend) Resized(w, h uint16) error {
	m.calls = append(m.calls, "resized")
	return nil
}

func (m *mockBackend) BeginFrame(deltaTime float64) error {
	m.calls = append(m.calls, "begin")
	return m.beginErr
}

func (m *mockBackend) DrawGeometry(data *metadata.GeometryRenderData) error {
	m.calls = append(m.calls, "draw:"+data.Geometry.Name)
	return m.drawErr
}

func (m *mockBackend) EndFrame(deltaTime float64) error {
	m.calls = append(m.calls, "end")
	return m.endErr
}

func (m *mockBackend) CreateGeometry(g *metadata.Geometry, vertices []float32, indices []uint32) error {
	m.calls = append(m.calls, "create:"+g.Name)
	return nil
}

func (m *mockBackend) DestroyGeometry(g *metadata.Geometry) {
	m.calls = append(m.calls, "destroy:"+g.Name)
}

func (m *mockBackend) IsMultithreaded() bool { return false }

func packetWith(names ...string) *metadata.RenderPacket {
	p := &metadata.RenderPacket{DeltaTime: 0.016}
	for _, n := range names {
		p.Geometries = append(p.Geometries, metadata.GeometryRenderData{
			Geometry: &metadata.Geometry{Name: n},
		})
	}
	return p
}

func TestDrawFrameRequiresInitialize(t *testing.T) {
	b := &mockBackend{}
	r := New(b)

	require.ErrorIs(t, r.DrawFrame(packetWith("quad")), ErrNotInitialized)
	require.ErrorIs(t, r.OnResized(10, 10), ErrNotInitialized)
	require.Empty(t, b.calls, "backend must never see calls outside the initialize bracket")
}

func TestInitializeOnlyOnce(t *testing.T) {
	r := New(&mockBackend{})
	require.NoError(t, r.Initialize("app", 800, 600))
	require.ErrorIs(t, r.Initialize("app", 800, 600), ErrAlreadyInitialized)
}

func TestDrawFrameBracketsEveryDraw(t *testing.T) {
	b := &mockBackend{}
	r := New(b)
	require.NoError(t, r.Initialize("app", 800, 600))

	require.NoError(t, r.DrawFrame(packetWith("quad", "tri")))
	require.Equal(t, []string{"initialize", "begin", "draw:quad", "draw:tri", "end"}, b.calls)
	require.EqualValues(t, 1, r.FrameNumber())
}

func TestDrawFrameSkipsWhileBackendBoots(t *testing.T) {
	b := &mockBackend{beginErr: core.ErrBackendBooting}
	r := New(b)
	require.NoError(t, r.Initialize("app", 800, 600))

	require.NoError(t, r.DrawFrame(packetWith("quad")))
	// No draw and no end without a successful begin.
	require.Equal(t, []string{"initialize", "begin"}, b.calls)
}

func TestDrawFrameFailureStillClosesFrame(t *testing.T) {
	b := &mockBackend{drawErr: errors.New("device lost")}
	r := New(b)
	require.NoError(t, r.Initialize("app", 800, 600))

	err := r.DrawFrame(packetWith("quad", "tri"))
	require.Error(t, err)
	// The first draw fails, the rest are skipped, the frame is closed.
	require.Equal(t, []string{"initialize", "begin", "draw:quad", "end"}, b.calls)
}

func TestShutdownIsIdempotent(t *testing.T) {
	b := &mockBackend{}
	r := New(b)
	require.NoError(t, r.Initialize("app", 800, 600))
	require.NoError(t, r.Shutdown())
	require.NoError(t, r.Shutdown())
	require.Equal(t, []string{"initialize", "shutdown"}, b.calls)

	// After shutdown, the bracket is closed again.
	require.ErrorIs(t, r.DrawFrame(packetWith("quad")), ErrNotInitialized)
}

func TestOnResizedForwardsAndTracksSize(t *testing.T) {
	b := &mockBackend{}
	r := New(b)
	require.NoError(t, r.Initialize("app", 800, 600))
	require.NoError(t, r.OnResized(1920, 1080))

	w, h := r.Size()
	require.EqualValues(t, 1920, w)
	require.EqualValues(t, 1080, h)
}

func TestSwapBackendShutsDownPrevious(t *testing.T) {
	old := &mockBackend{}
	r := New(old)
	require.NoError(t, r.Initialize("app", 800, 600))

	replacement := &mockBackend{}
	r.SwapBackend(replacement)
	require.Contains(t, old.calls, "shutdown")

	require.NoError(t, r.DrawFrame(packetWith("quad")))
	require.Equal(t, []string{"begin", "draw:quad", "end"}, replacement.calls)
}

func TestCreateGeometryStampsID(t *testing.T) {
	b := &mockBackend{}
	r := New(b)
	require.NoError(t, r.Initialize("app", 800, 600))

	g := &metadata.Geometry{Name: "quad"}
	require.NoError(t, r.CreateGeometry(g, []float32{0, 0, 0}, []uint32{0}))
	r.DestroyGeometry(g)
	require.Contains(t, b.calls, "create:quad")
	require.Contains(t, b.calls, "destroy:quad")
}

func TestHeadlessBackendEnforcesItsOwnBracket(t *testing.T) {
	b := NewHeadlessBackend()
	require.NoError(t, b.Initialize("app", 320, 240))
	require.Error(t, b.DrawGeometry(&metadata.GeometryRenderData{}))
	require.NoError(t, b.BeginFrame(0.016))
	require.NoError(t, b.DrawGeometry(&metadata.GeometryRenderData{}))
	require.NoError(t, b.EndFrame(0.016))
	require.NoError(t, b.Shutdown())
	require.EqualValues(t, 1, b.FramesBegun)
	require.EqualValues(t, 1, b.DrawsIssued)
}
