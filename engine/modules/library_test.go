package modules

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeLibrary struct {
	symbols  map[string]interface{}
	closed   bool
	closeErr error
}

func (f *fakeLibrary) Lookup(name string) (interface{}, error) {
	s, ok := f.symbols[name]
	if !ok {
		return nil, errors.New("symbol not found: " + name)
	}
	return s, nil
}

func (f *fakeLibrary) Close() error {
	f.closed = true
	return f.closeErr
}

// fakeOpener serves static libraries by path, the test double the reload
// protocol is designed around.
func fakeOpener(libs map[string]*fakeLibrary) Opener {
	return func(path string) (SharedLibrary, error) {
		lib, ok := libs[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return lib, nil
	}
}

var requiredSyms = []string{"Update", "Render"}

func completeLib() *fakeLibrary {
	return &fakeLibrary{symbols: map[string]interface{}{
		"Update": func() string { return "v1" },
		"Render": func() string { return "v1" },
	}}
}

func TestLoadResolvesAllSymbols(t *testing.T) {
	h := NewHandle("game", "game.so", requiredSyms,
		WithOpener(fakeOpener(map[string]*fakeLibrary{"game.so": completeLib()})))

	require.NoError(t, h.Load())
	require.Equal(t, HandleStateLoaded, h.State())
	require.NotZero(t, h.Version())

	s, ok := h.Symbol("Update")
	require.True(t, ok)
	require.Equal(t, "v1", s.(func() string)())
}

func TestLoadFailsWhenModuleMissing(t *testing.T) {
	h := NewHandle("game", "nope.so", requiredSyms,
		WithOpener(fakeOpener(map[string]*fakeLibrary{})))

	err := h.Load()
	require.Error(t, err)
	require.Equal(t, HandleStateFailed, h.State())
}

func TestLoadRejectsPartialBinding(t *testing.T) {
	partial := &fakeLibrary{symbols: map[string]interface{}{
		"Update": func() string { return "v1" },
		// Render missing.
	}}
	h := NewHandle("game", "game.so", requiredSyms,
		WithOpener(fakeOpener(map[string]*fakeLibrary{"game.so": partial})))

	err := h.Load()
	require.ErrorIs(t, err, ErrSymbolMissing)
	require.Equal(t, HandleStateFailed, h.State())
	// Nothing is left bound on a partial failure.
	_, ok := h.Symbol("Update")
	require.False(t, ok)
	require.True(t, partial.closed)
}

func TestUnloadRefusesFurtherLookups(t *testing.T) {
	lib := completeLib()
	h := NewHandle("game", "game.so", requiredSyms,
		WithOpener(fakeOpener(map[string]*fakeLibrary{"game.so": lib})))

	require.NoError(t, h.Load())
	require.NoError(t, h.Unload())
	require.Equal(t, HandleStateUnloaded, h.State())
	require.True(t, lib.closed)

	_, ok := h.Symbol("Update")
	require.False(t, ok)
	require.ErrorIs(t, h.Unload(), ErrNotLoaded)
}

func TestReloadSwapsToNewImage(t *testing.T) {
	v1 := completeLib()
	v2 := &fakeLibrary{symbols: map[string]interface{}{
		"Update": func() string { return "v2" },
		"Render": func() string { return "v2" },
	}}
	h := NewHandle("game", "game_v1.so", requiredSyms,
		WithOpener(fakeOpener(map[string]*fakeLibrary{
			"game_v1.so": v1,
			"game_v2.so": v2,
		})))
	require.NoError(t, h.Load())
	firstVersion := h.Version()

	var order []string
	err := h.Reload("game_v2.so", ReloadHooks{
		Validate: func(syms Symbols) error {
			order = append(order, "validate")
			require.Contains(t, syms, "Update")
			return nil
		},
		OnUnload: func() { order = append(order, "unload") },
		OnLoad:   func() { order = append(order, "load") },
	})
	require.NoError(t, err)
	require.Equal(t, []string{"validate", "unload", "load"}, order)
	require.Equal(t, "game_v2.so", h.Path())
	require.NotEqual(t, firstVersion, h.Version())
	require.True(t, v1.closed)

	s, ok := h.Symbol("Update")
	require.True(t, ok)
	require.Equal(t, "v2", s.(func() string)())
}

func TestReloadCompletesWhenOldImageCloseFails(t *testing.T) {
	v1 := completeLib()
	v1.closeErr = errors.New("image busy")
	v2 := &fakeLibrary{symbols: map[string]interface{}{
		"Update": func() string { return "v2" },
		"Render": func() string { return "v2" },
	}}
	h := NewHandle("game", "game_v1.so", requiredSyms,
		WithOpener(fakeOpener(map[string]*fakeLibrary{
			"game_v1.so": v1,
			"game_v2.so": v2,
		})))
	require.NoError(t, h.Load())

	var order []string
	err := h.Reload("game_v2.so", ReloadHooks{
		OnUnload: func() { order = append(order, "unload") },
		OnLoad:   func() { order = append(order, "load") },
	})
	// The swap already happened; a failing close of the outgoing image is
	// advisory and must not leave the protocol half-run.
	require.NoError(t, err)
	require.Equal(t, []string{"unload", "load"}, order)
	require.Equal(t, "game_v2.so", h.Path())
	require.Equal(t, HandleStateLoaded, h.State())

	s, ok := h.Symbol("Update")
	require.True(t, ok)
	require.Equal(t, "v2", s.(func() string)())
}

func TestReloadFailureKeepsOldImageAuthoritative(t *testing.T) {
	v1 := completeLib()
	broken := &fakeLibrary{symbols: map[string]interface{}{
		"Update": func() string { return "v2" },
		// Render missing: resolution must fail as a whole.
	}}
	h := NewHandle("game", "game_v1.so", requiredSyms,
		WithOpener(fakeOpener(map[string]*fakeLibrary{
			"game_v1.so": v1,
			"game_v2.so": broken,
		})))
	require.NoError(t, h.Load())
	version := h.Version()

	hooksCalled := false
	err := h.Reload("game_v2.so", ReloadHooks{
		OnUnload: func() { hooksCalled = true },
		OnLoad:   func() { hooksCalled = true },
	})
	require.ErrorIs(t, err, ErrSymbolMissing)
	require.False(t, hooksCalled, "hooks must not run on a refused reload")
	require.True(t, broken.closed)

	// The previous table stays bound and callable.
	require.Equal(t, HandleStateLoaded, h.State())
	require.Equal(t, version, h.Version())
	require.Equal(t, "game_v1.so", h.Path())
	s, ok := h.Symbol("Render")
	require.True(t, ok)
	require.Equal(t, "v1", s.(func() string)())
	require.False(t, v1.closed)
}

func TestReloadRefusedByValidation(t *testing.T) {
	v1 := completeLib()
	v2 := completeLib()
	h := NewHandle("game", "game_v1.so", requiredSyms,
		WithOpener(fakeOpener(map[string]*fakeLibrary{
			"game_v1.so": v1,
			"game_v2.so": v2,
		})))
	require.NoError(t, h.Load())

	boom := errors.New("wrong signature")
	err := h.Reload("game_v2.so", ReloadHooks{
		Validate: func(Symbols) error { return boom },
	})
	require.ErrorIs(t, err, boom)
	require.True(t, v2.closed)
	require.False(t, v1.closed)
	require.Equal(t, "game_v1.so", h.Path())
}

func TestReloadRequiresLoadedModule(t *testing.T) {
	h := NewHandle("game", "game.so", requiredSyms,
		WithOpener(fakeOpener(map[string]*fakeLibrary{"game.so": completeLib()})))
	require.ErrorIs(t, h.Reload("game.so", ReloadHooks{}), ErrNotLoaded)
}
