package engine

import (
	"fmt"

	"github.com/kestrel-engine/kestrel/engine/core"
	"github.com/kestrel-engine/kestrel/engine/modules"
	"github.com/kestrel-engine/kestrel/engine/renderer"
	"github.com/kestrel-engine/kestrel/engine/renderer/metadata"
)

// Symbol names a game module image must export.
const (
	SymbolGameBoot            = "Boot"
	SymbolGameInitialize      = "Initialize"
	SymbolGameUpdate          = "Update"
	SymbolGameRender          = "Render"
	SymbolGameOnResize        = "OnResize"
	SymbolGameShutdown        = "Shutdown"
	SymbolGameOnLibraryLoad   = "OnLibraryLoad"
	SymbolGameOnLibraryUnload = "OnLibraryUnload"
)

// SymbolRendererNew is the constructor a renderer module image must export;
// calling it yields the module's capability table.
const SymbolRendererNew = "New"

var GameSymbolNames = []string{
	SymbolGameBoot,
	SymbolGameInitialize,
	SymbolGameUpdate,
	SymbolGameRender,
	SymbolGameOnResize,
	SymbolGameShutdown,
	SymbolGameOnLibraryLoad,
	SymbolGameOnLibraryUnload,
}

var RendererSymbolNames = []string{
	SymbolRendererNew,
}

const (
	gameModuleName     = "game"
	rendererModuleName = "renderer"
)

// LoadGameModule loads a game module image and binds its callback table.
func LoadGameModule(path string, options ...modules.HandleOption) (*Game, *modules.Handle, error) {
	h := modules.NewHandle(gameModuleName, path, GameSymbolNames, options...)
	if err := h.Load(); err != nil {
		return nil, nil, err
	}
	table, err := gameTableFrom(h.Symbols())
	if err != nil {
		_ = h.Unload()
		return nil, nil, err
	}
	g := &Game{}
	table.apply(g)
	core.LogInfo("game module loaded from %s (version %s)", path, h.Version())
	return g, h, nil
}

// LoadRendererModule loads a renderer module image and resolves its
// capability table.
func LoadRendererModule(path string, options ...modules.HandleOption) (renderer.Backend, *modules.Handle, error) {
	h := modules.NewHandle(rendererModuleName, path, RendererSymbolNames, options...)
	if err := h.Load(); err != nil {
		return nil, nil, err
	}
	backend, err := rendererBackendFrom(h.Symbols())
	if err != nil {
		_ = h.Unload()
		return nil, nil, err
	}
	core.LogInfo("renderer module loaded from %s (version %s)", path, h.Version())
	return backend, h, nil
}

// gameTable is a fully type-checked callback table staged from a resolved
// symbol set. Building one is all-or-nothing, so a half-bound table can
// never reach the Game.
type gameTable struct {
	boot        Boot
	initialize  Initialize
	update      Update
	render      Render
	onResize    OnResize
	shutdown    Shutdown
	libOnLoad   LibOnLoad
	libOnUnload LibOnUnload
}

func gameTableFrom(syms modules.Symbols) (*gameTable, error) {
	t := &gameTable{}
	var err error
	if t.boot, err = symbolAs[func(*Application) error](syms, SymbolGameBoot); err != nil {
		return nil, err
	}
	if t.initialize, err = symbolAs[func(*Application) error](syms, SymbolGameInitialize); err != nil {
		return nil, err
	}
	if t.update, err = symbolAs[func(*Application, float64) error](syms, SymbolGameUpdate); err != nil {
		return nil, err
	}
	if t.render, err = symbolAs[func(*Application, *metadata.RenderPacket, float64) error](syms, SymbolGameRender); err != nil {
		return nil, err
	}
	if t.onResize, err = symbolAs[func(*Application, uint32, uint32)](syms, SymbolGameOnResize); err != nil {
		return nil, err
	}
	if t.shutdown, err = symbolAs[func(*Application)](syms, SymbolGameShutdown); err != nil {
		return nil, err
	}
	if t.libOnLoad, err = symbolAs[func(*Application)](syms, SymbolGameOnLibraryLoad); err != nil {
		return nil, err
	}
	if t.libOnUnload, err = symbolAs[func(*Application)](syms, SymbolGameOnLibraryUnload); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *gameTable) apply(g *Game) {
	g.FnBoot = t.boot
	g.FnInitialize = t.initialize
	g.FnUpdate = t.update
	g.FnRender = t.render
	g.FnOnResize = t.onResize
	g.FnShutdown = t.shutdown
	g.FnLibOnLoad = t.libOnLoad
	g.FnLibOnUnload = t.libOnUnload
}

func rendererBackendFrom(syms modules.Symbols) (renderer.Backend, error) {
	construct, err := symbolAs[func() renderer.Backend](syms, SymbolRendererNew)
	if err != nil {
		return nil, err
	}
	backend := construct()
	if backend == nil {
		return nil, fmt.Errorf("renderer module constructor returned no capability table")
	}
	return backend, nil
}

func symbolAs[T any](syms modules.Symbols, name string) (T, error) {
	var zero T
	s, ok := syms[name]
	if !ok {
		return zero, fmt.Errorf("symbol '%s' not resolved", name)
	}
	fn, ok := s.(T)
	if !ok {
		return zero, fmt.Errorf("symbol '%s' has the wrong signature (%T)", name, s)
	}
	return fn, nil
}

// reloadGameModule swaps in a rebuilt game module image. The in-memory game
// state survives; only the code changes. On any failure the previous
// callback table stays bound and callable.
func (app *Application) reloadGameModule(path string) {
	staged := &gameTable{}
	err := app.gameModule.Reload(path, modules.ReloadHooks{
		Validate: func(syms modules.Symbols) error {
			t, err := gameTableFrom(syms)
			if err != nil {
				return err
			}
			*staged = *t
			return nil
		},
		OnUnload: func() {
			if app.game.FnLibOnUnload != nil {
				app.game.FnLibOnUnload(app)
			}
		},
		OnLoad: func() {
			staged.apply(app.game)
			if app.game.FnLibOnLoad != nil {
				app.game.FnLibOnLoad(app)
			}
		},
	})
	if err != nil {
		core.LogError("game module reload failed, previous image stays active: %s", err)
		return
	}
	core.LogInfo("game module hot-reloaded (version %s)", app.gameModule.Version())
}

// reloadRendererModule swaps in a rebuilt renderer module. The incoming
// capability table is initialized against the current framebuffer before the
// old one is released; an initialization failure refuses the reload.
func (app *Application) reloadRendererModule(path string) {
	var staged renderer.Backend
	err := app.rendererModule.Reload(path, modules.ReloadHooks{
		Validate: func(syms modules.Symbols) error {
			backend, err := rendererBackendFrom(syms)
			if err != nil {
				return err
			}
			width, height := app.renderer.Size()
			if err := backend.Initialize(app.config.Name, width, height); err != nil {
				return fmt.Errorf("incoming renderer backend failed to initialize: %w", err)
			}
			staged = backend
			return nil
		},
		OnLoad: func() {
			app.renderer.SwapBackend(staged)
		},
	})
	if err != nil {
		core.LogError("renderer module reload failed, previous image stays active: %s", err)
		return
	}
	core.LogInfo("renderer module hot-reloaded (version %s)", app.rendererModule.Version())
}
