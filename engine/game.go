package engine

import (
	"github.com/kestrel-engine/kestrel/engine/renderer/metadata"
)

// Callback slot signatures. Every callback receives the Application it runs
// inside of; game modules are loaded fresh on hot-reload and cannot close
// over engine state.
type (
	Boot        func(app *Application) error
	Initialize  func(app *Application) error
	Update      func(app *Application, deltaTime float64) error
	Render      func(app *Application, packet *metadata.RenderPacket, deltaTime float64) error
	OnResize    func(app *Application, width uint32, height uint32)
	Shutdown    func(app *Application)
	LibOnLoad   func(app *Application)
	LibOnUnload func(app *Application)
)

// Game is the callback table bound for the lifetime of one game module
// version, plus the game-owned state block. The engine passes State through
// untouched; only the game module interprets it, which is what lets it
// survive a code hot-reload.
type Game struct {
	// Optional preset used by boot callbacks that do not load a config file.
	ApplicationConfig *ApplicationConfig

	// Game-owned, engine-opaque.
	State interface{}

	FnBoot        Boot
	FnInitialize  Initialize
	FnUpdate      Update
	FnRender      Render
	FnOnResize    OnResize
	FnShutdown    Shutdown
	FnLibOnLoad   LibOnLoad
	FnLibOnUnload LibOnUnload
}
