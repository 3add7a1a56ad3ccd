package engine

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pelletier/go-toml/v2"

	"github.com/kestrel-engine/kestrel/engine/containers"
	"github.com/kestrel-engine/kestrel/engine/core"
	"github.com/kestrel-engine/kestrel/engine/memory"
	"github.com/kestrel-engine/kestrel/engine/modules"
	"github.com/kestrel-engine/kestrel/engine/renderer"
)

type Stage uint8

const (
	// Application is in an uninitialized state
	ApplicationStageUninitialized Stage = iota
	// Application is currently booting up
	ApplicationStageBooting
	// Application completed boot process and is ready to be initialized
	ApplicationStageBootComplete
	// Application is currently initializing
	ApplicationStageInitializing
	// Application initialization is complete
	ApplicationStageInitialized
	// Application is currently running
	ApplicationStageRunning
	// Application is in the process of shutting down
	ApplicationStageShuttingDown
)

func (s Stage) String() string {
	switch s {
	case ApplicationStageUninitialized:
		return "uninitialized"
	case ApplicationStageBooting:
		return "booting"
	case ApplicationStageBootComplete:
		return "boot-complete"
	case ApplicationStageInitializing:
		return "initializing"
	case ApplicationStageInitialized:
		return "initialized"
	case ApplicationStageRunning:
		return "running"
	case ApplicationStageShuttingDown:
		return "shutting-down"
	}
	return "unknown"
}

const (
	defaultWidth          = 1280
	defaultHeight         = 720
	defaultFrameRate      = 60
	defaultFrameArenaSize = 8 * 1024 * 1024
	defaultFrameGeometry  = 512
)

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// One of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// Capacity of the per-frame arena in bytes. Sized generously at boot;
	// exhausting it mid-frame is a tuning bug, not a runtime condition.
	FrameArenaSize uint64 `toml:"frame_arena_size"`
	// Frame pacing. When LimitFrameRate is set, leftover frame budget is
	// given back to the OS.
	LimitFrameRate  bool   `toml:"limit_frame_rate"`
	TargetFrameRate uint32 `toml:"target_frame_rate"`
	// Optional module images. Empty paths mean statically bound code.
	GameLibrary     string `toml:"game_library"`
	RendererLibrary string `toml:"renderer_library"`
	// Watch module images and hot-reload them at frame boundaries.
	HotReload bool `toml:"hot_reload"`
}

// LoadApplicationConfig reads a TOML config file, typically from a boot
// callback.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading application config: %w", err)
	}
	cfg := &ApplicationConfig{}
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decoding application config %s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *ApplicationConfig) applyDefaults() {
	if cfg.Name == "" {
		cfg.Name = "Kestrel Application"
	}
	if cfg.StartWidth == 0 {
		cfg.StartWidth = defaultWidth
	}
	if cfg.StartHeight == 0 {
		cfg.StartHeight = defaultHeight
	}
	if cfg.FrameArenaSize == 0 {
		cfg.FrameArenaSize = defaultFrameArenaSize
	}
	if cfg.TargetFrameRate == 0 {
		cfg.TargetFrameRate = defaultFrameRate
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
}

// Platform is the windowing/OS layer the application runs against. The GLFW
// implementation lives in engine/platform; tests substitute their own.
type Platform interface {
	Startup(applicationName string, x, y, width, height uint32) error
	// PumpMessages processes pending OS events, returning false once the
	// window wants to close.
	PumpMessages() bool
	FramebufferSize() (uint32, uint32)
	Sleep(ms float64)
	Shutdown() error
}

// engineState is the engine-owned state block. It is unexported on purpose:
// game modules receive the Application and can never reach inside here, the
// mirror of the engine never interpreting Game.State.
type engineState struct {
	isRunning    bool
	isSuspended  bool
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64
	frameNumber  uint64
	shutdownOnce sync.Once

	eventsInitialized   bool
	platformStarted     bool
	rendererInitialized bool
}

// Application is the top-level object: configuration, lifecycle stage, the
// frame arena and frame data, the two module handles, and the bound game
// callback table. One is constructed explicitly per host; nothing here is
// ambient global state.
type Application struct {
	stage    Stage
	config   *ApplicationConfig
	game     *Game
	platform Platform

	renderer   *renderer.Renderer
	frameArena *memory.LinearAllocator
	frameData  *FrameData

	gameModule     *modules.Handle
	rendererModule *modules.Handle
	watcher        *modules.Watcher

	resizeQueue   *containers.RingQueue
	quitRequested atomic.Bool

	state *engineState
}

// Option customizes an Application at construction.
type Option func(*Application)

// WithGameModule attaches the handle the game callback table was bound from,
// enabling hot-reload of the game module.
func WithGameModule(h *modules.Handle) Option {
	return func(app *Application) {
		app.gameModule = h
	}
}

// WithRendererBackend statically binds a renderer capability table instead
// of loading one from the configured module image.
func WithRendererBackend(b renderer.Backend) Option {
	return func(app *Application) {
		app.renderer = renderer.New(b)
	}
}

func New(g *Game, p Platform, options ...Option) (*Application, error) {
	if g == nil {
		return nil, fmt.Errorf("application requires a game callback table")
	}
	if p == nil {
		return nil, fmt.Errorf("application requires a platform")
	}
	app := &Application{
		stage:       ApplicationStageUninitialized,
		game:        g,
		platform:    p,
		resizeQueue: containers.NewRingQueue(16),
		state: &engineState{
			clock: core.NewClock(),
		},
	}
	for _, o := range options {
		o(app)
	}
	return app, nil
}

// Boot runs the game's boot callback, which must leave the application with
// a fully populated configuration. Boot failure is fatal to startup: no
// further transitions happen.
func (app *Application) Boot() error {
	if err := app.transition(ApplicationStageUninitialized, ApplicationStageBooting); err != nil {
		return err
	}
	if app.game.FnBoot == nil {
		return fmt.Errorf("game has no boot callback bound")
	}
	if err := app.game.FnBoot(app); err != nil {
		return fmt.Errorf("application boot sequence failed: %w", err)
	}
	if app.config == nil {
		// Boot callbacks that keep a preset on the Game are accepted too.
		if app.game.ApplicationConfig == nil {
			return fmt.Errorf("boot callback completed without populating the application config")
		}
		app.config = app.game.ApplicationConfig
	}
	app.config.applyDefaults()
	core.LogSetLevel(core.ParseLogLevel(app.config.LogLevel))

	app.state.width = app.config.StartWidth
	app.state.height = app.config.StartHeight

	arena, err := memory.NewLinearAllocator(app.config.FrameArenaSize)
	if err != nil {
		return err
	}
	app.frameArena = arena
	app.frameData = newFrameData(defaultFrameGeometry)

	return app.transition(ApplicationStageBooting, ApplicationStageBootComplete)
}

// SetConfig installs the boot-time configuration. Only legal while booting;
// the config is immutable once boot completes.
func (app *Application) SetConfig(cfg *ApplicationConfig) error {
	if app.stage != ApplicationStageBooting {
		return fmt.Errorf("application config can only be set during boot (stage is %s)", app.stage)
	}
	if cfg == nil {
		return fmt.Errorf("application config must not be nil")
	}
	app.config = cfg
	return nil
}

// Initialize brings up the engine subsystems and then runs the game's
// initialize callback. Failure is fatal: everything already brought up is
// unwound before the error is reported.
func (app *Application) Initialize() error {
	if err := app.transition(ApplicationStageBootComplete, ApplicationStageInitializing); err != nil {
		return err
	}

	fail := func(err error) error {
		app.Shutdown()
		return err
	}

	if !core.EventSystemInitialize() {
		return fail(fmt.Errorf("failed to initialize the event system"))
	}
	app.state.eventsInitialized = true
	if err := core.MetricsInitialize(); err != nil {
		return fail(err)
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, app.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, app.onResized)

	cfg := app.config
	if err := app.platform.Startup(cfg.Name, cfg.StartPosX, cfg.StartPosY, cfg.StartWidth, cfg.StartHeight); err != nil {
		return fail(err)
	}
	app.state.platformStarted = true

	if err := app.bringUpRenderer(); err != nil {
		return fail(err)
	}
	app.state.rendererInitialized = true

	if cfg.HotReload {
		if err := app.startModuleWatcher(); err != nil {
			return fail(err)
		}
	}

	if app.game.FnInitialize != nil {
		if err := app.game.FnInitialize(app); err != nil {
			return fail(fmt.Errorf("game initialization failed: %w", err))
		}
	}
	if app.game.FnOnResize != nil {
		app.game.FnOnResize(app, app.state.width, app.state.height)
	}

	return app.transition(ApplicationStageInitializing, ApplicationStageInitialized)
}

func (app *Application) bringUpRenderer() error {
	if app.renderer == nil {
		if app.config.RendererLibrary != "" {
			backend, handle, err := LoadRendererModule(app.config.RendererLibrary)
			if err != nil {
				return err
			}
			app.rendererModule = handle
			app.renderer = renderer.New(backend)
		} else {
			app.renderer = renderer.New(renderer.NewHeadlessBackend())
		}
	}
	return app.renderer.Initialize(app.config.Name, app.state.width, app.state.height)
}

func (app *Application) startModuleWatcher() error {
	if app.gameModule == nil && app.rendererModule == nil {
		core.LogWarn("hot reload requested but no module images are loaded, skipping watcher")
		return nil
	}
	w, err := modules.NewWatcher()
	if err != nil {
		return err
	}
	if app.gameModule != nil {
		if err := w.Watch(app.gameModule.Name(), app.gameModule.Path()); err != nil {
			_ = w.Close()
			return err
		}
	}
	if app.rendererModule != nil {
		if err := w.Watch(app.rendererModule.Name(), app.rendererModule.Path()); err != nil {
			_ = w.Close()
			return err
		}
	}
	app.watcher = w
	return nil
}

// Shutdown performs a best-effort release of everything brought up so far.
// It runs at most once, never fails teardown, and is guaranteed on every
// path that reached boot-complete.
func (app *Application) Shutdown() {
	stageAtCall := app.stage
	app.stage = ApplicationStageShuttingDown
	app.state.shutdownOnce.Do(func() {
		// Before boot completes there is nothing to tear down, but the
		// decision is terminal: a later call must not run teardown either.
		if stageAtCall == ApplicationStageUninitialized || stageAtCall == ApplicationStageBooting {
			return
		}
		core.LogInfo("shutting down")

		if app.game.FnShutdown != nil {
			app.game.FnShutdown(app)
		}
		if app.watcher != nil {
			if err := app.watcher.Close(); err != nil {
				core.LogWarn("module watcher shutdown: %s", err)
			}
		}
		if app.state.rendererInitialized {
			if err := app.renderer.Shutdown(); err != nil {
				core.LogWarn("renderer shutdown: %s", err)
			}
		}
		if app.state.eventsInitialized {
			if err := core.EventSystemShutdown(); err != nil {
				core.LogWarn("event system shutdown: %s", err)
			}
		}
		if app.state.platformStarted {
			if err := app.platform.Shutdown(); err != nil {
				core.LogWarn("platform shutdown: %s", err)
			}
		}
	})
}

// RequestQuit asks the run loop to stop at the next frame boundary. Safe to
// call from any goroutine, e.g. a host signal handler.
func (app *Application) RequestQuit() {
	app.quitRequested.Store(true)
}

// Stage reports the current lifecycle stage.
func (app *Application) Stage() Stage {
	return app.stage
}

// Config is read-only after boot completes.
func (app *Application) Config() *ApplicationConfig {
	return app.config
}

// FrameArena is the per-frame allocator. Blocks are valid until the next
// frame's reset, never longer.
func (app *Application) FrameArena() *memory.LinearAllocator {
	return app.frameArena
}

// FrameData is this frame's draw-record staging area.
func (app *Application) FrameData() *FrameData {
	return app.frameData
}

// GameState passes the game-owned state block through untouched.
func (app *Application) GameState() interface{} {
	return app.game.State
}

// SetGameState is called by game module code only; the engine never
// interprets the block.
func (app *Application) SetGameState(state interface{}) {
	app.game.State = state
}

// Size reports the current framebuffer dimensions.
func (app *Application) Size() (uint32, uint32) {
	return app.state.width, app.state.height
}

// Renderer exposes the front-end for resource creation (geometry upload).
func (app *Application) Renderer() *renderer.Renderer {
	return app.renderer
}

// FrameNumber reports the number of completed frames.
func (app *Application) FrameNumber() uint64 {
	return app.state.frameNumber
}

// transition enforces the strictly forward lifecycle order. ShuttingDown is
// terminal and entered through Shutdown only.
func (app *Application) transition(from, to Stage) error {
	if app.stage != from {
		return fmt.Errorf("invalid lifecycle transition to %s: stage is %s, want %s", to, app.stage, from)
	}
	core.LogDebug("application stage: %s -> %s", from, to)
	app.stage = to
	return nil
}
