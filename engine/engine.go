package engine

import (
	"github.com/kestrel-engine/kestrel/engine/core"
	"github.com/kestrel-engine/kestrel/engine/math"
	"github.com/kestrel-engine/kestrel/engine/renderer/metadata"
)

// Run drives the per-frame update/render pair until the window closes, quit
// is requested, or a lifecycle-critical callback fails. A single goroutine
// owns the whole loop; update, render, resize delivery and module reloads
// are never concurrent with each other. Shutdown is guaranteed on exit.
func (app *Application) Run() error {
	if err := app.transition(ApplicationStageInitialized, ApplicationStageRunning); err != nil {
		return err
	}
	defer app.Shutdown()

	st := app.state
	st.isRunning = true
	st.clock.Start()
	st.clock.Update()
	st.lastTime = st.clock.Elapsed()

	targetFrameSeconds := 1.0 / float64(app.config.TargetFrameRate)

	var runErr error
	for st.isRunning {
		if !app.platform.PumpMessages() {
			st.isRunning = false
			break
		}
		if app.quitRequested.Load() {
			st.isRunning = false
			break
		}

		// Frame boundary: side-band notifications and module swaps land
		// here, never inside an update/render pair.
		app.applyPendingResizes()
		app.applyPendingReloads()

		if st.isSuspended {
			app.platform.Sleep(100)
			continue
		}

		st.clock.Update()
		currentTime := st.clock.Elapsed()
		delta := currentTime - st.lastTime
		frameStartTime := currentTime

		// New arena epoch; every transient allocation of the previous frame
		// is gone from here.
		app.frameArena.FreeAll()
		app.frameData.reset(app.frameArena.Epoch())

		if err := app.game.FnUpdate(app, delta); err != nil {
			core.LogError("game update failed, shutting down: %s", err)
			runErr = err
			st.isRunning = false
			break
		}

		packet := &metadata.RenderPacket{
			DeltaTime:        delta,
			ViewMatrix:       math.NewMat4Identity(),
			ProjectionMatrix: math.NewMat4Identity(),
		}
		if err := app.game.FnRender(app, packet, delta); err != nil {
			core.LogError("game render failed, shutting down: %s", err)
			runErr = err
			st.isRunning = false
			break
		}

		if err := app.renderer.DrawFrame(packet); err != nil {
			core.LogError("frame draw failed, shutting down: %s", err)
			runErr = err
			st.isRunning = false
			break
		}

		st.clock.Update()
		frameElapsedTime := st.clock.Elapsed() - frameStartTime
		core.MetricsUpdate(frameElapsedTime)

		remainingSeconds := targetFrameSeconds - frameElapsedTime
		if remainingSeconds > 0 && app.config.LimitFrameRate {
			// Give the leftover budget back to the OS.
			app.platform.Sleep(remainingSeconds*1000 - 1)
		}

		st.frameNumber++
		st.lastTime = currentTime
	}

	return runErr
}

func (app *Application) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("application quit event received, shutting down")
		app.state.isRunning = false
	}
}

// onResized only queues; the size is applied at the next frame boundary so a
// render pass never observes a mid-frame size change.
func (app *Application) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event payload for event type `%d`", context.Type)
		return
	}
	app.resizeQueue.EnqueueLatest(se)
}

// applyPendingResizes coalesces queued resize notifications down to the most
// recent one and delivers it between frames. Zero-sized targets suspend the
// frame loop until the window is restored.
func (app *Application) applyPendingResizes() {
	var latest *core.SystemEvent
	for !app.resizeQueue.IsEmpty() {
		v, err := app.resizeQueue.Dequeue()
		if err != nil {
			break
		}
		latest = v.(*core.SystemEvent)
	}
	if latest == nil {
		return
	}

	width := latest.WindowWidth
	height := latest.WindowHeight

	// Handle minimization.
	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending application")
		app.state.isSuspended = true
		return
	}
	if app.state.isSuspended {
		core.LogInfo("window restored, resuming application")
		app.state.isSuspended = false
	}
	if width == app.state.width && height == app.state.height {
		return
	}

	core.LogDebug("window resize: %d, %d", width, height)
	app.state.width = width
	app.state.height = height

	if app.game.FnOnResize != nil {
		app.game.FnOnResize(app, width, height)
	}
	w := uint16(math.Clamp(width, 1, 0xFFFF))
	h := uint16(math.Clamp(height, 1, 0xFFFF))
	if err := app.renderer.OnResized(w, h); err != nil {
		core.LogError("renderer resize: %s", err)
	}
}

// applyPendingReloads services hot-reload requests queued by the module
// watcher. Runs only at the frame boundary; a failed reload is reported and
// the previous module stays authoritative.
func (app *Application) applyPendingReloads() {
	if app.watcher == nil {
		return
	}
	for {
		select {
		case req := <-app.watcher.Requests():
			switch {
			case app.gameModule != nil && req.Module == app.gameModule.Name():
				app.reloadGameModule(req.Path)
			case app.rendererModule != nil && req.Module == app.rendererModule.Name():
				app.reloadRendererModule(req.Path)
			default:
				core.LogWarn("reload request for unknown module '%s' ignored", req.Module)
			}
		default:
			return
		}
	}
}
