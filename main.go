/*
Host executable: binds a game (static testbed or a game module image) to the
engine and drives its lifecycle.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kestrel-engine/kestrel/engine"
	"github.com/kestrel-engine/kestrel/engine/modules"
	"github.com/kestrel-engine/kestrel/engine/platform"
	"github.com/kestrel-engine/kestrel/testbed"
)

func main() {
	configPath := flag.String("config", "kestrel.toml", "application config file")
	gameLib := flag.String("game", "", "game module image (.so); empty binds the testbed statically")
	flag.Parse()

	var (
		game   *engine.Game
		handle *modules.Handle
		opts   []engine.Option
	)
	if *gameLib != "" {
		var err error
		game, handle, err = engine.LoadGameModule(*gameLib)
		if err != nil {
			panic(err)
		}
		opts = append(opts, engine.WithGameModule(handle))
	} else {
		game = testbed.NewTestGame(*configPath).Game
	}

	app, err := engine.New(game, platform.New(), opts...)
	if err != nil {
		panic(err)
	}

	if err := app.Boot(); err != nil {
		panic(err)
	}

	if err := app.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		app.RequestQuit()
	}()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
