// Package state holds the sandbox game's state block. It lives outside the
// plugin's main package on purpose: a type declared in a plugin's main
// package gets a fresh identity with every rebuilt image, so a state block
// created by one image would fail the type assertion in the next. Declared
// here, the type is shared by every image and survives a hot-reload.
package state

import (
	"github.com/kestrel-engine/kestrel/engine/renderer/metadata"
)

// State is the game-owned block the engine passes through untouched.
type State struct {
	SpinAngle float32
	Reloads   uint32

	Quad *metadata.Geometry
}
