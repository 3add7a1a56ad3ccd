// Headless is the no-device renderer backend built as a loadable module
// image:
//
//	go build -buildmode=plugin -o bin/headless.so ./plugins/headless
//
// The engine resolves New by name and uses its return value as the renderer
// capability table.
package main

import (
	"github.com/kestrel-engine/kestrel/engine/renderer"
)

// Required by buildmode=plugin; never run.
func main() {}

// New constructs this module's capability table.
func New() renderer.Backend {
	return renderer.NewHeadlessBackend()
}
