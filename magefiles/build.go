//go:build mage

package main

import (
	"fmt"
	"time"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the host engine binary.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/kestrel", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the sandbox game module image. Images are stamped so a rebuild
// lands on a fresh path, which is what the hot-reload watcher looks for.
func (Build) Sandbox() error {
	out := fmt.Sprintf("bin/sandbox_%d.so", time.Now().Unix())
	if _, err := executeCmd("go", withArgs("build", "-buildmode=plugin", "-o", out, "./plugins/sandbox"), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the headless renderer module image.
func (Build) Headless() error {
	out := fmt.Sprintf("bin/headless_%d.so", time.Now().Unix())
	if _, err := executeCmd("go", withArgs("build", "-buildmode=plugin", "-o", out, "./plugins/headless"), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the host and both module images.
func (Build) All() {
	mg.SerialDeps(Build.Engine, Build.Sandbox, Build.Headless)
}
