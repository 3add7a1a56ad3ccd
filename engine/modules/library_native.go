package modules

import (
	"plugin"
)

// nativeLibrary adapts the Go plugin loader to SharedLibrary.
type nativeLibrary struct {
	p *plugin.Plugin
}

func openNative(path string) (SharedLibrary, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &nativeLibrary{p: p}, nil
}

func (n *nativeLibrary) Lookup(name string) (interface{}, error) {
	return n.p.Lookup(name)
}

// Close is a detach, not an unmap: the Go runtime keeps plugin images mapped
// until process exit. A rebuilt module must therefore be loaded from a fresh
// path, which is how the build tooling names plugin images.
func (n *nativeLibrary) Close() error {
	n.p = nil
	return nil
}
