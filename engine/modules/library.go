package modules

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kestrel-engine/kestrel/engine/core"
)

var (
	ErrNotLoaded     = errors.New("module not loaded")
	ErrAlreadyLoaded = errors.New("module already loaded")
	ErrSymbolMissing = errors.New("required symbol missing")
)

// SharedLibrary is the platform dynamic-module primitive behind a Handle.
// Production code uses the native loader (library_native.go); tests swap in
// static implementations to exercise the reload protocol without touching
// the real loader.
type SharedLibrary interface {
	Lookup(name string) (interface{}, error)
	Close() error
}

// Opener resolves a path to an open SharedLibrary.
type Opener func(path string) (SharedLibrary, error)

// Symbols maps required symbol names to their resolved values.
type Symbols map[string]interface{}

type HandleState uint8

const (
	HandleStateUnloaded HandleState = iota
	HandleStateLoaded
	HandleStateFailed
)

// ReloadHooks are the module-side callbacks of the hot-reload protocol.
// Validate runs against the staged symbol set of the new image before
// anything is swapped; returning an error refuses the reload and leaves the
// previous image authoritative. OnUnload then lets the outgoing code detach,
// and OnLoad lets the incoming code re-acquire transient handles against the
// still-live state blocks.
type ReloadHooks struct {
	Validate func(Symbols) error
	OnUnload func()
	OnLoad   func()
}

// Handle wraps one dynamically loaded module (game logic or renderer
// backend). A handle is either fully resolved, with every required symbol
// bound, or failed; partial binding is never a resting state.
type Handle struct {
	name     string
	path     string
	required []string
	open     Opener

	lib     SharedLibrary
	symbols Symbols
	state   HandleState
	version uuid.UUID
}

// HandleOption customizes a Handle at construction.
type HandleOption func(*Handle)

// WithOpener replaces the native loader, primarily for tests.
func WithOpener(open Opener) HandleOption {
	return func(h *Handle) {
		h.open = open
	}
}

func NewHandle(name, path string, required []string, options ...HandleOption) *Handle {
	h := &Handle{
		name:     name,
		path:     path,
		required: required,
		open:     openNative,
		state:    HandleStateUnloaded,
	}
	for _, o := range options {
		o(h)
	}
	return h
}

// Load opens the module image and resolves every required symbol. Resolution
// is all-or-nothing: a single missing symbol closes the image again and the
// handle stays unloaded.
func (h *Handle) Load() error {
	if h.state == HandleStateLoaded {
		return fmt.Errorf("module '%s': %w", h.name, ErrAlreadyLoaded)
	}
	lib, err := h.open(h.path)
	if err != nil {
		h.state = HandleStateFailed
		return fmt.Errorf("module '%s': opening %s: %w", h.name, h.path, err)
	}
	symbols, err := resolveAll(lib, h.required)
	if err != nil {
		_ = lib.Close()
		h.state = HandleStateFailed
		return fmt.Errorf("module '%s': %w", h.name, err)
	}
	h.lib = lib
	h.symbols = symbols
	h.state = HandleStateLoaded
	h.version = uuid.New()
	return nil
}

// Unload detaches the handle from its image. Symbol lookups are refused from
// here on; the image itself may stay mapped until process exit depending on
// the loader.
func (h *Handle) Unload() error {
	if h.state != HandleStateLoaded {
		return fmt.Errorf("module '%s': %w", h.name, ErrNotLoaded)
	}
	lib := h.lib
	h.lib = nil
	h.symbols = nil
	h.state = HandleStateUnloaded
	return lib.Close()
}

// Reload swaps the handle to a new module image, typically a rebuilt one at
// a fresh path. The protocol is best-effort atomic: the new image is opened,
// fully resolved and validated first, and any failure leaves the previous
// image loaded and its symbol table callable. Only once the new image is
// known good do OnUnload, the swap, and OnLoad run, in that order.
func (h *Handle) Reload(path string, hooks ReloadHooks) error {
	if h.state != HandleStateLoaded {
		return fmt.Errorf("module '%s': reload: %w", h.name, ErrNotLoaded)
	}

	lib, err := h.open(path)
	if err != nil {
		return fmt.Errorf("module '%s': reload: opening %s: %w", h.name, path, err)
	}
	symbols, err := resolveAll(lib, h.required)
	if err != nil {
		_ = lib.Close()
		return fmt.Errorf("module '%s': reload refused: %w", h.name, err)
	}
	if hooks.Validate != nil {
		if err := hooks.Validate(symbols); err != nil {
			_ = lib.Close()
			return fmt.Errorf("module '%s': reload refused: %w", h.name, err)
		}
	}

	if hooks.OnUnload != nil {
		hooks.OnUnload()
	}

	old := h.lib
	h.lib = lib
	h.symbols = symbols
	h.path = path
	h.version = uuid.New()
	if err := old.Close(); err != nil {
		// Advisory only; the swap already happened and the new image is
		// authoritative, so the protocol still completes.
		core.LogWarn("module '%s': previous image close: %s", h.name, err)
	}

	if hooks.OnLoad != nil {
		hooks.OnLoad()
	}
	return nil
}

// Symbol returns a resolved symbol by name.
func (h *Handle) Symbol(name string) (interface{}, bool) {
	if h.state != HandleStateLoaded {
		return nil, false
	}
	s, ok := h.symbols[name]
	return s, ok
}

// Symbols returns the full resolved table.
func (h *Handle) Symbols() Symbols {
	return h.symbols
}

func (h *Handle) Name() string {
	return h.name
}

func (h *Handle) Path() string {
	return h.path
}

func (h *Handle) State() HandleState {
	return h.state
}

// Version identifies the currently loaded image; it changes on every
// successful Load/Reload.
func (h *Handle) Version() uuid.UUID {
	return h.version
}

func resolveAll(lib SharedLibrary, required []string) (Symbols, error) {
	symbols := make(Symbols, len(required))
	for _, name := range required {
		s, err := lib.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("symbol '%s': %w: %s", name, ErrSymbolMissing, err)
		}
		symbols[name] = s
	}
	return symbols, nil
}
