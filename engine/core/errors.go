package core

import (
	"errors"
)

var (
	// ErrBackendBooting signals that the render target was resized or
	// recreated mid-frame; the frame is skipped, not failed.
	ErrBackendBooting = errors.New("render backend resized or recreated, booting")
	ErrUnknown        = errors.New("unknown")
)
