// Package block defines the contract for pluggable visual blocks and the
// name-keyed registry they are resolved from. Block implementations live
// outside the engine; the orchestrator only drives their lifecycle.
package block

import "context"

// ViewportSize is the visible area passed to blocks on update.
type ViewportSize struct {
	Width  float64
	Height float64
}

// MountContext carries everything a block needs to come alive: opaque scene
// handles from the rendering backend, whichever assets loaded successfully,
// and the section's authored params.
type MountContext struct {
	Scene  any
	Assets map[string]any
	Params map[string]any
}

// UpdateContext is passed to a mounted block once per evaluated frame.
type UpdateContext struct {
	Progress float64
	Time     float64
	Viewport ViewportSize
	State    map[string]any
}

// Block is the external contract for a section's visual implementation.
type Block interface {
	Mount(ctx context.Context, mc MountContext) error
	Update(uc UpdateContext)
	Dispose()
}

// Factory creates a fresh block instance for one mount. Blocks are never
// reused across mounts; a remounted section gets a new instance.
type Factory func() Block
