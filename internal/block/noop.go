package block

import "context"

// Noop is the block substituted when a section's real block fails during
// mount, update, or dispose. The run degrades to a blank section instead of
// terminating.
type Noop struct{}

// Mount implements Block.
func (Noop) Mount(context.Context, MountContext) error { return nil }

// Update implements Block.
func (Noop) Update(UpdateContext) {}

// Dispose implements Block.
func (Noop) Dispose() {}
