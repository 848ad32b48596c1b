// Package config holds the format-agnostic manifest model. Concrete loaders
// (HCL, YAML) translate their syntax into this model; everything downstream
// of validation consumes only these types.
package config

import (
	"context"

	"github.com/vk/scrollstory/internal/timeline"
)

// Settings are the global engine knobs from the manifest's story block.
type Settings struct {
	// PrefetchThreshold is the progress at which the next section's assets
	// are speculatively enqueued.
	PrefetchThreshold float64
	// DisposeDistance is the section-index gap beyond which a mounted
	// section is torn down.
	DisposeDistance int
	// MaxConcurrentLoads bounds simultaneous asset loads.
	MaxConcurrentLoads int
	// MemoryBudgetMB caps estimated asset memory. Zero means derive a
	// default from system memory.
	MemoryBudgetMB int
}

// DefaultSettings returns the engine defaults applied when the manifest
// omits a knob.
func DefaultSettings() Settings {
	return Settings{
		PrefetchThreshold:  0.6,
		DisposeDistance:    2,
		MaxConcurrentLoads: 4,
	}
}

// Section is one scroll-linked presentation unit's immutable configuration.
type Section struct {
	ID        string
	BlockType string
	// AssetRefs maps a block-local key to an asset id understood by the
	// external loader.
	AssetRefs map[string]string
	Params    map[string]any
	Keyframes []timeline.Keyframe
	// LoopTimeline makes the section's timeline wrap instead of clamp.
	LoopTimeline bool
	// DefaultEasing applies to keyframes without an explicit easing.
	DefaultEasing string
}

// Manifest is the complete declarative configuration for one story run.
type Manifest struct {
	Settings Settings
	Sections []*Section
}

// SectionIndex returns the position of a section id in manifest order, or -1.
func (m *Manifest) SectionIndex(id string) int {
	for i, sec := range m.Sections {
		if sec.ID == id {
			return i
		}
	}
	return -1
}

// Loader turns a manifest file into the unified model. Implementations are
// chosen by file extension in the app layer.
type Loader interface {
	Load(ctx context.Context, path string) (*Manifest, error)
}
