// Package yamladapter is the YAML implementation of config.Loader, for
// authors who prefer YAML over HCL. Both loaders produce the identical
// unified model; the app picks one by file extension.
//
//	story:
//	  prefetch_threshold: 0.6
//	sections:
//	  - id: intro
//	    block: hero
//	    assets: { model: "cdn://intro/model" }
//	    keyframes:
//	      - t: 0
//	        values: { opacity: 0 }
//	      - t: 1
//	        easing: ease-out
//	        values: { opacity: 1 }
package yamladapter

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/scrollstory/internal/config"
	"github.com/vk/scrollstory/internal/ctxlog"
	"github.com/vk/scrollstory/internal/timeline"
)

// Loader parses YAML story manifests.
type Loader struct{}

// NewLoader creates a new YAML manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileRoot struct {
	Story    *storySection  `yaml:"story"`
	Sections []*sectionNode `yaml:"sections"`
}

type storySection struct {
	PrefetchThreshold  *float64 `yaml:"prefetch_threshold"`
	DisposeDistance    *int     `yaml:"dispose_distance"`
	MaxConcurrentLoads *int     `yaml:"max_concurrent_loads"`
	MemoryBudgetMB     *int     `yaml:"memory_budget_mb"`
}

type sectionNode struct {
	ID            string            `yaml:"id"`
	Block         string            `yaml:"block"`
	Assets        map[string]string `yaml:"assets"`
	Params        map[string]any    `yaml:"params"`
	DefaultEasing string            `yaml:"default_easing"`
	Loop          bool              `yaml:"loop"`
	Keyframes     []*keyframeNode   `yaml:"keyframes"`
}

type keyframeNode struct {
	T      float64        `yaml:"t"`
	Easing string         `yaml:"easing"`
	Values map[string]any `yaml:"values"`
}

// Load implements config.Loader for a single YAML manifest file.
func (l *Loader) Load(ctx context.Context, path string) (*config.Manifest, error) {
	logger := ctxlog.FromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var root fileRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}

	manifest := &config.Manifest{Settings: translateSettings(root.Story)}
	for _, sec := range root.Sections {
		manifest.Sections = append(manifest.Sections, translateSection(sec))
	}

	logger.Debug("YAML manifest loaded.", "path", path, "sections", len(manifest.Sections))
	return manifest, nil
}

func translateSettings(story *storySection) config.Settings {
	settings := config.DefaultSettings()
	if story == nil {
		return settings
	}
	if story.PrefetchThreshold != nil {
		settings.PrefetchThreshold = *story.PrefetchThreshold
	}
	if story.DisposeDistance != nil {
		settings.DisposeDistance = *story.DisposeDistance
	}
	if story.MaxConcurrentLoads != nil {
		settings.MaxConcurrentLoads = *story.MaxConcurrentLoads
	}
	if story.MemoryBudgetMB != nil {
		settings.MemoryBudgetMB = *story.MemoryBudgetMB
	}
	return settings
}

func translateSection(sec *sectionNode) *config.Section {
	out := &config.Section{
		ID:            sec.ID,
		BlockType:     sec.Block,
		AssetRefs:     sec.Assets,
		Params:        sec.Params,
		DefaultEasing: sec.DefaultEasing,
		LoopTimeline:  sec.Loop,
	}
	for _, kf := range sec.Keyframes {
		out.Keyframes = append(out.Keyframes, timeline.Keyframe{
			T:      kf.T,
			Easing: kf.Easing,
			Values: kf.Values,
		})
	}
	return out
}
