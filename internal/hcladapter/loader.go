// Package hcladapter is the HCL implementation of config.Loader. A manifest
// is a single .hcl file with one optional story settings block and any number
// of section blocks:
//
//	story {
//	  prefetch_threshold   = 0.6
//	  dispose_distance     = 2
//	  max_concurrent_loads = 4
//	  memory_budget_mb     = 256
//	}
//
//	section "intro" {
//	  block  = "hero"
//	  assets = { model = "cdn://intro/model" }
//	  params = { title = "Welcome" }
//
//	  keyframe {
//	    t      = 0
//	    values = { opacity = 0 }
//	  }
//	  keyframe {
//	    t      = 1
//	    easing = "ease-out"
//	    values = { opacity = 1 }
//	  }
//	}
package hcladapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/scrollstory/internal/config"
	"github.com/vk/scrollstory/internal/ctxlog"
	"github.com/vk/scrollstory/internal/timeline"
)

// Loader parses HCL story manifests.
type Loader struct{}

// NewLoader creates a new HCL manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileRoot struct {
	Story    *storyBlock     `hcl:"story,block"`
	Sections []*sectionBlock `hcl:"section,block"`
}

type storyBlock struct {
	PrefetchThreshold  *float64 `hcl:"prefetch_threshold,optional"`
	DisposeDistance    *int     `hcl:"dispose_distance,optional"`
	MaxConcurrentLoads *int     `hcl:"max_concurrent_loads,optional"`
	MemoryBudgetMB     *int     `hcl:"memory_budget_mb,optional"`
}

type sectionBlock struct {
	ID            string            `hcl:"id,label"`
	Block         string            `hcl:"block"`
	Assets        map[string]string `hcl:"assets,optional"`
	Params        cty.Value         `hcl:"params,optional"`
	DefaultEasing string            `hcl:"default_easing,optional"`
	Loop          bool              `hcl:"loop,optional"`
	Keyframes     []*keyframeBlock  `hcl:"keyframe,block"`
}

type keyframeBlock struct {
	T      float64   `hcl:"t"`
	Easing string    `hcl:"easing,optional"`
	Values cty.Value `hcl:"values"`
}

// Load implements config.Loader for a single .hcl manifest file.
func (l *Loader) Load(ctx context.Context, path string) (*config.Manifest, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, diags)
	}

	manifest := &config.Manifest{Settings: translateSettings(root.Story)}
	for _, sec := range root.Sections {
		translated, err := translateSection(sec)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
		manifest.Sections = append(manifest.Sections, translated)
	}

	logger.Debug("HCL manifest loaded.", "path", path, "sections", len(manifest.Sections))
	return manifest, nil
}

func translateSettings(story *storyBlock) config.Settings {
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

func translateSection(sec *sectionBlock) (*config.Section, error) {
	params, err := objectToNative(sec.Params)
	if err != nil {
		return nil, fmt.Errorf("section %q: params: %w", sec.ID, err)
	}

	out := &config.Section{
		ID:            sec.ID,
		BlockType:     sec.Block,
		AssetRefs:     sec.Assets,
		Params:        params,
		DefaultEasing: sec.DefaultEasing,
		LoopTimeline:  sec.Loop,
	}
	for i, kf := range sec.Keyframes {
		values, err := objectToNative(kf.Values)
		if err != nil {
			return nil, fmt.Errorf("section %q: keyframe %d: %w", sec.ID, i, err)
		}
		out.Keyframes = append(out.Keyframes, timeline.Keyframe{
			T:      kf.T,
			Easing: kf.Easing,
			Values: values,
		})
	}
	return out, nil
}

// objectToNative converts an HCL object value into a map of native Go values.
func objectToNative(v cty.Value) (map[string]any, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}
	obj, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}
	return obj, nil
}
