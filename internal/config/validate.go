package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/scrollstory/internal/block"
	"github.com/vk/scrollstory/internal/ctxlog"
	"github.com/vk/scrollstory/internal/timeline"
)

// Validate checks the manifest against the block registry and reports every
// problem found in one error. A non-nil return is fatal: nothing may go live
// on a manifest that fails validation. This is the only place in the engine
// allowed to abort a run.
func Validate(ctx context.Context, m *Manifest, blocks *block.Registry) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	s := m.Settings
	if s.PrefetchThreshold <= 0 || s.PrefetchThreshold > 1 {
		errs = append(errs, fmt.Sprintf("settings: prefetch_threshold %v outside (0,1]", s.PrefetchThreshold))
	}
	if s.DisposeDistance < 1 {
		errs = append(errs, fmt.Sprintf("settings: dispose_distance %d must be at least 1", s.DisposeDistance))
	}
	if s.MaxConcurrentLoads < 1 {
		errs = append(errs, fmt.Sprintf("settings: max_concurrent_loads %d must be at least 1", s.MaxConcurrentLoads))
	}
	if s.MemoryBudgetMB < 0 {
		errs = append(errs, fmt.Sprintf("settings: memory_budget_mb %d must not be negative", s.MemoryBudgetMB))
	}

	seen := make(map[string]struct{})
	for i, sec := range m.Sections {
		where := fmt.Sprintf("section %d", i)
		if sec.ID == "" {
			errs = append(errs, where+": missing id")
		} else {
			where = fmt.Sprintf("section %q", sec.ID)
			if _, dup := seen[sec.ID]; dup {
				errs = append(errs, where+": duplicate id")
			}
			seen[sec.ID] = struct{}{}
		}

		if sec.BlockType == "" {
			errs = append(errs, where+": missing block type")
		} else if blocks != nil && !blocks.Has(sec.BlockType) {
			errs = append(errs, fmt.Sprintf("%s: unknown block type %q", where, sec.BlockType))
		}

		tl, err := timeline.New(sec.Keyframes, timeline.Options{
			Loop:          sec.LoopTimeline,
			DefaultEasing: sec.DefaultEasing,
		})
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", where, err))
			continue
		}
		if tl.SyntheticStart() {
			// Possibly an authoring slip: the first keyframe's values are
			// silently cloned back to t=0.
			logger.Warn("timeline does not start at t=0; first keyframe cloned to t=0",
				"section", sec.ID)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("manifest validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
