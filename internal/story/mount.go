package story

import (
	"context"

	"github.com/vk/scrollstory/internal/block"
	"github.com/vk/scrollstory/internal/config"
	"github.com/vk/scrollstory/internal/ctxlog"
	"github.com/vk/scrollstory/internal/membudget"
)

// mount runs on a background goroutine: it only loads assets. Every state
// mutation (budget accounting, block instantiation, the mount hook) happens
// in the commit closure executed on the driving goroutine, guarded by the
// generation check so a completion arriving after disposal is discarded.
func (r *Runner) mount(ctx context.Context, cfg *config.Section, gen int) {
	assets := r.loadAssets(ctx, cfg)

	r.commits <- func() {
		sec := r.sections[cfg.ID]
		if sec.generation != gen || sec.state != Mounting {
			ctxlog.FromContext(r.ctx).Debug("discarding stale mount completion",
				"section", cfg.ID, "generation", gen)
			return
		}
		r.commitMount(sec, assets)
	}
}

// loadAssets routes every referenced asset through the prefetch manager, so
// demand loads share one concurrency bound with speculative lookahead and an
// asset whose prefetch is still in flight is waited on, not dispatched again.
// Failed loads are simply absent from the returned map; the block mounts
// degraded.
func (r *Runner) loadAssets(ctx context.Context, cfg *config.Section) map[string]any {
	assets := make(map[string]any, len(cfg.AssetRefs))
	if len(cfg.AssetRefs) == 0 {
		return assets
	}

	ids := make([]string, 0, len(cfg.AssetRefs))
	for _, assetID := range cfg.AssetRefs {
		ids = append(ids, assetID)
	}
	handles := r.deps.Prefetcher.Fetch(ctx, cfg.ID, ids, mountPriority)

	for key, assetID := range cfg.AssetRefs {
		if handle, ok := handles[assetID]; ok {
			assets[key] = handle
		}
	}
	return assets
}

// commitMount applies budget checks, instantiates the block, and runs its
// mount hook. Runs on the driving goroutine.
func (r *Runner) commitMount(sec *sectionState, assets map[string]any) {
	logger := ctxlog.FromContext(r.ctx).With("section", sec.cfg.ID)

	kept := make(map[string]any, len(assets))
	for key, handle := range assets {
		size := membudget.EstimateAsset(handle)
		if !r.deps.Budget.Allocate(sec.cfg.ID, size) {
			// Refusal is advisory: proceed without this asset.
			logger.Warn("memory budget refused asset",
				"asset", sec.cfg.AssetRefs[key], "bytes", size,
				"usedPercent", r.deps.Budget.UsagePercent())
			continue
		}
		kept[key] = handle
	}

	blk, err := r.deps.Blocks.New(sec.cfg.BlockType)
	if err != nil {
		// Unknown types are caught at validation; reaching this means the
		// registry changed underneath us. Degrade, don't crash.
		logger.Error("block instantiation failed", "error", err)
		blk = block.Noop{}
	}

	mc := block.MountContext{
		Scene:  r.deps.Scene,
		Assets: kept,
		Params: sec.cfg.Params,
	}
	if mountErr := r.safeMount(blk, mc); mountErr != nil {
		logger.Error("block mount failed, substituting no-op block", "error", mountErr)
		blk = block.Noop{}
	}

	sec.blk = blk
	sec.assets = kept
	sec.state = Mounted
	sec.cancelMount = nil
	logger.Debug("section mounted", "assets", len(kept))
}

// safeMount invokes the mount hook, converting panics into errors.
func (r *Runner) safeMount(blk block.Block, mc block.MountContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recoveredError("mount", rec)
		}
	}()
	return blk.Mount(r.ctx, mc)
}

// safeUpdate forwards interpolated state to the block; a panic substitutes
// the no-op block so the run continues for every other section.
func (r *Runner) safeUpdate(sec *sectionState, uc block.UpdateContext) {
	defer func() {
		if rec := recover(); rec != nil {
			ctxlog.FromContext(r.ctx).Error("block update panicked, substituting no-op block",
				"section", sec.cfg.ID, "panic", rec)
			sec.blk = block.Noop{}
		}
	}()
	sec.blk.Update(uc)
}

// safeDispose runs the dispose hook, swallowing panics.
func (r *Runner) safeDispose(sec *sectionState) {
	defer func() {
		if rec := recover(); rec != nil {
			ctxlog.FromContext(r.ctx).Error("block dispose panicked",
				"section", sec.cfg.ID, "panic", rec)
		}
	}()
	sec.blk.Dispose()
}

func recoveredError(hook string, rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return &hookPanicError{hook: hook, value: rec}
}

type hookPanicError struct {
	hook  string
	value any
}

func (e *hookPanicError) Error() string {
	return "panic in block " + e.hook + " hook"
}
