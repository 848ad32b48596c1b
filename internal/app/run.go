package app

import (
	"context"
	"fmt"

	"github.com/vk/scrollstory/internal/block"
	"github.com/vk/scrollstory/internal/ctxlog"
	"github.com/vk/scrollstory/internal/membudget"
	"github.com/vk/scrollstory/internal/motion"
	"github.com/vk/scrollstory/internal/prefetch"
	"github.com/vk/scrollstory/internal/story"
	"github.com/vk/scrollstory/internal/sweep"
)

// Run wires the engine together and drives the manifest through a full
// headless scroll sweep, printing the per-section summary to the app's
// output writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	budgetBytes := membudget.DefaultBudget()
	if a.manifest.Settings.MemoryBudgetMB > 0 {
		budgetBytes = int64(a.manifest.Settings.MemoryBudgetMB) << 20
	}
	tracker := membudget.New(budgetBytes)
	prefetcher := prefetch.New(ctx, a.assets, a.manifest.Settings.MaxConcurrentLoads)
	motionHandler := motion.NewHandler(motion.NewStaticSource(a.config.ReducedMotion))

	runner, err := story.New(ctx, story.Deps{
		Manifest:   a.manifest,
		Blocks:     a.blocks,
		Budget:     tracker,
		Prefetcher: prefetcher,
		Motion:     motionHandler,
		Viewport:   block.ViewportSize{Width: 1280, Height: a.config.ViewportHeight},
	})
	if err != nil {
		return fmt.Errorf("failed to build story runner: %w", err)
	}
	defer runner.Shutdown()

	a.logger.Info("🎬 Starting scroll sweep...",
		"sections", len(a.manifest.Sections),
		"budget_mb", budgetBytes>>20,
		"reduced_motion", a.config.ReducedMotion)

	report := sweep.Run(ctx, a.manifest, runner, motionHandler, sweep.Options{
		SectionHeight:  a.config.SectionHeight,
		ViewportHeight: a.config.ViewportHeight,
		Step:           a.config.ScrollStep,
	})
	fmt.Fprint(a.outW, report.String())

	a.logger.Info("🏁 Sweep finished.", "memory_used_pct", fmt.Sprintf("%.1f", tracker.UsagePercent()))
	a.logger.Debug("App.Run method finished.")
	return nil
}
