// Package story is the orchestrator binding scroll position to section
// lifecycle. It subscribes to the scroll driver, mounts and disposes section
// blocks, evaluates timelines per progress tick, and drives lookahead
// prefetching under the memory budget.
//
// All exported methods must be called from the single goroutine driving the
// frame loop. Asset loading runs on background goroutines, but every state
// mutation they produce is committed through a pending-op queue drained on
// the driving goroutine, so ordering stays deterministic without locks.
package story

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/scrollstory/internal/block"
	"github.com/vk/scrollstory/internal/config"
	"github.com/vk/scrollstory/internal/ctxlog"
	"github.com/vk/scrollstory/internal/membudget"
	"github.com/vk/scrollstory/internal/motion"
	"github.com/vk/scrollstory/internal/prefetch"
	"github.com/vk/scrollstory/internal/scrolldriver"
	"github.com/vk/scrollstory/internal/timeline"
)

// LifecycleState is a section's position in the mount/dispose cycle.
type LifecycleState int

const (
	Unmounted LifecycleState = iota
	Mounting
	Mounted
	Disposed
)

func (s LifecycleState) String() string {
	switch s {
	case Unmounted:
		return "unmounted"
	case Mounting:
		return "mounting"
	case Mounted:
		return "mounted"
	case Disposed:
		return "disposed"
	default:
		return fmt.Sprintf("LifecycleState(%d)", int(s))
	}
}

// prefetchPriority is the elevated priority used for lookahead enqueues;
// mountPriority outranks it so an entered section's assets jump the queue.
const (
	prefetchPriority = 10
	mountPriority    = 100
)

// Deps are the runner's injected collaborators, passed explicitly rather
// than held as process-wide singletons.
type Deps struct {
	Manifest *config.Manifest
	Blocks   *block.Registry
	Budget   *membudget.Tracker
	// Prefetcher is the single load path: mounts fetch through it so demand
	// and lookahead loads share one concurrency bound and in-flight set.
	Prefetcher *prefetch.Manager
	Motion     *motion.Handler
	// Scene is the opaque rendering-backend handle passed to blocks on mount.
	Scene any
	// Viewport is forwarded to blocks on update.
	Viewport block.ViewportSize
	// Clock overrides time.Now, for tests. Optional.
	Clock func() time.Time
}

type sectionState struct {
	cfg   *config.Section
	index int
	state LifecycleState

	tl  *motion.SnapTimeline
	blk block.Block
	// assets holds whichever loads succeeded; missing keys mean the load
	// failed and the block mounts degraded.
	assets map[string]any

	// generation invalidates in-flight mounts: a completion whose
	// generation no longer matches is discarded, never applied.
	generation  int
	cancelMount context.CancelFunc

	nextPrefetched bool
	disposals      int
}

// Runner is the orchestrator state machine.
type Runner struct {
	ctx  context.Context
	deps Deps

	sections map[string]*sectionState
	order    []string

	activeIndex int
	started     time.Time

	// commits carries mount completions back onto the driving goroutine.
	commits chan func()
}

// New builds a runner over a validated manifest. Timelines are constructed
// eagerly; an error here means the manifest skipped validation.
func New(ctx context.Context, deps Deps) (*Runner, error) {
	if deps.Manifest == nil || deps.Blocks == nil ||
		deps.Budget == nil || deps.Prefetcher == nil || deps.Motion == nil {
		return nil, fmt.Errorf("story runner: missing dependency")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	r := &Runner{
		ctx:         ctx,
		deps:        deps,
		sections:    make(map[string]*sectionState),
		activeIndex: -1,
		started:     deps.Clock(),
		commits:     make(chan func(), 4*len(deps.Manifest.Sections)+16),
	}
	for i, cfg := range deps.Manifest.Sections {
		tl, err := timeline.New(cfg.Keyframes, timeline.Options{
			Loop:          cfg.LoopTimeline,
			DefaultEasing: cfg.DefaultEasing,
		})
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", cfg.ID, err)
		}
		r.sections[cfg.ID] = &sectionState{
			cfg:   cfg,
			index: i,
			tl:    deps.Motion.Wrap(tl),
		}
		r.order = append(r.order, cfg.ID)
	}
	return r, nil
}

// Attach subscribes the runner to a scroll driver's events.
func (r *Runner) Attach(d *scrolldriver.Driver) {
	d.OnEnter(r.HandleEnter)
	d.OnExit(r.HandleExit)
	d.OnProgress(r.HandleProgress)
}

// Tick drains pending mount completions. The host calls it once per frame;
// HandleProgress also drains so scroll-driven hosts need no extra wiring.
func (r *Runner) Tick() {
	for {
		select {
		case op := <-r.commits:
			op()
		default:
			return
		}
	}
}

// HandleEnter transitions an unmounted section to Mounting and kicks off its
// asset loads.
func (r *Runner) HandleEnter(id string) {
	r.Tick()
	sec, ok := r.sections[id]
	if !ok {
		ctxlog.FromContext(r.ctx).Warn("enter for unknown section", "section", id)
		return
	}
	r.activeIndex = sec.index
	if sec.state != Unmounted && sec.state != Disposed {
		return
	}

	sec.state = Mounting
	sec.generation++
	gen := sec.generation
	mountCtx, cancel := context.WithCancel(r.ctx)
	sec.cancelMount = cancel

	go r.mount(mountCtx, sec.cfg, gen)
}

// HandleExit is informational; teardown is distance-based, not exit-based,
// so a section straddling the viewport edge is not churned.
func (r *Runner) HandleExit(id string) {
	sec, ok := r.sections[id]
	if !ok {
		return
	}
	sec.nextPrefetched = false
}

// HandleProgress evaluates the active section's timeline, forwards the
// interpolated state to its block, triggers lookahead prefetch past the
// threshold, and runs the disposal sweep.
func (r *Runner) HandleProgress(ev scrolldriver.ProgressEvent) {
	r.Tick()
	sec, ok := r.sections[ev.ID]
	if !ok {
		return
	}
	r.activeIndex = sec.index

	if sec.state == Mounted {
		state := sec.tl.Evaluate(ev.Progress)
		r.safeUpdate(sec, block.UpdateContext{
			Progress: ev.Progress,
			Time:     r.deps.Clock().Sub(r.started).Seconds(),
			Viewport: r.deps.Viewport,
			State:    state,
		})
	}

	if ev.Progress >= r.deps.Manifest.Settings.PrefetchThreshold && !sec.nextPrefetched {
		sec.nextPrefetched = true
		r.prefetchNext(sec.index)
	}

	r.disposalSweep()
}

// prefetchNext enqueues the following section's assets at elevated priority.
func (r *Runner) prefetchNext(index int) {
	next := index + 1
	if next >= len(r.order) {
		return
	}
	cfg := r.sections[r.order[next]].cfg
	ids := make([]string, 0, len(cfg.AssetRefs))
	for _, assetID := range cfg.AssetRefs {
		ids = append(ids, assetID)
	}
	ctxlog.FromContext(r.ctx).Debug("prefetching next section", "section", cfg.ID, "assets", len(ids))
	r.deps.Prefetcher.Enqueue(cfg.ID, ids, prefetchPriority)
}

// disposalSweep tears down mounted sections whose index distance from the
// active section exceeds the configured dispose distance. This bounds peak
// resource usage independent of total section count.
func (r *Runner) disposalSweep() {
	if r.activeIndex < 0 {
		return
	}
	maxDist := r.deps.Manifest.Settings.DisposeDistance
	for _, id := range r.order {
		sec := r.sections[id]
		if sec.state != Mounted {
			continue
		}
		dist := sec.index - r.activeIndex
		if dist < 0 {
			dist = -dist
		}
		if dist > maxDist {
			r.dispose(sec)
		}
	}
}

// dispose runs the block's dispose hook, frees the section's budget
// allocation, drops queued prefetch work, and returns the section to a
// remountable state. An in-flight mount for the section is cancelled; its
// late completion will be discarded by the generation check.
func (r *Runner) dispose(sec *sectionState) {
	logger := ctxlog.FromContext(r.ctx)
	logger.Debug("disposing section", "section", sec.cfg.ID)

	if sec.cancelMount != nil {
		sec.cancelMount()
		sec.cancelMount = nil
	}
	sec.generation++

	if sec.blk != nil {
		r.safeDispose(sec)
	}
	sec.blk = nil
	sec.assets = nil
	r.deps.Budget.Free(sec.cfg.ID)
	r.deps.Prefetcher.Clear(sec.cfg.ID)
	sec.state = Disposed
	sec.disposals++
	sec.nextPrefetched = false
}

// State returns a section's lifecycle state, for tests and debug overlays.
func (r *Runner) State(id string) LifecycleState {
	if sec, ok := r.sections[id]; ok {
		return sec.state
	}
	return Unmounted
}

// DisposeCount returns how many times a section has been disposed.
func (r *Runner) DisposeCount(id string) int {
	if sec, ok := r.sections[id]; ok {
		return sec.disposals
	}
	return 0
}

// Shutdown disposes every mounted section, for orderly teardown.
func (r *Runner) Shutdown() {
	r.Tick()
	for _, id := range r.order {
		sec := r.sections[id]
		if sec.state == Mounted || sec.state == Mounting {
			r.dispose(sec)
		}
	}
}
