package story

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/scrollstory/internal/block"
	"github.com/vk/scrollstory/internal/config"
	"github.com/vk/scrollstory/internal/membudget"
	"github.com/vk/scrollstory/internal/motion"
	"github.com/vk/scrollstory/internal/prefetch"
	"github.com/vk/scrollstory/internal/scrolldriver"
	"github.com/vk/scrollstory/internal/timeline"
)

// recBlock records every lifecycle call. All hooks run on the driving
// goroutine, so no locking is needed.
type recBlock struct {
	mountParams map[string]any
	mountAssets map[string]any
	updates     []block.UpdateContext
	disposed    int

	failMount   bool
	panicUpdate bool
}

func (b *recBlock) Mount(_ context.Context, mc block.MountContext) error {
	b.mountParams = mc.Params
	b.mountAssets = mc.Assets
	if b.failMount {
		return errors.New("mount exploded")
	}
	return nil
}

func (b *recBlock) Update(uc block.UpdateContext) {
	if b.panicUpdate {
		panic("update exploded")
	}
	b.updates = append(b.updates, uc)
}

func (b *recBlock) Dispose() { b.disposed++ }

// instantLoader returns fixed-size byte handles immediately.
type instantLoader struct{ size int }

func (l *instantLoader) Load(_ context.Context, assetID string) (any, error) {
	n := l.size
	if n == 0 {
		n = 1024
	}
	return make([]byte, n), nil
}

// gatedLoader blocks every load until the gate closes.
type gatedLoader struct{ gate chan struct{} }

func (l *gatedLoader) Load(_ context.Context, assetID string) (any, error) {
	<-l.gate
	return make([]byte, 64), nil
}

// trackingLoader counts per-asset dispatches and peak concurrency, holding
// every load until the gate closes.
type trackingLoader struct {
	mu         sync.Mutex
	gate       chan struct{}
	dispatches map[string]int
	inFlight   int
	peak       int
}

func (l *trackingLoader) Load(_ context.Context, assetID string) (any, error) {
	l.mu.Lock()
	l.dispatches[assetID]++
	l.inFlight++
	if l.inFlight > l.peak {
		l.peak = l.inFlight
	}
	l.mu.Unlock()

	<-l.gate

	l.mu.Lock()
	l.inFlight--
	l.mu.Unlock()
	return make([]byte, 64), nil
}

type fixture struct {
	runner  *Runner
	blocks  []*recBlock
	budget  *membudget.Tracker
	fetcher *prefetch.Manager
	ids     []string
}

// newFixture builds a runner over n sections with an opacity 0→1 timeline
// and one asset each.
func newFixture(t *testing.T, n int, loader prefetch.Loader, mutate func(*config.Manifest)) *fixture {
	t.Helper()

	f := &fixture{}
	reg := block.NewRegistry()
	reg.Register("rec", func() block.Block {
		b := &recBlock{}
		f.blocks = append(f.blocks, b)
		return b
	})

	m := &config.Manifest{Settings: config.DefaultSettings()}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("sec%d", i)
		f.ids = append(f.ids, id)
		m.Sections = append(m.Sections, &config.Section{
			ID:        id,
			BlockType: "rec",
			AssetRefs: map[string]string{"main": "asset-" + id},
			Params:    map[string]any{"name": id},
			Keyframes: []timeline.Keyframe{
				{T: 0, Values: map[string]any{"opacity": 0.0}},
				{T: 1, Values: map[string]any{"opacity": 1.0}},
			},
		})
	}
	if mutate != nil {
		mutate(m)
	}

	ctx := context.Background()
	f.budget = membudget.New(64 << 20)
	f.fetcher = prefetch.New(ctx, loader, m.Settings.MaxConcurrentLoads)

	r, err := New(ctx, Deps{
		Manifest:   m,
		Blocks:     reg,
		Budget:     f.budget,
		Prefetcher: f.fetcher,
		Motion:     motion.NewHandler(motion.NewStaticSource(false)),
		Viewport:   block.ViewportSize{Width: 1920, Height: 1080},
	})
	require.NoError(t, err)
	f.runner = r
	return f
}

func (f *fixture) waitState(t *testing.T, id string, want LifecycleState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.runner.Tick()
		if f.runner.State(id) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("section %s never reached %s (now %s)", id, want, f.runner.State(id))
}

func progressEvent(id string, p float64) scrolldriver.ProgressEvent {
	return scrolldriver.ProgressEvent{ID: id, Progress: p}
}

func TestEnter_MountsSection(t *testing.T) {
	f := newFixture(t, 1, &instantLoader{}, nil)

	f.runner.HandleEnter("sec0")
	assert.Equal(t, Mounting, f.runner.State("sec0"))
	f.waitState(t, "sec0", Mounted)

	require.Len(t, f.blocks, 1)
	assert.Equal(t, "sec0", f.blocks[0].mountParams["name"])
	assert.Contains(t, f.blocks[0].mountAssets, "main")
	assert.Positive(t, f.budget.SectionAllocation("sec0"))
}

func TestProgress_OpacitySequenceExact(t *testing.T) {
	f := newFixture(t, 1, &instantLoader{}, nil)
	f.runner.HandleEnter("sec0")
	f.waitState(t, "sec0", Mounted)

	for _, p := range []float64{0, 0.25, 0.5, 1} {
		f.runner.HandleProgress(progressEvent("sec0", p))
	}

	var got []float64
	for _, uc := range f.blocks[0].updates {
		got = append(got, uc.State["opacity"].(float64))
	}
	assert.Equal(t, []float64{0, 0.25, 0.5, 1}, got)
}

func TestDisposalSweep_BoundsMountedSections(t *testing.T) {
	f := newFixture(t, 5, &instantLoader{}, nil)

	// Walk the story top to bottom, mounting each section as it becomes
	// active, ending with a progress tick on index 4.
	for _, id := range f.ids {
		f.runner.HandleEnter(id)
		f.waitState(t, id, Mounted)
		f.runner.HandleProgress(progressEvent(id, 0.5))
	}

	// With disposeDistance=2 and the active index at 4, indices 0 and 1
	// must each have been disposed exactly once with their memory freed.
	for _, id := range []string{"sec0", "sec1"} {
		assert.Equal(t, Disposed, f.runner.State(id), id)
		assert.Equal(t, 1, f.runner.DisposeCount(id), id)
		assert.Equal(t, int64(0), f.budget.SectionAllocation(id), id)
	}
	for _, id := range []string{"sec2", "sec3", "sec4"} {
		assert.Equal(t, Mounted, f.runner.State(id), id)
	}
	// The dispose hooks ran exactly once on the right blocks.
	assert.Equal(t, 1, f.blocks[0].disposed)
	assert.Equal(t, 1, f.blocks[1].disposed)
	assert.Equal(t, 0, f.blocks[4].disposed)
}

func TestProgress_CrossingThresholdPrefetchesNext(t *testing.T) {
	f := newFixture(t, 2, &instantLoader{}, nil)
	f.runner.HandleEnter("sec0")
	f.waitState(t, "sec0", Mounted)

	f.runner.HandleProgress(progressEvent("sec0", 0.7))

	require.Eventually(t, func() bool { return f.fetcher.IsLoaded("sec1") },
		2*time.Second, time.Millisecond, "next section's assets were not prefetched")
	_, ok := f.fetcher.Handle("asset-sec1")
	assert.True(t, ok)
}

func TestMount_ReusesPrefetchedHandles(t *testing.T) {
	f := newFixture(t, 2, &instantLoader{}, nil)
	f.runner.HandleEnter("sec0")
	f.waitState(t, "sec0", Mounted)
	f.runner.HandleProgress(progressEvent("sec0", 0.9))
	require.Eventually(t, func() bool { return f.fetcher.IsLoaded("sec1") },
		2*time.Second, time.Millisecond)

	f.runner.HandleEnter("sec1")
	f.waitState(t, "sec1", Mounted)
	assert.Contains(t, f.blocks[1].mountAssets, "main")
}

func TestEnter_DuringPrefetchInFlight_SharesDispatchAndCap(t *testing.T) {
	loader := &trackingLoader{gate: make(chan struct{}), dispatches: map[string]int{}}
	f := newFixture(t, 2, loader, func(m *config.Manifest) {
		m.Settings.MaxConcurrentLoads = 2
		m.Sections[1].AssetRefs = map[string]string{
			"a": "asset-sec1-a", "b": "asset-sec1-b", "c": "asset-sec1-c",
		}
	})

	// Crossing the threshold starts the lookahead for sec1.
	f.runner.HandleProgress(progressEvent("sec0", 0.7))
	// Fast scroll: sec1 becomes active while its prefetch is still gated.
	f.runner.HandleEnter("sec1")
	assert.Equal(t, Mounting, f.runner.State("sec1"))

	close(loader.gate)
	f.waitState(t, "sec1", Mounted)

	loader.mu.Lock()
	defer loader.mu.Unlock()
	for id, n := range loader.dispatches {
		assert.Equal(t, 1, n, "asset %s dispatched more than once", id)
	}
	assert.LessOrEqual(t, loader.peak, 2, "mount and prefetch loads exceeded the shared cap")
	require.Len(t, f.blocks, 1)
	assert.Len(t, f.blocks[0].mountAssets, 3)
}

func TestDispose_LateMountCompletionIsDiscarded(t *testing.T) {
	loader := &gatedLoader{gate: make(chan struct{})}
	f := newFixture(t, 1, loader, nil)

	f.runner.HandleEnter("sec0")
	assert.Equal(t, Mounting, f.runner.State("sec0"))

	// Tear down while the load is still in flight.
	f.runner.Shutdown()
	assert.Equal(t, Disposed, f.runner.State("sec0"))

	close(loader.gate)
	time.Sleep(20 * time.Millisecond)
	f.runner.Tick()

	// The late completion was discarded: no mount, no block, no allocation.
	assert.Equal(t, Disposed, f.runner.State("sec0"))
	assert.Empty(t, f.blocks)
	assert.Equal(t, int64(0), f.budget.Used())
}

func TestRemount_AfterDisposal(t *testing.T) {
	f := newFixture(t, 5, &instantLoader{}, nil)
	for _, id := range f.ids {
		f.runner.HandleEnter(id)
		f.waitState(t, id, Mounted)
		f.runner.HandleProgress(progressEvent(id, 0.5))
	}
	require.Equal(t, Disposed, f.runner.State("sec0"))

	// Scroll back to the top: sec0 becomes active again and remounts.
	f.runner.HandleEnter("sec0")
	f.waitState(t, "sec0", Mounted)
	assert.Positive(t, f.budget.SectionAllocation("sec0"))
}

func TestMountFailure_SubstitutesNoopBlock(t *testing.T) {
	f := newFixture(t, 1, &instantLoader{}, nil)
	// Make the factory produce a failing block for this test.
	f.runner.deps.Blocks = failingRegistry(f)

	f.runner.HandleEnter("sec0")
	f.waitState(t, "sec0", Mounted)

	// Updates flow without crashing; the recorded block saw no update
	// because the no-op replaced it.
	f.runner.HandleProgress(progressEvent("sec0", 0.5))
	assert.Empty(t, f.blocks[0].updates)
}

func failingRegistry(f *fixture) *block.Registry {
	reg := block.NewRegistry()
	reg.Register("rec", func() block.Block {
		b := &recBlock{failMount: true}
		f.blocks = append(f.blocks, b)
		return b
	})
	return reg
}

func TestUpdatePanic_SubstitutesNoopAndRunContinues(t *testing.T) {
	f := newFixture(t, 2, &instantLoader{}, nil)
	f.runner.HandleEnter("sec0")
	f.waitState(t, "sec0", Mounted)
	f.blocks[0].panicUpdate = true

	f.runner.HandleProgress(progressEvent("sec0", 0.3))
	// Subsequent ticks hit the substituted no-op; other sections still work.
	f.runner.HandleProgress(progressEvent("sec0", 0.4))

	f.runner.HandleEnter("sec1")
	f.waitState(t, "sec1", Mounted)
	f.runner.HandleProgress(progressEvent("sec1", 0.2))
	assert.Len(t, f.blocks[1].updates, 1)
}

func TestBudgetRefusal_DropsAssetButMounts(t *testing.T) {
	// Budget far smaller than the 1 KiB asset; allocation is refused and
	// the section mounts without it.
	f := newFixture(t, 1, &instantLoader{size: 2048}, nil)
	small := membudget.New(100)
	f.runner.deps.Budget = small

	f.runner.HandleEnter("sec0")
	f.waitState(t, "sec0", Mounted)

	assert.NotContains(t, f.blocks[0].mountAssets, "main")
	assert.Equal(t, int64(0), small.Used())
}

func TestAttach_WiresDriverEvents(t *testing.T) {
	f := newFixture(t, 1, &instantLoader{}, nil)

	vp := &stubViewport{height: 800}
	d := scrolldriver.New(vp, nil)
	d.RegisterSection(context.Background(), "sec0", stubElement{b: scrolldriver.Bounds{Top: 0, Bottom: 1000, Height: 1000}})
	f.runner.Attach(d)

	d.Update()
	f.waitState(t, "sec0", Mounted)
	d.Update()
	assert.NotEmpty(t, f.blocks[0].updates)
}

type stubElement struct{ b scrolldriver.Bounds }

func (s stubElement) Rect() scrolldriver.Bounds { return s.b }

type stubViewport struct{ scrollY, height float64 }

func (s *stubViewport) ScrollY() float64 { return s.scrollY }
func (s *stubViewport) Height() float64  { return s.height }
