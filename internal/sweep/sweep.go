// Package sweep drives a story headlessly: it fabricates stacked section
// elements and a scripted viewport, then walks the scroll position from top
// to bottom, updating the driver and runner once per simulated frame. Used by
// the CLI to exercise a manifest end to end and by integration tests.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/scrollstory/internal/config"
	"github.com/vk/scrollstory/internal/ctxlog"
	"github.com/vk/scrollstory/internal/motion"
	"github.com/vk/scrollstory/internal/scrolldriver"
	"github.com/vk/scrollstory/internal/story"
)

// Options shape the simulated document and scroll pattern.
type Options struct {
	// SectionHeight is the simulated pixel height of every section.
	SectionHeight float64
	// ViewportHeight is the simulated viewport height.
	ViewportHeight float64
	// Step is the scroll delta per simulated frame.
	Step float64
	// FrameDelay paces frames so asynchronous mounts can land between
	// them, mimicking a real frame loop.
	FrameDelay time.Duration
}

func (o *Options) applyDefaults() {
	if o.SectionHeight <= 0 {
		o.SectionHeight = 1000
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 800
	}
	if o.Step <= 0 {
		o.Step = 40
	}
	if o.FrameDelay <= 0 {
		o.FrameDelay = time.Millisecond
	}
}

// SectionReport is the post-sweep summary for one section.
type SectionReport struct {
	ID        string
	State     story.LifecycleState
	Disposals int
}

// Report summarizes a completed sweep.
type Report struct {
	Frames   int
	Sections []SectionReport
}

type staticElement struct{ bounds scrolldriver.Bounds }

func (e staticElement) Rect() scrolldriver.Bounds { return e.bounds }

type scriptedViewport struct {
	scrollY float64
	height  float64
}

func (v *scriptedViewport) ScrollY() float64 { return v.scrollY }
func (v *scriptedViewport) Height() float64  { return v.height }

// Run performs the sweep. The runner must have been built from the same
// manifest; Run attaches it to a fresh driver over the simulated layout.
func Run(ctx context.Context, m *config.Manifest, r *story.Runner, motionH *motion.Handler, opts Options) *Report {
	opts.applyDefaults()
	logger := ctxlog.FromContext(ctx)

	vp := &scriptedViewport{height: opts.ViewportHeight}
	driver := scrolldriver.New(vp, motionH)
	for i, sec := range m.Sections {
		top := float64(i) * opts.SectionHeight
		driver.RegisterSection(ctx, sec.ID, staticElement{bounds: scrolldriver.Bounds{
			Top:    top,
			Bottom: top + opts.SectionHeight,
			Height: opts.SectionHeight,
		}})
	}
	r.Attach(driver)

	total := float64(len(m.Sections))*opts.SectionHeight + opts.ViewportHeight
	frames := 0
	for y := 0.0; y <= total; y += opts.Step {
		vp.scrollY = y
		driver.Update()
		r.Tick()
		frames++
		if opts.FrameDelay > 0 {
			time.Sleep(opts.FrameDelay)
		}
	}
	// Let straggling mounts land before the final accounting.
	time.Sleep(10 * opts.FrameDelay)
	r.Tick()

	report := &Report{Frames: frames}
	for _, sec := range m.Sections {
		report.Sections = append(report.Sections, SectionReport{
			ID:        sec.ID,
			State:     r.State(sec.ID),
			Disposals: r.DisposeCount(sec.ID),
		})
	}
	logger.Debug("sweep finished", "frames", frames, "sections", len(report.Sections))
	return report
}

// String renders the report for CLI output.
func (r *Report) String() string {
	out := fmt.Sprintf("sweep: %d frames, %d sections\n", r.Frames, len(r.Sections))
	for _, sec := range r.Sections {
		out += fmt.Sprintf("  %-20s %-10s disposals=%d\n", sec.ID, sec.State, sec.Disposals)
	}
	return out
}
