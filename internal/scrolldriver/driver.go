// Package scrolldriver converts a scroll position into section enter/exit/
// progress events. The host is expected to call Update once per rendered
// frame (coalescing multiple scroll events into one tick); Update is fully
// synchronous, so listeners always observe exit-before-enter-before-progress
// for a single tick before the next tick is processed.
package scrolldriver

import (
	"context"
	"sort"

	"github.com/vk/scrollstory/internal/ctxlog"
	"github.com/vk/scrollstory/internal/motion"
)

// Bounds is a section's absolute document-pixel rectangle.
type Bounds struct {
	Top    float64
	Bottom float64
	Height float64
}

// Element is the platform collaborator providing a section's rectangle.
type Element interface {
	Rect() Bounds
}

// Viewport is the platform collaborator providing scroll position and size.
type Viewport interface {
	ScrollY() float64
	Height() float64
}

// ProgressEvent carries the normalized progress for the active section.
type ProgressEvent struct {
	ID       string
	Progress float64
	ScrollY  float64
	Bounds   Bounds
}

type registeredSection struct {
	id     string
	el     Element
	bounds Bounds
}

// Driver tracks registered section elements and emits events on Update. It is
// not safe for concurrent use; all methods must be called from the single
// goroutine driving the frame loop.
type Driver struct {
	viewport Viewport
	motion   *motion.Handler

	sections []*registeredSection
	byID     map[string]*registeredSection

	activeID string

	enterFns    []func(id string)
	exitFns     []func(id string)
	progressFns []func(ev ProgressEvent)
}

// New creates a driver over the given viewport. The motion handler is
// optional; when present and active, progress snaps to 0 or 1 so listeners
// never see continuous motion-sensitive values.
func New(viewport Viewport, motionHandler *motion.Handler) *Driver {
	return &Driver{
		viewport: viewport,
		motion:   motionHandler,
		byID:     make(map[string]*registeredSection),
	}
}

// RegisterSection caches the element's bounds under the given id. A nil
// element is a warning no-op; this component only reads layout and has no
// failure mode beyond that.
func (d *Driver) RegisterSection(ctx context.Context, id string, el Element) {
	if el == nil {
		ctxlog.FromContext(ctx).Warn("scroll driver: nil element, section not registered", "section", id)
		return
	}
	if existing, ok := d.byID[id]; ok {
		existing.el = el
		existing.bounds = el.Rect()
		return
	}
	sec := &registeredSection{id: id, el: el, bounds: el.Rect()}
	d.byID[id] = sec
	d.sections = append(d.sections, sec)
	d.sortByTop()
}

// Invalidate re-reads every registered element's rectangle. Call on resize or
// after layout changes.
func (d *Driver) Invalidate() {
	for _, sec := range d.sections {
		sec.bounds = sec.el.Rect()
	}
	d.sortByTop()
}

func (d *Driver) sortByTop() {
	sort.SliceStable(d.sections, func(i, j int) bool {
		return d.sections[i].bounds.Top < d.sections[j].bounds.Top
	})
}

// OnEnter registers a section-enter listener.
func (d *Driver) OnEnter(fn func(id string)) {
	d.enterFns = append(d.enterFns, fn)
}

// OnExit registers a section-exit listener.
func (d *Driver) OnExit(fn func(id string)) {
	d.exitFns = append(d.exitFns, fn)
}

// OnProgress registers a section-progress listener.
func (d *Driver) OnProgress(fn func(ev ProgressEvent)) {
	d.progressFns = append(d.progressFns, fn)
}

// ActiveID returns the id of the currently active section, or "".
func (d *Driver) ActiveID() string {
	return d.activeID
}

// Update recomputes the active section from the current scroll position and
// emits events. Section changes always emit exit before enter before any
// progress for the new section.
func (d *Driver) Update() {
	scrollY := d.viewport.ScrollY()
	viewH := d.viewport.Height()

	active := d.selectActive(scrollY, viewH)

	if active == nil {
		if d.activeID != "" {
			prev := d.activeID
			d.activeID = ""
			d.emitExit(prev)
		}
		return
	}

	if active.id != d.activeID {
		if d.activeID != "" {
			d.emitExit(d.activeID)
		}
		d.activeID = active.id
		d.emitEnter(active.id)
	}

	progress := sectionProgress(active.bounds, scrollY, viewH)
	if d.motion != nil && d.motion.Enabled() {
		// Snap so motion-sensitive listeners only ever see endpoints.
		if progress >= 0.5 {
			progress = 1
		} else {
			progress = 0
		}
	}

	ev := ProgressEvent{ID: active.id, Progress: progress, ScrollY: scrollY, Bounds: active.bounds}
	for _, fn := range d.progressFns {
		fn(ev)
	}
}

// selectActive returns the registered section with maximum viewport overlap,
// or nil when nothing overlaps.
func (d *Driver) selectActive(scrollY, viewH float64) *registeredSection {
	viewTop := scrollY
	viewBottom := scrollY + viewH

	var best *registeredSection
	bestOverlap := 0.0
	for _, sec := range d.sections {
		top := sec.bounds.Top
		bottom := sec.bounds.Bottom
		overlap := min(bottom, viewBottom) - max(top, viewTop)
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = sec
		}
	}
	return best
}

// sectionProgress maps scroll position to [0,1] across the section's full
// activation range: from the section's top touching the viewport bottom to
// its bottom leaving the viewport top.
func sectionProgress(b Bounds, scrollY, viewH float64) float64 {
	span := b.Height + viewH
	if span <= 0 {
		return 0
	}
	p := (scrollY - (b.Top - viewH)) / span
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func (d *Driver) emitEnter(id string) {
	for _, fn := range d.enterFns {
		fn(id)
	}
}

func (d *Driver) emitExit(id string) {
	for _, fn := range d.exitFns {
		fn(id)
	}
}
