// Package motion observes the platform's reduced-motion preference and wraps
// timelines so they snap between keyframes instead of interpolating. Timeline
// itself stays preference-agnostic; this package is the only place animation
// smoothness is suppressed.
package motion

import (
	"sync"

	"github.com/vk/scrollstory/internal/timeline"
)

// Source is a live view of the platform's reduced-motion preference. On the
// web this is backed by the prefers-reduced-motion media query; tests and
// headless runs use StaticSource.
type Source interface {
	Reduced() bool
	// Subscribe registers a callback for preference changes and returns an
	// unsubscribe function.
	Subscribe(fn func(reduced bool)) (unsubscribe func())
}

// StaticSource is a Source with a settable value, for tests and headless runs.
type StaticSource struct {
	mu      sync.Mutex
	reduced bool
	subs    map[int]func(bool)
	nextID  int
}

// NewStaticSource creates a StaticSource with the given initial preference.
func NewStaticSource(reduced bool) *StaticSource {
	return &StaticSource{reduced: reduced, subs: make(map[int]func(bool))}
}

// Reduced implements Source.
func (s *StaticSource) Reduced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reduced
}

// Subscribe implements Source.
func (s *StaticSource) Subscribe(fn func(bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Set changes the preference and notifies subscribers on change.
func (s *StaticSource) Set(reduced bool) {
	s.mu.Lock()
	if s.reduced == reduced {
		s.mu.Unlock()
		return
	}
	s.reduced = reduced
	fns := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(reduced)
	}
}

// Handler exposes the preference and produces snap wrappers for timelines.
type Handler struct {
	source Source
}

// NewHandler wraps a preference source.
func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// Enabled reports whether reduced motion is currently requested.
func (h *Handler) Enabled() bool {
	return h.source.Reduced()
}

// OnChange registers a callback for preference changes and returns an
// unsubscribe function.
func (h *Handler) OnChange(fn func(reduced bool)) func() {
	return h.source.Subscribe(fn)
}

// Wrap returns a timeline view that snaps progress to the nearest keyframe
// while the preference is active, and delegates untouched otherwise.
func (h *Handler) Wrap(tl *timeline.Timeline) *SnapTimeline {
	return &SnapTimeline{inner: tl, handler: h}
}

// SnapTimeline is a reduced-motion proxy over a Timeline.
type SnapTimeline struct {
	inner   *timeline.Timeline
	handler *Handler
}

// Evaluate snaps progress to the nearest keyframe t when reduced motion is
// active, producing discrete jumps instead of interpolation.
func (s *SnapTimeline) Evaluate(progress float64) map[string]any {
	if s.handler.Enabled() {
		progress = s.inner.SnapProgress(progress)
	}
	return s.inner.Evaluate(progress)
}

// Inner returns the wrapped timeline.
func (s *SnapTimeline) Inner() *timeline.Timeline {
	return s.inner
}
