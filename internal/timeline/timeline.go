// Package timeline evaluates keyframed property animations. A Timeline is a
// pure function from a normalized progress value to an interpolated property
// map; it performs no I/O and holds no mutable state after construction.
package timeline

import (
	"fmt"
	"math"
	"sort"
)

// Keyframe anchors named property values at a progress value in [0,1],
// optionally tagged with an easing function for the segment arriving at it.
type Keyframe struct {
	T      float64
	Easing string
	Values map[string]any
}

// Options configures timeline construction.
type Options struct {
	// Loop makes out-of-range progress wrap modulo 1 instead of clamping.
	Loop bool
	// DefaultEasing applies to keyframes without an explicit easing name.
	// Empty means linear.
	DefaultEasing string
}

// Timeline is a read-only view over a sorted keyframe array with one sparse
// signal per property.
type Timeline struct {
	frames        []Keyframe
	times         []float64
	loop          bool
	defaultEasing string
	signals       map[string]*signal
	names         []string
	synthetic     bool
}

// New validates and sorts the keyframes and builds the per-property signals.
// Keyframe times must lie in [0,1]. If the first keyframe does not start at
// t=0 a synthetic copy of it is prepended at t=0 so evaluation below the
// first authored keyframe is defined; SyntheticStart reports when this
// happened so the manifest validator can surface it.
func New(keyframes []Keyframe, opts Options) (*Timeline, error) {
	frames := make([]Keyframe, len(keyframes))
	copy(frames, keyframes)

	for i, kf := range frames {
		if kf.T < 0 || kf.T > 1 || math.IsNaN(kf.T) {
			return nil, fmt.Errorf("keyframe %d: t=%v outside [0,1]", i, kf.T)
		}
	}
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].T < frames[j].T })

	synthetic := false
	if len(frames) > 0 && frames[0].T != 0 {
		first := frames[0]
		clone := Keyframe{T: 0, Easing: first.Easing, Values: first.Values}
		frames = append([]Keyframe{clone}, frames...)
		synthetic = true
	}

	tl := &Timeline{
		frames:        frames,
		loop:          opts.Loop,
		defaultEasing: opts.DefaultEasing,
		signals:       make(map[string]*signal),
		synthetic:     synthetic,
	}
	for _, kf := range frames {
		tl.times = append(tl.times, kf.T)
		for name, v := range kf.Values {
			s, ok := tl.signals[name]
			if !ok {
				s = &signal{name: name, tag: inferTag(name, v)}
				tl.signals[name] = s
				tl.names = append(tl.names, name)
			}
			s.add(kf.T, v, kf.Easing)
		}
	}
	sort.Strings(tl.names)
	return tl, nil
}

// Evaluate returns the interpolated property map at the given progress.
// Progress outside [0,1] clamps for non-looping timelines and wraps modulo 1
// for looping ones. The returned map is freshly allocated per call.
func (tl *Timeline) Evaluate(progress float64) map[string]any {
	p := tl.resolve(progress)
	state := make(map[string]any, len(tl.signals))
	for name, s := range tl.signals {
		if v := s.evaluate(p, tl.defaultEasing); v != nil {
			state[name] = v
		}
	}
	return state
}

func (tl *Timeline) resolve(progress float64) float64 {
	if tl.loop {
		if progress < 0 || progress > 1 {
			progress -= math.Floor(progress)
		}
		return progress
	}
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// Duration returns the progress span covered by the keyframes.
func (tl *Timeline) Duration() float64 {
	if len(tl.times) == 0 {
		return 0
	}
	return tl.times[len(tl.times)-1] - tl.times[0]
}

// Properties returns the sorted names of all animated properties.
func (tl *Timeline) Properties() []string {
	out := make([]string, len(tl.names))
	copy(out, tl.names)
	return out
}

// SnapProgress returns the t of the keyframe nearest to progress. Used by the
// reduced-motion wrapper to turn continuous interpolation into discrete jumps.
func (tl *Timeline) SnapProgress(progress float64) float64 {
	if len(tl.times) == 0 {
		return 0
	}
	p := tl.resolve(progress)
	hi := sort.SearchFloat64s(tl.times, p)
	if hi == 0 {
		return tl.times[0]
	}
	if hi >= len(tl.times) {
		return tl.times[len(tl.times)-1]
	}
	if p-tl.times[hi-1] <= tl.times[hi]-p {
		return tl.times[hi-1]
	}
	return tl.times[hi]
}

// SyntheticStart reports whether a synthetic t=0 keyframe was prepended
// because the first authored keyframe started later.
func (tl *Timeline) SyntheticStart() bool {
	return tl.synthetic
}

// Keyframes returns the sorted keyframe array, including any synthetic start.
func (tl *Timeline) Keyframes() []Keyframe {
	return tl.frames
}
