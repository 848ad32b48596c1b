package timeline

import "sort"

// signal is the sparse per-property view over a timeline's keyframes. A
// property does not have to appear in every keyframe; the signal records only
// the points where it is defined, and evaluation holds the nearest defined
// value outside that range. Building these once at construction keeps
// Evaluate free of per-frame type inference.
type signal struct {
	name    string
	tag     valueTag
	times   []float64
	values  []any
	easings []string

	// probes, when non-nil, counts segment-search predicate calls. Tests set
	// it to bound the lookup cost.
	probes *int
}

// add appends a defined point. Callers feed points in ascending time order.
func (s *signal) add(t float64, v any, easing string) {
	s.times = append(s.times, t)
	s.values = append(s.values, v)
	s.easings = append(s.easings, easing)
}

// evaluate returns the property's value at progress p. Outside the defined
// range the nearest endpoint value is held. Inside, the enclosing pair is
// located by binary search and blended with the arriving point's easing.
func (s *signal) evaluate(p float64, defaultEasing string) any {
	if len(s.times) == 0 {
		return nil
	}
	if p <= s.times[0] {
		return s.values[0]
	}
	last := len(s.times) - 1
	if p >= s.times[last] {
		return s.values[last]
	}

	// First defined point strictly after p; its predecessor starts the segment.
	hi := sort.Search(len(s.times), func(i int) bool {
		if s.probes != nil {
			*s.probes++
		}
		return s.times[i] > p
	})
	lo := hi - 1

	span := s.times[hi] - s.times[lo]
	if span <= 0 {
		return s.values[hi]
	}
	t := (p - s.times[lo]) / span

	name := s.easings[hi]
	if name == "" {
		name = defaultEasing
	}
	return interpolate(s.tag, s.values[lo], s.values[hi], easingByName(name)(t))
}
