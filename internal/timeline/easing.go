package timeline

// easingFunc remaps a normalized segment position before interpolation.
type easingFunc func(t float64) float64

// easings maps manifest easing names to their implementations. Unknown names
// fall back to linear so an authoring typo degrades to a linear ramp instead
// of failing the run.
var easings = map[string]easingFunc{
	"linear":            easeLinear,
	"ease-in":           easeInQuad,
	"ease-out":          easeOutQuad,
	"ease-in-out":       easeInOutQuad,
	"ease-in-cubic":     easeInCubic,
	"ease-out-cubic":    easeOutCubic,
	"ease-in-out-cubic": easeInOutCubic,
}

// easingByName resolves an easing name, falling back to linear.
func easingByName(name string) easingFunc {
	if fn, ok := easings[name]; ok {
		return fn
	}
	return easeLinear
}

func easeLinear(t float64) float64 { return t }

func easeInQuad(t float64) float64 { return t * t }

func easeOutQuad(t float64) float64 { return t * (2 - t) }

func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

func easeInCubic(t float64) float64 { return t * t * t }

func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}
