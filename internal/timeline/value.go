package timeline

import (
	"fmt"
	"math"
	"strings"
)

// valueTag classifies a property's values for interpolation dispatch. The tag
// is inferred once, from the property's first occurrence in the keyframe
// array, and every later value of that property is interpreted the same way.
type valueTag int

const (
	tagNumber valueTag = iota
	tagColor
	tagVector
	tagQuaternion
	tagArray
	// tagDiscrete covers everything that cannot be blended; the value
	// switches from a to b at the 50% mark of the segment.
	tagDiscrete
)

// inferTag derives the interpolation tag for a property from its first value.
// Length-4 numeric arrays are treated as quaternions only when the property
// name suggests a rotation; otherwise they lerp per-component like any vector.
func inferTag(name string, v any) valueTag {
	switch val := v.(type) {
	case float64, int, int64:
		return tagNumber
	case string:
		if _, _, _, err := parseHexColor(val); err == nil {
			return tagColor
		}
		return tagDiscrete
	case []any:
		nums, ok := toFloatSlice(val)
		if !ok {
			return tagDiscrete
		}
		switch len(nums) {
		case 2, 3:
			return tagVector
		case 4:
			if isRotationName(name) {
				return tagQuaternion
			}
			return tagVector
		default:
			return tagArray
		}
	case []float64:
		switch len(val) {
		case 2, 3:
			return tagVector
		case 4:
			if isRotationName(name) {
				return tagQuaternion
			}
			return tagVector
		default:
			return tagArray
		}
	default:
		return tagDiscrete
	}
}

func isRotationName(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "rotation") || strings.Contains(n, "quat") || strings.Contains(n, "orientation")
}

// interpolate blends a and b at position t according to the tag. Values that
// fail to coerce (mixed types across keyframes) fall back to a discrete
// switch rather than erroring mid-frame.
func interpolate(tag valueTag, a, b any, t float64) any {
	switch tag {
	case tagNumber:
		fa, okA := toFloat(a)
		fb, okB := toFloat(b)
		if !okA || !okB {
			return discrete(a, b, t)
		}
		return lerp(fa, fb, t)
	case tagColor:
		sa, okA := a.(string)
		sb, okB := b.(string)
		if !okA || !okB {
			return discrete(a, b, t)
		}
		out, err := lerpColor(sa, sb, t)
		if err != nil {
			return discrete(a, b, t)
		}
		return out
	case tagVector, tagArray:
		va, okA := toAnyFloatSlice(a)
		vb, okB := toAnyFloatSlice(b)
		if !okA || !okB || len(va) != len(vb) {
			return discrete(a, b, t)
		}
		out := make([]float64, len(va))
		for i := range va {
			out[i] = lerp(va[i], vb[i], t)
		}
		return out
	case tagQuaternion:
		qa, okA := toAnyFloatSlice(a)
		qb, okB := toAnyFloatSlice(b)
		if !okA || !okB || len(qa) != 4 || len(qb) != 4 {
			return discrete(a, b, t)
		}
		return slerp(qa, qb, t)
	default:
		return discrete(a, b, t)
	}
}

func discrete(a, b any, t float64) any {
	if t < 0.5 {
		return a
	}
	return b
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// slerp performs spherical interpolation between two unit quaternions,
// taking the shortest path and renormalizing the result.
func slerp(a, b []float64, t float64) []float64 {
	dot := a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]

	// Negate one side when the dot product is negative so we rotate the
	// short way around.
	bb := b
	if dot < 0 {
		bb = []float64{-b[0], -b[1], -b[2], -b[3]}
		dot = -dot
	}

	var wa, wb float64
	if dot > 0.9995 {
		// Nearly parallel: lerp avoids the unstable small-angle division.
		wa, wb = 1-t, t
	} else {
		theta := math.Acos(math.Min(dot, 1))
		sinTheta := math.Sin(theta)
		wa = math.Sin((1-t)*theta) / sinTheta
		wb = math.Sin(t*theta) / sinTheta
	}

	out := []float64{
		wa*a[0] + wb*bb[0],
		wa*a[1] + wb*bb[1],
		wa*a[2] + wb*bb[2],
		wa*a[3] + wb*bb[3],
	}
	norm := math.Sqrt(out[0]*out[0] + out[1]*out[1] + out[2]*out[2] + out[3]*out[3])
	if norm > 0 {
		for i := range out {
			out[i] /= norm
		}
	}
	return out
}

// --- color interpolation ---

// lerpColor blends two hex colors in Oklab space and returns a #rrggbb
// string. Oklab keeps perceived lightness roughly uniform across the ramp,
// unlike naive per-channel sRGB blending.
func lerpColor(a, b string, t float64) (string, error) {
	ra, ga, ba, err := parseHexColor(a)
	if err != nil {
		return "", err
	}
	rb, gb, bb, err := parseHexColor(b)
	if err != nil {
		return "", err
	}

	la, ma, sa := rgbToOklab(ra, ga, ba)
	lb, mb, sb := rgbToOklab(rb, gb, bb)

	r, g, bl := oklabToRGB(lerp(la, lb, t), lerp(ma, mb, t), lerp(sa, sb, t))
	return fmt.Sprintf("#%02x%02x%02x", r, g, bl), nil
}

// parseHexColor accepts #rgb and #rrggbb forms.
func parseHexColor(s string) (r, g, b uint8, err error) {
	if !strings.HasPrefix(s, "#") {
		return 0, 0, 0, fmt.Errorf("color %q: missing '#' prefix", s)
	}
	hex := s[1:]
	switch len(hex) {
	case 3:
		var r4, g4, b4 uint8
		if _, err := fmt.Sscanf(hex, "%1x%1x%1x", &r4, &g4, &b4); err != nil {
			return 0, 0, 0, fmt.Errorf("color %q: %w", s, err)
		}
		return r4 * 17, g4 * 17, b4 * 17, nil
	case 6:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
			return 0, 0, 0, fmt.Errorf("color %q: %w", s, err)
		}
		return r, g, b, nil
	default:
		return 0, 0, 0, fmt.Errorf("color %q: expected #rgb or #rrggbb", s)
	}
}

func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func linearToSRGB(c float64) float64 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

func rgbToOklab(r8, g8, b8 uint8) (l, a, b float64) {
	r := srgbToLinear(float64(r8) / 255)
	g := srgbToLinear(float64(g8) / 255)
	bl := srgbToLinear(float64(b8) / 255)

	lm := math.Cbrt(0.4122214708*r + 0.5363325363*g + 0.0514459929*bl)
	mm := math.Cbrt(0.2119034982*r + 0.6806995451*g + 0.1073969566*bl)
	sm := math.Cbrt(0.0883024619*r + 0.2817188376*g + 0.6299787005*bl)

	l = 0.2104542553*lm + 0.7936177850*mm - 0.0040720468*sm
	a = 1.9779984951*lm - 2.4285922050*mm + 0.4505937099*sm
	b = 0.0259040371*lm + 0.7827717662*mm - 0.8086757660*sm
	return l, a, b
}

func oklabToRGB(l, a, b float64) (r8, g8, b8 uint8) {
	lm := l + 0.3963377774*a + 0.2158037573*b
	mm := l - 0.1055613458*a - 0.0638541728*b
	sm := l - 0.0894841775*a - 1.2914855480*b

	lm, mm, sm = lm*lm*lm, mm*mm*mm, sm*sm*sm

	r := +4.0767416621*lm - 3.3077115913*mm + 0.2309699292*sm
	g := -1.2684380046*lm + 2.6097574011*mm - 0.3413193965*sm
	bl := -0.0041960863*lm - 0.7034186147*mm + 1.7076147010*sm

	return clamp8(linearToSRGB(r)), clamp8(linearToSRGB(g)), clamp8(linearToSRGB(bl))
}

func clamp8(c float64) uint8 {
	v := math.Round(c * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// --- coercion helpers ---

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toFloatSlice(vals []any) ([]float64, bool) {
	out := make([]float64, len(vals))
	for i, v := range vals {
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func toAnyFloatSlice(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return s, true
	case []any:
		return toFloatSlice(s)
	default:
		return nil, false
	}
}
