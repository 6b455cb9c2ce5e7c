package ir

import "fmt"

// EffectKind enumerates every image effect the grammar can name.
// Kernel dispatch switches over EffectKind; there is no lookup by string.
type EffectKind int

const (
	EffectUnknown EffectKind = iota
	EffectBlur
	EffectContour
	EffectRotate
	EffectSaltNPepper
	EffectColorNoise
	EffectSegment
	EffectConcat
	EffectGrayscale
	EffectCanvasResize
	EffectRGBPosterize
	EffectMultiply
)

var effectNames = [...]string{
	EffectUnknown:      "unknown",
	EffectBlur:         "blur",
	EffectContour:      "contour",
	EffectRotate:       "rotate",
	EffectSaltNPepper:  "salt_n_pepper",
	EffectColorNoise:   "color_noise",
	EffectSegment:      "segment",
	EffectConcat:       "concat",
	EffectGrayscale:    "grayscale",
	EffectCanvasResize: "canvas_resize",
	EffectRGBPosterize: "rgb_posterize",
	EffectMultiply:     "multiply",
}

// String returns the grammar name of the effect.
func (k EffectKind) String() string {
	if k < 0 || int(k) >= len(effectNames) {
		return fmt.Sprintf("EffectKind(%d)", int(k))
	}
	return effectNames[k]
}

// ParseEffectKind resolves a grammar name to its kind.
func ParseEffectKind(name string) (EffectKind, bool) {
	for i, n := range effectNames {
		if i == int(EffectUnknown) {
			continue
		}
		if n == name {
			return EffectKind(i), true
		}
	}
	return EffectUnknown, false
}

// AllEffectKinds returns every known kind in declaration order.
func AllEffectKinds() []EffectKind {
	kinds := make([]EffectKind, 0, len(effectNames)-1)
	for i := range effectNames {
		if i == int(EffectUnknown) {
			continue
		}
		kinds = append(kinds, EffectKind(i))
	}
	return kinds
}

// MarshalText implements encoding.TextMarshaler.
func (k EffectKind) MarshalText() ([]byte, error) {
	if k == EffectUnknown || int(k) >= len(effectNames) || k < 0 {
		return nil, fmt.Errorf("cannot marshal effect kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EffectKind) UnmarshalText(data []byte) error {
	kind, ok := ParseEffectKind(string(data))
	if !ok {
		return fmt.Errorf("unknown effect %q", string(data))
	}
	*k = kind
	return nil
}
