package imaging

import (
	"fmt"
	"math/rand/v2"
)

// Default effect arguments, used when a caption omits them.
const (
	DefaultBlurLevel       = 16
	DefaultRotation        = 90
	DefaultNoiseStrength   = 0.2
	DefaultSegmentLevel    = 100
	DefaultPosterizeLevel  = 100
	DefaultConcatDirection = Horizontal
)

var (
	White = Pixel{R: 255, G: 255, B: 255}
	Black = Pixel{}
)

// Direction selects the concat axis.
type Direction string

const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

// Blur averages each k x k window. The output shrinks by k-1 in both axes;
// there is no edge padding.
func Blur(b *Buffer, k int) *Buffer {
	mustShape("blur", b)
	if k < 1 {
		panic(&ShapeError{Op: "blur", Reason: fmt.Sprintf("window %d", k)})
	}
	w, h := b.Width()-k+1, b.Height()-k+1
	if w <= 0 || h <= 0 {
		panic(&ShapeError{Op: "blur", Reason: fmt.Sprintf("window %d exceeds %s", k, b), Empty: true})
	}

	// Summed-area table per channel, one row and column of padding.
	stride := b.Width() + 1
	sat := make([][3]int64, stride*(b.Height()+1))
	for y := 1; y <= b.Height(); y++ {
		for x := 1; x <= b.Width(); x++ {
			p := b.rows[y-1][x-1]
			up, left, diag := sat[(y-1)*stride+x], sat[y*stride+x-1], sat[(y-1)*stride+x-1]
			sat[y*stride+x] = [3]int64{
				int64(p.R) + up[0] + left[0] - diag[0],
				int64(p.G) + up[1] + left[1] - diag[1],
				int64(p.B) + up[2] + left[2] - diag[2],
			}
		}
	}

	area := int64(k * k)
	out := blank(w, h)
	for y := range h {
		for x := range w {
			a, bb := sat[y*stride+x], sat[y*stride+x+k]
			c, d := sat[(y+k)*stride+x], sat[(y+k)*stride+x+k]
			out.rows[y][x] = Pixel{
				R: uint8((d[0] - bb[0] - c[0] + a[0]) / area),
				G: uint8((d[1] - bb[1] - c[1] + a[1]) / area),
				B: uint8((d[2] - bb[2] - c[2] + a[2]) / area),
			}
		}
	}
	return out
}

// Contour replaces each pixel with the absolute difference of its channel
// sum and its left neighbour's, divided by three. The first column has no
// neighbour and is dropped.
func Contour(b *Buffer) *Buffer {
	mustShape("contour", b)
	if b.Width() < 2 {
		panic(&ShapeError{Op: "contour", Reason: fmt.Sprintf("%s is too narrow", b), Empty: true})
	}
	out := blank(b.Width()-1, b.Height())
	for y, row := range b.rows {
		for x := 1; x < len(row); x++ {
			d := row[x-1].sum() - row[x].sum()
			if d < 0 {
				d = -d
			}
			v := uint8(d / 3)
			out.rows[y][x-1] = Pixel{R: v, G: v, B: v}
		}
	}
	return out
}

// Rotate turns the buffer clockwise by angle degrees. Accepted angles are
// 90, 180, 270 and -90.
func Rotate(b *Buffer, angle int) *Buffer {
	mustShape("rotate", b)
	var turns int
	switch angle {
	case 90:
		turns = 1
	case 180:
		turns = 2
	case 270, -90:
		turns = 3
	default:
		panic(&ShapeError{Op: "rotate", Reason: fmt.Sprintf("unsupported angle %d", angle)})
	}
	out := b
	for range turns {
		out = quarterTurn(out)
	}
	return out
}

// quarterTurn transposes and reverses each row: out[i][j] = in[H-1-j][i].
func quarterTurn(b *Buffer) *Buffer {
	h, w := b.Height(), b.Width()
	out := blank(h, w)
	for i := range w {
		for j := range h {
			out.rows[i][j] = b.rows[h-1-j][i]
		}
	}
	return out
}

// SaltNPepper draws one uniform value per pixel: below strength the pixel
// becomes salt, above 1-strength it becomes pepper.
func SaltNPepper(b *Buffer, rng *rand.Rand, strength float64, salt, pepper Pixel) *Buffer {
	mustShape("salt_n_pepper", b)
	out := b.Clone()
	for _, row := range out.rows {
		for x := range row {
			r := rng.Float64()
			if r < strength {
				row[x] = salt
			} else if r > 1-strength {
				row[x] = pepper
			}
		}
	}
	return out
}

// ColorNoise draws one uniform value per channel: below strength the
// channel becomes 255, above 1-strength it becomes 0.
func ColorNoise(b *Buffer, rng *rand.Rand, strength float64) *Buffer {
	mustShape("color_noise", b)
	out := b.Clone()
	noise := func(c uint8) uint8 {
		r := rng.Float64()
		switch {
		case r < strength:
			return 255
		case r > 1-strength:
			return 0
		}
		return c
	}
	for _, row := range out.rows {
		for x, p := range row {
			row[x] = Pixel{R: noise(p.R), G: noise(p.G), B: noise(p.B)}
		}
	}
	return out
}

// Segment maps pixels whose channel sum exceeds 3*threshold to white and
// the rest to black.
func Segment(b *Buffer, threshold int, black, white Pixel) *Buffer {
	mustShape("segment", b)
	limit := 3 * threshold
	out := blank(b.Width(), b.Height())
	for y, row := range b.rows {
		for x, p := range row {
			if p.sum() > limit {
				out.rows[y][x] = white
			} else {
				out.rows[y][x] = black
			}
		}
	}
	return out
}

// Grayscale replaces each pixel with its rounded luminance.
func Grayscale(b *Buffer) *Buffer {
	mustShape("grayscale", b)
	out := blank(b.Width(), b.Height())
	for y, row := range b.rows {
		for x, p := range row {
			l := 0.2989*float64(p.R) + 0.5870*float64(p.G) + 0.1140*float64(p.B)
			v := uint8(min(l+0.5, 255))
			out.rows[y][x] = Pixel{R: v, G: v, B: v}
		}
	}
	return out
}

// CanvasResize crops or pads to exactly width x height. Padding extends
// rows to the right and appends rows at the bottom, filled with bg.
func CanvasResize(b *Buffer, width, height int, bg Pixel) *Buffer {
	mustShape("canvas_resize", b)
	if width <= 0 || height <= 0 {
		panic(&ShapeError{Op: "canvas_resize", Reason: fmt.Sprintf("target %dx%d is empty", width, height), Empty: true})
	}
	out := blank(width, height)
	for y := range height {
		for x := range width {
			if y < b.Height() && x < b.Width() {
				out.rows[y][x] = b.rows[y][x]
			} else {
				out.rows[y][x] = bg
			}
		}
	}
	return out
}

// Posterize sets each channel above threshold to 255 and the rest to 0.
func Posterize(b *Buffer, threshold int) *Buffer {
	mustShape("rgb_posterize", b)
	level := func(c uint8) uint8 {
		if int(c) > threshold {
			return 255
		}
		return 0
	}
	out := blank(b.Width(), b.Height())
	for y, row := range b.rows {
		for x, p := range row {
			out.rows[y][x] = Pixel{R: level(p.R), G: level(p.G), B: level(p.B)}
		}
	}
	return out
}

// Concat joins other onto b. The buffer that is shorter on the cross axis
// is padded with bg first.
func Concat(b, other *Buffer, dir Direction, bg Pixel) *Buffer {
	mustShape("concat", b)
	mustShape("concat", other)

	switch dir {
	case Horizontal:
		if b.Height() < other.Height() {
			b = CanvasResize(b, b.Width(), other.Height(), bg)
		} else if other.Height() < b.Height() {
			other = CanvasResize(other, other.Width(), b.Height(), bg)
		}
		out := blank(b.Width()+other.Width(), b.Height())
		for y := range out.rows {
			copy(out.rows[y], b.rows[y])
			copy(out.rows[y][b.Width():], other.rows[y])
		}
		return out
	case Vertical:
		if b.Width() < other.Width() {
			b = CanvasResize(b, other.Width(), b.Height(), bg)
		} else if other.Width() < b.Width() {
			other = CanvasResize(other, b.Width(), other.Height(), bg)
		}
		out := b.Clone()
		out.rows = append(out.rows, other.Clone().rows...)
		return out
	default:
		panic(&ShapeError{Op: "concat", Reason: fmt.Sprintf("unknown direction %q", dir)})
	}
}

// Multiply blends channel by channel, a*b/255, after padding both buffers
// with white to their common bounding size.
func Multiply(b, other *Buffer) *Buffer {
	mustShape("multiply", b)
	mustShape("multiply", other)

	w, h := max(b.Width(), other.Width()), max(b.Height(), other.Height())
	a := CanvasResize(b, w, h, White)
	c := CanvasResize(other, w, h, White)
	out := blank(w, h)
	for y := range h {
		for x := range w {
			pa, pc := a.rows[y][x], c.rows[y][x]
			out.rows[y][x] = Pixel{
				R: uint8(int(pa.R) * int(pc.R) / 255),
				G: uint8(int(pa.G) * int(pc.G) / 255),
				B: uint8(int(pa.B) * int(pc.B) / 255),
			}
		}
	}
	return out
}
