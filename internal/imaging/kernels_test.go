package imaging

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = Pixel{R: 255}
	green = Pixel{G: 255}
	blue  = Pixel{B: 255}
)

func mustRows(t *testing.T, rows [][]Pixel) *Buffer {
	t.Helper()
	b, err := FromRows(rows)
	require.NoError(t, err)
	return b
}

// gradient builds a w x h buffer whose pixels are all distinct.
func gradient(w, h int) *Buffer {
	b := blank(w, h)
	for y := range h {
		for x := range w {
			b.rows[y][x] = Pixel{R: uint8(x * 7), G: uint8(y * 11), B: uint8(x*y + 3)}
		}
	}
	return b
}

func requireShapePanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		_, ok := r.(*ShapeError)
		assert.True(t, ok, "panic value %v is not a *ShapeError", r)
	}()
	fn()
}

func TestFromRows_Rejects(t *testing.T) {
	_, err := FromRows(nil)
	assert.Error(t, err)

	_, err = FromRows([][]Pixel{{}})
	assert.Error(t, err)

	_, err = FromRows([][]Pixel{{red, red}, {red}})
	assert.Error(t, err)
}

func TestBlur_Averages(t *testing.T) {
	b := mustRows(t, [][]Pixel{
		{{R: 0}, {R: 1}, {R: 2}},
		{{R: 3}, {R: 4}, {R: 5}},
		{{R: 6}, {R: 7}, {R: 8}},
	})
	out := Blur(b, 2)
	assert.Equal(t, [][]Pixel{
		{{R: 2}, {R: 3}},
		{{R: 5}, {R: 6}},
	}, out.Rows())
}

func TestBlur_Truncates(t *testing.T) {
	b := mustRows(t, [][]Pixel{
		{{G: 0}, {G: 1}},
		{{G: 1}, {G: 1}},
	})
	out := Blur(b, 2)
	assert.Equal(t, [][]Pixel{{{G: 0}}}, out.Rows())
}

func TestBlur_Shrinks(t *testing.T) {
	out := Blur(gradient(20, 17), 16)
	assert.Equal(t, 5, out.Width())
	assert.Equal(t, 2, out.Height())

	same := Blur(gradient(4, 3), 1)
	assert.True(t, same.Equal(gradient(4, 3)))
}

func TestBlur_WindowTooLarge(t *testing.T) {
	requireShapePanic(t, func() { Blur(gradient(4, 4), 5) })
}

func TestContour(t *testing.T) {
	b := mustRows(t, [][]Pixel{
		{{R: 10, G: 10, B: 10}, {R: 40}, {}},
	})
	out := Contour(b)
	assert.Equal(t, [][]Pixel{
		{{R: 3, G: 3, B: 3}, {R: 13, G: 13, B: 13}},
	}, out.Rows())
}

func TestContour_SingleColumn(t *testing.T) {
	requireShapePanic(t, func() { Contour(gradient(1, 3)) })
}

func TestRotate_Quarter(t *testing.T) {
	a, b, c, d := red, green, blue, White
	in := mustRows(t, [][]Pixel{{a, b}, {c, d}})
	assert.Equal(t, [][]Pixel{{c, a}, {d, b}}, Rotate(in, 90).Rows())

	wide := mustRows(t, [][]Pixel{{a, b, c}})
	out := Rotate(wide, 90)
	assert.Equal(t, 1, out.Width())
	assert.Equal(t, 3, out.Height())
	assert.Equal(t, [][]Pixel{{a}, {b}, {c}}, out.Rows())
}

func TestRotate_FourTimesIsIdentity(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {3, 2}, {2, 5}, {7, 7}} {
		in := gradient(dims[0], dims[1])
		out := in
		for range 4 {
			out = Rotate(out, 90)
		}
		assert.True(t, in.Equal(out), "%v", dims)
	}
}

func TestRotate_Compositions(t *testing.T) {
	in := gradient(4, 3)
	three := Rotate(Rotate(Rotate(in, 90), 90), 90)
	assert.True(t, Rotate(in, 270).Equal(three))
	assert.True(t, Rotate(in, -90).Equal(three))
	assert.True(t, Rotate(in, 180).Equal(Rotate(Rotate(in, 90), 90)))
	assert.True(t, Rotate(Rotate(in, 180), 180).Equal(in))
}

func TestRotate_DoesNotMutateInput(t *testing.T) {
	in := gradient(3, 2)
	before := in.Clone()
	Rotate(in, 90)
	assert.True(t, in.Equal(before))
}

func TestSaltNPepper(t *testing.T) {
	in := gradient(8, 8)
	rng := rand.New(rand.NewPCG(1, 2))

	none := SaltNPepper(in, rng, 0, red, blue)
	assert.True(t, none.Equal(in), "zero strength leaves the image unchanged")

	full := SaltNPepper(in, rng, 0.5, red, blue)
	salt, pepper := 0, 0
	for _, row := range full.Rows() {
		for _, p := range row {
			switch p {
			case red:
				salt++
			case blue:
				pepper++
			}
		}
	}
	assert.Equal(t, 64, salt+pepper)
	assert.Positive(t, salt)
	assert.Positive(t, pepper)
	assert.True(t, in.Equal(gradient(8, 8)), "input unchanged")
}

func TestSaltNPepper_Deterministic(t *testing.T) {
	in := gradient(6, 6)
	a := SaltNPepper(in, rand.New(rand.NewPCG(7, 7)), 0.3, White, Black)
	b := SaltNPepper(in, rand.New(rand.NewPCG(7, 7)), 0.3, White, Black)
	assert.True(t, a.Equal(b))
}

func TestColorNoise(t *testing.T) {
	in := gradient(5, 5)
	rng := rand.New(rand.NewPCG(3, 4))

	assert.True(t, ColorNoise(in, rng, 0).Equal(in))

	for _, row := range ColorNoise(in, rng, 0.5).Rows() {
		for _, p := range row {
			for _, c := range []uint8{p.R, p.G, p.B} {
				assert.Contains(t, []uint8{0, 255}, c)
			}
		}
	}
}

func TestSegment(t *testing.T) {
	in := mustRows(t, [][]Pixel{{{R: 100, G: 100, B: 100}, {R: 101, G: 100, B: 100}}})
	out := Segment(in, 100, blue, red)
	assert.Equal(t, [][]Pixel{{blue, red}}, out.Rows())
}

func TestGrayscale(t *testing.T) {
	in := mustRows(t, [][]Pixel{{
		White,
		{R: 10, G: 20, B: 30},
		{R: 1},
		{R: 2},
		Black,
	}})
	out := Grayscale(in)
	assert.Equal(t, [][]Pixel{{
		{R: 255, G: 255, B: 255},
		{R: 18, G: 18, B: 18},
		{},
		{R: 1, G: 1, B: 1},
		{},
	}}, out.Rows())
}

func TestCanvasResize(t *testing.T) {
	in := mustRows(t, [][]Pixel{{red, green}, {blue, Black}})

	padded := CanvasResize(in, 3, 3, White)
	assert.Equal(t, [][]Pixel{
		{red, green, White},
		{blue, Black, White},
		{White, White, White},
	}, padded.Rows())

	cropped := CanvasResize(in, 1, 1, White)
	assert.Equal(t, [][]Pixel{{red}}, cropped.Rows())

	mixed := CanvasResize(in, 3, 1, blue)
	assert.Equal(t, [][]Pixel{{red, green, blue}}, mixed.Rows())
}

func TestCanvasResize_Empty(t *testing.T) {
	requireShapePanic(t, func() { CanvasResize(gradient(2, 2), 0, 5, White) })
}

func TestPosterize(t *testing.T) {
	in := mustRows(t, [][]Pixel{{{R: 100, G: 101, B: 0}}})
	assert.Equal(t, [][]Pixel{{{G: 255}}}, Posterize(in, 100).Rows())
}

func TestConcat_WithItself(t *testing.T) {
	in := gradient(4, 3)

	h := Concat(in, in, Horizontal, White)
	assert.Equal(t, 8, h.Width())
	assert.Equal(t, 3, h.Height())

	v := Concat(in, in, Vertical, White)
	assert.Equal(t, 4, v.Width())
	assert.Equal(t, 6, v.Height())
}

func TestConcat_PadsShorter(t *testing.T) {
	a := mustRows(t, [][]Pixel{{red}})
	b := mustRows(t, [][]Pixel{{green}, {blue}})

	h := Concat(a, b, Horizontal, White)
	assert.Equal(t, [][]Pixel{{red, green}, {White, blue}}, h.Rows())

	h = Concat(b, a, Horizontal, Black)
	assert.Equal(t, [][]Pixel{{green, red}, {blue, Black}}, h.Rows())

	wide := mustRows(t, [][]Pixel{{green, blue}})
	v := Concat(a, wide, Vertical, White)
	assert.Equal(t, [][]Pixel{{red, White}, {green, blue}}, v.Rows())

	v = Concat(wide, a, Vertical, White)
	assert.Equal(t, [][]Pixel{{green, blue}, {red, White}}, v.Rows())

	assert.Equal(t, [][]Pixel{{red}}, a.Rows(), "inputs unchanged")
	assert.Equal(t, [][]Pixel{{green}, {blue}}, b.Rows())
}

func TestMultiply(t *testing.T) {
	a := mustRows(t, [][]Pixel{{{R: 255, G: 128}}})
	b := mustRows(t, [][]Pixel{{{R: 128, G: 128, B: 128}, {R: 10, G: 10, B: 10}}})

	out := Multiply(a, b)
	assert.Equal(t, [][]Pixel{{{R: 128, G: 64}, {R: 10, G: 10, B: 10}}}, out.Rows())
	assert.Equal(t, 1, b.Height())
	assert.Equal(t, 2, b.Width())
}

func TestKernels_RejectEmptyBuffer(t *testing.T) {
	empty := &Buffer{}
	requireShapePanic(t, func() { Grayscale(empty) })
	requireShapePanic(t, func() { Posterize(empty, 1) })
	requireShapePanic(t, func() { Concat(gradient(1, 1), empty, Horizontal, White) })
}
