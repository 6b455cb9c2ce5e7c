package testutil

import "github.com/roach88/polybot/internal/imaging"

// Solid returns a w×h buffer of one color.
func Solid(w, h int, p imaging.Pixel) *imaging.Buffer {
	return imaging.NewBuffer(w, h, p)
}

// Gradient returns a w×h buffer whose pixel (x, y) is
// (x*16 mod 256, y*16 mod 256, (x+y)*8 mod 256). Every pixel of a small
// gradient is distinct, which makes rotations and crops easy to check.
func Gradient(w, h int) *imaging.Buffer {
	b := imaging.NewBuffer(w, h, imaging.Pixel{})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y, imaging.Pixel{
				R: uint8((x * 16) % 256),
				G: uint8((y * 16) % 256),
				B: uint8(((x + y) * 8) % 256),
			})
		}
	}
	return b
}
