package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Encoding formats supported by Encode.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatBMP  = "bmp"
)

// Decode reads any registered image format (jpeg, png, gif, webp, bmp) and
// returns its pixels with alpha dropped, plus the detected format name.
func Decode(r io.Reader) (*Buffer, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	b, err := FromImage(img)
	if err != nil {
		return nil, "", err
	}
	return b, format, nil
}

// FromImage copies an image into a buffer.
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("image has no pixels")
	}
	out := blank(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := out.rows[y-bounds.Min.Y]
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			row[x-bounds.Min.X] = Pixel{R: c.R, G: c.G, B: c.B}
		}
	}
	return out, nil
}

// ToImage renders the buffer as an opaque RGBA image.
func (b *Buffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width(), b.Height()))
	for y, row := range b.rows {
		for x, p := range row {
			img.SetRGBA(x, y, color.RGBA{R: p.R, G: p.G, B: p.B, A: 255})
		}
	}
	return img
}

// Encode writes the buffer in the given format. quality applies to JPEG
// only.
func Encode(w io.Writer, b *Buffer, format string, quality int) error {
	img := b.ToImage()
	switch format {
	case FormatJPEG, "jpg":
		if quality <= 0 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// FormatFromPath picks an output format from a file extension, defaulting
// to JPEG.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG
	case ".bmp":
		return FormatBMP
	default:
		return FormatJPEG
	}
}
