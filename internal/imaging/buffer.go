package imaging

import (
	"fmt"

	"github.com/roach88/polybot/internal/ir"
)

// Pixel is one RGB triple.
type Pixel struct {
	R, G, B uint8
}

// PixelOf converts a parsed color argument.
func PixelOf(c ir.RGB) Pixel {
	return Pixel{R: c.R, G: c.G, B: c.B}
}

func (p Pixel) sum() int {
	return int(p.R) + int(p.G) + int(p.B)
}

// Buffer is a rectangular grid of pixels, indexed [row][column].
// All rows have the same length.
type Buffer struct {
	rows [][]Pixel
}

// NewBuffer returns a width x height buffer filled with fill.
func NewBuffer(width, height int, fill Pixel) *Buffer {
	rows := make([][]Pixel, height)
	for y := range rows {
		row := make([]Pixel, width)
		for x := range row {
			row[x] = fill
		}
		rows[y] = row
	}
	return &Buffer{rows: rows}
}

// FromRows copies rows into a buffer. Rows must be non-empty and of equal
// length.
func FromRows(rows [][]Pixel) (*Buffer, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("buffer must have at least one pixel")
	}
	out := make([][]Pixel, len(rows))
	for y, row := range rows {
		if len(row) != len(rows[0]) {
			return nil, fmt.Errorf("row %d has %d pixels, want %d", y, len(row), len(rows[0]))
		}
		out[y] = append([]Pixel(nil), row...)
	}
	return &Buffer{rows: out}, nil
}

// Width returns the number of columns.
func (b *Buffer) Width() int {
	if len(b.rows) == 0 {
		return 0
	}
	return len(b.rows[0])
}

// Height returns the number of rows.
func (b *Buffer) Height() int {
	return len(b.rows)
}

// At returns the pixel at column x, row y.
func (b *Buffer) At(x, y int) Pixel {
	return b.rows[y][x]
}

// Set writes the pixel at column x, row y.
func (b *Buffer) Set(x, y int, p Pixel) {
	b.rows[y][x] = p
}

// Rows returns a deep copy of the pixel grid.
func (b *Buffer) Rows() [][]Pixel {
	return b.Clone().rows
}

// Clone returns an independent copy.
func (b *Buffer) Clone() *Buffer {
	rows := make([][]Pixel, len(b.rows))
	for y, row := range b.rows {
		rows[y] = append([]Pixel(nil), row...)
	}
	return &Buffer{rows: rows}
}

// Equal reports whether both buffers have the same shape and pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.Height() != o.Height() || b.Width() != o.Width() {
		return false
	}
	for y, row := range b.rows {
		for x, p := range row {
			if o.rows[y][x] != p {
				return false
			}
		}
	}
	return true
}

// String renders the shape for logs and test failures.
func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer(%dx%d)", b.Width(), b.Height())
}

// ShapeError reports a malformed buffer reaching a kernel, or valid
// arguments that would leave no pixels (Empty).
type ShapeError struct {
	Op     string
	Reason string
	Empty  bool
}

func (e *ShapeError) Error() string {
	if e.Empty {
		return fmt.Sprintf("%s: empty result: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: malformed buffer: %s", e.Op, e.Reason)
}

// mustShape panics with a ShapeError unless b is a non-empty rectangle.
func mustShape(op string, b *Buffer) {
	if b == nil || len(b.rows) == 0 {
		panic(&ShapeError{Op: op, Reason: "no rows"})
	}
	w := len(b.rows[0])
	if w == 0 {
		panic(&ShapeError{Op: op, Reason: "no columns"})
	}
	for y, row := range b.rows {
		if len(row) != w {
			panic(&ShapeError{Op: op, Reason: fmt.Sprintf("row %d has %d pixels, want %d", y, len(row), w)})
		}
	}
}

// blank allocates a width x height buffer without filling it.
func blank(width, height int) *Buffer {
	rows := make([][]Pixel, height)
	for y := range rows {
		rows[y] = make([]Pixel, width)
	}
	return &Buffer{rows: rows}
}
