package raster

import (
	"errors"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
)

// ErrShapeMismatch reports bitmaps whose dimensions disagree where equal
// shapes are required, e.g. when stacking planes or thresholding a pixel
// buffer of the wrong length. Returned errors wrap it together with
// [pkgerrors.ErrCodeInvalidShape].
var ErrShapeMismatch = errors.New("shape mismatch")

// Bitmap is a fixed-size boolean pixel grid in row-major order. Row 0 is the
// top of the image. Dimensions are set at creation and never change.
type Bitmap struct {
	width  int
	height int
	cells  []bool
}

// New returns an all-off bitmap of the given dimensions.
func New(width, height int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidShape, "bitmap dimensions %dx%d must be positive", width, height)
	}
	return &Bitmap{
		width:  width,
		height: height,
		cells:  make([]bool, width*height),
	}, nil
}

// Width returns the number of columns.
func (b *Bitmap) Width() int { return b.width }

// Height returns the number of rows.
func (b *Bitmap) Height() int { return b.height }

// At reports whether the cell at column x, row y is on. Coordinates outside
// the grid read as off.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return false
	}
	return b.cells[y*b.width+x]
}

// Set turns the cell at column x, row y on or off. Coordinates outside the
// grid are ignored.
func (b *Bitmap) Set(x, y int, on bool) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	b.cells[y*b.width+x] = on
}

// OnCount returns the number of cells that are on.
func (b *Bitmap) OnCount() int {
	n := 0
	for _, c := range b.cells {
		if c {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (b *Bitmap) Clone() *Bitmap {
	out := &Bitmap{width: b.width, height: b.height, cells: make([]bool, len(b.cells))}
	copy(out.cells, b.cells)
	return out
}

// Equal reports whether both bitmaps have the same dimensions and cells.
func (b *Bitmap) Equal(o *Bitmap) bool {
	if b.width != o.width || b.height != o.height {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}
