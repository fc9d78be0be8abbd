package raster

import (
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
)

// Threshold converts a row-major grayscale pixel plane into a bitmap: every
// pixel strictly above cutoff is on. A cutoff of 0 keeps every nonzero
// pixel, which is how externally segmented imagery is binarized. The buffer
// length must be exactly width × height.
func Threshold(pixels []byte, width, height int, cutoff byte) (*Bitmap, error) {
	bm, err := New(width, height)
	if err != nil {
		return nil, err
	}
	if len(pixels) != width*height {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidShape, ErrShapeMismatch,
			"pixel buffer holds %d bytes, want %d for %dx%d", len(pixels), width*height, width, height)
	}
	for i, p := range pixels {
		if p > cutoff {
			bm.cells[i] = true
		}
	}
	return bm, nil
}
