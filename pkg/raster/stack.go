package raster

import (
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
)

// Stack is an ordered sequence of equally-sized bitmaps: the third dimension
// of a segmented volume. The zero value is an empty stack.
type Stack struct {
	width  int
	height int
	planes []*Bitmap
}

// NewStack assembles bitmaps into a stack in the given order. All planes
// must share the same dimensions; a mismatch fails with [ErrShapeMismatch].
func NewStack(planes ...*Bitmap) (*Stack, error) {
	s := &Stack{}
	for i, p := range planes {
		if i == 0 {
			s.width, s.height = p.width, p.height
		} else if p.width != s.width || p.height != s.height {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidShape, ErrShapeMismatch,
				"plane %d is %dx%d, want %dx%d", i, p.width, p.height, s.width, s.height)
		}
		s.planes = append(s.planes, p)
	}
	return s, nil
}

// Len returns the number of planes.
func (s *Stack) Len() int { return len(s.planes) }

// Width returns the plane width, or 0 for an empty stack.
func (s *Stack) Width() int { return s.width }

// Height returns the plane height, or 0 for an empty stack.
func (s *Stack) Height() int { return s.height }

// Plane returns the i-th plane in stacking order.
func (s *Stack) Plane(i int) *Bitmap { return s.planes[i] }

// OnCount returns the total number of on cells across all planes.
func (s *Stack) OnCount() int {
	n := 0
	for _, p := range s.planes {
		n += p.OnCount()
	}
	return n
}
