// Package volume reduces boolean masks to physical volumes: voxel volume ×
// number of on cells. Calibration comes from the scan protocol, not the mask
// files, so callers pass a [Size] alongside every measurement.
package volume

import (
	"errors"
	"math"

	"github.com/matzehuels/maskstack/pkg/cohort"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/raster"
)

// ErrVoxelSize reports a calibration whose voxel volume is not a positive
// finite number. Returned errors wrap it together with
// [pkgerrors.ErrCodeInvalidVoxel].
var ErrVoxelSize = errors.New("invalid voxel size")

// Size is a voxel calibration: in-plane pixel spacing (x, y) and slice
// thickness, all in millimeters.
type Size struct {
	InPlane   [2]float64 `json:"in_plane" bson:"in_plane"`
	Thickness float64    `json:"thickness" bson:"thickness"`
}

// FromScalar wraps a precomputed voxel volume in a Size.
func FromScalar(v float64) Size {
	return Size{InPlane: [2]float64{v, 1}, Thickness: 1}
}

// Scalar returns the voxel volume in cubic millimeters. Non-positive and
// non-finite calibrations fail with [ErrVoxelSize].
func (s Size) Scalar() (float64, error) {
	v := s.InPlane[0] * s.InPlane[1] * s.Thickness
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidVoxel, ErrVoxelSize,
			"voxel volume %v from %v x %v x %v must be a positive finite number",
			v, s.InPlane[0], s.InPlane[1], s.Thickness)
	}
	return v, nil
}

// OfMask measures one mask: voxel volume × on cells.
func OfMask(m *raster.Bitmap, s Size) (float64, error) {
	v, err := s.Scalar()
	if err != nil {
		return 0, err
	}
	return v * float64(m.OnCount()), nil
}

// OfStack measures a stacked visit: voxel volume × on cells across all
// planes. An empty stack measures zero.
func OfStack(st *raster.Stack, s Size) (float64, error) {
	v, err := s.Scalar()
	if err != nil {
		return 0, err
	}
	return v * float64(st.OnCount()), nil
}

// VisitVolumes measures every visit of every patient in the tree. Each
// patient's volumes appear in sorted visit order, so repeated runs over the
// same tree produce identical collections. The first stacking or
// calibration failure aborts the call; partial results are never returned.
func VisitVolumes(tree cohort.Tree, s Size) (cohort.Volumes, error) {
	if _, err := s.Scalar(); err != nil {
		return nil, err
	}

	out := cohort.Volumes{}
	for _, patient := range tree.Patients() {
		visits := tree[patient]
		for _, visit := range visits.Names() {
			st, err := cohort.StackVisit(visits[visit])
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidShape, err, "stack %s/%s", patient, visit)
			}
			v, err := OfStack(st, s)
			if err != nil {
				return nil, err
			}
			out[patient] = append(out[patient], v)
		}
	}
	return out, nil
}
