package cohort

import (
	"maps"
	"slices"

	"github.com/matzehuels/maskstack/pkg/raster"
)

// Slices maps slice numbers to their rasterized masks.
type Slices map[int]*raster.Bitmap

// Visits maps visit names (e.g. "V01") to their slices.
type Visits map[string]Slices

// Tree maps patient identifiers to their visits. The zero value of each
// level is a nil map; [Merge] and [Tree.Put] create levels on demand.
type Tree map[string]Visits

// Volumes collects measured volumes per patient, one value per visit in
// sorted visit order.
type Volumes map[string][]float64

// Patients returns the patient identifiers in sorted order.
func (t Tree) Patients() []string {
	return slices.Sorted(maps.Keys(t))
}

// Names returns the visit names in sorted order.
func (v Visits) Names() []string {
	return slices.Sorted(maps.Keys(v))
}

// Numbers returns the slice numbers in ascending order.
func (s Slices) Numbers() []int {
	return slices.Sorted(maps.Keys(s))
}

// Put stores one bitmap, creating the patient and visit levels as needed.
// An existing bitmap at the same coordinates is overwritten.
func (t Tree) Put(patient, visit string, slice int, bm *raster.Bitmap) {
	visits, ok := t[patient]
	if !ok {
		visits = Visits{}
		t[patient] = visits
	}
	sl, ok := visits[visit]
	if !ok {
		sl = Slices{}
		visits[visit] = sl
	}
	sl[slice] = bm
}

// Merge overlays patch onto base and returns base: nested keys merge
// recursively, bitmaps at the same patient/visit/slice are overwritten by
// the patch (last write wins). Keys of base untouched by patch survive
// unchanged, so merging trees with disjoint paths is order-independent.
func Merge(base, patch Tree) Tree {
	if base == nil {
		base = Tree{}
	}
	for patient, visits := range patch {
		for visit, sl := range visits {
			for number, bm := range sl {
				base.Put(patient, visit, number, bm)
			}
		}
	}
	return base
}

// StackVisit stacks a visit's slices in ascending slice-number order. Map
// insertion order never influences the result. Fails when the slices
// disagree on dimensions.
func StackVisit(s Slices) (*raster.Stack, error) {
	planes := make([]*raster.Bitmap, 0, len(s))
	for _, n := range s.Numbers() {
		planes = append(planes, s[n])
	}
	return raster.NewStack(planes...)
}
