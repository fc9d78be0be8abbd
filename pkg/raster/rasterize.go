package raster

import (
	"github.com/matzehuels/maskstack/pkg/mask"
)

// ClipStats counts coordinate corrections applied during rasterization.
// Out-of-bounds coordinates are recoverable: they are corrected, counted and
// surfaced here, never returned as errors.
type ClipStats struct {
	// SkippedRows is the number of runs dropped because their corrected row
	// fell outside the canvas.
	SkippedRows int `json:"skipped_rows"`
	// ClippedRuns is the number of runs whose column span was cut back to
	// the canvas (including runs clipped away entirely).
	ClippedRuns int `json:"clipped_runs"`
}

// Empty reports whether no corrections were applied.
func (s ClipStats) Empty() bool { return s.SkippedRows == 0 && s.ClippedRuns == 0 }

// Add accumulates another slice's corrections into s.
func (s *ClipStats) Add(o ClipStats) {
	s.SkippedRows += o.SkippedRows
	s.ClippedRuns += o.ClippedRuns
}

// Rasterize paints every slice of doc onto its own bitmap, using the header
// dimensions as the canvas. The result maps slice numbers to bitmaps. Stats
// aggregate the corrections across all slices.
func Rasterize(doc *mask.Document) (map[int]*Bitmap, ClipStats, error) {
	planes := make(map[int]*Bitmap, len(doc.Slices))
	var stats ClipStats
	for _, sl := range doc.Slices {
		bm, st, err := RasterizeSlice(sl, doc.Header.Width, doc.Header.Height)
		if err != nil {
			return nil, ClipStats{}, err
		}
		stats.Add(st)
		planes[sl.Number] = bm
	}
	return planes, stats, nil
}

// RasterizeSlice paints one slice onto a width × height bitmap.
//
// A run (y, x1, x2) lands on raster row height − y, columns x1 through x2
// inclusive: run rows count up from the bottom of the image, raster rows
// count down from the top. Runs outside the canvas are skipped or clipped
// per [ClipStats]; the only error is an invalid canvas size.
func RasterizeSlice(sl mask.Slice, width, height int) (*Bitmap, ClipStats, error) {
	bm, err := New(width, height)
	if err != nil {
		return nil, ClipStats{}, err
	}

	var stats ClipStats
	for _, r := range sl.Runs {
		row := height - r.Y
		if row < 0 || row >= height {
			stats.SkippedRows++
			continue
		}
		if r.X1 > r.X2 {
			continue
		}
		x1, x2 := r.X1, r.X2
		if x1 < 0 || x2 >= width {
			stats.ClippedRuns++
			x1 = max(x1, 0)
			x2 = min(x2, width-1)
			if x1 > x2 {
				continue
			}
		}
		base := row * width
		for x := x1; x <= x2; x++ {
			bm.cells[base+x] = true
		}
	}
	return bm, stats, nil
}
