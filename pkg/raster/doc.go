// Package raster turns decoded mask documents into boolean pixel grids.
//
// # Overview
//
// Mask documents store segmentations as horizontal runs in a bottom-up
// coordinate system. This package materializes them: [Rasterize] paints every
// run of every slice onto a fixed-size [Bitmap], flipping the vertical axis
// so row 0 is the top of the image, and [NewStack] assembles per-slice
// bitmaps into a 3D [Stack] for volumetric measurement.
//
// # Basic Usage
//
// Rasterize a decoded document and fill segmentation holes:
//
//	planes, stats, err := raster.Rasterize(doc)
//	if err != nil {
//	    return err
//	}
//	if !stats.Empty() {
//	    log.Warn("mask exceeded canvas", "skipped_rows", stats.SkippedRows)
//	}
//	for n, bm := range planes {
//	    planes[n] = raster.FillHoles(bm)
//	}
//
// # Coordinate Handling
//
// A run (y, x1, x2) covers columns x1 through x2 inclusive on raster row
// Height − y. Coordinates that fall outside the canvas never fail the
// rasterization: rows outside [0, Height) are skipped and runs are clipped
// to [0, Width), with every correction counted in [ClipStats]. Runs whose
// start column exceeds their end column cover no cells at all.
//
// # Concurrency
//
// Bitmaps and stacks are not safe for concurrent mutation. [FillHoles] and
// the marshaling methods never modify their input, so read-only sharing
// across goroutines is fine.
package raster
