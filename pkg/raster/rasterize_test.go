package raster

import (
	"strings"
	"testing"

	"github.com/matzehuels/maskstack/pkg/mask"
)

func TestRasterizeSlice_VerticalFlip(t *testing.T) {
	// A run on row 10 of a 10-high grid lands on raster row 0; a run on
	// row 1 lands on the bottom row.
	sl := mask.Slice{Number: 1, Runs: []mask.Run{
		{Y: 10, X1: 1, X2: 3},
		{Y: 1, X1: 0, X2: 0},
	}}

	bm, stats, err := RasterizeSlice(sl, 10, 10)
	if err != nil {
		t.Fatalf("RasterizeSlice() error = %v", err)
	}
	if !stats.Empty() {
		t.Errorf("stats = %+v, want empty", stats)
	}

	want := grid(t,
		".###......",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"#.........",
	)
	if !bm.Equal(want) {
		t.Errorf("RasterizeSlice() =\n%s\nwant\n%s", art(bm), art(want))
	}
	if got := bm.OnCount(); got != 4 {
		t.Errorf("OnCount() = %d, want 4", got)
	}
}

func TestRasterizeSlice_SkipsRowsOutsideCanvas(t *testing.T) {
	sl := mask.Slice{Number: 1, Runs: []mask.Run{
		{Y: 11, X1: 0, X2: 2}, // row -1
		{Y: 0, X1: 0, X2: 2},  // row 10
		{Y: 5, X1: 0, X2: 2},  // in bounds
	}}

	bm, stats, err := RasterizeSlice(sl, 10, 10)
	if err != nil {
		t.Fatalf("RasterizeSlice() error = %v", err)
	}
	if stats.SkippedRows != 2 {
		t.Errorf("SkippedRows = %d, want 2", stats.SkippedRows)
	}
	if got := bm.OnCount(); got != 3 {
		t.Errorf("OnCount() = %d, want 3 (only the in-bounds run painted)", got)
	}
}

func TestRasterizeSlice_ClipsRunsToCanvas(t *testing.T) {
	tests := []struct {
		name    string
		run     mask.Run
		wantOn  int
		clipped int
	}{
		{"clip left", mask.Run{Y: 5, X1: -2, X2: 1}, 2, 1},
		{"clip right", mask.Run{Y: 5, X1: 8, X2: 14}, 2, 1},
		{"entirely right of canvas", mask.Run{Y: 5, X1: 12, X2: 14}, 0, 1},
		{"start past end covers nothing", mask.Run{Y: 5, X1: 4, X2: 2}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sl := mask.Slice{Number: 1, Runs: []mask.Run{tt.run}}
			bm, stats, err := RasterizeSlice(sl, 10, 10)
			if err != nil {
				t.Fatalf("RasterizeSlice() error = %v", err)
			}
			if got := bm.OnCount(); got != tt.wantOn {
				t.Errorf("OnCount() = %d, want %d", got, tt.wantOn)
			}
			if stats.ClippedRuns != tt.clipped {
				t.Errorf("ClippedRuns = %d, want %d", stats.ClippedRuns, tt.clipped)
			}
			if stats.SkippedRows != 0 {
				t.Errorf("SkippedRows = %d, want 0", stats.SkippedRows)
			}
		})
	}
}

func TestRasterize_Document(t *testing.T) {
	const text = `case
prefix
LEFT
unused
10
10
1
2
Femur
1
{
13 2.4
}
2
{
13 2.4 6.6
12 1.10
}
`
	doc, err := mask.Decode(strings.NewReader(text), mask.Options{Strict: true})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	planes, stats, err := Rasterize(doc)
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if len(planes) != 2 {
		t.Fatalf("Rasterize() produced %d planes, want 2", len(planes))
	}

	// Slice 1: line "13 2.4" decodes to run (10, 1, 3) which paints raster
	// row 0, columns 1-3.
	p1 := planes[1]
	if got := p1.OnCount(); got != 3 {
		t.Errorf("planes[1].OnCount() = %d, want 3", got)
	}
	for x := 1; x <= 3; x++ {
		if !p1.At(x, 0) {
			t.Errorf("planes[1].At(%d, 0) = false, want true", x)
		}
	}

	// Slice 2 adds a second span on row 10 and a full-width run on row 9.
	p2 := planes[2]
	want := grid(t,
		".###.#....",
		"##########",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
	)
	if !p2.Equal(want) {
		t.Errorf("planes[2] =\n%s\nwant\n%s", art(p2), art(want))
	}

	if !stats.Empty() {
		t.Errorf("stats = %+v, want empty for an in-bounds document", stats)
	}
}

func TestClipStats_Empty(t *testing.T) {
	if !(ClipStats{}).Empty() {
		t.Error("zero ClipStats.Empty() = false, want true")
	}
	if (ClipStats{SkippedRows: 1}).Empty() {
		t.Error("ClipStats{SkippedRows: 1}.Empty() = true, want false")
	}
}
