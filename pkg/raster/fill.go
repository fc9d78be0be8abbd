package raster

// FillHoles turns on every off cell that cannot reach the grid border
// through 4-connected off cells. Cells that are already on stay on, so the
// result is a superset of the input and the operation is idempotent. The
// input bitmap is never modified.
func FillHoles(b *Bitmap) *Bitmap {
	out := b.Clone()
	w, h := b.width, b.height

	// Flood the background from the border. Whatever off cell the flood
	// never reaches is enclosed by on cells and gets filled.
	outside := make([]bool, len(b.cells))
	queue := make([]int, 0, 2*(w+h))
	push := func(i int) {
		if !b.cells[i] && !outside[i] {
			outside[i] = true
			queue = append(queue, i)
		}
	}

	for x := 0; x < w; x++ {
		push(x)
		push((h-1)*w + x)
	}
	for y := 0; y < h; y++ {
		push(y * w)
		push(y*w + w - 1)
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w
		if x > 0 {
			push(i - 1)
		}
		if x < w-1 {
			push(i + 1)
		}
		if y > 0 {
			push(i - w)
		}
		if y < h-1 {
			push(i + w)
		}
	}

	for i := range out.cells {
		if !b.cells[i] && !outside[i] {
			out.cells[i] = true
		}
	}
	return out
}
