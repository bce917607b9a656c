package heightfield

import (
	"math"
	"sort"

	"github.com/ctessum/geom"

	"github.com/quarrylabs/terramold/pkg/feature"
)

// coverNodes rasterizes a polygon onto the node grid and returns the
// sorted indices of covered nodes. Coverage is conservative: nodes
// inside the polygon plus all four corner nodes of any cell the
// boundary passes through.
func (f *Field) coverNodes(p geom.Polygon) []int {
	if len(p) == 0 || len(p[0]) < 3 {
		return nil
	}
	b := p.Bounds()
	i0, i1 := f.axisRange(f.XAxis, b.Min.X, b.Max.X)
	j0, j1 := f.axisRange(f.YAxis, b.Min.Y, b.Max.Y)

	marked := make(map[int]struct{})

	// Interior nodes (none when the bounds hold no node).
	for j := j0; j <= j1; j++ {
		for i := i0; i <= i1; i++ {
			pt := geom.Point{X: f.XAxis[i], Y: f.YAxis[j]}
			if feature.PointInPolygonal(pt, p) {
				marked[j*f.Nx+i] = struct{}{}
			}
		}
	}

	// Boundary cells.
	dx, dy := f.CellSize()
	step := math.Min(dx, dy) / 2
	for _, ring := range p {
		for s := 0; s < len(ring); s++ {
			a := ring[s]
			bp := ring[(s+1)%len(ring)]
			f.markSegmentCells(marked, a, bp, step)
		}
	}

	if len(marked) == 0 {
		return nil
	}
	out := make([]int, 0, len(marked))
	for idx := range marked {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// axisRange returns the inclusive index range of axis values within
// [lo, hi], clamped to the axis.
func (f *Field) axisRange(axis []float64, lo, hi float64) (int, int) {
	a := sort.SearchFloat64s(axis, lo)
	b := sort.SearchFloat64s(axis, hi)
	if b >= len(axis) || (b < len(axis) && axis[b] > hi) {
		b--
	}
	if a > len(axis)-1 {
		return 1, 0 // empty
	}
	if b < 0 {
		return 1, 0
	}
	return a, b
}

// markSegmentCells walks the segment a->b and marks the corner nodes of
// every cell it visits.
func (f *Field) markSegmentCells(marked map[int]struct{}, a, b geom.Point, step float64) {
	length := math.Hypot(b.X-a.X, b.Y-a.Y)
	steps := int(length/step) + 1
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		x := a.X + (b.X-a.X)*t
		y := a.Y + (b.Y-a.Y)*t
		ci, cj, ok := f.cellAt(x, y)
		if !ok {
			continue
		}
		marked[cj*f.Nx+ci] = struct{}{}
		marked[cj*f.Nx+ci+1] = struct{}{}
		marked[(cj+1)*f.Nx+ci] = struct{}{}
		marked[(cj+1)*f.Nx+ci+1] = struct{}{}
	}
}

// cellAt locates the cell containing (x, y); ok is false outside the
// extent.
func (f *Field) cellAt(x, y float64) (ci, cj int, ok bool) {
	e := f.Extent
	if x < e.MinX || x > e.MaxX || y < e.MinY || y > e.MaxY {
		return 0, 0, false
	}
	dx, dy := f.CellSize()
	ci = int((x - e.MinX) / dx)
	cj = int((y - e.MinY) / dy)
	if ci > f.Nx-2 {
		ci = f.Nx - 2
	}
	if cj > f.Ny-2 {
		cj = f.Ny - 2
	}
	return ci, cj, true
}
