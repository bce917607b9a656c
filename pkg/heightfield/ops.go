package heightfield

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// Flatten levels the terrain under each polygon to the q-quantile of the
// covered nodes' current elevations. Polygons are processed in input
// order; overlapping later polygons overwrite earlier ones. Polygons
// with an empty rasterization are skipped. Returns the number of
// polygons applied.
//
// The documented pass order is buildings first, then roads; callers are
// responsible for serializing the passes.
func (f *Field) Flatten(polys []geom.Polygon, q float64) int {
	applied := 0
	for _, p := range polys {
		nodes := f.coverNodes(p)
		if len(nodes) == 0 {
			continue
		}
		target := quantileAt(f.Z, nodes, q)
		for _, idx := range nodes {
			f.Z[idx] = target
		}
		applied++
	}
	return applied
}

// Depress carves the terrain under each polygon down to
// surface - depth, where surface is the q-quantile of the PRE-depression
// elevations of the covered nodes. The snapshot is taken on the first
// call; depression relative to the unmodified terrain keeps water from
// sitting above its original banks. Returns the number of polygons
// applied.
func (f *Field) Depress(polys []geom.Polygon, depth, q float64) int {
	if depth <= 0 {
		return 0
	}
	if f.originalZ == nil {
		f.originalZ = append([]float64(nil), f.Z...)
	}
	applied := 0
	for _, p := range polys {
		nodes := f.coverNodes(p)
		if len(nodes) == 0 {
			continue
		}
		surface := quantileAt(f.originalZ, nodes, q)
		for _, idx := range nodes {
			f.Z[idx] = surface - depth
		}
		applied++
	}
	return applied
}

// quantileAt computes the linear-interpolation quantile of z at the
// given indices.
func quantileAt(z []float64, idx []int, q float64) float64 {
	vals := make([]float64, 0, len(idx))
	for _, i := range idx {
		if !math.IsNaN(z[i]) {
			vals = append(vals, z[i])
		}
	}
	return Quantile(vals, q)
}

// Quantile returns the linear-interpolation quantile of vals. The slice
// is copied, not mutated. Empty input yields 0.
func Quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	frac := pos - float64(lo)
	return s[lo]*(1-frac) + s[hi]*frac
}
