package mesh

import (
	"github.com/ctessum/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	earcut "github.com/flywave/go-earcut"
	"github.com/pkg/errors"

	"github.com/quarrylabs/terramold/pkg/feature"
)

// ErrDegenerate marks polygons that cannot be extruded (too few
// distinct points, zero area, failed triangulation).
var ErrDegenerate = errors.New("degenerate polygon")

// ExtrudePolygon turns a polygon (holes supported) into a closed
// vertical prism from z=0 to z=height. The caps are triangulated with
// earcut; walls follow each ring. The exterior ring is normalized CCW
// and holes CW, which makes all wall faces wind outward.
func ExtrudePolygon(p geom.Polygon, height float64) (*Mesh, error) {
	if height <= 0 {
		return nil, errors.Wrap(ErrDegenerate, "non-positive height")
	}
	np := feature.NormalizePolygon(p)
	if np == nil {
		return nil, errors.Wrap(ErrDegenerate, "unusable rings")
	}
	if np.Area() <= 1e-9 {
		return nil, errors.Wrap(ErrDegenerate, "zero area")
	}

	// Flatten rings for earcut: exterior first, then holes, with hole
	// start indices.
	var flat []float64
	var holeIdx []int
	ringStart := make([]int, len(np))
	for ri, ring := range np {
		ringStart[ri] = len(flat) / 2
		if ri > 0 {
			holeIdx = append(holeIdx, len(flat)/2)
		}
		for _, pt := range ring {
			flat = append(flat, pt.X, pt.Y)
		}
	}
	tris, err := earcut.Earcut(flat, holeIdx, 2)
	if err != nil || len(tris) < 3 {
		return nil, errors.Wrap(ErrDegenerate, "cap triangulation failed")
	}

	n := len(flat) / 2
	m := &Mesh{}
	// Bottom layer then top layer.
	for i := 0; i < n; i++ {
		m.AddVertex(v3.Vec{X: flat[2*i], Y: flat[2*i+1], Z: 0})
	}
	for i := 0; i < n; i++ {
		m.AddVertex(v3.Vec{X: flat[2*i], Y: flat[2*i+1], Z: height})
	}

	// Caps: earcut follows the CCW exterior, so the top cap keeps its
	// order (+Z) and the bottom cap is reversed (-Z).
	for t := 0; t+2 < len(tris); t += 3 {
		a, b, c := uint32(tris[t]), uint32(tris[t+1]), uint32(tris[t+2])
		m.AddTriangle(a, c, b)
		m.AddTriangle(a+uint32(n), b+uint32(n), c+uint32(n))
	}

	// Walls per ring edge.
	for ri, ring := range np {
		start := ringStart[ri]
		cnt := len(ring)
		for i := 0; i < cnt; i++ {
			a := uint32(start + i)
			b := uint32(start + (i+1)%cnt)
			m.AddTriangle(a, b, b+uint32(n))
			m.AddTriangle(a, b+uint32(n), a+uint32(n))
		}
	}
	return m, nil
}

// ExtrudeAll extrudes each polygon and appends the results into one
// fragment, skipping degenerate parts.
func ExtrudeAll(polys []geom.Polygon, height float64) (*Mesh, error) {
	out := &Mesh{}
	var firstErr error
	for _, p := range polys {
		prism, err := ExtrudePolygon(p, height)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out.Append(prism)
	}
	if out.IsEmpty() {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, errors.Wrap(ErrDegenerate, "no polygons extruded")
	}
	return out, nil
}
