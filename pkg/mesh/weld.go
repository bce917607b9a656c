package mesh

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// WeldTolerance is the default relative weld tolerance: a fraction of
// the bounding-box diagonal.
const WeldTolerance = 1e-6

// Weld merges vertices that land in the same tolerance-sized grid cell
// and drops faces that become degenerate. The tolerance is absolute;
// use WeldRelative for the diagonal-relative form. Face order is
// preserved.
func (m *Mesh) Weld(tol float64) {
	if m.IsEmpty() || tol <= 0 {
		return
	}
	type key struct{ x, y, z int64 }
	quant := func(v float64) int64 { return int64(math.Round(v / tol)) }

	seen := make(map[key]uint32, m.VertexCount())
	remap := make([]uint32, m.VertexCount())
	var verts []float64
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		k := key{quant(v.X), quant(v.Y), quant(v.Z)}
		if idx, ok := seen[k]; ok {
			remap[i] = idx
			continue
		}
		idx := uint32(len(verts) / 3)
		verts = append(verts, v.X, v.Y, v.Z)
		seen[k] = idx
		remap[i] = idx
	}

	var faces []uint32
	for t := 0; t < m.TriangleCount(); t++ {
		a := remap[m.Indices[3*t]]
		b := remap[m.Indices[3*t+1]]
		c := remap[m.Indices[3*t+2]]
		if a == b || b == c || a == c {
			continue
		}
		faces = append(faces, a, b, c)
	}
	m.Vertices = verts
	m.Indices = faces
}

// WeldRelative welds with a tolerance of frac times the bounding-box
// diagonal.
func (m *Mesh) WeldRelative(frac float64) {
	min, max := m.Bounds()
	diag := max.Sub(min).Length()
	if diag == 0 {
		return
	}
	m.Weld(frac * diag)
}

// edgeKey identifies an undirected edge.
type edgeKey struct{ lo, hi uint32 }

func newEdgeKey(a, b uint32) edgeKey {
	if a < b {
		return edgeKey{a, b}
	}
	return edgeKey{b, a}
}

// edgeIncidence counts how many faces touch each undirected edge.
func (m *Mesh) edgeIncidence() map[edgeKey]int {
	edges := make(map[edgeKey]int, m.TriangleCount()*3/2)
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Indices[3*t], m.Indices[3*t+1], m.Indices[3*t+2]
		edges[newEdgeKey(a, b)]++
		edges[newEdgeKey(b, c)]++
		edges[newEdgeKey(c, a)]++
	}
	return edges
}

// DefectEdges returns the number of edges NOT shared by exactly two
// faces. Zero means the mesh is watertight.
func (m *Mesh) DefectEdges() int {
	defects := 0
	for _, n := range m.edgeIncidence() {
		if n != 2 {
			defects++
		}
	}
	return defects
}

// IsWatertight reports whether every edge is incident to exactly two
// faces.
func (m *Mesh) IsWatertight() bool {
	return !m.IsEmpty() && m.DefectEdges() == 0
}

// Subdivide splits every triangle 1->4, levels times. New vertices are
// the midpoints of existing edges (shared between neighboring faces via
// an edge cache) and are never re-sampled from any outside source, so a
// subdivided surface stays on the original triangles.
func (m *Mesh) Subdivide(levels int) {
	for l := 0; l < levels; l++ {
		midpoints := make(map[edgeKey]uint32)
		mid := func(a, b uint32) uint32 {
			k := newEdgeKey(a, b)
			if idx, ok := midpoints[k]; ok {
				return idx
			}
			va, vb := m.Vertex(int(a)), m.Vertex(int(b))
			idx := m.AddVertex(va.Add(vb).MulScalar(0.5))
			midpoints[k] = idx
			return idx
		}

		old := m.Indices
		m.Indices = make([]uint32, 0, len(old)*4)
		for t := 0; t < len(old); t += 3 {
			a, b, c := old[t], old[t+1], old[t+2]
			ab, bc, ca := mid(a, b), mid(b, c), mid(c, a)
			m.AddTriangle(a, ab, ca)
			m.AddTriangle(ab, b, bc)
			m.AddTriangle(ca, bc, c)
			m.AddTriangle(ab, bc, ca)
		}
	}
}

// FaceNormal returns the (unnormalized) normal of face t.
func (m *Mesh) FaceNormal(t int) v3.Vec {
	a, b, c := m.Triangle(t)
	return b.Sub(a).Cross(c.Sub(a))
}
