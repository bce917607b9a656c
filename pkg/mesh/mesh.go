// Package mesh defines the indexed triangle-mesh fragment exchanged
// between the terrain solidifier, the feature processors and the scene
// assembler, plus the mesh-level operations they need: transforms,
// vertex welding, watertightness verification and subdivision.
package mesh

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Material tags a fragment for coloring and export grouping. The
// assembler switches on the tag only for color assignment.
type Material int

const (
	MaterialBase Material = iota
	MaterialRoad
	MaterialBridge
	MaterialBuilding
	MaterialWater
	MaterialGreen
	MaterialPOI
)

// String returns the export-facing name of the material.
func (m Material) String() string {
	switch m {
	case MaterialBase:
		return "base"
	case MaterialRoad:
		return "road"
	case MaterialBridge:
		return "bridge"
	case MaterialBuilding:
		return "building"
	case MaterialWater:
		return "water"
	case MaterialGreen:
		return "green"
	case MaterialPOI:
		return "poi"
	}
	return "unknown"
}

// Color is an opaque RGB color.
type Color [3]uint8

// Mesh is an indexed triangle mesh. Vertices are flat [x0,y0,z0, ...]
// in local meters (millimeters after assembly); Indices hold 3 entries
// per triangle, wound CCW for an outward normal. A fragment is owned by
// the processor that built it until it is handed to the assembler.
type Mesh struct {
	Vertices []float64
	Indices  []uint32
	Material Material
	Color    *Color // nil: assembler assigns the material default
	Name     string
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) v3.Vec {
	return v3.Vec{X: m.Vertices[3*i], Y: m.Vertices[3*i+1], Z: m.Vertices[3*i+2]}
}

// SetVertex overwrites vertex i.
func (m *Mesh) SetVertex(i int, v v3.Vec) {
	m.Vertices[3*i] = v.X
	m.Vertices[3*i+1] = v.Y
	m.Vertices[3*i+2] = v.Z
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(v v3.Vec) uint32 {
	m.Vertices = append(m.Vertices, v.X, v.Y, v.Z)
	return uint32(m.VertexCount() - 1)
}

// AddTriangle appends one face.
func (m *Mesh) AddTriangle(a, b, c uint32) {
	m.Indices = append(m.Indices, a, b, c)
}

// Triangle returns the three corners of face t.
func (m *Mesh) Triangle(t int) (a, b, c v3.Vec) {
	return m.Vertex(int(m.Indices[3*t])),
		m.Vertex(int(m.Indices[3*t+1])),
		m.Vertex(int(m.Indices[3*t+2]))
}

// Append concatenates o into m, reindexing o's faces.
func (m *Mesh) Append(o *Mesh) {
	if o == nil || o.IsEmpty() {
		return
	}
	offset := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, o.Vertices...)
	for _, idx := range o.Indices {
		m.Indices = append(m.Indices, idx+offset)
	}
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: append([]float64(nil), m.Vertices...),
		Indices:  append([]uint32(nil), m.Indices...),
		Material: m.Material,
		Name:     m.Name,
	}
	if m.Color != nil {
		col := *m.Color
		c.Color = &col
	}
	return c
}

// Translate shifts every vertex by d.
func (m *Mesh) Translate(d v3.Vec) {
	for i := 0; i < m.VertexCount(); i++ {
		m.SetVertex(i, m.Vertex(i).Add(d))
	}
}

// Scale multiplies every coordinate by s (uniform on all axes).
func (m *Mesh) Scale(s float64) {
	for i := range m.Vertices {
		m.Vertices[i] *= s
	}
}

// Bounds returns the axis-aligned bounding box. Empty meshes return
// inverted infinite bounds.
func (m *Mesh) Bounds() (min, max v3.Vec) {
	min = v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		min = min.Min(v)
		max = max.Max(v)
	}
	return min, max
}

// SignedVolume returns the volume enclosed by the mesh, positive when
// faces are wound CCW outward. Only meaningful for closed meshes.
func (m *Mesh) SignedVolume() float64 {
	var sum float64
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		sum += a.Dot(b.Cross(c))
	}
	return sum / 6
}

// NewBox returns a closed axis-aligned box with its bottom face at zMin
// and footprint sx x sy centered on (cx, cy).
func NewBox(cx, cy, zMin, sx, sy, sz float64) *Mesh {
	hx, hy := sx/2, sy/2
	m := &Mesh{}
	// Bottom 4, then top 4.
	corners := [4][2]float64{{-hx, -hy}, {hx, -hy}, {hx, hy}, {-hx, hy}}
	for _, c := range corners {
		m.AddVertex(v3.Vec{X: cx + c[0], Y: cy + c[1], Z: zMin})
	}
	for _, c := range corners {
		m.AddVertex(v3.Vec{X: cx + c[0], Y: cy + c[1], Z: zMin + sz})
	}
	// Bottom (normal -Z), top (normal +Z).
	m.AddTriangle(0, 2, 1)
	m.AddTriangle(0, 3, 2)
	m.AddTriangle(4, 5, 6)
	m.AddTriangle(4, 6, 7)
	// Sides.
	for i := uint32(0); i < 4; i++ {
		j := (i + 1) % 4
		m.AddTriangle(i, j, j+4)
		m.AddTriangle(i, j+4, i+4)
	}
	return m
}
