package mesh

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		vertices  []float64
		indices   []uint32
		wantVerts int
		wantTris  int
		empty     bool
	}{
		{"empty", nil, nil, 0, 0, true},
		{"one triangle", []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}, []uint32{0, 1, 2}, 3, 1, false},
		{"verts only is empty", []float64{0, 0, 0}, nil, 1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices, Indices: tt.indices}
			if got := m.VertexCount(); got != tt.wantVerts {
				t.Errorf("VertexCount() = %d, want %d", got, tt.wantVerts)
			}
			if got := m.TriangleCount(); got != tt.wantTris {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.wantTris)
			}
			if got := m.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestNewBoxWatertightAndVolume(t *testing.T) {
	b := NewBox(10, -5, 2, 4, 6, 3)
	if !b.IsWatertight() {
		t.Fatalf("box not watertight: %d defect edges", b.DefectEdges())
	}
	if v := b.SignedVolume(); math.Abs(v-4*6*3) > 1e-9 {
		t.Errorf("SignedVolume = %v, want %v", v, 4*6*3)
	}
	min, max := b.Bounds()
	if min.Z != 2 || max.Z != 5 {
		t.Errorf("box Z bounds [%v, %v], want [2, 5]", min.Z, max.Z)
	}
}

func TestTranslateScale(t *testing.T) {
	b := NewBox(0, 0, 0, 2, 2, 2)
	b.Translate(v3.Vec{X: 1, Y: 2, Z: 3})
	min, _ := b.Bounds()
	if min.X != 0 || min.Y != 1 || min.Z != 3 {
		t.Errorf("min after translate = %+v", min)
	}
	b.Scale(2)
	min, max := b.Bounds()
	if min.Z != 6 || max.Z != 10 {
		t.Errorf("Z bounds after scale = [%v, %v], want [6, 10]", min.Z, max.Z)
	}
}

func TestAppendReindexes(t *testing.T) {
	a := NewBox(0, 0, 0, 1, 1, 1)
	b := NewBox(10, 0, 0, 1, 1, 1)
	nv, nt := a.VertexCount(), a.TriangleCount()
	a.Append(b)
	if a.VertexCount() != 2*nv || a.TriangleCount() != 2*nt {
		t.Fatalf("append sizes wrong: %d verts, %d tris", a.VertexCount(), a.TriangleCount())
	}
	// Two disjoint closed boxes: still every edge shared by 2 faces.
	if !a.IsWatertight() {
		t.Error("appended disjoint boxes lost watertightness")
	}
}

func TestWeldMergesCoincident(t *testing.T) {
	m := &Mesh{}
	// Two triangles sharing an edge, with the shared vertices duplicated.
	m.AddVertex(v3.Vec{X: 0, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 1, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 0, Y: 1, Z: 0})
	m.AddTriangle(0, 1, 2)
	m.AddVertex(v3.Vec{X: 1, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 1, Y: 1, Z: 0})
	m.AddVertex(v3.Vec{X: 0, Y: 1, Z: 0})
	m.AddTriangle(3, 4, 5)

	m.Weld(1e-9)
	if m.VertexCount() != 4 {
		t.Errorf("welded vertex count = %d, want 4", m.VertexCount())
	}
	if m.TriangleCount() != 2 {
		t.Errorf("welded triangle count = %d, want 2", m.TriangleCount())
	}
}

func TestWeldDropsDegenerateFaces(t *testing.T) {
	m := &Mesh{}
	m.AddVertex(v3.Vec{X: 0, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 1e-12, Y: 0, Z: 0}) // collapses onto vertex 0
	m.AddVertex(v3.Vec{X: 0, Y: 1, Z: 0})
	m.AddTriangle(0, 1, 2)
	m.Weld(1e-6)
	if m.TriangleCount() != 0 {
		t.Errorf("degenerate face survived weld: %d triangles", m.TriangleCount())
	}
}

func TestSubdivideKeepsWatertightAndSurface(t *testing.T) {
	b := NewBox(0, 0, 0, 2, 2, 2)
	vol := b.SignedVolume()
	b.Subdivide(2)
	if got := b.TriangleCount(); got != 12*16 {
		t.Errorf("TriangleCount after 2 levels = %d, want %d", got, 12*16)
	}
	if !b.IsWatertight() {
		t.Error("subdivision broke watertightness")
	}
	// Midpoint interpolation keeps the geometry identical.
	if got := b.SignedVolume(); math.Abs(got-vol) > 1e-9 {
		t.Errorf("volume changed by subdivision: %v -> %v", vol, got)
	}
}

func TestDefectEdgesOnOpenMesh(t *testing.T) {
	m := &Mesh{}
	m.AddVertex(v3.Vec{X: 0, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 1, Y: 0, Z: 0})
	m.AddVertex(v3.Vec{X: 0, Y: 1, Z: 0})
	m.AddTriangle(0, 1, 2)
	if m.IsWatertight() {
		t.Error("single triangle reported watertight")
	}
	if got := m.DefectEdges(); got != 3 {
		t.Errorf("DefectEdges = %d, want 3", got)
	}
}
