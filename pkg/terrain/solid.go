package terrain

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/quarrylabs/terramold/pkg/heightfield"
	"github.com/quarrylabs/terramold/pkg/mesh"
)

// ErrNonWatertight is fatal: the solidified base failed its edge check
// even after a second weld.
var ErrNonWatertight = errors.New("terrain base is not watertight")

// Solidify builds the watertight printable base from the height field:
// the triangulated top surface, a flat rectangular bottom at
// min(Z) - baseThickness, and side skirts joining the four boundary
// chains to the bottom. The result is welded at the standard relative
// tolerance and verified; subdivLevels (max 2) splits every triangle
// 1->4 per level with midpoint-only interpolation.
func Solidify(f *heightfield.Field, baseThickness float64, subdivLevels int) (*mesh.Mesh, error) {
	if f.Nx < 2 || f.Ny < 2 {
		return nil, errors.Wrapf(heightfield.ErrInvalidExtent, "solidify %dx%d", f.Nx, f.Ny)
	}
	if subdivLevels < 0 {
		subdivLevels = 0
	}
	if subdivLevels > 2 {
		subdivLevels = 2
	}

	m := &mesh.Mesh{Material: mesh.MaterialBase, Name: "base"}
	nx, ny := f.Nx, f.Ny

	// Top surface nodes, same layout as the field.
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			m.AddVertex(v3.Vec{X: f.XAxis[i], Y: f.YAxis[j], Z: f.At(i, j)})
		}
	}
	top := func(i, j int) uint32 { return uint32(j*nx + i) }

	// Top faces per the fixed cell split rule.
	for j := 0; j < ny-1; j++ {
		for i := 0; i < nx-1; i++ {
			m.AddTriangle(top(i, j), top(i+1, j), top(i, j+1))
			m.AddTriangle(top(i, j+1), top(i+1, j), top(i+1, j+1))
		}
	}

	// Flat bottom at min(Z) - thickness. The bottom mirrors the top's
	// node grid: a plain two-triangle rectangle would leave T-junctions
	// against the per-cell skirt segments and fail the edge check.
	bottomZ := f.MinZ() - baseThickness
	bottomBase := uint32(m.VertexCount())
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			m.AddVertex(v3.Vec{X: f.XAxis[i], Y: f.YAxis[j], Z: bottomZ})
		}
	}
	bot := func(i, j int) uint32 { return bottomBase + uint32(j*nx+i) }
	// Bottom faces use the same split, wound downward.
	for j := 0; j < ny-1; j++ {
		for i := 0; i < nx-1; i++ {
			m.AddTriangle(bot(i, j), bot(i, j+1), bot(i+1, j))
			m.AddTriangle(bot(i, j+1), bot(i+1, j+1), bot(i+1, j))
		}
	}

	// Side skirts: two triangles per boundary edge, wound outward. The
	// skirt reuses the top and bottom grid vertices, so welding leaves
	// every boundary edge shared by exactly two faces.
	skirt := func(ta, tb, ba, bb uint32) {
		m.AddTriangle(ta, ba, bb)
		m.AddTriangle(ta, bb, tb)
	}
	for i := 0; i < nx-1; i++ { // south edge, j=0, walking +X
		skirt(top(i, 0), top(i+1, 0), bot(i, 0), bot(i+1, 0))
	}
	for j := 0; j < ny-1; j++ { // east edge, i=nx-1, walking +Y
		skirt(top(nx-1, j), top(nx-1, j+1), bot(nx-1, j), bot(nx-1, j+1))
	}
	for i := nx - 1; i > 0; i-- { // north edge, j=ny-1, walking -X
		skirt(top(i, ny-1), top(i-1, ny-1), bot(i, ny-1), bot(i-1, ny-1))
	}
	for j := ny - 1; j > 0; j-- { // west edge, i=0, walking -Y
		skirt(top(0, j), top(0, j-1), bot(0, j), bot(0, j-1))
	}

	m.WeldRelative(mesh.WeldTolerance)
	if m.DefectEdges() > 0 {
		m.WeldRelative(mesh.WeldTolerance * 10)
		if m.DefectEdges() > 0 {
			return nil, errors.Wrapf(ErrNonWatertight, "%d defect edges", m.DefectEdges())
		}
	}

	if subdivLevels > 0 {
		m.Subdivide(subdivLevels)
	}
	return m, nil
}
