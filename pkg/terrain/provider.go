// Package terrain turns the height field into a watertight printable
// base and answers triangle-exact elevation queries for every
// downstream placer.
package terrain

import (
	"sort"

	"github.com/quarrylabs/terramold/pkg/heightfield"
)

// Provider answers Z(x, y) using the exact cell triangulation of the
// terrain top surface, so draped features and the terrain mesh always
// agree. It is a non-owning view over the field's axes and Z buffer and
// is safe for concurrent reads.
//
// Cell split rule, fixed for the whole system: within a cell with
// normalized (dx, dy) in [0,1]^2, triangle A covers dx+dy <= 1 with
// corners (i,j), (i+1,j), (i,j+1); triangle B covers the rest with
// corners (i,j+1), (i+1,j), (i+1,j+1).
type Provider struct {
	xAxis, yAxis []float64
	z            []float64
	nx           int
}

// NewProvider builds a view over the field's CURRENT Z buffer. Queries
// reflect later flatten/depress mutations, since the buffer is shared.
func NewProvider(f *heightfield.Field) *Provider {
	return &Provider{xAxis: f.XAxis, yAxis: f.YAxis, z: f.Z, nx: f.Nx}
}

// NewSnapshotProvider builds a view over an explicit Z buffer laid out
// like the field's (the pre-depression snapshot, typically).
func NewSnapshotProvider(f *heightfield.Field, z []float64) *Provider {
	return &Provider{xAxis: f.XAxis, yAxis: f.YAxis, z: z, nx: f.Nx}
}

// Bounds returns the extent answered without clamping.
func (p *Provider) Bounds() (minX, maxX, minY, maxY float64) {
	return p.xAxis[0], p.xAxis[len(p.xAxis)-1], p.yAxis[0], p.yAxis[len(p.yAxis)-1]
}

// HeightAt returns the terrain elevation at (x, y). Points outside the
// extent are clamped to the boundary rather than extrapolated;
// extrapolation is what used to drag roads off the edge of the world.
func (p *Provider) HeightAt(x, y float64) float64 {
	x = clamp(x, p.xAxis[0], p.xAxis[len(p.xAxis)-1])
	y = clamp(y, p.yAxis[0], p.yAxis[len(p.yAxis)-1])

	i := cellIndex(p.xAxis, x)
	j := cellIndex(p.yAxis, y)

	x0, x1 := p.xAxis[i], p.xAxis[i+1]
	y0, y1 := p.yAxis[j], p.yAxis[j+1]
	dx := clamp((x-x0)/(x1-x0), 0, 1)
	dy := clamp((y-y0)/(y1-y0), 0, 1)

	z00 := p.z[j*p.nx+i]
	z10 := p.z[j*p.nx+i+1]
	z01 := p.z[(j+1)*p.nx+i]
	z11 := p.z[(j+1)*p.nx+i+1]

	if dx+dy <= 1 {
		return z00*(1-dx-dy) + z10*dx + z01*dy
	}
	return z11*(dx+dy-1) + z10*(1-dy) + z01*(1-dx)
}

// Heights is the batch form of HeightAt over parallel coordinate
// slices.
func (p *Provider) Heights(xs, ys []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = p.HeightAt(xs[i], ys[i])
	}
	return out
}

// MinZ returns the lowest node elevation in the view.
func (p *Provider) MinZ() float64 {
	min := p.z[0]
	for _, v := range p.z[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// cellIndex finds i such that axis[i] <= v <= axis[i+1], clamped to the
// last cell.
func cellIndex(axis []float64, v float64) int {
	i := sort.SearchFloat64s(axis, v)
	// SearchFloat64s returns the insertion point; step back onto the
	// cell's low node.
	if i > 0 && (i >= len(axis) || axis[i] != v) {
		i--
	}
	if i > len(axis)-2 {
		i = len(axis) - 2
	}
	return i
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
