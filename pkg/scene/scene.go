// Package scene assembles mesh fragments into the final exportable
// scene: one shared transform (center, uniform scale to the requested
// model size, lift to the build plate) and per-fragment material
// colors. Fragments of different materials are never welded together,
// which preserves color separation for material-aware export.
package scene

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/quarrylabs/terramold/pkg/mesh"
)

// Colors maps each material to its print color.
type Colors struct {
	Base     mesh.Color `yaml:"base"`
	Building mesh.Color `yaml:"building"`
	Road     mesh.Color `yaml:"road"`
	Bridge   mesh.Color `yaml:"bridge"`
	Water    mesh.Color `yaml:"water"`
	Green    mesh.Color `yaml:"green"`
	POI      mesh.Color `yaml:"poi"`
}

// DefaultColors returns the stock palette. Bridges share the road
// material color unless overridden.
func DefaultColors() Colors {
	return Colors{
		Base:     mesh.Color{140, 140, 130},
		Building: mesh.Color{180, 180, 180},
		Road:     mesh.Color{30, 30, 30},
		Bridge:   mesh.Color{30, 30, 30},
		Water:    mesh.Color{0, 100, 255},
		Green:    mesh.Color{90, 140, 80},
		POI:      mesh.Color{220, 180, 60},
	}
}

// ForMaterial returns the palette color of m.
func (c Colors) ForMaterial(m mesh.Material) mesh.Color {
	switch m {
	case mesh.MaterialBuilding:
		return c.Building
	case mesh.MaterialRoad:
		return c.Road
	case mesh.MaterialBridge:
		return c.Bridge
	case mesh.MaterialWater:
		return c.Water
	case mesh.MaterialGreen:
		return c.Green
	case mesh.MaterialPOI:
		return c.POI
	}
	return c.Base
}

// Options configure assembly.
type Options struct {
	ModelSizeMM float64
	Colors      Colors
	// AddFlatBase appends a plain rectangular slab under the scene;
	// used when terrain generation is disabled.
	AddFlatBase         bool
	FlatBaseThicknessMM float64
}

// Scene is the ordered collection of assembled fragments. All
// dimensions are millimeters; min Z is 0.
type Scene struct {
	Fragments []*mesh.Mesh
}

// Bounds returns the scene's bounding box.
func (s *Scene) Bounds() (min, max v3.Vec) {
	min = v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, f := range s.Fragments {
		fmin, fmax := f.Bounds()
		min = min.Min(fmin)
		max = max.Max(fmax)
	}
	return min, max
}

// Combined flattens every fragment into one mesh (colors discarded);
// the single-mesh form STL export consumes.
func (s *Scene) Combined() *mesh.Mesh {
	out := &mesh.Mesh{Name: "scene"}
	for _, f := range s.Fragments {
		out.Append(f)
	}
	return out
}

// Assemble applies the shared scene transform to the fragments, in
// place, and fills in missing colors. Fragment order is preserved; the
// caller passes them in the documented category order (base, roads,
// buildings, water, green, POI).
func Assemble(frags []*mesh.Mesh, opts Options) (*Scene, error) {
	frags = lo.Filter(frags, func(f *mesh.Mesh, _ int) bool {
		return f != nil && !f.IsEmpty()
	})
	if len(frags) == 0 {
		return nil, errors.New("scene: no fragments to assemble")
	}
	if opts.ModelSizeMM <= 0 {
		opts.ModelSizeMM = 100
	}

	s := &Scene{Fragments: frags}

	// Center the XY centroid at the origin (Z untouched).
	centroid := vertexCentroid(frags)
	translate(frags, v3.Vec{X: -centroid.X, Y: -centroid.Y})

	// Optional flat slab under everything, exactly the XY footprint.
	if opts.AddFlatBase {
		min, max := s.Bounds()
		// The thickness is in print millimeters; convert it to the
		// pre-scale units through the scale factor applied below (the
		// slab keeps the XY footprint, so it does not change that factor).
		avg := ((max.X - min.X) + (max.Y - min.Y)) / 2
		thickness := math.Max(opts.FlatBaseThicknessMM, 0.8) * avg / opts.ModelSizeMM
		slab := mesh.NewBox(
			(min.X+max.X)/2, (min.Y+max.Y)/2,
			min.Z-thickness,
			max.X-min.X, max.Y-min.Y, thickness)
		slab.Material = mesh.MaterialBase
		slab.Name = "base/flat"
		s.Fragments = append(s.Fragments, slab)
		frags = s.Fragments
	}

	// Uniform scale so the average XY extent matches the requested
	// model size; applying it to Z too preserves vertical proportion.
	min, max := s.Bounds()
	avgXY := ((max.X - min.X) + (max.Y - min.Y)) / 2
	if avgXY <= 0 {
		return nil, errors.New("scene: degenerate XY extent")
	}
	scale := opts.ModelSizeMM / avgXY
	for _, f := range frags {
		f.Scale(scale)
	}

	// Re-center XY by bounds and drop min Z to the build plate.
	min, max = s.Bounds()
	translate(frags, v3.Vec{
		X: -(min.X + max.X) / 2,
		Y: -(min.Y + max.Y) / 2,
		Z: -min.Z,
	})

	// Material pass: only fragments missing a color get the default.
	for _, f := range frags {
		if f.Color == nil {
			c := opts.Colors.ForMaterial(f.Material)
			f.Color = &c
		}
	}
	return s, nil
}

func translate(frags []*mesh.Mesh, d v3.Vec) {
	for _, f := range frags {
		f.Translate(d)
	}
}

// vertexCentroid is the mean of all vertices across fragments.
func vertexCentroid(frags []*mesh.Mesh) v3.Vec {
	var sum v3.Vec
	var n float64
	for _, f := range frags {
		for i := 0; i < f.VertexCount(); i++ {
			sum = sum.Add(f.Vertex(i))
			n++
		}
	}
	if n == 0 {
		return v3.Vec{}
	}
	return sum.MulScalar(1 / n)
}
