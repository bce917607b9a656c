package process

import (
	"context"
	"fmt"
	"math"

	"github.com/ctessum/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"

	"github.com/quarrylabs/terramold/pkg/feature"
	"github.com/quarrylabs/terramold/pkg/mesh"
	"github.com/quarrylabs/terramold/pkg/terrain"
)

const (
	// minWaterAreaM2 drops accidental slivers.
	minWaterAreaM2 = 25.0
	// bankMargin keeps the water top strictly below the original
	// ground so banks stay visible.
	bankMargin = 0.02
	// waterSimplifyToleranceM smooths micro-segments before extrusion.
	waterSimplifyToleranceM = 0.5
)

// Water builds the thin water surface over the depressed terrain. prov
// reflects the depressed field; origProv the pre-depression snapshot.
// Water meshes are never subdivided: the regular extrusion sampling
// must stay aligned with the per-vertex surface rule.
func Water(ctx context.Context, polys []feature.Polygon, prov, origProv *terrain.Provider, p WaterParams, log *zap.Logger) ([]*mesh.Mesh, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if origProv == nil {
		origProv = prov
	}
	if p.ThicknessM <= 0 {
		return nil, nil
	}
	minX, maxX, minY, maxY := prov.Bounds()
	extent := &geom.Bounds{Min: geom.Point{X: minX, Y: minY}, Max: geom.Point{X: maxX, Y: maxY}}

	frags := make([]*mesh.Mesh, len(polys))
	err := forEach(ctx, len(polys), func(i int) {
		m, err := waterOne(polys[i], extent, prov, origProv, p)
		if err != nil {
			log.Warn("water skipped",
				zap.String("stage", "water"),
				zap.String("feature", polys[i].ID),
				zap.Error(err))
			return
		}
		frags[i] = m
	})
	if err != nil {
		return nil, err
	}
	return collect(frags), nil
}

func waterOne(f feature.Polygon, extent *geom.Bounds, prov, origProv *terrain.Provider, p WaterParams) (*mesh.Mesh, error) {
	poly := feature.NormalizePolygon(f.Geom)
	if poly == nil {
		return nil, ErrDegenerateFeature
	}
	parts := feature.ClipToBounds(poly, extent)
	if len(parts) == 0 {
		return nil, ErrDegenerateFeature
	}

	out := &mesh.Mesh{Material: mesh.MaterialWater, Name: fmt.Sprintf("water/%s", f.ID)}
	for _, part := range parts {
		if part.Area() < minWaterAreaM2 {
			continue
		}
		part = simplifyPolygon(part, waterSimplifyToleranceM)
		m, err := mesh.ExtrudePolygon(part, p.ThicknessM)
		if err != nil {
			continue
		}
		placeWaterVertices(m, prov, origProv, p)
		out.Append(m)
	}
	if out.IsEmpty() {
		return nil, ErrDegenerateFeature
	}
	return out, nil
}

// placeWaterVertices applies the per-vertex surface rule: the water top
// is the depressed ground plus protrusion, clamped below the ORIGINAL
// ground; the bottom hangs one thickness under the top.
func placeWaterVertices(m *mesh.Mesh, prov, origProv *terrain.Provider, p WaterParams) {
	const eps = 1e-9
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		gOrig := origProv.HeightAt(v.X, v.Y)
		gDepr := prov.HeightAt(v.X, v.Y)
		surface := math.Min(gDepr+p.ProtrusionM, gOrig-bankMargin)

		var z float64
		switch {
		case math.Abs(v.Z-p.ThicknessM) < eps: // extrusion top
			z = surface
		case math.Abs(v.Z) < eps: // extrusion bottom
			z = surface - p.ThicknessM
		default:
			z = surface - (p.ThicknessM - v.Z)
		}
		m.SetVertex(i, v3.Vec{X: v.X, Y: v.Y, Z: z})
	}
}
