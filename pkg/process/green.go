package process

import (
	"context"
	"fmt"

	"github.com/ctessum/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"

	"github.com/quarrylabs/terramold/pkg/feature"
	"github.com/quarrylabs/terramold/pkg/mesh"
	"github.com/quarrylabs/terramold/pkg/terrain"
)

// minGreenAreaM2 drops accidental slivers of green coverage.
const minGreenAreaM2 = 100.0

// Green builds thin embossed overlays for parks and green areas,
// draped onto the terrain and sunk by the embed distance.
func Green(ctx context.Context, polys []feature.Polygon, prov *terrain.Provider, p GreenParams, log *zap.Logger) ([]*mesh.Mesh, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if p.HeightM <= 0 {
		return nil, nil
	}
	minX, maxX, minY, maxY := prov.Bounds()
	extent := &geom.Bounds{Min: geom.Point{X: minX, Y: minY}, Max: geom.Point{X: maxX, Y: maxY}}

	frags := make([]*mesh.Mesh, len(polys))
	err := forEach(ctx, len(polys), func(i int) {
		m, err := greenOne(polys[i], extent, prov, p)
		if err != nil {
			log.Warn("green area skipped",
				zap.String("stage", "green"),
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

func greenOne(f feature.Polygon, extent *geom.Bounds, prov *terrain.Provider, p GreenParams) (*mesh.Mesh, error) {
	poly := feature.NormalizePolygon(f.Geom)
	if poly == nil {
		return nil, ErrDegenerateFeature
	}
	parts := feature.ClipToBounds(poly, extent)
	if len(parts) == 0 {
		return nil, ErrDegenerateFeature
	}

	out := &mesh.Mesh{Material: mesh.MaterialGreen, Name: fmt.Sprintf("green/%s", f.ID)}
	for _, part := range parts {
		if part.Area() < minGreenAreaM2 {
			continue
		}
		part = simplifyPolygon(part, waterSimplifyToleranceM)
		m, err := mesh.ExtrudePolygon(part, p.HeightM)
		if err != nil {
			continue
		}
		for i := 0; i < m.VertexCount(); i++ {
			v := m.Vertex(i)
			g := prov.HeightAt(v.X, v.Y)
			m.SetVertex(i, v3.Vec{X: v.X, Y: v.Y, Z: g + v.Z - p.EmbedM})
		}
		out.Append(m)
	}
	if out.IsEmpty() {
		return nil, ErrDegenerateFeature
	}
	return out, nil
}
