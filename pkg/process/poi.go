package process

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/quarrylabs/terramold/pkg/feature"
	"github.com/quarrylabs/terramold/pkg/mesh"
	"github.com/quarrylabs/terramold/pkg/terrain"
)

// poiClassPriority ranks marker classes when the cap forces a
// selection; lower ranks survive first.
func poiClassPriority(tags feature.Tags) int {
	for _, key := range []string{"amenity", "tourism", "historic", "leisure"} {
		switch tags.Get(key) {
		case "fountain":
			return 0
		case "artwork", "memorial", "monument":
			return 1
		case "viewpoint":
			return 2
		case "bench":
			return 3
		case "waste_basket":
			return 5
		}
	}
	return 4
}

// POIs places small box markers on the terrain. When the input exceeds
// the cap, markers are kept by class priority, then by distance from
// the extent center, then by ID; the selection is deterministic.
func POIs(ctx context.Context, points []feature.Point, prov *terrain.Provider, p POIParams, log *zap.Logger) ([]*mesh.Mesh, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if p.SizeM <= 0 || p.HeightM <= 0 {
		return nil, nil
	}
	minX, maxX, minY, maxY := prov.Bounds()
	cx, cy := (minX+maxX)/2, (minY+maxY)/2

	kept := append([]feature.Point(nil), points...)
	if p.Max > 0 && len(kept) > p.Max {
		sort.SliceStable(kept, func(i, j int) bool {
			pi, pj := poiClassPriority(kept[i].Tags), poiClassPriority(kept[j].Tags)
			if pi != pj {
				return pi < pj
			}
			di := math.Hypot(kept[i].Geom.X-cx, kept[i].Geom.Y-cy)
			dj := math.Hypot(kept[j].Geom.X-cx, kept[j].Geom.Y-cy)
			if di != dj {
				return di < dj
			}
			return kept[i].ID < kept[j].ID
		})
		kept = kept[:p.Max]
	}

	frags := make([]*mesh.Mesh, len(kept))
	err := forEach(ctx, len(kept), func(i int) {
		pt := kept[i]
		if pt.Geom.X < minX || pt.Geom.X > maxX || pt.Geom.Y < minY || pt.Geom.Y > maxY {
			return
		}
		ground := prov.HeightAt(pt.Geom.X, pt.Geom.Y)
		zMin := ground - p.EmbedM
		m := mesh.NewBox(pt.Geom.X, pt.Geom.Y, zMin, p.SizeM, p.SizeM, p.HeightM)
		m.Material = mesh.MaterialPOI
		m.Name = fmt.Sprintf("poi/%s", pt.ID)
		frags[i] = m
	})
	if err != nil {
		return nil, err
	}
	return collect(frags), nil
}
