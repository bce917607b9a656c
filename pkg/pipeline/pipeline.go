// Package pipeline runs the full composition sequence for one world
// region: coordinate frame, height field with terrain-first passes,
// watertight base, feature processors, and final assembly. Exactly one
// pipeline instance produces a given request; internal parallelism
// never changes the output.
package pipeline

import (
	"context"

	"github.com/ctessum/geom"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/quarrylabs/terramold/pkg/elevation"
	"github.com/quarrylabs/terramold/pkg/feature"
	"github.com/quarrylabs/terramold/pkg/geo"
	"github.com/quarrylabs/terramold/pkg/heightfield"
	"github.com/quarrylabs/terramold/pkg/mesh"
	"github.com/quarrylabs/terramold/pkg/process"
	"github.com/quarrylabs/terramold/pkg/scene"
	"github.com/quarrylabs/terramold/pkg/terrain"
)

// ErrCancelled is how callers test for an aborted run.
var ErrCancelled = context.Canceled

// Request carries one world region's inputs. Feature coordinates are in
// the projected metric CRS the anchor records; the pipeline converts
// them to local.
//
// Anchor is optional: when several tiles of one world region are
// produced, the caller derives the anchor once from the union bounds
// and passes it to every tile so shared edges stitch bit-exactly. When
// nil, the anchor is derived from Bounds.
type Request struct {
	Bounds    geo.GeoBounds
	Anchor    *geo.Anchor
	Buildings []feature.Polygon
	Roads     []feature.LineString
	Water     []feature.Polygon
	Green     []feature.Polygon
	POIs      []feature.Point
}

// ProgressFunc observes stage completion. percent is cumulative.
type ProgressFunc func(stage string, percent int)

// Result is the finished scene plus the artifacts tile-stitching and
// diagnostics want.
type Result struct {
	RunID  string
	Anchor *geo.Anchor
	Field  *heightfield.Field
	Scene  *scene.Scene
}

// Pipeline is a reusable runner. The zero value works; Log and
// Progress are optional.
type Pipeline struct {
	Log      *zap.Logger
	Progress ProgressFunc
}

func (pl *Pipeline) log() *zap.Logger {
	if pl.Log == nil {
		return zap.NewNop()
	}
	return pl.Log
}

func (pl *Pipeline) progress(stage string, percent int) {
	if pl.Progress != nil {
		pl.Progress(stage, percent)
	}
	pl.log().Info("stage complete", zap.String("stage", stage), zap.Int("percent", percent))
}

func checkCancel(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "cancelled in %s", stage)
	}
	return nil
}

// Run executes the full pipeline. Per-feature failures are logged and
// skipped; structural failures (height field, base) abort the run.
func (pl *Pipeline) Run(ctx context.Context, req Request, sampler elevation.Sampler, params Params) (*Result, error) {
	params.Clamp()
	log := pl.log()

	// Coordinate frame: derive the anchor unless the caller already
	// holds the world region's one.
	if err := checkCancel(ctx, "anchor"); err != nil {
		return nil, err
	}
	anchor := req.Anchor
	if anchor == nil {
		var err error
		anchor, err = geo.NewAnchor(req.Bounds)
		if err != nil {
			return nil, err
		}
	}
	minX, minY, maxX, maxY, err := anchor.LocalBounds(req.Bounds)
	if err != nil {
		return nil, err
	}
	extent := heightfield.Extent{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}

	toLocal := func(x, y float64) (float64, float64) { return anchor.ToLocal(x, y) }
	buildings := mapPolygons(req.Buildings, toLocal)
	waterPolys := mapPolygons(req.Water, toLocal)
	greenPolys := mapPolygons(req.Green, toLocal)
	roads := make([]feature.LineString, len(req.Roads))
	for i, l := range req.Roads {
		roads[i] = feature.MapLineString(l, toLocal)
	}
	pois := make([]feature.Point, len(req.POIs))
	for i, p := range req.POIs {
		pois[i] = feature.MapPoint(p, toLocal)
	}

	// Height field with terrain-first passes: flatten buildings, then
	// roads, then depress water. The operators share the field and are
	// strictly serialized.
	if err := checkCancel(ctx, "heightfield"); err != nil {
		return nil, err
	}
	field, err := heightfield.Build(ctx, extent, heightfield.Options{
		Resolution:     params.Resolution,
		ZScale:         params.ZScale,
		ElevationRefM:  params.ElevationRefM,
		SmoothingSigma: params.SmoothingSigma,
	}, anchor.GeographicFromLocal, sampler, log)
	if err != nil {
		return nil, err
	}
	if params.Flatten.Buildings {
		n := field.Flatten(polygonGeoms(buildings), params.Flatten.BuildingQuantile)
		log.Info("flattened terrain under buildings", zap.Int("applied", n))
	}
	if params.Flatten.Roads {
		n := field.Flatten(roadFootprints(roads, params.Road), params.Flatten.RoadQuantile)
		log.Info("flattened terrain under roads", zap.Int("applied", n))
	}
	if params.Water.DepthM > 0 && len(waterPolys) > 0 {
		n := field.Depress(polygonGeoms(waterPolys), params.Water.DepthM, params.Water.SurfaceQuantile)
		log.Info("depressed terrain under water", zap.Int("applied", n))
	}
	pl.progress("heightfield", 15)

	// Watertight base. Print-model millimeter thickness converts to
	// world meters through the final scale factor.
	if err := checkCancel(ctx, "solidify"); err != nil {
		return nil, err
	}
	scaleMMPerM := params.ModelSizeMM / ((extent.Width() + extent.Height()) / 2)
	baseThicknessM := params.BaseThicknessMM / scaleMMPerM
	base, err := terrain.Solidify(field, baseThicknessM, params.Subdivision.Levels)
	if err != nil {
		return nil, err
	}
	pl.progress("solidify", 30)

	prov := terrain.NewProvider(field)
	origProv := terrain.NewSnapshotProvider(field, field.OriginalZOrCurrent())

	// Feature processors, in the documented scene order.
	if err := checkCancel(ctx, "roads"); err != nil {
		return nil, err
	}
	roadFrags, err := process.Roads(ctx, roads, waterPolys, prov, origProv, params.Road, log)
	if err != nil {
		return nil, err
	}
	pl.progress("roads", 45)

	if err := checkCancel(ctx, "buildings"); err != nil {
		return nil, err
	}
	buildingFrags, err := process.Buildings(ctx, buildings, prov, params.Building, log)
	if err != nil {
		return nil, err
	}
	pl.progress("buildings", 60)

	if err := checkCancel(ctx, "water"); err != nil {
		return nil, err
	}
	waterFrags, err := process.Water(ctx, waterPolys, prov, origProv, params.Water, log)
	if err != nil {
		return nil, err
	}
	pl.progress("water", 70)

	if err := checkCancel(ctx, "green"); err != nil {
		return nil, err
	}
	greenFrags, err := process.Green(ctx, greenPolys, prov, params.Green, log)
	if err != nil {
		return nil, err
	}
	pl.progress("green", 80)

	if err := checkCancel(ctx, "poi"); err != nil {
		return nil, err
	}
	poiFrags, err := process.POIs(ctx, pois, prov, params.POI, log)
	if err != nil {
		return nil, err
	}
	pl.progress("poi", 85)

	// Assembly: base, roads (with bridges and supports), buildings,
	// water, green, POI.
	if err := checkCancel(ctx, "assemble"); err != nil {
		return nil, err
	}
	frags := make([]*mesh.Mesh, 0,
		1+len(roadFrags)+len(buildingFrags)+len(waterFrags)+len(greenFrags)+len(poiFrags))
	frags = append(frags, base)
	frags = append(frags, roadFrags...)
	frags = append(frags, buildingFrags...)
	frags = append(frags, waterFrags...)
	frags = append(frags, greenFrags...)
	frags = append(frags, poiFrags...)

	sc, err := scene.Assemble(frags, scene.Options{
		ModelSizeMM: params.ModelSizeMM,
		Colors:      params.Colors,
	})
	if err != nil {
		return nil, err
	}
	pl.progress("assemble", 100)

	return &Result{
		RunID:  uuid.NewString(),
		Anchor: anchor,
		Field:  field,
		Scene:  sc,
	}, nil
}

func mapPolygons(in []feature.Polygon, fn feature.TransformFunc) []feature.Polygon {
	out := make([]feature.Polygon, len(in))
	for i, p := range in {
		out[i] = feature.MapPolygon(p, fn)
	}
	return out
}

func polygonGeoms(in []feature.Polygon) []geom.Polygon {
	out := make([]geom.Polygon, 0, len(in))
	for _, p := range in {
		if len(p.Geom) > 0 {
			out = append(out, p.Geom)
		}
	}
	return out
}

// roadFootprints buffers road centerlines for the optional road
// flattening pass, using the same widths the road processor will use.
func roadFootprints(roads []feature.LineString, p process.RoadParams) []geom.Polygon {
	var out []geom.Polygon
	for _, l := range roads {
		w := feature.RoadClassWidth(l.Tags.RoadClass())
		if override, ok := p.Widths[l.Tags.RoadClass()]; ok {
			w = override
		}
		mult := p.WidthMultiplier
		if mult <= 0 {
			mult = 1
		}
		out = append(out, feature.BufferLine(l.Geom, w*mult/2)...)
	}
	return out
}
