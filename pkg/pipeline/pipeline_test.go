package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/pkg/errors"

	"github.com/quarrylabs/terramold/pkg/elevation"
	"github.com/quarrylabs/terramold/pkg/feature"
	"github.com/quarrylabs/terramold/pkg/geo"
	"github.com/quarrylabs/terramold/pkg/mesh"
)

// A roughly 1 km box; small enough that UTM distortion is negligible.
func testBounds() geo.GeoBounds {
	return geo.GeoBounds{MinLat: 50.400, MinLon: 30.500, MaxLat: 50.409, MaxLon: 30.514}
}

func testParams() Params {
	p := DefaultParams()
	p.Resolution = 60 // clamp floor; keeps tests fast
	p.SmoothingSigma = 0
	return p
}

func TestRunFlatRegionScenario(t *testing.T) {
	pl := &Pipeline{}
	res, err := pl.Run(context.Background(), Request{Bounds: testBounds()},
		elevation.Constant(100), testParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Scene.Fragments) != 1 {
		t.Fatalf("flat empty region produced %d fragments, want 1 (base)", len(res.Scene.Fragments))
	}
	base := res.Scene.Fragments[0]
	if base.Material != mesh.MaterialBase {
		t.Errorf("fragment material = %v, want base", base.Material)
	}
	if !base.IsWatertight() {
		t.Errorf("base not watertight: %d defects", base.DefectEdges())
	}
	min, max := res.Scene.Bounds()
	if math.Abs(min.Z) > 1e-6 {
		t.Errorf("min Z = %v, want 0", min.Z)
	}
	// Flat terrain: the whole solid is the 2 mm base thickness.
	if math.Abs(max.Z-2) > 0.01 {
		t.Errorf("max Z = %v, want ~2 mm", max.Z)
	}
	avgXY := ((max.X - min.X) + (max.Y - min.Y)) / 2
	if math.Abs(avgXY-100) > 0.5 {
		t.Errorf("average XY extent = %v, want ~100 mm", avgXY)
	}
}

func TestRunProgressOrder(t *testing.T) {
	var stages []string
	pl := &Pipeline{Progress: func(stage string, percent int) {
		stages = append(stages, stage)
	}}
	_, err := pl.Run(context.Background(), Request{Bounds: testBounds()},
		elevation.Constant(10), testParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"heightfield", "solidify", "roads", "buildings", "water", "green", "poi", "assemble"}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage[%d] = %q, want %q", i, stages[i], want[i])
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	anchor, err := geo.NewAnchor(testBounds())
	if err != nil {
		t.Fatalf("NewAnchor: %v", err)
	}
	// Features placed around the local origin, expressed in projected
	// coordinates.
	px, py := anchor.FromLocal(0, 0)
	req := Request{
		Bounds: testBounds(),
		Buildings: []feature.Polygon{{
			ID:   "b1",
			Geom: squareAt(px, py, 20),
			Tags: feature.Tags{"building:levels": "4"},
		}},
		Roads: []feature.LineString{{
			ID:   "r1",
			Geom: geom.LineString{{X: px - 300, Y: py}, {X: px + 300, Y: py}},
			Tags: feature.Tags{"highway": "secondary"},
		}},
		Water: []feature.Polygon{{
			ID:   "w1",
			Geom: squareAt(px+150, py+150, 60),
		}},
	}
	s := elevation.Synthetic{BaseM: 100, AmplitudeM: 25, WavelengthM: 300}

	run := func() [][]float64 {
		pl := &Pipeline{}
		res, err := pl.Run(context.Background(), req, s, testParams())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		var verts [][]float64
		for _, f := range res.Scene.Fragments {
			verts = append(verts, f.Vertices)
		}
		return verts
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("fragment counts differ: %d vs %d", len(a), len(b))
	}
	for fi := range a {
		if len(a[fi]) != len(b[fi]) {
			t.Fatalf("fragment %d vertex counts differ", fi)
		}
		for vi := range a[fi] {
			if a[fi][vi] != b[fi][vi] {
				t.Fatalf("fragment %d vertex float %d differs: %v vs %v",
					fi, vi, a[fi][vi], b[fi][vi])
			}
		}
	}
}

func TestRunSharedAnchorReused(t *testing.T) {
	anchor, err := geo.NewAnchor(testBounds())
	if err != nil {
		t.Fatalf("NewAnchor: %v", err)
	}
	pl := &Pipeline{}
	res, err := pl.Run(context.Background(),
		Request{Bounds: testBounds(), Anchor: anchor},
		elevation.Constant(5), testParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Anchor != anchor {
		t.Error("pipeline did not reuse the provided anchor")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pl := &Pipeline{}
	_, err := pl.Run(ctx, Request{Bounds: testBounds()},
		elevation.Constant(0), testParams())
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("err = %v, want ErrCancelled", err)
	}
}

func TestRunInvalidBounds(t *testing.T) {
	pl := &Pipeline{}
	_, err := pl.Run(context.Background(), Request{},
		elevation.Constant(0), testParams())
	if !errors.Is(err, geo.ErrInvalidInput) {
		t.Errorf("err = %v, want geo.ErrInvalidInput", err)
	}
}

func TestParamsClamp(t *testing.T) {
	tests := []struct {
		name  string
		tweak func(*Params)
		check func(Params) bool
	}{
		{"resolution floor", func(p *Params) { p.Resolution = 10 },
			func(p Params) bool { return p.Resolution == 60 }},
		{"resolution ceiling", func(p *Params) { p.Resolution = 999 },
			func(p Params) bool { return p.Resolution == 320 }},
		{"subdivision max", func(p *Params) { p.Subdivision.Levels = 7 },
			func(p Params) bool { return p.Subdivision.Levels == 2 }},
		{"bad quantile resets", func(p *Params) { p.Water.SurfaceQuantile = 3 },
			func(p Params) bool { return p.Water.SurfaceQuantile == 0.10 }},
		{"zero model size resets", func(p *Params) { p.ModelSizeMM = 0 },
			func(p Params) bool { return p.ModelSizeMM == 100 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.tweak(&p)
			p.Clamp()
			if !tt.check(p) {
				t.Errorf("clamp failed: %+v", p)
			}
		})
	}
}

func TestRunSceneOrdering(t *testing.T) {
	anchor, err := geo.NewAnchor(testBounds())
	if err != nil {
		t.Fatalf("NewAnchor: %v", err)
	}
	px, py := anchor.FromLocal(0, 0)
	req := Request{
		Bounds: testBounds(),
		Buildings: []feature.Polygon{
			{ID: "b", Geom: squareAt(px-200, py-200, 15), Tags: feature.Tags{"height": "10"}},
		},
		Roads: []feature.LineString{
			{ID: "r", Geom: geom.LineString{{X: px - 300, Y: py + 100}, {X: px + 300, Y: py + 100}},
				Tags: feature.Tags{"highway": "primary"}},
		},
		Water: []feature.Polygon{{ID: "w", Geom: squareAt(px+200, py-200, 40)}},
		Green: []feature.Polygon{{ID: "g", Geom: squareAt(px-100, py+200, 30)}},
		POIs:  []feature.Point{{ID: "p", Geom: geom.Point{X: px, Y: py - 100}}},
	}
	pl := &Pipeline{}
	res, err := pl.Run(context.Background(), req, elevation.Constant(50), testParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Category order: base, roads, buildings, water, green, poi.
	rank := map[mesh.Material]int{
		mesh.MaterialBase: 0, mesh.MaterialRoad: 1, mesh.MaterialBridge: 1,
		mesh.MaterialBuilding: 2, mesh.MaterialWater: 3,
		mesh.MaterialGreen: 4, mesh.MaterialPOI: 5,
	}
	last := -1
	for _, f := range res.Scene.Fragments {
		r := rank[f.Material]
		if r < last {
			t.Fatalf("fragment %s out of category order", f.Name)
		}
		last = r
	}
	for _, m := range []mesh.Material{
		mesh.MaterialBase, mesh.MaterialRoad, mesh.MaterialBuilding,
		mesh.MaterialWater, mesh.MaterialGreen, mesh.MaterialPOI,
	} {
		found := false
		for _, f := range res.Scene.Fragments {
			if f.Material == m {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no fragment with material %v", m)
		}
	}
}

func squareAt(cx, cy, half float64) geom.Polygon {
	return geom.Polygon{{
		{X: cx - half, Y: cy - half},
		{X: cx + half, Y: cy - half},
		{X: cx + half, Y: cy + half},
		{X: cx - half, Y: cy + half},
	}}
}
