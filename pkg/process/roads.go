package process

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"

	"github.com/quarrylabs/terramold/pkg/feature"
	"github.com/quarrylabs/terramold/pkg/heightfield"
	"github.com/quarrylabs/terramold/pkg/mesh"
	"github.com/quarrylabs/terramold/pkg/terrain"
)

const (
	// clearanceMin keeps draped roads from vanishing into steep slopes.
	clearanceMin = 0.02
	// minBridgeClearance is the minimum deck height over water.
	minBridgeClearance = 3.0
	// waterSurfaceOffset estimates the water level below the original
	// (pre-depression) ground under a bridge.
	waterSurfaceOffset = 0.2
	// Support geometry.
	supportSpacingM   = 20.0
	supportWidthM     = 2.5
	supportSinkM      = 0.5
	minSupportHeightM = 2.0
	// minWaterOverlapM2 is the smallest buffered-road/water overlap
	// that flags a line as a bridge.
	minWaterOverlapM2 = 1.0
)

// waterEntry wraps a water polygon for the spatial index.
type waterEntry struct {
	poly geom.Polygon
}

func (w waterEntry) Bounds() *geom.Bounds { return w.poly.Bounds() }
func (w waterEntry) Similar(g geom.Geom, tolerance float64) bool {
	return w.poly.Similar(g, tolerance)
}
func (w waterEntry) Transform(t proj.Transformer) (geom.Geom, error) { return w.poly.Transform(t) }
func (w waterEntry) Len() int                                        { return w.poly.Len() }
func (w waterEntry) Points() func() geom.Point                       { return w.poly.Points() }

// Roads buffers road centerlines into polygons, classifies bridges
// (tagged or crossing water), drapes ground roads onto the terrain with
// adaptive embedding, places bridge decks over the water level, and
// plants supports under each bridge. origProv serves pre-depression
// ground; it equals prov when no water depression ran.
func Roads(ctx context.Context, lines []feature.LineString, water []feature.Polygon, prov, origProv *terrain.Provider, p RoadParams, log *zap.Logger) ([]*mesh.Mesh, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if origProv == nil {
		origProv = prov
	}
	heightM := p.HeightMM / 1000
	if heightM <= 0 {
		heightM = 0.0005
	}
	embedM := p.EmbedMM / 1000

	waterIndex := rtree.NewTree(25, 50)
	for _, w := range water {
		if len(w.Geom) > 0 {
			waterIndex.Insert(waterEntry{poly: w.Geom})
		}
	}

	type buffered struct {
		line   feature.LineString
		polys  []geom.Polygon
		bridge bool
	}
	buffers := make([]buffered, len(lines))
	err := forEach(ctx, len(lines), func(i int) {
		l := lines[i]
		width := roadWidth(l.Tags, p)
		polys := feature.BufferLine(l.Geom, width/2)
		if len(polys) == 0 {
			log.Warn("road skipped",
				zap.String("stage", "roads"),
				zap.String("feature", l.ID),
				zap.Error(ErrDegenerateFeature))
			return
		}
		buffers[i] = buffered{
			line:   l,
			polys:  polys,
			bridge: feature.TaggedBridge(l.Tags) || crossesWater(polys, waterIndex),
		}
	})
	if err != nil {
		return nil, err
	}

	var frags []*mesh.Mesh

	// Ground roads: union all non-bridge buffers into one polygon
	// layer, then drape each simple part.
	minX, maxX, minY, maxY := prov.Bounds()
	extent := &geom.Bounds{Min: geom.Point{X: minX, Y: minY}, Max: geom.Point{X: maxX, Y: maxY}}

	var groundPolys []geom.Polygon
	for _, b := range buffers {
		if b.line.Geom != nil && !b.bridge {
			groundPolys = append(groundPolys, b.polys...)
		}
	}
	parts := clipAll(feature.UnionPolygons(groundPolys), extent)
	// Union output order is an implementation detail; sort by a stable
	// spatial key so concurrent runs emit identical scenes.
	sort.Slice(parts, func(i, j int) bool {
		bi, bj := parts[i].Bounds(), parts[j].Bounds()
		if bi.Min.X != bj.Min.X {
			return bi.Min.X < bj.Min.X
		}
		return bi.Min.Y < bj.Min.Y
	})
	for pi, part := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := mesh.ExtrudePolygon(part, heightM)
		if err != nil {
			log.Warn("road part skipped",
				zap.String("stage", "roads"),
				zap.Int("part", pi),
				zap.Error(err))
			continue
		}
		drapeRoad(m, prov, embedM)
		m.Material = mesh.MaterialRoad
		m.Name = fmt.Sprintf("road/%d", pi)
		frags = append(frags, m)
	}

	// Bridges, in input order: deck first, then its supports.
	for _, b := range buffers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if b.line.Geom == nil || !b.bridge {
			continue
		}
		bf, err := buildBridge(b.line, clipAll(b.polys, extent), extent, prov, origProv, heightM)
		if err != nil {
			log.Warn("bridge skipped",
				zap.String("stage", "roads"),
				zap.String("feature", b.line.ID),
				zap.Error(err))
			continue
		}
		frags = append(frags, bf...)
	}
	return frags, nil
}

// clipAll intersects every polygon with the terrain extent so road
// meshes never emit out-of-extent vertices.
func clipAll(polys []geom.Polygon, extent *geom.Bounds) []geom.Polygon {
	var out []geom.Polygon
	for _, p := range polys {
		out = append(out, feature.ClipToBounds(p, extent)...)
	}
	return out
}

func roadWidth(tags feature.Tags, p RoadParams) float64 {
	class := tags.RoadClass()
	w := feature.RoadClassWidth(class)
	if override, ok := p.Widths[class]; ok {
		w = override
	}
	mult := p.WidthMultiplier
	if mult <= 0 {
		mult = 1
	}
	return w * mult
}

// crossesWater reports whether any buffered part overlaps water by a
// non-trivial area.
func crossesWater(polys []geom.Polygon, index *rtree.Rtree) bool {
	for _, p := range polys {
		for _, hit := range index.SearchIntersect(p.Bounds()) {
			w := hit.(waterEntry)
			inter := p.Intersection(w.poly)
			if inter == nil {
				continue
			}
			var area float64
			for _, part := range feature.PolygonsOf(inter) {
				area += part.Area()
			}
			if area >= minWaterOverlapM2 {
				return true
			}
		}
	}
	return false
}

// drapeRoad drops every vertex of an extruded road part onto the
// terrain. On steep ground the effective embed shrinks linearly to half
// the nominal value, and a minimum clearance always wins.
func drapeRoad(m *mesh.Mesh, prov *terrain.Provider, embedM float64) {
	n := m.VertexCount()
	grounds := make([]float64, n)
	minG, maxG := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		v := m.Vertex(i)
		g := prov.HeightAt(v.X, v.Y)
		grounds[i] = g
		minG = math.Min(minG, g)
		maxG = math.Max(maxG, g)
	}
	eff := effectiveEmbed(embedM, maxG-minG)
	for i := 0; i < n; i++ {
		v := m.Vertex(i)
		z := grounds[i] + v.Z - eff
		if min := grounds[i] + clearanceMin; z < min {
			z = min
		}
		m.SetVertex(i, v3.Vec{X: v.X, Y: v.Y, Z: z})
	}
}

// effectiveEmbed reduces the embed once the local slope exceeds twice
// the nominal embed, sliding linearly down to 50% of nominal.
func effectiveEmbed(embed, slope float64) float64 {
	if embed <= 0 {
		return 0
	}
	threshold := 2 * embed
	if slope <= threshold {
		return embed
	}
	factor := 1.5 - 0.5*(slope/threshold)
	if factor < 0.5 {
		factor = 0.5
	}
	return embed * factor
}

// buildBridge places one bridge deck and its supports.
func buildBridge(line feature.LineString, polys []geom.Polygon, extent *geom.Bounds, prov, origProv *terrain.Provider, heightM float64) ([]*mesh.Mesh, error) {
	classH := feature.BridgeClassHeight(line.Tags)

	deck := &mesh.Mesh{}
	for _, p := range polys {
		prism, err := mesh.ExtrudePolygon(p, heightM)
		if err != nil {
			continue
		}
		deck.Append(prism)
	}
	if deck.IsEmpty() {
		return nil, ErrDegenerateFeature
	}

	// Water level estimate from the pre-depression terrain under the
	// footprint; deck base clears both the water and the banks.
	var origG, currG []float64
	for i := 0; i < deck.VertexCount(); i++ {
		v := deck.Vertex(i)
		origG = append(origG, origProv.HeightAt(v.X, v.Y))
		currG = append(currG, prov.HeightAt(v.X, v.Y))
	}
	wMed := heightfield.Quantile(origG, 0.5) - waterSurfaceOffset
	groundMed := heightfield.Quantile(currG, 0.5)
	base := math.Max(
		wMed+math.Max(minBridgeClearance, classH),
		groundMed+classH,
	)

	deck.Translate(v3.Vec{Z: base})
	deck.Material = mesh.MaterialBridge
	deck.Name = fmt.Sprintf("bridge/%s", line.ID)
	frags := []*mesh.Mesh{deck}

	for si, pos := range supportPositions(line.Geom) {
		if pos.X < extent.Min.X || pos.X > extent.Max.X ||
			pos.Y < extent.Min.Y || pos.Y > extent.Max.Y {
			continue
		}
		ground := prov.HeightAt(pos.X, pos.Y)
		bottom := math.Min(ground, wMed-supportSinkM)
		top := base // the deck's underside
		h := top - bottom
		if h <= 0 {
			continue
		}
		inWater := ground < wMed+supportSinkM
		if !inWater && h < minSupportHeightM {
			continue
		}
		s := mesh.NewBox(pos.X, pos.Y, bottom, supportWidthM, supportWidthM, h)
		s.Material = mesh.MaterialBridge
		s.Name = fmt.Sprintf("bridge/%s/support/%d", line.ID, si)
		frags = append(frags, s)
	}
	return frags, nil
}

// supportPositions places supports at both ends of the centerline and
// at intermediate points no more than supportSpacingM apart.
func supportPositions(line geom.LineString) []geom.Point {
	length := feature.LineLength(line)
	if length <= 0 || len(line) < 2 {
		return nil
	}
	spans := int(math.Ceil(length / supportSpacingM))
	if spans < 1 {
		spans = 1
	}
	pts := make([]geom.Point, 0, spans+1)
	for k := 0; k <= spans; k++ {
		pts = append(pts, feature.PointAlongLine(line, length*float64(k)/float64(spans)))
	}
	return pts
}
