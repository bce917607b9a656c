package feature

import "strings"

// roadWidths is the default full width in meters per OSM highway class.
var roadWidths = map[string]float64{
	"motorway":      12,
	"motorway_link": 10,
	"trunk":         10,
	"trunk_link":    8,
	"primary":       8,
	"secondary":     7,
	"tertiary":      6,
	"residential":   5,
	"service":       3.5,
	"footway":       2.5,
}

// DefaultRoadWidth is used for classes without an entry in the table.
const DefaultRoadWidth = 4.0

// RoadClassWidth returns the default full width in meters for a highway
// class. Multi-value tags ("primary;secondary") use the first entry.
func RoadClassWidth(class string) float64 {
	c := strings.ToLower(strings.TrimSpace(class))
	if i := strings.IndexByte(c, ';'); i >= 0 {
		c = c[:i]
	}
	if w, ok := roadWidths[c]; ok {
		return w
	}
	return DefaultRoadWidth
}

// RoadClass extracts the highway class from a road's tags.
func (t Tags) RoadClass() string {
	return strings.ToLower(strings.TrimSpace(t.Get("highway")))
}

// Bridge deck heights above the reference level, per structure class.
const (
	bridgeHeightSuspension = 5.0
	bridgeHeightArch       = 4.0
	bridgeHeightBeam       = 3.0
)

// BridgeClassHeight returns the deck height in meters for a bridge,
// derived from its bridge:type tag; plain beam bridges are the default.
func BridgeClassHeight(tags Tags) float64 {
	bt := strings.ToLower(tags.Get("bridge:type"))
	switch {
	case strings.Contains(bt, "suspension"):
		return bridgeHeightSuspension
	case strings.Contains(bt, "arch"):
		return bridgeHeightArch
	case strings.Contains(bt, "beam"):
		return bridgeHeightBeam
	}
	return bridgeHeightBeam
}

// TaggedBridge reports whether the feature's tags alone mark it as a
// bridge: an explicit bridge flag, a bridge structure, or a layer >= 1.
func TaggedBridge(tags Tags) bool {
	if tags.Truthy("bridge") || tags.Truthy("bridge:structure") || tags.Truthy("man_made") {
		return true
	}
	return Layer(tags) >= 1
}
