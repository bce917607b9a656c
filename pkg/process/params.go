package process

// BuildingParams control prism extrusion and terrain seating of
// buildings. Millimeter values are print-model units converted at
// 1 mm = 1/1000 m in world space.
type BuildingParams struct {
	MinHeightM       float64 `yaml:"min_height_m"`
	HeightMultiplier float64 `yaml:"height_multiplier"`
	FoundationMM     float64 `yaml:"foundation_mm"`
	EmbedMM          float64 `yaml:"embed_mm"`
	SafetyMarginM    float64 `yaml:"safety_margin_m"`
}

// DefaultBuildingParams returns the stock building settings.
func DefaultBuildingParams() BuildingParams {
	return BuildingParams{
		MinHeightM:       2.0,
		HeightMultiplier: 1.0,
		FoundationMM:     1.0,
		EmbedMM:          0.0,
		SafetyMarginM:    0.1,
	}
}

// RoadParams control road buffering, extrusion and draping.
type RoadParams struct {
	WidthMultiplier float64            `yaml:"width_multiplier"`
	HeightMM        float64            `yaml:"height_mm"`
	EmbedMM         float64            `yaml:"embed_mm"`
	Widths          map[string]float64 `yaml:"widths"` // per-class overrides, meters
}

// DefaultRoadParams returns the stock road settings.
func DefaultRoadParams() RoadParams {
	return RoadParams{
		WidthMultiplier: 1.0,
		HeightMM:        0.5,
		EmbedMM:         0.3,
	}
}

// WaterParams control the depressed water surface.
type WaterParams struct {
	DepthM          float64 `yaml:"depth_m"`
	ThicknessM      float64 `yaml:"thickness_m"`
	ProtrusionM     float64 `yaml:"protrusion_m"`
	SurfaceQuantile float64 `yaml:"surface_quantile"`
}

// DefaultWaterParams returns the stock water settings.
func DefaultWaterParams() WaterParams {
	return WaterParams{
		DepthM:          2.0,
		ThicknessM:      0.5,
		ProtrusionM:     1.5,
		SurfaceQuantile: 0.10,
	}
}

// GreenParams control the embossed green-area overlay.
type GreenParams struct {
	HeightM float64 `yaml:"height_m"`
	EmbedM  float64 `yaml:"embed_m"`
}

// DefaultGreenParams returns the stock green-area settings.
func DefaultGreenParams() GreenParams {
	return GreenParams{HeightM: 0.6, EmbedM: 0.2}
}

// POIParams control point-of-interest markers.
type POIParams struct {
	SizeM   float64 `yaml:"size_m"`
	HeightM float64 `yaml:"height_m"`
	EmbedM  float64 `yaml:"embed_m"`
	Max     int     `yaml:"max"`
}

// DefaultPOIParams returns the stock POI settings.
func DefaultPOIParams() POIParams {
	return POIParams{SizeM: 2.0, HeightM: 3.0, EmbedM: 0.5, Max: 600}
}
