package pipeline

import (
	"github.com/quarrylabs/terramold/pkg/process"
	"github.com/quarrylabs/terramold/pkg/scene"
)

// Resolution and subdivision clamp limits.
const (
	minResolution        = 60
	maxResolution        = 320
	maxSubdivisionLevels = 2
)

// FlattenParams select which terrain-first flattening passes run.
// Buildings always flatten before roads; later passes overwrite.
type FlattenParams struct {
	Buildings        bool    `yaml:"buildings"`
	Roads            bool    `yaml:"roads"`
	BuildingQuantile float64 `yaml:"building_quantile"`
	RoadQuantile     float64 `yaml:"road_quantile"`
}

// SubdivisionParams control optional terrain-top refinement.
type SubdivisionParams struct {
	Levels int `yaml:"levels"`
}

// Params is the full recognized option set of the pipeline.
type Params struct {
	Resolution      int     `yaml:"resolution"`
	ZScale          float64 `yaml:"z_scale"`
	SmoothingSigma  float64 `yaml:"smoothing_sigma"`
	ElevationRefM   float64 `yaml:"elevation_ref_m"`
	BaseThicknessMM float64 `yaml:"base_thickness_mm"`
	ModelSizeMM     float64 `yaml:"model_size_mm"`

	Subdivision SubdivisionParams      `yaml:"subdivision"`
	Flatten     FlattenParams          `yaml:"flatten"`
	Road        process.RoadParams     `yaml:"road"`
	Building    process.BuildingParams `yaml:"building"`
	Water       process.WaterParams    `yaml:"water"`
	Green       process.GreenParams    `yaml:"green"`
	POI         process.POIParams      `yaml:"poi"`
	Colors      scene.Colors           `yaml:"colors"`
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		Resolution:      180,
		ZScale:          1.0,
		SmoothingSigma:  2.0,
		BaseThicknessMM: 2.0,
		ModelSizeMM:     100,
		Flatten: FlattenParams{
			Buildings:        true,
			Roads:            false,
			BuildingQuantile: 0.50,
			RoadQuantile:     0.50,
		},
		Road:     process.DefaultRoadParams(),
		Building: process.DefaultBuildingParams(),
		Water:    process.DefaultWaterParams(),
		Green:    process.DefaultGreenParams(),
		POI:      process.DefaultPOIParams(),
		Colors:   scene.DefaultColors(),
	}
}

// Clamp forces every option into its recognized range.
func (p *Params) Clamp() {
	if p.Resolution < minResolution {
		p.Resolution = minResolution
	}
	if p.Resolution > maxResolution {
		p.Resolution = maxResolution
	}
	if p.ZScale <= 0 {
		p.ZScale = 1
	}
	if p.SmoothingSigma < 0 {
		p.SmoothingSigma = 0
	}
	if p.ModelSizeMM <= 0 {
		p.ModelSizeMM = 100
	}
	if p.Subdivision.Levels < 0 {
		p.Subdivision.Levels = 0
	}
	if p.Subdivision.Levels > maxSubdivisionLevels {
		p.Subdivision.Levels = maxSubdivisionLevels
	}
	p.Flatten.BuildingQuantile = clamp01(p.Flatten.BuildingQuantile, 0.50)
	p.Flatten.RoadQuantile = clamp01(p.Flatten.RoadQuantile, 0.50)
	p.Water.SurfaceQuantile = clamp01(p.Water.SurfaceQuantile, 0.10)
}

func clamp01(v, fallback float64) float64 {
	if v <= 0 || v > 1 {
		return fallback
	}
	return v
}
