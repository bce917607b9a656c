package elevation

import (
	"math"

	"github.com/pkg/errors"
)

// Raster samples a regular in-memory lat/lon elevation grid with
// bilinear interpolation. It is the adapter for pre-fetched DEM tiles:
// an external loader decodes tiles into one Values grid and hands it
// over.
type Raster struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
	Rows, Cols     int
	Values         []float64 // row-major, row 0 at MinLat
	NoData         float64   // sentinel marking invalid cells; NaN disables
}

var _ ConcurrentSampler = (*Raster)(nil)

// NewRaster validates the grid dimensions.
func NewRaster(minLat, minLon, maxLat, maxLon float64, rows, cols int, values []float64) (*Raster, error) {
	if rows < 2 || cols < 2 {
		return nil, errors.Errorf("elevation: raster needs at least 2x2 cells, got %dx%d", rows, cols)
	}
	if len(values) != rows*cols {
		return nil, errors.Errorf("elevation: raster values length %d != %d*%d", len(values), rows, cols)
	}
	if maxLat <= minLat || maxLon <= minLon {
		return nil, errors.New("elevation: empty raster extent")
	}
	return &Raster{
		MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon,
		Rows: rows, Cols: cols, Values: values,
		NoData: math.NaN(),
	}, nil
}

// ConcurrentSafe reports true: the grid is immutable after construction.
func (r *Raster) ConcurrentSafe() bool { return true }

func (r *Raster) invalid(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return !math.IsNaN(r.NoData) && v == r.NoData
}

// Sample bilinearly interpolates the grid at (lat, lon). Points outside
// the extent or touching no-data cells return ErrSample.
func (r *Raster) Sample(lat, lon float64) (float64, error) {
	if lat < r.MinLat || lat > r.MaxLat || lon < r.MinLon || lon > r.MaxLon {
		return 0, errors.Wrapf(ErrSample, "point (%.6f, %.6f) outside raster", lat, lon)
	}
	fy := (lat - r.MinLat) / (r.MaxLat - r.MinLat) * float64(r.Rows-1)
	fx := (lon - r.MinLon) / (r.MaxLon - r.MinLon) * float64(r.Cols-1)
	i := int(math.Min(fy, float64(r.Rows-2)))
	j := int(math.Min(fx, float64(r.Cols-2)))
	dy := fy - float64(i)
	dx := fx - float64(j)

	v00 := r.Values[i*r.Cols+j]
	v01 := r.Values[i*r.Cols+j+1]
	v10 := r.Values[(i+1)*r.Cols+j]
	v11 := r.Values[(i+1)*r.Cols+j+1]
	if r.invalid(v00) || r.invalid(v01) || r.invalid(v10) || r.invalid(v11) {
		return 0, errors.Wrapf(ErrSample, "no-data cell at (%.6f, %.6f)", lat, lon)
	}

	top := v00*(1-dx) + v01*dx
	bot := v10*(1-dx) + v11*dx
	return top*(1-dy) + bot*dy, nil
}
