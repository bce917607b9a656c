// Package elevation abstracts the source of raw elevation samples.
//
// The composition engine only ever sees the Sampler interface; tiled
// HTTP fetchers, local raster readers and synthetic generators all plug
// in behind it. Caching belongs to the Sampler implementation, not to
// the engine.
package elevation

import (
	"math"

	"github.com/pkg/errors"
)

// ErrSample marks a failed elevation lookup. The height-field builder
// recovers from isolated failures by nearest-neighbor fill; a fully
// failed grid is surfaced to the caller.
var ErrSample = errors.New("elevation sample failed")

// Sampler answers absolute elevation in meters at a geographic point.
// Sample may block on I/O.
type Sampler interface {
	Sample(lat, lon float64) (float64, error)
}

// ConcurrentSampler is implemented by samplers that are safe for
// concurrent use. The height-field builder parallelizes grid sampling
// only when the sampler declares itself safe.
type ConcurrentSampler interface {
	Sampler
	ConcurrentSafe() bool
}

// SamplerFunc adapts a plain function to the Sampler interface. A
// SamplerFunc is assumed NOT to be safe for concurrent use.
type SamplerFunc func(lat, lon float64) (float64, error)

// Sample calls f.
func (f SamplerFunc) Sample(lat, lon float64) (float64, error) {
	return f(lat, lon)
}

// Constant is a sampler returning a fixed elevation everywhere.
type Constant float64

var _ ConcurrentSampler = Constant(0)

// Sample returns the constant.
func (c Constant) Sample(lat, lon float64) (float64, error) {
	return float64(c), nil
}

// ConcurrentSafe always reports true.
func (c Constant) ConcurrentSafe() bool { return true }

// Synthetic generates smooth deterministic demo terrain from overlapping
// sinusoids. Useful for tests and offline demos when no DEM is wired.
type Synthetic struct {
	BaseM       float64 // mean elevation
	AmplitudeM  float64 // peak deviation from the mean
	WavelengthM float64 // feature size in meters (approximated on a degree grid)
}

var _ ConcurrentSampler = Synthetic{}

// Sample returns the synthetic elevation at (lat, lon).
func (s Synthetic) Sample(lat, lon float64) (float64, error) {
	wl := s.WavelengthM
	if wl <= 0 {
		wl = 500
	}
	// Roughly meters per degree at mid latitudes; exactness is
	// irrelevant for synthetic terrain.
	const mPerDeg = 111_000.0
	u := lat * mPerDeg / wl
	v := lon * mPerDeg / wl
	h := s.BaseM + s.AmplitudeM*(math.Sin(u)*math.Cos(v)+0.5*math.Sin(2.3*u+1.7)*math.Sin(1.9*v))/1.5
	return h, nil
}

// ConcurrentSafe always reports true.
func (s Synthetic) ConcurrentSafe() bool { return true }

// ConcurrentSafe reports whether s declares itself safe for concurrent
// sampling.
func ConcurrentSafe(s Sampler) bool {
	if cs, ok := s.(ConcurrentSampler); ok {
		return cs.ConcurrentSafe()
	}
	return false
}
