// Package heightfield holds the regular elevation grid of a world
// region and the terrain-first modification passes (flatten under
// buildings/roads, depress under water) that run before the terrain is
// solidified.
//
// Grid layout, fixed for the whole system: nodes (not cell centers) at
// XAxis[i] x YAxis[j], Z stored row-major by Y then X, so Z[j*Nx+i] is
// the node at (XAxis[i], YAxis[j]).
package heightfield

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/quarrylabs/terramold/pkg/elevation"
)

// Error kinds surfaced by height-field construction. Cancellation is
// reported by wrapping the context's error.
var (
	ErrInvalidExtent    = errors.New("invalid height field extent")
	ErrEmptyHeightField = errors.New("no valid elevation samples")
)

// Extent is the axis-aligned local-coordinate footprint of the field.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the X span.
func (e Extent) Width() float64 { return e.MaxX - e.MinX }

// Height returns the Y span.
func (e Extent) Height() float64 { return e.MaxY - e.MinY }

// GeoFunc converts a local point to geographic degrees for sampling.
type GeoFunc func(x, y float64) (lat, lon float64, err error)

// Options configure height-field construction.
type Options struct {
	Resolution     int     // nominal grid size: max(Nx, Ny)
	ZScale         float64 // vertical exaggeration applied after normalization
	ElevationRefM  float64 // subtracted from raw samples before scaling
	SmoothingSigma float64 // Gaussian sigma in cells; 0 disables
}

// Field is the mutable elevation grid. Z is mutated only by the Flatten
// and Depress operators; after solidification the field is read-only.
type Field struct {
	Extent Extent
	Nx, Ny int
	XAxis  []float64 // length Nx, ascending
	YAxis  []float64 // length Ny, ascending
	Z      []float64 // length Nx*Ny, row-major by Y then X

	ElevationRefM float64
	ZScale        float64

	originalZ []float64 // snapshot taken before the first Depress
}

// At returns the node elevation at grid indices (i, j).
func (f *Field) At(i, j int) float64 { return f.Z[j*f.Nx+i] }

// CellSize returns (dx, dy) between neighboring nodes.
func (f *Field) CellSize() (dx, dy float64) {
	return f.XAxis[1] - f.XAxis[0], f.YAxis[1] - f.YAxis[0]
}

// MinZ returns the lowest node elevation.
func (f *Field) MinZ() float64 {
	min := math.Inf(1)
	for _, z := range f.Z {
		if z < min {
			min = z
		}
	}
	return min
}

// MaxZ returns the highest node elevation.
func (f *Field) MaxZ() float64 {
	max := math.Inf(-1)
	for _, z := range f.Z {
		if z > max {
			max = z
		}
	}
	return max
}

// OriginalZ returns the pre-depression snapshot, or nil when Depress was
// never called. The water-surface placer needs this to keep water below
// the original banks.
func (f *Field) OriginalZ() []float64 { return f.originalZ }

// OriginalZOrCurrent returns the snapshot when present, else current Z.
func (f *Field) OriginalZOrCurrent() []float64 {
	if f.originalZ != nil {
		return f.originalZ
	}
	return f.Z
}

// gridSize derives (Nx, Ny) so that max(Nx,Ny) = resolution and the
// extent's aspect ratio is preserved; both dimensions are at least 2.
func gridSize(e Extent, resolution int) (nx, ny int) {
	w, h := e.Width(), e.Height()
	if w >= h {
		nx = resolution
		ny = int(math.Round(float64(resolution) * h / w))
	} else {
		ny = resolution
		nx = int(math.Round(float64(resolution) * w / h))
	}
	if nx < 2 {
		nx = 2
	}
	if ny < 2 {
		ny = 2
	}
	return nx, ny
}

// Build samples the elevation callback over the node grid and returns
// the normalized, optionally smoothed field. Sampling is parallelized
// across rows only when the sampler declares itself concurrent-safe.
func Build(ctx context.Context, e Extent, opts Options, toGeo GeoFunc, s elevation.Sampler, log *zap.Logger) (*Field, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if e.Width() <= 0 || e.Height() <= 0 {
		return nil, errors.Wrapf(ErrInvalidExtent, "extent %+v", e)
	}
	if opts.Resolution < 2 {
		return nil, errors.Wrapf(ErrInvalidExtent, "resolution %d", opts.Resolution)
	}
	if opts.ZScale == 0 {
		opts.ZScale = 1
	}

	nx, ny := gridSize(e, opts.Resolution)
	f := &Field{
		Extent:        e,
		Nx:            nx,
		Ny:            ny,
		XAxis:         axis(e.MinX, e.MaxX, nx),
		YAxis:         axis(e.MinY, e.MaxY, ny),
		Z:             make([]float64, nx*ny),
		ElevationRefM: opts.ElevationRefM,
		ZScale:        opts.ZScale,
	}

	if err := sampleGrid(ctx, f, toGeo, s, log); err != nil {
		return nil, err
	}
	if err := fillMissing(f); err != nil {
		return nil, err
	}

	// Normalize: shift by the reference elevation, then exaggerate.
	for i, z := range f.Z {
		f.Z[i] = (z - f.ElevationRefM) * f.ZScale
	}

	if opts.SmoothingSigma > 0 {
		smoothGaussian(f.Z, f.Nx, f.Ny, opts.SmoothingSigma)
	}

	log.Info("height field built",
		zap.Int("nx", nx), zap.Int("ny", ny),
		zap.Float64("min_z", f.MinZ()), zap.Float64("max_z", f.MaxZ()))
	return f, nil
}

func axis(min, max float64, n int) []float64 {
	a := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := range a {
		a[i] = min + float64(i)*step
	}
	a[n-1] = max
	return a
}

// sampleGrid fills f.Z with raw samples, NaN marking failures.
func sampleGrid(ctx context.Context, f *Field, toGeo GeoFunc, s elevation.Sampler, log *zap.Logger) error {
	sampleRow := func(j int) error {
		y := f.YAxis[j]
		for i := 0; i < f.Nx; i++ {
			lat, lon, err := toGeo(f.XAxis[i], y)
			if err != nil {
				f.Z[j*f.Nx+i] = math.NaN()
				continue
			}
			z, err := s.Sample(lat, lon)
			if err != nil {
				f.Z[j*f.Nx+i] = math.NaN()
				continue
			}
			f.Z[j*f.Nx+i] = z
		}
		return nil
	}

	if !elevation.ConcurrentSafe(s) {
		for j := 0; j < f.Ny; j++ {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "sampling elevation grid")
			}
			if err := sampleRow(j); err != nil {
				return err
			}
		}
		return nil
	}

	workers := runtime.NumCPU()
	if workers > f.Ny {
		workers = f.Ny
	}
	rows := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range rows {
				_ = sampleRow(j)
			}
		}()
	}
	cancelled := false
	for j := 0; j < f.Ny; j++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		rows <- j
	}
	close(rows)
	wg.Wait()
	if cancelled {
		return errors.Wrap(ctx.Err(), "sampling elevation grid")
	}
	return nil
}

// fillMissing replaces NaN nodes by multi-source BFS from valid nodes
// (nearest-neighbor in grid distance, deterministic scan order). A grid
// with no valid node at all is an error.
func fillMissing(f *Field) error {
	n := len(f.Z)
	queue := make([]int, 0, n)
	dist := make([]int, n)
	for idx, z := range f.Z {
		if math.IsNaN(z) {
			dist[idx] = -1
		} else {
			queue = append(queue, idx)
		}
	}
	if len(queue) == 0 {
		return errors.Wrap(ErrEmptyHeightField, "after sampling")
	}
	if len(queue) == n {
		return nil
	}
	for head := 0; head < len(queue); head++ {
		idx := queue[head]
		i, j := idx%f.Nx, idx/f.Nx
		for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			ni, nj := i+d[0], j+d[1]
			if ni < 0 || ni >= f.Nx || nj < 0 || nj >= f.Ny {
				continue
			}
			nidx := nj*f.Nx + ni
			if dist[nidx] == -1 {
				dist[nidx] = dist[idx] + 1
				f.Z[nidx] = f.Z[idx]
				queue = append(queue, nidx)
			}
		}
	}
	return nil
}
