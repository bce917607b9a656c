package terrain

import (
	"context"
	"math"
	"testing"

	"github.com/quarrylabs/terramold/pkg/elevation"
	"github.com/quarrylabs/terramold/pkg/heightfield"
)

func testGeo(x, y float64) (lat, lon float64, err error) {
	return y / 1000, x / 1000, nil
}

func buildField(t *testing.T, s elevation.Sampler, res int, size float64) *heightfield.Field {
	t.Helper()
	f, err := heightfield.Build(context.Background(),
		heightfield.Extent{MinX: 0, MinY: 0, MaxX: size, MaxY: size},
		heightfield.Options{Resolution: res}, testGeo, s, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return f
}

func TestProviderMatchesSolidTriangles(t *testing.T) {
	s := elevation.Synthetic{BaseM: 50, AmplitudeM: 20, WavelengthM: 300}
	f := buildField(t, s, 12, 600)
	p := NewProvider(f)
	solid, err := Solidify(f, 5, 0)
	if err != nil {
		t.Fatalf("Solidify: %v", err)
	}

	// Every top-surface triangle's barycentric samples must agree with
	// the provider exactly (same formula, same order).
	topFaces := (f.Nx - 1) * (f.Ny - 1) * 2
	for tr := 0; tr < topFaces; tr++ {
		a, b, c := solid.Triangle(tr)
		for _, w := range [][3]float64{
			{1. / 3, 1. / 3, 1. / 3},
			{0.7, 0.2, 0.1},
			{0.05, 0.05, 0.9},
		} {
			x := a.X*w[0] + b.X*w[1] + c.X*w[2]
			y := a.Y*w[0] + b.Y*w[1] + c.Y*w[2]
			want := a.Z*w[0] + b.Z*w[1] + c.Z*w[2]
			got := p.HeightAt(x, y)
			if math.Abs(got-want) > 1e-9 {
				t.Fatalf("triangle %d at (%v,%v): provider %v, mesh %v", tr, x, y, got, want)
			}
		}
	}
}

func TestProviderNodeExact(t *testing.T) {
	f := buildField(t, elevation.Synthetic{BaseM: 10, AmplitudeM: 5, WavelengthM: 100}, 8, 200)
	p := NewProvider(f)
	for j := 0; j < f.Ny; j++ {
		for i := 0; i < f.Nx; i++ {
			got := p.HeightAt(f.XAxis[i], f.YAxis[j])
			if got != f.At(i, j) {
				t.Fatalf("node (%d,%d): provider %v, field %v", i, j, got, f.At(i, j))
			}
		}
	}
}

func TestProviderClampsOutside(t *testing.T) {
	f := buildField(t, elevation.Constant(7), 5, 100)
	p := NewProvider(f)
	tests := []struct{ x, y float64 }{
		{-50, 50}, {150, 50}, {50, -50}, {50, 150}, {-10, -10},
	}
	for _, tt := range tests {
		if got := p.HeightAt(tt.x, tt.y); got != 7 {
			t.Errorf("HeightAt(%v,%v) = %v, want 7", tt.x, tt.y, got)
		}
	}
}

func TestProviderSeesFieldMutations(t *testing.T) {
	f := buildField(t, elevation.Constant(10), 5, 100)
	p := NewProvider(f)
	for i := range f.Z {
		f.Z[i] = 3
	}
	if got := p.HeightAt(50, 50); got != 3 {
		t.Errorf("provider did not reflect mutation: %v", got)
	}
}

func TestProviderBatchAgrees(t *testing.T) {
	f := buildField(t, elevation.Synthetic{BaseM: 10, AmplitudeM: 4, WavelengthM: 80}, 10, 300)
	p := NewProvider(f)
	xs := []float64{1, 57.3, 123.4, 299}
	ys := []float64{2, 88.8, 123.4, 1.5}
	batch := p.Heights(xs, ys)
	for i := range xs {
		if batch[i] != p.HeightAt(xs[i], ys[i]) {
			t.Errorf("batch[%d] = %v, single = %v", i, batch[i], p.HeightAt(xs[i], ys[i]))
		}
	}
}

func TestSolidifyWatertight(t *testing.T) {
	tests := []struct {
		name   string
		s      elevation.Sampler
		subdiv int
	}{
		{"flat", elevation.Constant(100), 0},
		{"hilly", elevation.Synthetic{BaseM: 100, AmplitudeM: 40, WavelengthM: 150}, 0},
		{"subdivided once", elevation.Synthetic{BaseM: 0, AmplitudeM: 10, WavelengthM: 200}, 1},
		{"subdivided twice", elevation.Constant(5), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := buildField(t, tt.s, 9, 400)
			solid, err := Solidify(f, 3, tt.subdiv)
			if err != nil {
				t.Fatalf("Solidify: %v", err)
			}
			if !solid.IsWatertight() {
				t.Errorf("solid not watertight: %d defect edges", solid.DefectEdges())
			}
			if v := solid.SignedVolume(); v <= 0 {
				t.Errorf("SignedVolume = %v, want positive", v)
			}
		})
	}
}

func TestSolidifyFlatDimensions(t *testing.T) {
	f := buildField(t, elevation.Constant(100), 5, 1000)
	solid, err := Solidify(f, 20, 0)
	if err != nil {
		t.Fatalf("Solidify: %v", err)
	}
	min, max := solid.Bounds()
	if min.X != 0 || max.X != 1000 || min.Y != 0 || max.Y != 1000 {
		t.Errorf("XY bounds [%v %v]x[%v %v], want [0 1000]^2", min.X, max.X, min.Y, max.Y)
	}
	if max.Z != 100 || min.Z != 80 {
		t.Errorf("Z bounds [%v, %v], want [80, 100]", min.Z, max.Z)
	}
	wantVol := 1000.0 * 1000 * 20
	if v := solid.SignedVolume(); math.Abs(v-wantVol)/wantVol > 1e-9 {
		t.Errorf("volume = %v, want %v", v, wantVol)
	}
}

func TestSolidifySubdivisionKeepsVolume(t *testing.T) {
	f := buildField(t, elevation.Synthetic{BaseM: 30, AmplitudeM: 10, WavelengthM: 120}, 7, 300)
	plain, err := Solidify(f, 2, 0)
	if err != nil {
		t.Fatalf("Solidify: %v", err)
	}
	sub, err := Solidify(f, 2, 2)
	if err != nil {
		t.Fatalf("Solidify subdivided: %v", err)
	}
	// Midpoint-only interpolation: the subdivided surface lies on the
	// same triangles, so enclosed volume is unchanged.
	if d := math.Abs(plain.SignedVolume() - sub.SignedVolume()); d > 1e-6 {
		t.Errorf("subdivision changed volume by %v", d)
	}
}
