// Package export serializes an assembled scene to disk. STL flattens
// the scene into a single mesh and discards colors; 3MF keeps one
// object per fragment so per-material colors survive for multi-color
// printing.
package export

import (
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	"github.com/pkg/errors"

	"github.com/quarrylabs/terramold/pkg/scene"
)

// WriteSTL writes the scene as one binary STL solid. Colors are
// discarded; the single combined mesh keeps the per-fragment winding.
func WriteSTL(path string, s *scene.Scene) error {
	combined := s.Combined()
	if combined.IsEmpty() {
		return errors.New("export: empty scene")
	}
	tris := make([]*sdf.Triangle3, 0, combined.TriangleCount())
	for t := 0; t < combined.TriangleCount(); t++ {
		a, b, c := combined.Triangle(t)
		tris = append(tris, &sdf.Triangle3{a, b, c})
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return errors.Wrapf(err, "export: writing %s", path)
	}
	return nil
}
