package export

import (
	"image/color"
	"os"

	"github.com/hpinc/go3mf"
	"github.com/pkg/errors"

	"github.com/quarrylabs/terramold/pkg/mesh"
	"github.com/quarrylabs/terramold/pkg/scene"
)

// Write3MF writes the scene as a 3MF package with one object per
// fragment. Each object references a base material carrying the
// fragment's color, so multi-color slicers keep the material
// separation the assembler preserved.
func Write3MF(path string, s *scene.Scene) error {
	if len(s.Fragments) == 0 {
		return errors.New("export: empty scene")
	}

	model := new(go3mf.Model)
	model.Units = go3mf.UnitMillimeter

	// One base-material group; one entry per distinct fragment color.
	materials := &go3mf.BaseMaterials{ID: 1}
	colorIndex := make(map[mesh.Color]uint32)
	materialFor := func(f *mesh.Mesh) uint32 {
		var c mesh.Color
		if f.Color != nil {
			c = *f.Color
		}
		if idx, ok := colorIndex[c]; ok {
			return idx
		}
		idx := uint32(len(materials.Materials))
		materials.Materials = append(materials.Materials, go3mf.Base{
			Name:  f.Material.String(),
			Color: color.RGBA{R: c[0], G: c[1], B: c[2], A: 255},
		})
		colorIndex[c] = idx
		return idx
	}
	model.Resources.Assets = append(model.Resources.Assets, materials)

	nextID := uint32(2)
	for _, f := range s.Fragments {
		if f.IsEmpty() {
			continue
		}
		matIdx := materialFor(f)

		obj := &go3mf.Object{ID: nextID, Name: f.Name}
		nextID++
		m := new(go3mf.Mesh)
		for i := 0; i < f.VertexCount(); i++ {
			v := f.Vertex(i)
			m.Vertices.Vertex = append(m.Vertices.Vertex, go3mf.Point3D{
				float32(v.X), float32(v.Y), float32(v.Z),
			})
		}
		for t := 0; t < f.TriangleCount(); t++ {
			m.Triangles.Triangle = append(m.Triangles.Triangle, go3mf.Triangle{
				V1: f.Indices[3*t], V2: f.Indices[3*t+1], V3: f.Indices[3*t+2],
				PID: materials.ID, P1: matIdx,
			})
		}
		obj.Mesh = m
		obj.PID = materials.ID
		obj.PIndex = matIdx
		model.Resources.Objects = append(model.Resources.Objects, obj)
		model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: obj.ID})
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "export: creating %s", path)
	}
	defer file.Close()
	if err := go3mf.NewEncoder(file).Encode(model); err != nil {
		return errors.Wrapf(err, "export: encoding %s", path)
	}
	return nil
}
