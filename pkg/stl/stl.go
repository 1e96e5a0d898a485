// Package stl turns voxel models into triangle meshes and writes them as
// STL files.
package stl

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/internal/models"
)

// searchIters is the number of bisection steps marching cubes spends
// placing each vertex on the model boundary.
const searchIters = 8

// Triangle is a mesh face with its outward normal
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// OccupancySolid exposes a voxel model as a model3d.Solid.
type OccupancySolid struct {
	Occupancy *models.Occupancy
}

// Min gets the minimum of the bounding box.
func (o *OccupancySolid) Min() model3d.Coord3D {
	m := o.Occupancy.Cube.Min
	return model3d.Coord3D{X: m.X, Y: m.Y, Z: m.Z}
}

// Max gets the maximum of the bounding box.
func (o *OccupancySolid) Max() model3d.Coord3D {
	m := o.Occupancy.Cube.Max
	return model3d.Coord3D{X: m.X, Y: m.Y, Z: m.Z}
}

// Contains checks if the point lies in an occupied voxel.
func (o *OccupancySolid) Contains(c model3d.Coord3D) bool {
	code, ok := o.Occupancy.Locate(r3.Vec{X: c.X, Y: c.Y, Z: c.Z})
	return ok && o.Occupancy.Contains(code)
}

// Mesh extracts the boundary of the model with marching cubes at half
// the voxel size.
func Mesh(occ *models.Occupancy) *model3d.Mesh {
	return model3d.MarchingCubesSearch(&OccupancySolid{Occupancy: occ}, occ.VoxelSize/2, searchIters)
}

// Triangles lists the faces of the model's mesh.
func Triangles(occ *models.Occupancy) []Triangle {
	tris := Mesh(occ).TriangleSlice()
	res := make([]Triangle, len(tris))
	for i, t := range tris {
		res[i] = Triangle{
			Normal:  vec32(t.Normal()),
			Vertex1: vec32(t[0]),
			Vertex2: vec32(t[1]),
			Vertex3: vec32(t[2]),
		}
	}
	return res
}

// Save writes the model's mesh as an STL file.
func Save(occ *models.Occupancy, path string) error {
	if err := Mesh(occ).SaveGroupedSTL(path); err != nil {
		return errors.Wrap(err, "save STL")
	}
	return nil
}

func vec32(c model3d.Coord3D) [3]float32 {
	return [3]float32{float32(c.X), float32(c.Y), float32(c.Z)}
}
