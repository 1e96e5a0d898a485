package stl

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/internal/models"
	"voxelcut/pkg/voxel"
)

// sphere returns a level 5 model over [0,1]^3 holding a ball of radius
// 0.3 around the centre of the cube.
func sphere(t *testing.T) *models.Occupancy {
	t.Helper()
	l, err := voxel.NewLattice(5, r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}})
	require.NoError(t, err)
	occ := models.NewOccupancy(l)
	center := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	for i := range occ.Occupied {
		occ.Occupied[i] = r3.Norm(r3.Sub(l.Center(uint64(i)), center)) < 0.3
	}
	return occ
}

// TestMarchingCubes meshes a voxel sphere and checks the faces point
// away from its centre
func TestMarchingCubes(t *testing.T) {
	occ := sphere(t)
	triangles := Triangles(occ)

	// A sphere with this resolution should have well over 100 triangles
	require.Greater(t, len(triangles), 100)

	inward := 0
	for _, triangle := range triangles {
		var c [3]float32
		for i := 0; i < 3; i++ {
			c[i] = (triangle.Vertex1[i]+triangle.Vertex2[i]+triangle.Vertex3[i])/3 - 0.5
		}
		mag := float32(math.Sqrt(float64(c[0]*c[0] + c[1]*c[1] + c[2]*c[2])))
		assert.InDelta(t, 0.3, mag, 0.1)

		dot := (c[0]*triangle.Normal[0] + c[1]*triangle.Normal[1] + c[2]*triangle.Normal[2]) / mag
		if dot < -0.5 {
			inward++
		}
	}
	// Staircase corners may tilt a few faces, but never many
	assert.LessOrEqual(t, inward, len(triangles)/20, "triangles with inward normals")
}

func TestOccupancySolid(t *testing.T) {
	occ := sphere(t)
	s := &OccupancySolid{Occupancy: occ}
	assert.True(t, s.Contains(model3d.Coord3D{X: 0.5, Y: 0.5, Z: 0.5}))
	assert.False(t, s.Contains(model3d.Coord3D{X: 0.05, Y: 0.05, Z: 0.05}))
	assert.False(t, s.Contains(model3d.Coord3D{X: 2, Y: 0.5, Z: 0.5}))
	assert.Equal(t, model3d.Coord3D{X: 1, Y: 1, Z: 1}, s.Max())
	assert.Equal(t, model3d.Coord3D{}, s.Min())
}

func TestEmptyModel(t *testing.T) {
	l, err := voxel.NewLattice(3, r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}})
	require.NoError(t, err)
	assert.Empty(t, Triangles(models.NewOccupancy(l)))
}

func TestSave(t *testing.T) {
	if testing.Short() {
		t.Skip("writes a mesh file")
	}
	dir, err := os.MkdirTemp("", "stl_test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "sphere.stl")
	require.NoError(t, Save(sphere(t), path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	// Binary STL: 80 byte header, count, 50 bytes per face.
	assert.Greater(t, info.Size(), int64(84+50*100))
}
