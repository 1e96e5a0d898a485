package pointcloud

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/seqsense/pcgol/mat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/internal/models"
	"voxelcut/pkg/voxel"
)

// blockOccupancy returns a level 2 model over [0,4]^3 holding the block
// of voxels with coordinates 1..3.
func blockOccupancy(t *testing.T) *models.Occupancy {
	t.Helper()
	l, err := voxel.NewLattice(2, r3.Box{Max: r3.Vec{X: 4, Y: 4, Z: 4}})
	require.NoError(t, err)
	occ := models.NewOccupancy(l)
	for x := uint32(1); x < 4; x++ {
		for y := uint32(1); y < 4; y++ {
			for z := uint32(1); z < 4; z++ {
				occ.Occupied[l.Code(x, y, z)] = true
			}
		}
	}
	return occ
}

func TestFromOccupancy(t *testing.T) {
	occ := blockOccupancy(t)

	pp, err := FromOccupancy(occ, false)
	require.NoError(t, err)
	assert.Equal(t, 27, pp.Points)

	it, err := pp.Vec3Iterator()
	require.NoError(t, err)
	itL, err := pp.Uint32Iterator("label")
	require.NoError(t, err)

	surface := 0
	for it.IsValid() {
		v := it.Vec3()
		if itL.Uint32() == LabelSurface {
			surface++
		} else {
			assert.Equal(t, mat.Vec3{2.5, 2.5, 2.5}, v)
		}
		it.Incr()
		itL.Incr()
	}
	assert.Equal(t, 26, surface)

	pp, err = FromOccupancy(occ, true)
	require.NoError(t, err)
	assert.Equal(t, 26, pp.Points)
}

func TestFromEmptyOccupancy(t *testing.T) {
	l, err := voxel.NewLattice(1, r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}})
	require.NoError(t, err)
	pp, err := FromOccupancy(models.NewOccupancy(l), false)
	require.NoError(t, err)
	assert.Equal(t, 0, pp.Points)
}

func TestSaveLoad(t *testing.T) {
	dir, err := os.MkdirTemp("", "pointcloud_test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "model.pcd")
	require.NoError(t, SaveOccupancy(blockOccupancy(t), path, false))

	pp, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 27, pp.Points)
	assert.Equal(t, []string{"x", "y", "z", "label"}, pp.Fields)

	it, err := pp.Vec3Iterator()
	require.NoError(t, err)
	// The first voxel in Morton order is (1,1,1).
	assert.Equal(t, mat.Vec3{1.5, 1.5, 1.5}, it.Vec3())

	_, err = Load(filepath.Join(dir, "missing.pcd"))
	assert.Error(t, err)
	assert.Error(t, SaveOccupancy(blockOccupancy(t), filepath.Join(dir, "no", "such", "dir.pcd"), false))
}
