package visualization

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/internal/models"
	"voxelcut/pkg/voxel"
)

// testLattice returns a 4x4x4 lattice over [0,4]^3
func testLattice(t *testing.T) voxel.Lattice {
	t.Helper()
	l, err := voxel.NewLattice(2, r3.Box{Max: r3.Vec{X: 4, Y: 4, Z: 4}})
	require.NoError(t, err)
	return l
}

// gradientVolume stores z/4 in every voxel
func gradientVolume(l voxel.Lattice) []float64 {
	data := make([]float64, l.Count())
	for i := range data {
		_, _, z := l.Coords(uint64(i))
		data[i] = float64(z) / 4
	}
	return data
}

// TestNewViewer verifies the volume size is checked against the lattice
func TestNewViewer(t *testing.T) {
	l := testLattice(t)
	v, err := NewViewer(l, gradientVolume(l))
	require.NoError(t, err)
	assert.Equal(t, 4, v.Size())

	_, err = NewViewer(l, make([]float64, 10))
	assert.Error(t, err)
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	l := testLattice(t)
	viewer, err := NewViewer(l, gradientVolume(l))
	require.NoError(t, err)

	// Each Z slice holds one value
	for z := 0; z < 4; z++ {
		img, err := viewer.ExtractSlice("z", z)
		require.NoError(t, err)
		gray := img.(*image.Gray16)
		assert.Equal(t, image.Rect(0, 0, 4, 4), gray.Bounds())
		want := uint16(float64(z) / 4 * 65535)
		assert.Equal(t, want, gray.Gray16At(1, 2).Y, "z slice %d", z)
	}

	// X and Y slices show the gradient along z
	top := 0.75
	for _, axis := range []string{"x", "Y"} {
		img, err := viewer.ExtractSlice(axis, 1)
		require.NoError(t, err)
		gray := img.(*image.Gray16)
		if axis == "x" {
			assert.Equal(t, uint16(top*65535), gray.Gray16At(3, 0).Y)
		} else {
			assert.Equal(t, uint16(top*65535), gray.Gray16At(0, 3).Y)
		}
	}

	_, err = viewer.ExtractSlice("w", 0)
	assert.Error(t, err)
	_, err = viewer.ExtractSlice("z", 4)
	assert.Error(t, err)
	_, err = viewer.ExtractSlice("z", -1)
	assert.Error(t, err)
}

// TestExtractRegion verifies region bounds and ordering
func TestExtractRegion(t *testing.T) {
	l := testLattice(t)
	viewer, err := NewViewer(l, gradientVolume(l))
	require.NoError(t, err)

	region, err := viewer.ExtractRegion(1, 1, 1, 2, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25, 0.5, 0.5, 0.5, 0.5}, region)

	tests := [][6]int{
		{-1, 0, 0, 1, 1, 1},
		{0, 0, 0, 0, 1, 1},
		{2, 2, 2, 3, 1, 1},
	}
	for _, tc := range tests {
		_, err := viewer.ExtractRegion(tc[0], tc[1], tc[2], tc[3], tc[4], tc[5])
		assert.Error(t, err, "region %v", tc)
	}
}

// TestGridViewers checks the foreground and weight channels
func TestGridViewers(t *testing.T) {
	g, err := voxel.NewGrid(2, r3.Box{Max: r3.Vec{X: 4, Y: 4, Z: 4}})
	require.NoError(t, err)
	g.SetForeground(g.Code(0, 0, 0), false)
	g.SetWeight(g.Code(1, 1, 1), voxel.AxisY, 4)
	g.SetWeight(g.Code(2, 1, 1), voxel.AxisZ, 2)

	fg := ForegroundViewer(g)
	assert.Equal(t, 0.0, fg.at(0, 0, 0))
	assert.Equal(t, 1.0, fg.at(3, 3, 3))

	w := WeightViewer(g)
	assert.Equal(t, 1.0, w.at(1, 1, 1))
	assert.Equal(t, 0.5, w.at(2, 1, 1))
	assert.Equal(t, 0.0, w.at(0, 1, 1))

	occ := models.NewOccupancy(g.Lattice)
	occ.Occupied[g.Code(3, 2, 1)] = true
	o := OccupancyViewer(occ)
	assert.Equal(t, 1.0, o.at(3, 2, 1))
	assert.Equal(t, 0.0, o.at(1, 2, 3))
}

// TestSaveSliceSequence verifies that a sequence of slices is written
func TestSaveSliceSequence(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "viewer_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	l := testLattice(t)
	viewer, err := NewViewer(l, gradientVolume(l))
	require.NoError(t, err)

	outDir := filepath.Join(tempDir, "slices")
	require.NoError(t, viewer.SaveSliceSequence("z", "volume", outDir))
	for z := 0; z < 4; z++ {
		_, err := os.Stat(filepath.Join(outDir, fmt.Sprintf("volume_z_%03d.png", z)))
		assert.NoError(t, err)
	}

	assert.Error(t, viewer.SaveSliceSequence("q", "volume", outDir))
}
