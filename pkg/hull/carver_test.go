package hull

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/internal/models"
	"voxelcut/internal/synth"
	"voxelcut/pkg/camera"
	"voxelcut/pkg/raster"
	"voxelcut/pkg/voxel"
)

var (
	worldBox = r3.Box{Min: r3.Vec{X: -1, Y: -1, Z: -1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}
	cubeBox  = r3.Box{Min: r3.Vec{X: -0.5, Y: -0.5, Z: -0.5}, Max: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}}
)

// maskViews renders silhouettes of the cube for the given cameras
func maskViews(t *testing.T, distance float64, size int) []models.View {
	t.Helper()
	cams := synth.AxisCameras(distance, 7.5)
	views := make([]models.View, len(cams))
	for i, cam := range cams {
		views[i] = models.View{Camera: cam, Mask: synth.Silhouette(cam, cubeBox, size, size)}
	}
	return views
}

func newGrid(t *testing.T, level int) *voxel.Grid {
	t.Helper()
	g, err := voxel.NewGrid(level, worldBox)
	require.NoError(t, err)
	return g
}

func TestCarveZeroViews(t *testing.T) {
	g := newGrid(t, 3)
	stats := NewCarver(2).Carve(g, nil)
	assert.Equal(t, g.Count(), g.ForegroundCount())
	assert.Equal(t, stats.Initial, stats.Remaining)
}

// TestCarveCubeExactly carves a level 4 grid with four axis cameras and
// expects exactly the 8x8x8 block covering the cube
func TestCarveCubeExactly(t *testing.T) {
	g := newGrid(t, 4)
	stats := NewCarver(0).Carve(g, maskViews(t, 12, 400))

	for i := 0; i < g.Count(); i++ {
		x, y, z := g.Coords(uint64(i))
		want := x >= 4 && x < 12 && y >= 4 && y < 12 && z >= 4 && z < 12
		require.Equal(t, want, g.Foreground(uint64(i)), "voxel (%d,%d,%d)", x, y, z)
	}
	assert.Equal(t, 512, stats.Remaining)
	assert.Equal(t, 4096, stats.Initial)

	removed := 0
	for _, n := range stats.RemovedPerView {
		removed += n
	}
	assert.Equal(t, stats.Initial-stats.Remaining, removed)
}

func TestCarveMonotonic(t *testing.T) {
	views := maskViews(t, 12, 200)
	prev := newGrid(t, 3).Flags()
	for n := 1; n <= len(views); n++ {
		g := newGrid(t, 3)
		NewCarver(2).Carve(g, views[:n])
		cur := g.Flags()
		for i := range cur {
			if cur[i] {
				assert.True(t, prev[i], "adding view %d revived voxel %d", n, i)
			}
		}
		prev = cur
	}
}

func TestCarveOrderIndependent(t *testing.T) {
	views := maskViews(t, 12, 200)[:3]

	a := newGrid(t, 4)
	NewCarver(3).Carve(a, []models.View{views[0], views[1], views[2]})
	b := newGrid(t, 4)
	NewCarver(1).Carve(b, []models.View{views[2], views[0], views[1]})

	assert.Equal(t, a.Flags(), b.Flags())
	assert.Equal(t, a.ForegroundCodes(), b.ForegroundCodes())
}

func TestCarveThresholdAndBounds(t *testing.T) {
	g := newGrid(t, 2)
	cam := camera.LookAt(r3.Vec{Z: 12}, r3.Vec{}, synth.Up, 2, 1)

	// A mask that is uniformly just below the threshold clears everything.
	dim := raster.New(32, 32)
	for i := range dim.Pix {
		dim.Pix[i] = 99.0 / 255
	}
	stats := NewCarver(1).Carve(g, []models.View{{Camera: cam, Mask: dim}})
	assert.Equal(t, 0, stats.Remaining)

	// A mask exactly at the threshold keeps every voxel.
	g = newGrid(t, 2)
	bright := raster.New(32, 32)
	for i := range bright.Pix {
		bright.Pix[i] = 100.0 / 255
	}
	stats = NewCarver(1).Carve(g, []models.View{{Camera: cam, Mask: bright}})
	assert.Equal(t, g.Count(), stats.Remaining)
}

func TestCarveBehindCamera(t *testing.T) {
	g := newGrid(t, 1)
	// A camera at the grid centre looking along +Z sees only the z = 1 half.
	cam := camera.LookAt(r3.Vec{}, r3.Vec{Z: 1}, synth.Up, 0.1, 1)
	full := raster.New(8, 8)
	for i := range full.Pix {
		full.Pix[i] = 1
	}
	NewCarver(1).Carve(g, []models.View{{Camera: cam, Mask: full}})
	for i := 0; i < g.Count(); i++ {
		_, _, z := g.Coords(uint64(i))
		assert.Equal(t, z == 1, g.Foreground(uint64(i)))
	}
}
