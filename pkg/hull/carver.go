// Package hull carves the visual hull of an object out of a voxel grid
// using per-camera silhouette masks.
package hull

import (
	"github.com/unixpickle/essentials"

	"voxelcut/internal/models"
	"voxelcut/pkg/voxel"
)

// DefaultThreshold is the mask brightness (0..255) at which a pixel
// counts as foreground.
const DefaultThreshold = 100

// Stats summarizes a carving run
type Stats struct {
	// Initial is the number of foreground voxels before carving
	Initial int

	// Remaining is the number of foreground voxels after carving
	Remaining int

	// RemovedPerView counts the voxels each view cleared, in order
	RemovedPerView []int
}

// Carver intersects the viewing cones of a list of silhouettes.
//
// A voxel survives only when its centre projects in front of every
// camera, inside every mask raster, onto a mask value of at least
// Threshold. Views are applied one after another; the voxels of one
// pass are tested concurrently.
type Carver struct {
	// Threshold is the foreground brightness on a 0..255 scale
	Threshold float64

	// Workers bounds the goroutines per pass; 0 uses GOMAXPROCS
	Workers int
}

// NewCarver creates a carver with the default threshold
func NewCarver(workers int) *Carver {
	return &Carver{Threshold: DefaultThreshold, Workers: workers}
}

// Carve clears the foreground flag of every voxel outside the visual
// hull of the views. With no views the grid is left untouched.
func (c *Carver) Carve(grid *voxel.Grid, views []models.View) Stats {
	alive := grid.ForegroundCodes()
	stats := Stats{Initial: len(alive), RemovedPerView: make([]int, len(views))}

	for i, view := range views {
		if len(alive) == 0 {
			break
		}
		keep := c.carveView(grid, view, alive)

		next := alive[:0]
		for j, code := range alive {
			if keep[j] {
				next = append(next, code)
			}
		}
		stats.RemovedPerView[i] = len(alive) - len(next)
		alive = next
	}
	stats.Remaining = len(alive)
	return stats
}

// carveView tests every alive voxel against one view and clears the
// ones outside its silhouette.
func (c *Carver) carveView(grid *voxel.Grid, view models.View, alive []uint64) []bool {
	mask := view.Mask
	proj := view.Camera.Projection(mask.Width, mask.Height)
	level := c.Threshold / 255

	keep := make([]bool, len(alive))
	essentials.ConcurrentMap(c.Workers, len(alive), func(i int) {
		code := alive[i]
		p, ok := proj.Project(grid.Center(code))
		if ok {
			if v, inside := mask.Nearest(p.X, p.Y); inside && v >= level {
				keep[i] = true
				return
			}
		}
		grid.SetForeground(code, false)
	})
	return keep
}
