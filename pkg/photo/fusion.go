package photo

import (
	"math"
	"sync"

	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/pkg/voxel"
)

// Fuser turns the votes of every reference camera for one point into a
// single weight.
type Fuser struct {
	Strategy    VotingStrategy
	Thresholder Thresholder
}

// Score collects one vote per reference camera, picks a threshold over
// them and sums the votes at or above it. Non-finite votes count as 0.
func (f *Fuser) Score(s *Scene, x r3.Vec) float64 {
	votes := make([]float64, len(s.Views))
	for i := range s.Views {
		v := f.Strategy.Vote(s, i, x)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			v = 0
		}
		votes[i] = v
	}
	if len(votes) == 0 {
		return 0
	}
	t := f.Thresholder.Threshold(votes)
	var sum float64
	for _, v := range votes {
		if v >= t {
			sum += v
		}
	}
	return sum
}

// ScoreOptions controls ScoreGrid.
type ScoreOptions struct {
	// Band limits scoring to faces touching a foreground voxel at most
	// Band steps from the hull boundary; 0 scores every face that touches
	// the foreground.
	Band int

	// Workers bounds the goroutines; 0 uses GOMAXPROCS.
	Workers int

	// Progress, when set, is called with the number of voxels done.
	Progress func(done, total int)
}

// ScoreStats summarizes a scoring pass.
type ScoreStats struct {
	// Faces is the number of faces that were scored.
	Faces int

	// WithEvidence is the number of scored faces with a positive weight.
	WithEvidence int
}

// ScoreGrid stores a fused photo-consistency weight on every +axis face
// of the grid that separates two voxels not both in the background.
func ScoreGrid(grid *voxel.Grid, s *Scene, f *Fuser, opts ScoreOptions) ScoreStats {
	n := grid.Count()
	var depth []uint8
	if opts.Band > 0 {
		depth = grid.BoundaryDepth(opts.Band)
	}
	near := func(code uint64) bool {
		return grid.Foreground(code) && (depth == nil || depth[code] > 0)
	}

	var lock sync.Mutex
	var stats ScoreStats
	done := 0
	essentials.ConcurrentMap(opts.Workers, n, func(i int) {
		code := uint64(i)
		var faces, evidence int
		for _, axis := range voxel.Axes {
			other, ok := grid.Neighbor(code, axis.Forward())
			if !ok {
				continue
			}
			if !near(code) && !near(other) {
				continue
			}
			w := f.Score(s, grid.FaceCenter(code, axis))
			grid.SetWeight(code, axis, w)
			faces++
			if w > 0 {
				evidence++
			}
		}

		lock.Lock()
		defer lock.Unlock()
		stats.Faces += faces
		stats.WithEvidence += evidence
		done++
		if opts.Progress != nil {
			opts.Progress(done, n)
		}
	})
	return stats
}
