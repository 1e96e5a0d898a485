package photo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// VotingStrategy scores the photo-consistency of point x as seen from
// reference camera ref. Votes are finite and >= 0; 0 means no evidence.
type VotingStrategy interface {
	Vote(s *Scene, ref int, x r3.Vec) float64
}

// Strategy names accepted by NewStrategy.
const (
	StrategyEpipolar = "epipolar"
	StrategyRay      = "ray"
)

// Params tunes the voting strategies. Depths are in units of the ray
// step, itself a fraction of the voxel size.
type Params struct {
	// Bands select the neighbour cameras.
	Bands []AngleBand

	// MaxNeighbors caps the number of neighbour cameras.
	MaxNeighbors int

	// NCCThreshold is the correlation a peak must exceed.
	NCCThreshold float64

	// DepthRange is the half-length D of the searched ray segment.
	DepthRange float64

	// DepthStep is the spacing of the depths tested along the reference ray.
	DepthStep float64

	// RayStep is the length of one depth unit relative to the voxel size.
	RayStep float64

	// Kernel spreads each candidate over nearby depths.
	Kernel Kernel

	// PeakTolerance is how far from depth 0 the maximum of the score may
	// sit and still count as a peak at the point; 0 requires score(0)
	// itself to be the maximum.
	PeakTolerance float64
}

// DefaultParams returns the standard voting parameters.
func DefaultParams() Params {
	return Params{
		Bands:         DefaultBands,
		MaxNeighbors:  4,
		NCCThreshold:  0.5,
		DepthRange:    3,
		DepthStep:     0.1,
		RayStep:       0.707,
		Kernel:        IndicatorKernel{Width: 1},
		PeakTolerance: 1,
	}
}

// NewStrategy returns the voting strategy with the given name.
func NewStrategy(name string, p Params) (VotingStrategy, error) {
	switch name {
	case StrategyEpipolar, "":
		return &EpipolarVoter{Params: p}, nil
	case StrategyRay:
		return &RayVoter{Params: p}, nil
	}
	return nil, fmt.Errorf("unknown voting strategy %q", name)
}

// EpipolarVoter searches each neighbour's epipolar line for correlation
// peaks with the reference window and accepts the point when the Parzen
// aggregate of those peaks is highest at the point itself.
type EpipolarVoter struct {
	Params
}

// Vote implements VotingStrategy.
func (v *EpipolarVoter) Vote(s *Scene, ref int, x r3.Vec) float64 {
	neighbors := s.Neighbors(ref, x, v.Bands, v.MaxNeighbors)
	if len(neighbors) == 0 {
		return 0
	}
	step, ok := rayStep(s, ref, x, v.RayStep)
	if !ok {
		return 0
	}
	wi := s.Window(ref, x)
	if !wi.Valid {
		return 0
	}

	var candidates []Candidate
	for _, j := range neighbors {
		img := s.Views[j].Image
		line := newEpipolarLine(&s.proj[j], x, step, img.Width, img.Height)
		finder := NewPeakFinder(v.NCCThreshold)
		line.walk(v.DepthRange, func(u, w, d float64) {
			wj := SampleWindow(img, u, w)
			finder.Push(d, NCC(&wi, &wj))
		})
		candidates = append(candidates, finder.Peaks()...)
	}
	if len(candidates) == 0 {
		return 0
	}
	return peakAtZero(v.DepthRange, v.DepthStep, v.PeakTolerance, func(d float64) float64 {
		return Score(candidates, v.Kernel, d)
	})
}

// RayVoter samples the neighbours directly at the projections of points
// along the reference ray and accepts the point when the mean
// correlation curve peaks at it.
type RayVoter struct {
	Params
}

// Vote implements VotingStrategy.
func (v *RayVoter) Vote(s *Scene, ref int, x r3.Vec) float64 {
	neighbors := s.Neighbors(ref, x, v.Bands, v.MaxNeighbors)
	if len(neighbors) == 0 {
		return 0
	}
	step, ok := rayStep(s, ref, x, v.RayStep)
	if !ok {
		return 0
	}
	wi := s.Window(ref, x)
	if !wi.Valid {
		return 0
	}
	return peakAtZero(v.DepthRange, v.DepthStep, v.PeakTolerance, func(d float64) float64 {
		p := r3.Add(x, r3.Scale(d, step))
		var sum float64
		for _, j := range neighbors {
			wj := s.Window(j, p)
			sum += NCC(&wi, &wj)
		}
		return sum / float64(len(neighbors))
	})
}

// rayStep returns one depth unit along the ray from x towards camera ref.
func rayStep(s *Scene, ref int, x r3.Vec, scale float64) (r3.Vec, bool) {
	dir := s.rayTo(ref, x)
	if dir == (r3.Vec{}) || s.VoxelSize <= 0 {
		return r3.Vec{}, false
	}
	return r3.Scale(s.VoxelSize*scale, dir), true
}

// peakAtZero evaluates score on the depths k*step for |k*step| <= drange.
// It returns the best score within tolerance of 0 if nothing on the
// whole range beats it, and 0 otherwise or when that score is not
// positive.
func peakAtZero(drange, step, tolerance float64, score func(d float64) float64) float64 {
	if step <= 0 {
		step = 0.1
	}
	n := int(math.Floor(drange/step + 1e-9))
	values := make([]float64, 2*n+1)
	c0 := math.Inf(-1)
	for k := -n; k <= n; k++ {
		d := float64(k) * step
		s := score(d)
		if math.IsNaN(s) {
			s = math.Inf(-1)
		}
		values[k+n] = s
		if math.Abs(d) <= tolerance+1e-9 && s > c0 {
			c0 = s
		}
	}
	for _, s := range values {
		if s > c0 {
			return 0
		}
	}
	if !(c0 > 0) || math.IsInf(c0, 0) {
		return 0
	}
	return c0
}
