package photo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/internal/models"
	"voxelcut/pkg/camera"
)

// AngleBand is a range of angles, in degrees, between two cameras'
// viewing rays to a point.
type AngleBand struct {
	MinDeg float64 `yaml:"minDeg"`
	MaxDeg float64 `yaml:"maxDeg"`
}

// DefaultBands are the neighbour bands used when none are configured.
var DefaultBands = []AngleBand{{MinDeg: 10, MaxDeg: 20}, {MinDeg: 20, MaxDeg: 25}}

// Scene is the read-only camera and image data shared by all votes.
type Scene struct {
	Views     []models.View
	VoxelSize float64

	proj []camera.Projection
}

// NewScene caches the image projection of every view.
func NewScene(views []models.View, voxelSize float64) *Scene {
	s := &Scene{Views: views, VoxelSize: voxelSize, proj: make([]camera.Projection, len(views))}
	for i, v := range views {
		s.proj[i] = v.Camera.Projection(v.Image.Width, v.Image.Height)
	}
	return s
}

// Project maps p into the image of view i.
func (s *Scene) Project(i int, p r3.Vec) (r3.Vec, bool) {
	return s.proj[i].Project(p)
}

// Window samples view i around the projection of p. Points behind the
// camera give an invalid window.
func (s *Scene) Window(i int, p r3.Vec) Window {
	pix, ok := s.Project(i, p)
	if !ok {
		return Window{}
	}
	return SampleWindow(s.Views[i].Image, pix.X, pix.Y)
}

// Neighbors selects cameras whose ray to x makes an angle within one of
// the bands with the ray of camera ref. Bands are scanned in order and
// at most max cameras are returned.
func (s *Scene) Neighbors(ref int, x r3.Vec, bands []AngleBand, max int) []int {
	dir := s.rayTo(ref, x)
	if dir == (r3.Vec{}) {
		return nil
	}
	var out []int
	taken := make(map[int]bool)
	for _, b := range bands {
		lo := math.Cos(b.MaxDeg * math.Pi / 180)
		hi := math.Cos(b.MinDeg * math.Pi / 180)
		for j := range s.Views {
			if len(out) >= max {
				return out
			}
			if j == ref || taken[j] {
				continue
			}
			other := s.rayTo(j, x)
			if other == (r3.Vec{}) {
				continue
			}
			if c := r3.Dot(dir, other); c >= lo && c <= hi {
				out = append(out, j)
				taken[j] = true
			}
		}
	}
	return out
}

// rayTo returns the unit vector from x to the centre of camera i.
func (s *Scene) rayTo(i int, x r3.Vec) r3.Vec {
	d := r3.Sub(s.Views[i].Camera.Center(), x)
	n := r3.Norm(d)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, d)
}
