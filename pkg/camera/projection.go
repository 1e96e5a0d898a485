package camera

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Homogeneous is a point in homogeneous coordinates.
type Homogeneous struct {
	X, Y, Z, W float64
}

// Add returns h + o.
func (h Homogeneous) Add(o Homogeneous) Homogeneous {
	return Homogeneous{X: h.X + o.X, Y: h.Y + o.Y, Z: h.Z + o.Z, W: h.W + o.W}
}

// Scale returns h * s.
func (h Homogeneous) Scale(s float64) Homogeneous {
	return Homogeneous{X: h.X * s, Y: h.Y * s, Z: h.Z * s, W: h.W * s}
}

// Projection is a flattened row-major 4x4 transform, cheap to copy and
// apply inside per-sample loops.
type Projection [16]float64

// NewProjection flattens a 4x4 matrix.
func NewProjection(m mat.Matrix) Projection {
	var p Projection
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			p[i*4+j] = m.At(i, j)
		}
	}
	return p
}

// Transform applies the matrix to the point (v, 1).
func (p *Projection) Transform(v r3.Vec) Homogeneous {
	return Homogeneous{
		X: p[0]*v.X + p[1]*v.Y + p[2]*v.Z + p[3],
		Y: p[4]*v.X + p[5]*v.Y + p[6]*v.Z + p[7],
		Z: p[8]*v.X + p[9]*v.Y + p[10]*v.Z + p[11],
		W: p[12]*v.X + p[13]*v.Y + p[14]*v.Z + p[15],
	}
}

// TransformDir applies the matrix to the direction (v, 0).
func (p *Projection) TransformDir(v r3.Vec) Homogeneous {
	return Homogeneous{
		X: p[0]*v.X + p[1]*v.Y + p[2]*v.Z,
		Y: p[4]*v.X + p[5]*v.Y + p[6]*v.Z,
		Z: p[8]*v.X + p[9]*v.Y + p[10]*v.Z,
		W: p[12]*v.X + p[13]*v.Y + p[14]*v.Z,
	}
}

// Project transforms v and divides by w. It reports false when w, the
// camera depth, is below MinDepth.
func (p *Projection) Project(v r3.Vec) (r3.Vec, bool) {
	return p.Transform(v).Divide()
}

// Divide performs the perspective divide. It reports false when w is
// below MinDepth.
func (h Homogeneous) Divide() (r3.Vec, bool) {
	if h.W < MinDepth {
		return r3.Vec{}, false
	}
	return r3.Vec{X: h.X / h.W, Y: h.Y / h.W, Z: h.Z / h.W}, true
}
