// Package camera implements the calibrated pinhole camera used to relate
// world space to image rasters.
//
// Camera space follows the bundle convention: x to the right, y down and
// z forward, so projected pixel rows grow downwards like raster rows.
package camera

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// MinDepth is the smallest camera-space depth that still projects.
// Points closer to the image plane, or behind it, carry no evidence.
const MinDepth = 1e-9

// Params holds the stored fields of a camera.
type Params struct {
	// Focal is the focal length normalized so the image height is 1.
	Focal float64

	// Aspect is the image width divided by the image height.
	Aspect float64

	// Distortion holds two radial distortion coefficients. They are
	// carried through but not applied by the projection.
	Distortion [2]float64

	// Center is the optical centre in world space.
	Center r3.Vec

	// Rotation is the 3x3 world to camera basis change. Its rows are the
	// camera's right, down and forward axes in world coordinates.
	Rotation mat.Matrix
}

// Camera is an immutable calibrated camera. Derived matrices are
// recomputed from the stored fields on every call.
type Camera struct {
	focal      float64
	aspect     float64
	distortion [2]float64
	center     r3.Vec
	rotation   [9]float64
}

// New creates a camera from its parameters. An aspect of zero is
// treated as 1. It panics if the rotation is not 3x3.
func New(p Params) *Camera {
	r, c := p.Rotation.Dims()
	if r != 3 || c != 3 {
		panic("camera: rotation must be 3x3")
	}
	cam := &Camera{
		focal:      p.Focal,
		aspect:     p.Aspect,
		distortion: p.Distortion,
		center:     p.Center,
	}
	if cam.aspect == 0 {
		cam.aspect = 1
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cam.rotation[i*3+j] = p.Rotation.At(i, j)
		}
	}
	return cam
}

// LookAt creates a camera at center looking towards target. The image
// "up" direction is as close to up as the viewing direction allows.
func LookAt(center, target, up r3.Vec, focal, aspect float64) *Camera {
	forward := r3.Unit(r3.Sub(target, center))
	right := r3.Unit(r3.Cross(forward, up))
	down := r3.Cross(forward, right)
	rot := mat.NewDense(3, 3, []float64{
		right.X, right.Y, right.Z,
		down.X, down.Y, down.Z,
		forward.X, forward.Y, forward.Z,
	})
	return New(Params{Focal: focal, Aspect: aspect, Center: center, Rotation: rot})
}

// RotationFromQuaternion converts an orientation quaternion into the
// equivalent rotation matrix. The quaternion does not need to be unit.
func RotationFromQuaternion(q quat.Number) *mat.Dense {
	if n := quat.Abs(q); n > 0 {
		q = quat.Scale(1/n, q)
	}
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// Focal returns the normalized focal length.
func (c *Camera) Focal() float64 { return c.focal }

// Aspect returns the width/height ratio.
func (c *Camera) Aspect() float64 { return c.aspect }

// Distortion returns the radial distortion coefficients.
func (c *Camera) Distortion() [2]float64 { return c.distortion }

// Center returns the optical centre.
func (c *Camera) Center() r3.Vec { return c.center }

// Rotation returns a copy of the rotation matrix.
func (c *Camera) Rotation() *mat.Dense {
	data := make([]float64, 9)
	copy(data, c.rotation[:])
	return mat.NewDense(3, 3, data)
}

// Direction returns the viewing direction in world space.
func (c *Camera) Direction() r3.Vec {
	return r3.Vec{X: c.rotation[6], Y: c.rotation[7], Z: c.rotation[8]}
}

// Extrinsic returns the 4x4 world to camera transform [R | -R*center].
func (c *Camera) Extrinsic() *mat.Dense {
	r := c.rotation
	t := r3.Vec{
		X: -(r[0]*c.center.X + r[1]*c.center.Y + r[2]*c.center.Z),
		Y: -(r[3]*c.center.X + r[4]*c.center.Y + r[5]*c.center.Z),
		Z: -(r[6]*c.center.X + r[7]*c.center.Y + r[8]*c.center.Z),
	}
	return mat.NewDense(4, 4, []float64{
		r[0], r[1], r[2], t.X,
		r[3], r[4], r[5], t.Y,
		r[6], r[7], r[8], t.Z,
		0, 0, 0, 1,
	})
}

// IntrinsicForImage returns the 4x4 camera to pixel transform for a
// width x height raster. The principal point is the raster centre; the
// homogeneous w is the camera depth and z becomes 1/depth after the
// divide.
func (c *Camera) IntrinsicForImage(width, height int) *mat.Dense {
	w, h := float64(width), float64(height)
	fx := c.focal / c.aspect * w
	fy := c.focal * h
	return mat.NewDense(4, 4, []float64{
		fx, 0, w / 2, 0,
		0, fy, h / 2, 0,
		0, 0, 0, 1,
		0, 0, 1, 0,
	})
}

// IntrinsicForViewport returns the 4x4 camera to normalized device
// coordinate transform, with y pointing up.
func (c *Camera) IntrinsicForViewport() *mat.Dense {
	f := c.focal * 2
	return mat.NewDense(4, 4, []float64{
		f / c.aspect, 0, 0, 0,
		0, -f, 0, 0,
		0, 0, 0, 1,
		0, 0, 1, 0,
	})
}

// Projection returns the combined world to pixel transform for a
// width x height raster.
func (c *Camera) Projection(width, height int) Projection {
	var m mat.Dense
	m.Mul(c.IntrinsicForImage(width, height), c.Extrinsic())
	return NewProjection(&m)
}

// WorldToImage projects p into a width x height raster. The result
// holds the pixel position in X and Y and 1/depth in Z. It reports false
// when p is on or behind the image plane.
func (c *Camera) WorldToImage(p r3.Vec, width, height int) (r3.Vec, bool) {
	proj := c.Projection(width, height)
	return proj.Project(p)
}

// CanSee reports whether p projects inside the viewport, ignoring
// occlusion and which side of the camera p lies on.
func (c *Camera) CanSee(p r3.Vec) bool {
	var m mat.Dense
	m.Mul(c.IntrinsicForViewport(), c.Extrinsic())
	proj := NewProjection(&m)
	h := proj.Transform(p)
	if math.Abs(h.W) < MinDepth {
		return false
	}
	x, y := h.X/h.W, h.Y/h.W
	return x >= -1 && x <= 1 && y >= -1 && y <= 1
}
