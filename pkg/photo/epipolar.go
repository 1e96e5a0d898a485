package photo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/pkg/camera"
)

// epipolarLine is the image, in one camera, of the ray origin + d*step
// cast from another camera.
type epipolarLine struct {
	origin camera.Homogeneous
	step   camera.Homogeneous
	width  int
	height int
}

func newEpipolarLine(p *camera.Projection, origin, step r3.Vec, width, height int) epipolarLine {
	return epipolarLine{
		origin: p.Transform(origin),
		step:   p.TransformDir(step),
		width:  width,
		height: height,
	}
}

// point projects the ray point at depth d.
func (e epipolarLine) point(d float64) (x, y float64, ok bool) {
	v, ok := e.origin.Add(e.step.Scale(d)).Divide()
	return v.X, v.Y, ok
}

// depth solves for the ray depth that projects to (x, y), which must lie
// on the line. The coordinate with the better conditioned equation is
// used.
func (e epipolarLine) depth(x, y float64) float64 {
	dx := x*e.step.W - e.step.X
	dy := y*e.step.W - e.step.Y
	if math.Abs(dx) >= math.Abs(dy) {
		if dx == 0 {
			return math.NaN()
		}
		return (e.origin.X - x*e.origin.W) / dx
	}
	return (e.origin.Y - y*e.origin.W) / dy
}

// walk visits the line between the projections of depths -drange and
// +drange at half-pixel steps along its dominant axis, clipped to the
// raster. Nothing is visited when either end is behind the camera or the
// line degenerates to a point.
func (e epipolarLine) walk(drange float64, fn func(x, y, d float64)) {
	x0, y0, ok0 := e.point(-drange)
	x1, y1, ok1 := e.point(drange)
	if !ok0 || !ok1 {
		return
	}
	dx, dy := x1-x0, y1-y0
	if math.Max(math.Abs(dx), math.Abs(dy)) < 1e-9 {
		return
	}

	if math.Abs(dx) >= math.Abs(dy) {
		slope := dy / dx
		lo, hi := span(x0, x1, e.width)
		for u := lo; u <= hi; u += 0.5 {
			v := y0 + (u-x0)*slope
			e.visit(u, v, fn)
		}
		return
	}
	slope := dx / dy
	lo, hi := span(y0, y1, e.height)
	for v := lo; v <= hi; v += 0.5 {
		u := x0 + (v-y0)*slope
		e.visit(u, v, fn)
	}
}

func (e epipolarLine) visit(x, y float64, fn func(x, y, d float64)) {
	d := e.depth(x, y)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return
	}
	fn(x, y, d)
}

// span returns the whole-pixel range covering [a, b], clipped to one
// pixel past the raster on each side.
func span(a, b float64, size int) (lo, hi float64) {
	lo = math.Floor(math.Min(a, b))
	hi = math.Ceil(math.Max(a, b))
	return math.Max(lo, -1), math.Min(hi, float64(size))
}
