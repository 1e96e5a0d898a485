// Package synth renders small synthetic scenes (boxes seen by look-at
// cameras) with exact silhouettes and procedural texture. Tests across
// the module use it as ground truth.
package synth

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/internal/models"
	"voxelcut/pkg/camera"
	"voxelcut/pkg/raster"
)

// Up is the world up direction used by the synthetic cameras.
var Up = r3.Vec{Y: 1}

// AxisCameras places four cameras on the +Z, -Z, +X and -X axes at the
// given distance, all looking at the origin.
func AxisCameras(distance, focal float64) []*camera.Camera {
	centers := []r3.Vec{{Z: distance}, {Z: -distance}, {X: distance}, {X: -distance}}
	cams := make([]*camera.Camera, len(centers))
	for i, c := range centers {
		cams[i] = camera.LookAt(c, r3.Vec{}, Up, focal, 1)
	}
	return cams
}

// RingCameras places n cameras evenly on a horizontal circle of the
// given radius and height, looking at the origin.
func RingCameras(n int, radius, height, focal float64) []*camera.Camera {
	cams := make([]*camera.Camera, n)
	for i := range cams {
		a := 2 * math.Pi * float64(i) / float64(n)
		c := r3.Vec{X: radius * math.Sin(a), Y: height, Z: radius * math.Cos(a)}
		cams[i] = camera.LookAt(c, r3.Vec{}, Up, focal, 1)
	}
	return cams
}

// RayBox intersects the ray origin + t*dir with a box using the slab
// method and returns the entry distance.
func RayBox(origin, dir r3.Vec, box r3.Box) (float64, bool) {
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	lo := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}

	tmin, tmax := math.Inf(-1), math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-15 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - o[i]) / d[i]
		t2 := (hi[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}
	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	return math.Max(tmin, 0), true
}

// PixelRay returns the world-space direction through pixel position
// (u, v) of a width x height raster.
func PixelRay(cam *camera.Camera, u, v float64, width, height int) r3.Vec {
	w, h := float64(width), float64(height)
	fx := cam.Focal() / cam.Aspect() * w
	fy := cam.Focal() * h
	local := [3]float64{(u - w/2) / fx, (v - h/2) / fy, 1}
	rot := cam.Rotation()
	// Camera to world is the transpose of the rotation.
	var dir [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dir[i] += rot.At(j, i) * local[j]
		}
	}
	return r3.Vec{X: dir[0], Y: dir[1], Z: dir[2]}
}

// Silhouette renders a binary mask of the box. Pixel (x, y) covers
// [x, x+1) x [y, y+1) and is tested through its centre.
func Silhouette(cam *camera.Camera, box r3.Box, width, height int) *raster.Raster {
	r := raster.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dir := PixelRay(cam, float64(x)+0.5, float64(y)+0.5, width, height)
			if _, ok := RayBox(cam.Center(), dir, box); ok {
				r.Set(x, y, 1)
			}
		}
	}
	return r
}

// Texture is a procedural surface pattern with values in [0, 1], busy
// enough at voxel scale for window correlation to lock onto.
func Texture(p r3.Vec) float64 {
	v := 0.5 + 0.25*math.Sin(40*p.X+25*p.Y) + 0.25*math.Cos(35*p.Z-30*p.Y+20*p.X)
	return math.Max(0, math.Min(1, v))
}

// Render draws the textured box over a constant background. Pixel values
// are taken at integer positions, matching bilinear sampling.
func Render(cam *camera.Camera, box r3.Box, width, height int, texture func(r3.Vec) float64, background float64) *raster.Raster {
	r := raster.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dir := PixelRay(cam, float64(x), float64(y), width, height)
			t, ok := RayBox(cam.Center(), dir, box)
			if !ok {
				r.Set(x, y, background)
				continue
			}
			r.Set(x, y, texture(r3.Add(cam.Center(), r3.Scale(t, dir))))
		}
	}
	return r
}

// Views renders image and mask for every camera.
func Views(cams []*camera.Camera, box r3.Box, width, height int) []models.View {
	views := make([]models.View, len(cams))
	for i, cam := range cams {
		views[i] = models.View{
			Name:   viewName(i),
			Camera: cam,
			Image:  Render(cam, box, width, height, Texture, 0),
			Mask:   Silhouette(cam, box, width, height),
		}
	}
	return views
}

func viewName(i int) string {
	return fmt.Sprintf("view%02d", i)
}
