// Package photo scores photo-consistency: how well independent cameras
// agree on the appearance of a hypothesized surface point.
//
// The building blocks are bilinear sample windows and their normalized
// cross-correlation, an epipolar search that turns correlation peaks into
// depth candidates, Parzen-window aggregation of those candidates, and
// the fusion of per-camera votes into one weight per voxel face.
package photo

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"voxelcut/pkg/raster"
)

const (
	// WindowSize is the edge length of a sample window in pixels.
	WindowSize = 11

	// MinVariance is the smallest window variance that still carries
	// information.
	MinVariance = 1e-10
)

// Window is a WindowSize x WindowSize patch sampled around a sub-pixel
// position.
type Window struct {
	Values [WindowSize * WindowSize]float64

	// Valid is false when the centre pixel lies outside the raster.
	Valid bool
}

// SampleWindow bilinearly samples the patch centred on (x, y). Pixels
// past the raster border are clamped; the window is valid only when the
// centre pixel itself is inside.
func SampleWindow(r *raster.Raster, x, y float64) Window {
	var w Window
	if !r.Contains(x, y) {
		return w
	}
	w.Valid = true
	half := float64(WindowSize / 2)
	for i := 0; i < WindowSize; i++ {
		for j := 0; j < WindowSize; j++ {
			w.Values[i*WindowSize+j] = r.Bilinear(x-half+float64(j), y-half+float64(i))
		}
	}
	return w
}

// NCC returns the zero-mean normalized cross-correlation of two windows
// in [-1, 1]. Invalid or flat windows carry no information and give -1.
func NCC(a, b *Window) float64 {
	if !a.Valid || !b.Valid {
		return -1
	}
	if _, va := stat.MeanVariance(a.Values[:], nil); !(va > MinVariance) {
		return -1
	}
	if _, vb := stat.MeanVariance(b.Values[:], nil); !(vb > MinVariance) {
		return -1
	}
	r := stat.Correlation(a.Values[:], b.Values[:], nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return -1
	}
	return math.Max(-1, math.Min(1, r))
}
