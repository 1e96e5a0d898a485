// Package raster holds single-channel floating point images used for mask
// lookups and photo-consistency sampling.
package raster

import (
	"image"
	"image/color"
	"math"
)

// Raster is a row-major single-channel image with values in [0, 1].
// Pixel (x, y) is sampled at integer coordinates.
type Raster struct {
	Width  int
	Height int
	Pix    []float64
}

// New allocates a zero raster.
func New(width, height int) *Raster {
	return &Raster{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// FromImage converts an image to luminance (Rec. 601 weights).
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	r := New(b.Dx(), b.Dy())
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			cr, cg, cb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			r.Pix[y*r.Width+x] = (0.299*float64(cr) + 0.587*float64(cg) + 0.114*float64(cb)) / 0xffff
		}
	}
	return r
}

// At returns the pixel value. The coordinates must be inside the raster.
func (r *Raster) At(x, y int) float64 {
	return r.Pix[y*r.Width+x]
}

// Set stores a pixel value.
func (r *Raster) Set(x, y int, v float64) {
	r.Pix[y*r.Width+x] = v
}

// Clamped returns the value of the nearest pixel inside the raster.
func (r *Raster) Clamped(x, y int) float64 {
	if x < 0 {
		x = 0
	} else if x >= r.Width {
		x = r.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= r.Height {
		y = r.Height - 1
	}
	return r.Pix[y*r.Width+x]
}

// Contains reports whether the pixel holding (x, y) lies inside the
// raster. NaN coordinates are outside.
func (r *Raster) Contains(x, y float64) bool {
	return x >= 0 && y >= 0 && x < float64(r.Width) && y < float64(r.Height)
}

// Nearest returns the value of the pixel holding (x, y), or false when
// it is outside the raster.
func (r *Raster) Nearest(x, y float64) (float64, bool) {
	if !r.Contains(x, y) {
		return 0, false
	}
	return r.At(int(x), int(y)), true
}

// Bilinear interpolates the raster at (x, y), clamping the four source
// pixels to the border.
func (r *Raster) Bilinear(x, y float64) float64 {
	fx, fy := math.Floor(x), math.Floor(y)
	ix, iy := int(fx), int(fy)
	ax, ay := x-fx, y-fy
	top := r.Clamped(ix, iy)*(1-ax) + r.Clamped(ix+1, iy)*ax
	bottom := r.Clamped(ix, iy+1)*(1-ax) + r.Clamped(ix+1, iy+1)*ax
	return top*(1-ay) + bottom*ay
}

// Gray converts the raster into an 8-bit image.
func (r *Raster) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v := math.Max(0, math.Min(1, r.At(x, y)))
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(v * 255))})
		}
	}
	return img
}
