// Package visualization renders voxel volumes as stacks of grayscale
// slice images for inspection.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"voxelcut/internal/models"
	"voxelcut/pkg/voxel"
)

// Viewer slices a scalar volume stored in Morton order. Values are
// expected in [0, 1] and clamped otherwise.
type Viewer struct {
	// lattice addresses the voxels of the volume
	lattice voxel.Lattice

	// volumeData holds one value per voxel, indexed by Morton code
	volumeData []float64
}

// NewViewer creates a viewer over a Morton ordered volume
func NewViewer(l voxel.Lattice, volumeData []float64) (*Viewer, error) {
	if len(volumeData) != l.Count() {
		return nil, fmt.Errorf("volume has %d values, lattice has %d voxels", len(volumeData), l.Count())
	}
	return &Viewer{lattice: l, volumeData: volumeData}, nil
}

// ForegroundViewer shows the foreground flags of a grid
func ForegroundViewer(g *voxel.Grid) *Viewer {
	flags := g.Flags()
	data := make([]float64, len(flags))
	for i, fg := range flags {
		if fg {
			data[i] = 1
		}
	}
	return &Viewer{lattice: g.Lattice, volumeData: data}
}

// WeightViewer shows, per voxel, the largest of its three face weights
// relative to the largest weight in the grid
func WeightViewer(g *voxel.Grid) *Viewer {
	data := make([]float64, g.Count())
	var max float64
	for i := range data {
		for _, axis := range voxel.Axes {
			data[i] = math.Max(data[i], g.Weight(uint64(i), axis))
		}
		max = math.Max(max, data[i])
	}
	if max > 0 {
		for i := range data {
			data[i] /= max
		}
	}
	return &Viewer{lattice: g.Lattice, volumeData: data}
}

// OccupancyViewer shows a reconstructed model
func OccupancyViewer(o *models.Occupancy) *Viewer {
	data := make([]float64, len(o.Occupied))
	for i, occ := range o.Occupied {
		if occ {
			data[i] = 1
		}
	}
	return &Viewer{lattice: o.Lattice, volumeData: data}
}

// Size returns the number of voxels along each axis
func (v *Viewer) Size() int {
	return int(v.lattice.Width)
}

// at returns the value of the voxel (x, y, z)
func (v *Viewer) at(x, y, z int) float64 {
	return v.volumeData[v.lattice.Code(uint32(x), uint32(y), uint32(z))]
}

func gray16(value float64) color.Gray16 {
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, value*65535)))}
}

// ExtractSlice extracts a 2D slice from the volume perpendicular to the
// specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	n := v.Size()
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	if position >= n {
		return nil, fmt.Errorf("position %d exceeds size %d", position, n)
	}

	img := image.NewGray16(image.Rect(0, 0, n, n))
	switch axis {
	case "x", "X":
		// YZ plane, z across
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				img.SetGray16(z, y, gray16(v.at(position, y, z)))
			}
		}
	case "y", "Y":
		// XZ plane, z down
		for z := 0; z < n; z++ {
			for x := 0; x < n; x++ {
				img.SetGray16(x, z, gray16(v.at(x, position, z)))
			}
		}
	case "z", "Z":
		// XY plane
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				img.SetGray16(x, y, gray16(v.at(x, y, position)))
			}
		}
	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	return img, nil
}

// ExtractRegion extracts a subregion of the volume in x-fastest order
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) ([]float64, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	n := v.Size()
	if startX+sizeX > n || startY+sizeY > n || startZ+sizeZ > n {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]float64, sizeX*sizeY*sizeZ)
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				region[z*sizeX*sizeY+y*sizeX+x] = v.at(startX+x, startY+y, startZ+z)
			}
		}
	}
	return region, nil
}

// SaveSlice saves an extracted slice as a PNG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSliceSequence extracts and saves every slice along the specified
// axis as outputDir/<prefix>_<axis>_NNN.png
func (v *Viewer) SaveSliceSequence(axis, prefix, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.Size(); pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%03d.png", prefix, axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
