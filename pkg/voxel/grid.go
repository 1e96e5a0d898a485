package voxel

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Grid is a voxel cube carrying a foreground flag and three edge weights
// per voxel. Weight (code, axis) belongs to the face between the voxel and
// its positive neighbour along axis; 0 means no evidence.
//
// Distinct voxels may be written from different goroutines without
// locking as long as each cell has a single writer.
type Grid struct {
	Lattice

	foreground []bool
	weights    [][3]float64
}

// NewGrid allocates a grid with every voxel marked foreground.
func NewGrid(level int, box r3.Box) (*Grid, error) {
	l, err := NewLattice(level, box)
	if err != nil {
		return nil, err
	}
	n := l.Count()
	g := &Grid{
		Lattice:    l,
		foreground: make([]bool, n),
		weights:    make([][3]float64, n),
	}
	for i := range g.foreground {
		g.foreground[i] = true
	}
	return g, nil
}

// Foreground reports the voxel's foreground flag.
func (g *Grid) Foreground(code uint64) bool {
	return g.foreground[code]
}

// SetForeground sets the voxel's foreground flag.
func (g *Grid) SetForeground(code uint64, fg bool) {
	g.foreground[code] = fg
}

// ForegroundCodes lists the foreground voxels in Morton order.
func (g *Grid) ForegroundCodes() []uint64 {
	var codes []uint64
	for i, fg := range g.foreground {
		if fg {
			codes = append(codes, uint64(i))
		}
	}
	return codes
}

// ForegroundCount returns the number of foreground voxels.
func (g *Grid) ForegroundCount() int {
	n := 0
	for _, fg := range g.foreground {
		if fg {
			n++
		}
	}
	return n
}

// Flags returns a copy of the foreground flags in Morton order.
func (g *Grid) Flags() []bool {
	return append([]bool(nil), g.foreground...)
}

// Weight returns the edge weight between the voxel and its positive
// neighbour along axis.
func (g *Grid) Weight(code uint64, axis Axis) float64 {
	return g.weights[code][axis]
}

// SetWeight stores the edge weight between the voxel and its positive
// neighbour along axis.
func (g *Grid) SetWeight(code uint64, axis Axis, w float64) {
	g.weights[code][axis] = w
}

// IsBoundary reports whether a foreground voxel touches a background
// voxel or the grid border.
func (g *Grid) IsBoundary(code uint64) bool {
	if !g.foreground[code] {
		return false
	}
	for _, d := range Directions {
		n, ok := g.Neighbor(code, d)
		if !ok || !g.foreground[n] {
			return true
		}
	}
	return false
}

// BoundaryDepth returns, per voxel, the 6-connected distance of a
// foreground voxel from the outside of the hull: 1 for boundary voxels,
// 2 for their foreground neighbours and so on up to band. Background
// voxels and foreground voxels deeper than band get 0.
func (g *Grid) BoundaryDepth(band int) []uint8 {
	if band > 255 {
		band = 255
	}
	depth := make([]uint8, len(g.foreground))
	if band <= 0 {
		return depth
	}
	var frontier []uint64
	for i := range g.foreground {
		if g.IsBoundary(uint64(i)) {
			depth[i] = 1
			frontier = append(frontier, uint64(i))
		}
	}
	for d := 2; d <= band && len(frontier) > 0; d++ {
		var next []uint64
		for _, code := range frontier {
			for _, dir := range Directions {
				n, ok := g.Neighbor(code, dir)
				if ok && g.foreground[n] && depth[n] == 0 {
					depth[n] = uint8(d)
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return depth
}
