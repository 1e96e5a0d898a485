package models

import (
	"voxelcut/pkg/voxel"
)

// Occupancy is the final binary voxel model produced by a reconstruction
type Occupancy struct {
	// Lattice holds the grid level, bounding cube and voxel size
	voxel.Lattice

	// Occupied is indexed by Morton code
	Occupied []bool
}

// NewOccupancy creates an empty occupancy over a lattice
func NewOccupancy(l voxel.Lattice) *Occupancy {
	return &Occupancy{Lattice: l, Occupied: make([]bool, l.Count())}
}

// Contains reports whether the voxel with the given code is occupied
func (o *Occupancy) Contains(code uint64) bool {
	return o.Occupied[code]
}

// Count returns the number of occupied voxels
func (o *Occupancy) Count() int {
	n := 0
	for _, v := range o.Occupied {
		if v {
			n++
		}
	}
	return n
}

// Codes lists the occupied voxels in Morton order
func (o *Occupancy) Codes() []uint64 {
	var codes []uint64
	for i, v := range o.Occupied {
		if v {
			codes = append(codes, uint64(i))
		}
	}
	return codes
}

// IsSurface reports whether an occupied voxel has an unoccupied or
// out-of-grid 6-neighbour
func (o *Occupancy) IsSurface(code uint64) bool {
	if !o.Occupied[code] {
		return false
	}
	for _, d := range voxel.Directions {
		n, ok := o.Neighbor(code, d)
		if !ok || !o.Occupied[n] {
			return true
		}
	}
	return false
}

// SurfaceCodes lists the occupied voxels on the surface of the model
func (o *Occupancy) SurfaceCodes() []uint64 {
	var codes []uint64
	for i := range o.Occupied {
		if o.IsSurface(uint64(i)) {
			codes = append(codes, uint64(i))
		}
	}
	return codes
}
