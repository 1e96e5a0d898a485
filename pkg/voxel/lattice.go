// Package voxel provides the fixed-resolution cubic voxel grid used by the
// reconstruction. Voxels are addressed by Morton code so that a grid
// stored in code order keeps spatial neighbours close in memory.
package voxel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/pkg/morton"
)

// MaxLevel is the highest supported level. Memory grows as 8^level, so
// anything above it is refused before allocation.
const MaxLevel = 10

var (
	// ErrLevelTooHigh is returned for levels above MaxLevel or below 0.
	ErrLevelTooHigh = errors.New("voxel: level too high")

	// ErrInvalidBox is returned for empty or non-finite bounding boxes.
	ErrInvalidBox = errors.New("voxel: invalid bounding box")
)

// Axis names one of the three grid axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists the three axes in order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

// Forward returns the direction that increases the coordinate along a.
func (a Axis) Forward() Direction { return Direction(2 * a) }

// Direction names one of the six orthogonal neighbours.
type Direction int

const (
	PosX Direction = iota
	NegX
	PosY
	NegY
	PosZ
	NegZ
)

// Directions lists every neighbour direction in slot order.
var Directions = [6]Direction{PosX, NegX, PosY, NegY, PosZ, NegZ}

// Axis returns the axis the direction moves along.
func (d Direction) Axis() Axis { return Axis(d / 2) }

// Positive reports whether the direction increases the coordinate.
func (d Direction) Positive() bool { return d%2 == 0 }

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction { return d ^ 1 }

// Lattice describes the geometry of a Morton-addressed cube of voxels.
type Lattice struct {
	// Level gives 2^Level voxels per axis.
	Level int

	// Width is the number of voxels per axis.
	Width uint32

	// Bounds is the real bounding box the grid was built for.
	Bounds r3.Box

	// Cube is Bounds grown to a cube sharing its minimum corner.
	Cube r3.Box

	// VoxelSize is the edge length of one voxel.
	VoxelSize float64
}

// NewLattice validates level and box and computes the cube geometry.
func NewLattice(level int, box r3.Box) (Lattice, error) {
	if level < 0 || level > MaxLevel {
		return Lattice{}, fmt.Errorf("%w: %d (supported range 0..%d)", ErrLevelTooHigh, level, MaxLevel)
	}
	size := r3.Sub(box.Max, box.Min)
	edge := math.Max(size.X, math.Max(size.Y, size.Z))
	if !(edge > 0) || math.IsInf(edge, 0) || size.X < 0 || size.Y < 0 || size.Z < 0 {
		return Lattice{}, fmt.Errorf("%w: %v", ErrInvalidBox, box)
	}
	width := uint32(1) << uint(level)
	return Lattice{
		Level:     level,
		Width:     width,
		Bounds:    box,
		Cube:      r3.Box{Min: box.Min, Max: r3.Add(box.Min, r3.Vec{X: edge, Y: edge, Z: edge})},
		VoxelSize: edge / float64(width),
	}, nil
}

// Count returns the number of voxels.
func (l Lattice) Count() int {
	return int(morton.Count(l.Level))
}

// Code returns the Morton code of integer coordinates.
func (l Lattice) Code(x, y, z uint32) uint64 {
	return morton.Encode(x, y, z)
}

// Coords returns the integer coordinates of a Morton code.
func (l Lattice) Coords(code uint64) (x, y, z uint32) {
	return morton.Decode(code)
}

// Contains reports whether the integer coordinates are inside the grid.
func (l Lattice) Contains(x, y, z int) bool {
	w := int(l.Width)
	return x >= 0 && y >= 0 && z >= 0 && x < w && y < w && z < w
}

// ElementBox returns the world-space box of one voxel.
func (l Lattice) ElementBox(code uint64) r3.Box {
	x, y, z := morton.Decode(code)
	w := float64(l.Width)
	return r3.Box{
		Min: l.lerp(float64(x)/w, float64(y)/w, float64(z)/w),
		Max: l.lerp(float64(x+1)/w, float64(y+1)/w, float64(z+1)/w),
	}
}

// Center returns the world-space centre of one voxel.
func (l Lattice) Center(code uint64) r3.Vec {
	x, y, z := morton.Decode(code)
	w := float64(l.Width)
	return l.lerp((float64(x)+0.5)/w, (float64(y)+0.5)/w, (float64(z)+0.5)/w)
}

// FaceCenter returns the midpoint of the face shared by the voxel and its
// neighbour in the positive direction of axis.
func (l Lattice) FaceCenter(code uint64, axis Axis) r3.Vec {
	x, y, z := morton.Decode(code)
	w := float64(l.Width)
	f := [3]float64{(float64(x) + 0.5) / w, (float64(y) + 0.5) / w, (float64(z) + 0.5) / w}
	f[axis] += 0.5 / w
	return l.lerp(f[0], f[1], f[2])
}

// Neighbor returns the code of the adjacent voxel in direction d, or
// false at the grid border.
func (l Lattice) Neighbor(code uint64, d Direction) (uint64, bool) {
	x, y, z := morton.Decode(code)
	c := [3]int{int(x), int(y), int(z)}
	if d.Positive() {
		c[d.Axis()]++
	} else {
		c[d.Axis()]--
	}
	if !l.Contains(c[0], c[1], c[2]) {
		return 0, false
	}
	return morton.Encode(uint32(c[0]), uint32(c[1]), uint32(c[2])), true
}

// Locate returns the voxel containing p, or false when p is outside the
// cube.
func (l Lattice) Locate(p r3.Vec) (uint64, bool) {
	edge := l.Cube.Max.X - l.Cube.Min.X
	rel := r3.Scale(float64(l.Width)/edge, r3.Sub(p, l.Cube.Min))
	x, y, z := int(math.Floor(rel.X)), int(math.Floor(rel.Y)), int(math.Floor(rel.Z))
	if !l.Contains(x, y, z) {
		return 0, false
	}
	return morton.Encode(uint32(x), uint32(y), uint32(z)), true
}

func (l Lattice) lerp(fx, fy, fz float64) r3.Vec {
	lo, hi := l.Cube.Min, l.Cube.Max
	return r3.Vec{
		X: lo.X + (hi.X-lo.X)*fx,
		Y: lo.Y + (hi.Y-lo.Y)*fy,
		Z: lo.Z + (hi.Z-lo.Z)*fz,
	}
}
