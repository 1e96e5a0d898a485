package voxel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitBox() r3.Box {
	return r3.Box{Min: r3.Vec{X: -1, Y: -1, Z: -1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}
}

func TestNewGridRejectsLevels(t *testing.T) {
	_, err := NewGrid(MaxLevel+1, unitBox())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLevelTooHigh))

	_, err = NewGrid(-1, unitBox())
	assert.True(t, errors.Is(err, ErrLevelTooHigh))

	_, err = NewGrid(2, r3.Box{Min: r3.Vec{X: 1}, Max: r3.Vec{X: 1}})
	assert.True(t, errors.Is(err, ErrInvalidBox))
}

func TestLevelZeroIsSingleVoxel(t *testing.T) {
	g, err := NewGrid(0, unitBox())
	require.NoError(t, err)
	assert.Equal(t, 1, g.Count())
	assert.Equal(t, unitBox(), g.ElementBox(0))
	assert.True(t, g.IsBoundary(0))
	for _, d := range Directions {
		_, ok := g.Neighbor(0, d)
		assert.False(t, ok)
	}
}

func TestCubeExpansion(t *testing.T) {
	box := r3.Box{Min: r3.Vec{X: 0, Y: 0, Z: 0}, Max: r3.Vec{X: 4, Y: 1, Z: 2}}
	g, err := NewGrid(2, box)
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 4, Y: 4, Z: 4}, g.Cube.Max)
	assert.Equal(t, 1.0, g.VoxelSize)
	assert.Equal(t, uint32(4), g.Width)
	assert.Equal(t, 64, g.ForegroundCount())
}

func TestElementGeometry(t *testing.T) {
	g, err := NewGrid(1, unitBox())
	require.NoError(t, err)

	code := g.Code(1, 0, 1)
	b := g.ElementBox(code)
	assert.Equal(t, r3.Vec{X: 0, Y: -1, Z: 0}, b.Min)
	assert.Equal(t, r3.Vec{X: 1, Y: 0, Z: 1}, b.Max)
	assert.Equal(t, r3.Vec{X: 0.5, Y: -0.5, Z: 0.5}, g.Center(code))

	origin := g.Code(0, 0, 0)
	assert.Equal(t, r3.Vec{X: 0, Y: -0.5, Z: -0.5}, g.FaceCenter(origin, AxisX))
	assert.Equal(t, r3.Vec{X: -0.5, Y: 0, Z: -0.5}, g.FaceCenter(origin, AxisY))
	assert.Equal(t, r3.Vec{X: -0.5, Y: -0.5, Z: 0}, g.FaceCenter(origin, AxisZ))

	located, ok := g.Locate(r3.Vec{X: 0.25, Y: -0.75, Z: 0.9})
	require.True(t, ok)
	assert.Equal(t, code, located)
	_, ok = g.Locate(r3.Vec{X: 2})
	assert.False(t, ok)
}

func TestNeighbor(t *testing.T) {
	g, err := NewGrid(2, unitBox())
	require.NoError(t, err)
	code := g.Code(1, 2, 3)

	n, ok := g.Neighbor(code, PosX)
	require.True(t, ok)
	assert.Equal(t, g.Code(2, 2, 3), n)
	n, ok = g.Neighbor(code, NegY)
	require.True(t, ok)
	assert.Equal(t, g.Code(1, 1, 3), n)
	_, ok = g.Neighbor(code, PosZ)
	assert.False(t, ok)

	for _, d := range Directions {
		assert.Equal(t, d, d.Opposite().Opposite())
		assert.Equal(t, d.Axis(), d.Opposite().Axis())
		assert.NotEqual(t, d.Positive(), d.Opposite().Positive())
	}
}

func TestBoundaryDepth(t *testing.T) {
	g, err := NewGrid(3, unitBox())
	require.NoError(t, err)

	// Keep a 6x6x6 block inside the 8x8x8 grid.
	for i := 0; i < g.Count(); i++ {
		x, y, z := g.Coords(uint64(i))
		inside := x >= 1 && x <= 6 && y >= 1 && y <= 6 && z >= 1 && z <= 6
		g.SetForeground(uint64(i), inside)
	}

	depth := g.BoundaryDepth(2)
	assert.Equal(t, uint8(0), depth[g.Code(0, 0, 0)])
	assert.Equal(t, uint8(1), depth[g.Code(1, 3, 3)])
	assert.Equal(t, uint8(2), depth[g.Code(2, 3, 3)])
	assert.Equal(t, uint8(0), depth[g.Code(3, 3, 3)])
	assert.True(t, g.IsBoundary(g.Code(6, 6, 6)))
	assert.False(t, g.IsBoundary(g.Code(3, 4, 3)))

	assert.Equal(t, make([]uint8, g.Count()), g.BoundaryDepth(0))
}

func TestWeights(t *testing.T) {
	g, err := NewGrid(1, unitBox())
	require.NoError(t, err)
	g.SetWeight(3, AxisY, 0.75)
	assert.Equal(t, 0.75, g.Weight(3, AxisY))
	assert.Equal(t, 0.0, g.Weight(3, AxisX))
}
