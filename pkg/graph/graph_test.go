package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/pkg/maxflow"
	"voxelcut/pkg/voxel"
)

func newGrid(t *testing.T, level int, edge float64) *voxel.Grid {
	t.Helper()
	g, err := voxel.NewGrid(level, r3.Box{Max: r3.Vec{X: edge, Y: edge, Z: edge}})
	require.NoError(t, err)
	return g
}

// block keeps the voxels with every coordinate in [lo, hi] as foreground.
func block(g *voxel.Grid, lo, hi uint32) {
	for i := 0; i < g.Count(); i++ {
		x, y, z := g.Coords(uint64(i))
		g.SetForeground(uint64(i), x >= lo && x <= hi && y >= lo && y <= hi && z >= lo && z <= hi)
	}
}

func TestBuildWeights(t *testing.T) {
	grid := newGrid(t, 1, 2)
	block(grid, 0, 0)
	origin := grid.Code(0, 0, 0)
	grid.SetWeight(origin, voxel.AxisX, 1)

	g := NewBuilder(2).Build(grid)
	wn := 4.0 / 3.0 * math.Pi

	src, snk := g.Terminal(origin)
	assert.InDelta(t, 0.5, src, 1e-12)
	assert.Equal(t, 0.0, snk)

	far := grid.Code(1, 1, 1)
	src, snk = g.Terminal(far)
	assert.Equal(t, 0.0, src)
	assert.True(t, math.IsInf(snk, 1))

	east := grid.Code(1, 0, 0)
	assert.InDelta(t, wn*math.Exp(-2), g.Weight(origin, voxel.PosX), 1e-12)
	assert.InDelta(t, wn*math.Exp(-2), g.Weight(east, voxel.NegX), 1e-12)
	assert.InDelta(t, wn, g.Weight(origin, voxel.PosY), 1e-12)
	assert.Equal(t, 0.0, g.Weight(origin, voxel.NegX))
	assert.Equal(t, 0.0, g.Weight(east, voxel.PosY))

	assert.Equal(t, Stats{Nodes: 10, TerminalEdges: 8, NeighborEdges: 3}, g.Stats())
	assert.Equal(t, 8, g.SourceNode())
	assert.Equal(t, 9, g.SinkNode())

	edges := g.Edges()
	assert.Len(t, edges, 11)
	var neighbors int
	for _, e := range edges {
		if e.From != g.SourceNode() && e.To != g.SinkNode() {
			neighbors++
			assert.Equal(t, int(origin), e.From)
			assert.Equal(t, e.Capacity, e.ReverseCapacity)
		}
	}
	assert.Equal(t, 3, neighbors)
}

func TestBackgroundWeight(t *testing.T) {
	grid := newGrid(t, 1, 2)
	block(grid, 0, 0)
	b := NewBuilder(0)
	b.BackgroundWeight = 3
	g := b.Build(grid)
	_, snk := g.Terminal(grid.Code(1, 1, 1))
	assert.Equal(t, 3.0, snk)
}

func solve(t *testing.T, g *Graph) *maxflow.Result {
	t.Helper()
	edges := g.Edges()
	s, err := maxflow.NewSolver(g.Nodes(), g.SourceNode(), g.SinkNode(), edges, maxflow.Options{})
	require.NoError(t, err)
	res, err := s.Solve()
	require.NoError(t, err)
	assert.InDelta(t, res.Flow, res.CutCapacity(edges), 1e-6)
	return res
}

func TestCutFollowsBalloonWeight(t *testing.T) {
	grid := newGrid(t, 3, 8)
	block(grid, 2, 5)

	t.Run("strong balloon keeps the hull", func(t *testing.T) {
		b := NewBuilder(0)
		b.Lambda = 1e6
		g := b.Build(grid)
		occ := g.Occupancy(solve(t, g))
		assert.Equal(t, grid.ForegroundCodes(), occ.Codes())
	})

	t.Run("no balloon empties the model", func(t *testing.T) {
		b := NewBuilder(0)
		b.Lambda = 0
		g := b.Build(grid)
		occ := g.Occupancy(solve(t, g))
		assert.Equal(t, 0, occ.Count())
	})

	t.Run("result stays inside the hull", func(t *testing.T) {
		g := NewBuilder(0).Build(grid)
		occ := g.Occupancy(solve(t, g))
		for _, code := range occ.Codes() {
			assert.True(t, grid.Foreground(code))
		}
	})
}
