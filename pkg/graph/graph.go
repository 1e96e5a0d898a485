// Package graph turns a carved and scored voxel grid into the s-t graph
// whose minimum cut is the reconstructed object.
package graph

import (
	"math"

	"github.com/unixpickle/essentials"

	"voxelcut/internal/models"
	"voxelcut/pkg/maxflow"
	"voxelcut/pkg/voxel"
)

// Default builder parameters
const (
	DefaultLambda = 0.5
	DefaultMu     = 2.0
)

// Stats is the size of a built graph
type Stats struct {
	// Nodes counts voxel nodes plus the two terminals
	Nodes int

	// TerminalEdges counts terminal links with positive capacity
	TerminalEdges int

	// NeighborEdges counts undirected links between adjacent voxels
	NeighborEdges int
}

// Graph is a 6-connected voxel graph. Node i is the voxel with Morton
// code i; the source and sink follow the voxels. Every node keeps its
// terminal weights and one weight slot per neighbour direction, so a
// neighbour weight is stored at both of its endpoints.
type Graph struct {
	voxel.Lattice

	source []float64
	sink   []float64
	slots  [][6]float64
	stats  Stats
}

// SourceNode is the node id of the source terminal.
func (g *Graph) SourceNode() int { return g.Count() }

// SinkNode is the node id of the sink terminal.
func (g *Graph) SinkNode() int { return g.Count() + 1 }

// Nodes returns the total node count including terminals.
func (g *Graph) Nodes() int { return g.Count() + 2 }

// Terminal returns the source and sink weights of a voxel.
func (g *Graph) Terminal(code uint64) (source, sink float64) {
	return g.source[code], g.sink[code]
}

// Weight returns the weight of the link from a voxel to its neighbour in
// direction d, 0 when there is none.
func (g *Graph) Weight(code uint64, d voxel.Direction) float64 {
	return g.slots[code][d]
}

// Stats returns the size of the graph.
func (g *Graph) Stats() Stats {
	return g.stats
}

// Edges lists the graph for the max-flow solver: positive terminal links
// first, then one undirected edge per linked neighbour pair.
func (g *Graph) Edges() []maxflow.Edge {
	edges := make([]maxflow.Edge, 0, g.stats.TerminalEdges+g.stats.NeighborEdges)
	s, t := g.SourceNode(), g.SinkNode()
	for i := range g.source {
		if w := g.source[i]; w > 0 {
			edges = append(edges, maxflow.Edge{From: s, To: i, Capacity: w})
		}
		if w := g.sink[i]; w > 0 {
			edges = append(edges, maxflow.Edge{From: i, To: t, Capacity: w})
		}
	}
	for i := range g.slots {
		for _, axis := range voxel.Axes {
			d := axis.Forward()
			w := g.slots[i][d]
			if w <= 0 {
				continue
			}
			n, _ := g.Neighbor(uint64(i), d)
			edges = append(edges, maxflow.Edge{From: i, To: int(n), Capacity: w, ReverseCapacity: w})
		}
	}
	return edges
}

// Occupancy converts the source side of a cut into a voxel model.
func (g *Graph) Occupancy(res *maxflow.Result) *models.Occupancy {
	occ := models.NewOccupancy(g.Lattice)
	copy(occ.Occupied, res.SourceSide[:g.Count()])
	return occ
}

// Builder sets the graph weights.
//
// A foreground voxel is tied to the source with Lambda*h^3, a ballooning
// term that rewards volume; a background voxel is tied to the sink with
// BackgroundWeight. Each neighbour pair touching the foreground is
// linked with (4/3)*pi*h^2 * exp(-Mu*vote), so photo-consistent faces are
// cheap to cut.
type Builder struct {
	Lambda float64
	Mu     float64

	// BackgroundWeight is the sink weight of background voxels; zero or
	// less means +Inf, which pins them outside the object
	BackgroundWeight float64

	// Workers bounds the goroutines; 0 uses GOMAXPROCS
	Workers int
}

// NewBuilder creates a builder with the default weights
func NewBuilder(workers int) *Builder {
	return &Builder{Lambda: DefaultLambda, Mu: DefaultMu, Workers: workers}
}

// Build creates the graph for a grid.
func (b *Builder) Build(grid *voxel.Grid) *Graph {
	n := grid.Count()
	g := &Graph{
		Lattice: grid.Lattice,
		source:  make([]float64, n),
		sink:    make([]float64, n),
		slots:   make([][6]float64, n),
	}

	h := grid.VoxelSize
	balloon := b.Lambda * h * h * h
	background := b.BackgroundWeight
	if background <= 0 {
		background = math.Inf(1)
	}
	wn := 4.0 / 3.0 * math.Pi * h * h

	essentials.ConcurrentMap(b.Workers, n, func(i int) {
		code := uint64(i)
		fg := grid.Foreground(code)
		if fg {
			g.source[i] = balloon
		} else {
			g.sink[i] = background
		}
		for _, d := range voxel.Directions {
			other, ok := grid.Neighbor(code, d)
			if !ok || (!fg && !grid.Foreground(other)) {
				continue
			}
			lower := code
			if !d.Positive() {
				lower = other
			}
			vote := grid.Weight(lower, d.Axis())
			g.slots[i][d] = wn * math.Exp(-b.Mu*vote)
		}
	})

	g.stats.Nodes = n + 2
	for i := 0; i < n; i++ {
		if g.source[i] > 0 {
			g.stats.TerminalEdges++
		}
		if g.sink[i] > 0 {
			g.stats.TerminalEdges++
		}
		for _, axis := range voxel.Axes {
			if g.slots[i][axis.Forward()] > 0 {
				g.stats.NeighborEdges++
			}
		}
	}
	return g
}
