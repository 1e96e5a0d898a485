// Package maxflow computes s-t maximum flows and minimum cuts with the
// Edmonds-Karp algorithm.
//
// The solver consumes a plain edge list and returns the source side of
// the minimum cut, so any other max-flow algorithm can be dropped in
// behind the same contract.
package maxflow

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotConverged is returned when the augmentation bound is reached
	// while augmenting paths remain.
	ErrNotConverged = errors.New("maxflow: augmentation limit reached")

	// ErrUnbounded is returned when an augmenting path has infinite
	// capacity.
	ErrUnbounded = errors.New("maxflow: unbounded flow")

	// ErrAlreadySolved is returned by a second call to Solve.
	ErrAlreadySolved = errors.New("maxflow: already solved")

	// ErrInvalidGraph is returned for out of range nodes or bad
	// capacities.
	ErrInvalidGraph = errors.New("maxflow: invalid graph")
)

// Edge connects two nodes. Capacity limits flow from From to To and
// ReverseCapacity flow from To to From; an undirected edge has both set
// to its weight. Capacities may be +Inf.
type Edge struct {
	From, To        int
	Capacity        float64
	ReverseCapacity float64
}

// State is the solver's position in its lifecycle.
type State int

const (
	Idle State = iota
	BuildResiduals
	AugmentingPathSearch
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case BuildResiduals:
		return "BuildResiduals"
	case AugmentingPathSearch:
		return "AugmentingPathSearch"
	case Terminated:
		return "Terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options tunes the solver.
type Options struct {
	// MaxAugmentations bounds the number of augmenting paths; 0 means no
	// bound.
	MaxAugmentations int
}

// Result is the outcome of a solve.
type Result struct {
	// Flow is the maximum flow value, equal to the minimum cut capacity.
	Flow float64

	// Augmentations counts the augmenting paths found by search.
	Augmentations int

	// SourceSide marks the nodes reachable from the source in the final
	// residual graph.
	SourceSide []bool
}

// CutCapacity sums the capacity of the edges leaving the source side.
func (r *Result) CutCapacity(edges []Edge) float64 {
	var c float64
	for _, e := range edges {
		from, to := r.SourceSide[e.From], r.SourceSide[e.To]
		if from && !to {
			c += e.Capacity
		} else if to && !from {
			c += e.ReverseCapacity
		}
	}
	return c
}

// Solver runs Edmonds-Karp over an arc arena. Edge k becomes arcs 2k
// (forward) and 2k+1 (reverse), so the partner of arc a is a^1. The
// outgoing arcs of node v are arcs[first[v]:first[v+1]].
type Solver struct {
	nodes  int
	source int
	sink   int
	opts   Options
	state  State

	edges    []Edge
	head     []int
	residual []float64
	first    []int
	arcs     []int

	parent []int
	seen   []int
	stamp  int
}

// NewSolver validates the graph and prepares a solver. Nodes are
// numbered 0..nodes-1.
func NewSolver(nodes, source, sink int, edges []Edge, opts Options) (*Solver, error) {
	if nodes <= 0 || source < 0 || source >= nodes || sink < 0 || sink >= nodes || source == sink {
		return nil, fmt.Errorf("%w: %d nodes, source %d, sink %d", ErrInvalidGraph, nodes, source, sink)
	}
	for i, e := range edges {
		if e.From < 0 || e.From >= nodes || e.To < 0 || e.To >= nodes {
			return nil, fmt.Errorf("%w: edge %d connects %d and %d", ErrInvalidGraph, i, e.From, e.To)
		}
		if !(e.Capacity >= 0) || !(e.ReverseCapacity >= 0) {
			return nil, fmt.Errorf("%w: edge %d has capacity %g/%g", ErrInvalidGraph, i, e.Capacity, e.ReverseCapacity)
		}
	}
	return &Solver{
		nodes:  nodes,
		source: source,
		sink:   sink,
		opts:   opts,
		edges:  edges,
	}, nil
}

// State returns the solver's current state.
func (s *Solver) State() State {
	return s.state
}

// Solve computes the maximum flow and the minimum cut.
func (s *Solver) Solve() (*Result, error) {
	if s.state != Idle {
		return nil, ErrAlreadySolved
	}

	s.state = BuildResiduals
	s.buildResiduals()
	flow, err := s.saturateTrivialPaths()
	if err == nil {
		var more float64
		more, err = s.saturateThreeArcPaths()
		flow += more
	}
	if err != nil {
		s.state = Terminated
		return nil, err
	}

	s.state = AugmentingPathSearch
	augmentations := 0
	for s.findPath() {
		if s.opts.MaxAugmentations > 0 && augmentations >= s.opts.MaxAugmentations {
			s.state = Terminated
			return nil, fmt.Errorf("%w after %d paths", ErrNotConverged, augmentations)
		}
		b := s.bottleneck()
		if math.IsInf(b, 1) {
			s.state = Terminated
			return nil, ErrUnbounded
		}
		s.augment(b)
		flow += b
		augmentations++
	}

	s.state = Terminated
	return &Result{
		Flow:          flow,
		Augmentations: augmentations,
		SourceSide:    s.reachable(),
	}, nil
}

func (s *Solver) buildResiduals() {
	m := len(s.edges)
	s.head = make([]int, 2*m)
	s.residual = make([]float64, 2*m)
	s.first = make([]int, s.nodes+1)
	for k, e := range s.edges {
		s.head[2*k], s.head[2*k+1] = e.To, e.From
		s.residual[2*k], s.residual[2*k+1] = e.Capacity, e.ReverseCapacity
		s.first[e.From+1]++
		s.first[e.To+1]++
	}
	for v := 0; v < s.nodes; v++ {
		s.first[v+1] += s.first[v]
	}
	s.arcs = make([]int, 2*m)
	next := append([]int(nil), s.first[:s.nodes]...)
	for k, e := range s.edges {
		s.arcs[next[e.From]] = 2 * k
		next[e.From]++
		s.arcs[next[e.To]] = 2*k + 1
		next[e.To]++
	}
	s.parent = make([]int, s.nodes)
	s.seen = make([]int, s.nodes)
}

// tail returns the node arc a leaves.
func (s *Solver) tail(a int) int {
	return s.head[a^1]
}

// saturateTrivialPaths pushes flow along every source->v->sink path of
// length two before the search starts.
func (s *Solver) saturateTrivialPaths() (float64, error) {
	fromSource := make([]int, s.nodes)
	for i := range fromSource {
		fromSource[i] = -1
	}
	for _, a := range s.arcs[s.first[s.source]:s.first[s.source+1]] {
		if v := s.head[a]; s.residual[a] > 0 && fromSource[v] < 0 {
			fromSource[v] = a
		}
	}

	var flow float64
	for _, a := range s.arcs[s.first[s.sink]:s.first[s.sink+1]] {
		toSink := a ^ 1
		v := s.head[a]
		in := fromSource[v]
		if in < 0 || v == s.source {
			continue
		}
		b := math.Min(s.residual[in], s.residual[toSink])
		if b <= 0 {
			continue
		}
		if math.IsInf(b, 1) {
			return 0, ErrUnbounded
		}
		s.push(in, b)
		s.push(toSink, b)
		flow += b
	}
	return flow, nil
}

// saturateThreeArcPaths pushes flow along source->u->v->sink paths,
// the usual shape between a foreground voxel and a background
// neighbour, so the search only handles the longer paths.
func (s *Solver) saturateThreeArcPaths() (float64, error) {
	toSink := make([]int, s.nodes)
	for i := range toSink {
		toSink[i] = -1
	}
	for _, a := range s.arcs[s.first[s.sink]:s.first[s.sink+1]] {
		if v := s.head[a]; toSink[v] < 0 && s.residual[a^1] > 0 {
			toSink[v] = a ^ 1
		}
	}

	var flow float64
	for _, in := range s.arcs[s.first[s.source]:s.first[s.source+1]] {
		u := s.head[in]
		if u == s.sink {
			continue
		}
		for _, a := range s.arcs[s.first[u]:s.first[u+1]] {
			if s.residual[in] <= 0 {
				break
			}
			v := s.head[a]
			if v == s.source || v == s.sink || toSink[v] < 0 {
				continue
			}
			out := toSink[v]
			b := math.Min(s.residual[in], math.Min(s.residual[a], s.residual[out]))
			if b <= 0 {
				continue
			}
			if math.IsInf(b, 1) {
				return 0, ErrUnbounded
			}
			s.push(in, b)
			s.push(a, b)
			s.push(out, b)
			flow += b
		}
	}
	return flow, nil
}

// findPath runs a breadth-first search over arcs with positive residual
// capacity and records the parent arc of every reached node.
func (s *Solver) findPath() bool {
	s.stamp++
	s.seen[s.source] = s.stamp
	queue := []int{s.source}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, a := range s.arcs[s.first[u]:s.first[u+1]] {
			v := s.head[a]
			if s.seen[v] == s.stamp || !(s.residual[a] > 0) {
				continue
			}
			s.seen[v] = s.stamp
			s.parent[v] = a
			if v == s.sink {
				return true
			}
			queue = append(queue, v)
		}
	}
	return false
}

func (s *Solver) bottleneck() float64 {
	b := math.Inf(1)
	for v := s.sink; v != s.source; {
		a := s.parent[v]
		b = math.Min(b, s.residual[a])
		v = s.tail(a)
	}
	return b
}

func (s *Solver) augment(b float64) {
	for v := s.sink; v != s.source; {
		a := s.parent[v]
		s.push(a, b)
		v = s.tail(a)
	}
}

func (s *Solver) push(a int, b float64) {
	s.residual[a] -= b
	s.residual[a^1] += b
}

// reachable marks the nodes reachable from the source in the residual
// graph.
func (s *Solver) reachable() []bool {
	side := make([]bool, s.nodes)
	side[s.source] = true
	stack := []int{s.source}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, a := range s.arcs[s.first[u]:s.first[u+1]] {
			if v := s.head[a]; !side[v] && s.residual[a] > 0 {
				side[v] = true
				stack = append(stack, v)
			}
		}
	}
	return side
}
