package dsim

import (
	"encoding/gob"
	"fmt"
	"sort"

	"go.uber.org/multierr"
)

func init() {
	gob.Register(CompleteGraph{})
	gob.Register(Ring{})
	gob.Register(Star{})
	gob.Register(&Graph{})
}

// Topology describes which processes exist and which of them may exchange
// messages directly. Implementations are immutable after construction and
// guarantee that no process is its own neighbor.
type Topology interface {
	// Processes returns the full vertex set.
	Processes() ProcessSet
	// NeighborsOf returns the adjacency set of pid, or an error wrapping
	// ErrUnknownProcess if pid is not part of the topology.
	NeighborsOf(pid Pid) (ProcessSet, error)
}

func validatePids(pids []Pid) error {
	var err error
	for _, pid := range pids {
		if pid < 0 {
			err = multierr.Append(err, fmt.Errorf("%w: negative pid %v", ErrValidation, pid))
		}
	}
	return err
}

// sequentialPids returns Pid(1)..Pid(size).
func sequentialPids(size int) []Pid {
	pids := make([]Pid, size)
	for i := range pids {
		pids[i] = Pid(i + 1)
	}
	return pids
}

// CompleteGraph is the all-to-all topology: every process neighbors every
// other process.
type CompleteGraph struct {
	Members ProcessSet `json:"members"`
}

var _ Topology = CompleteGraph{}

// NewCompleteGraph builds a complete graph over the given pids.
func NewCompleteGraph(pids ...Pid) (CompleteGraph, error) {
	if len(pids) == 0 {
		return CompleteGraph{}, fmt.Errorf("%w: a complete graph needs at least one process", ErrValidation)
	}
	if err := validatePids(pids); err != nil {
		return CompleteGraph{}, err
	}
	return CompleteGraph{Members: NewProcessSet(pids...)}, nil
}

// CompleteGraphOfSize builds a complete graph over Pid(1)..Pid(size).
func CompleteGraphOfSize(size int) (CompleteGraph, error) {
	if size <= 0 {
		return CompleteGraph{}, fmt.Errorf("%w: size must be positive, got %d", ErrValidation, size)
	}
	return NewCompleteGraph(sequentialPids(size)...)
}

func (g CompleteGraph) Processes() ProcessSet {
	return g.Members
}

func (g CompleteGraph) NeighborsOf(pid Pid) (ProcessSet, error) {
	if !g.Members.Contains(pid) {
		return ProcessSet{}, fmt.Errorf("%w: %v not in complete graph", ErrUnknownProcess, pid)
	}
	neighbors := NewProcessSet()
	for _, member := range g.Members.Sorted() {
		if member != pid {
			neighbors = neighbors.Add(member)
		}
	}
	return neighbors, nil
}

// Ring arranges processes in a cycle, in ascending Pid order. Undirected
// rings give every process exactly two neighbors; directed rings give each
// process its single successor.
type Ring struct {
	Order    []Pid `json:"order"`
	Directed bool  `json:"directed"`
}

var _ Topology = Ring{}

// NewRing builds a ring over the given pids, sorted ascending.
func NewRing(pids []Pid, directed bool) (Ring, error) {
	if err := validatePids(pids); err != nil {
		return Ring{}, err
	}
	order := append([]Pid(nil), NewProcessSet(pids...).Sorted()...)
	if len(order) < 3 {
		return Ring{}, fmt.Errorf("%w: a ring needs at least 3 distinct processes, got %d", ErrValidation, len(order))
	}
	return Ring{Order: order, Directed: directed}, nil
}

// RingOfSize builds a ring over Pid(1)..Pid(size).
func RingOfSize(size int, directed bool) (Ring, error) {
	if size <= 0 {
		return Ring{}, fmt.Errorf("%w: size must be positive, got %d", ErrValidation, size)
	}
	return NewRing(sequentialPids(size), directed)
}

func (r Ring) Processes() ProcessSet {
	return NewProcessSet(r.Order...)
}

func (r Ring) NeighborsOf(pid Pid) (ProcessSet, error) {
	idx := sort.Search(len(r.Order), func(i int) bool { return r.Order[i] >= pid })
	if idx == len(r.Order) || r.Order[idx] != pid {
		return ProcessSet{}, fmt.Errorf("%w: %v not in ring", ErrUnknownProcess, pid)
	}
	n := len(r.Order)
	successor := r.Order[(idx+1)%n]
	if r.Directed {
		return NewProcessSet(successor), nil
	}
	predecessor := r.Order[(idx+n-1)%n]
	return NewProcessSet(predecessor, successor), nil
}

// Star connects a single center to every leaf; leaves have no other
// neighbors.
type Star struct {
	Hub    Pid        `json:"hub"`
	Leaves ProcessSet `json:"leaves"`
}

var _ Topology = Star{}

// NewStar builds a star with the given center and leaves.
func NewStar(center Pid, leaves ...Pid) (Star, error) {
	var err error
	err = multierr.Append(err, validatePids(append([]Pid{center}, leaves...)))
	leafSet := NewProcessSet(leaves...)
	if leafSet.Len() < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: a star needs at least one leaf", ErrValidation))
	}
	if leafSet.Contains(center) {
		err = multierr.Append(err, fmt.Errorf("%w: center %v cannot be a leaf", ErrValidation, center))
	}
	if err != nil {
		return Star{}, err
	}
	return Star{Hub: center, Leaves: leafSet}, nil
}

// StarOfSize builds a star with center Pid(1) and leaves Pid(2)..Pid(size).
func StarOfSize(size int) (Star, error) {
	if size <= 1 {
		return Star{}, fmt.Errorf("%w: size must be greater than 1, got %d", ErrValidation, size)
	}
	return NewStar(Pid(1), sequentialPids(size)[1:]...)
}

// Center returns the hub process.
func (s Star) Center() Pid {
	return s.Hub
}

func (s Star) Processes() ProcessSet {
	return s.Leaves.Add(s.Hub)
}

func (s Star) NeighborsOf(pid Pid) (ProcessSet, error) {
	if pid == s.Hub {
		return s.Leaves, nil
	}
	if s.Leaves.Contains(pid) {
		return NewProcessSet(s.Hub), nil
	}
	return ProcessSet{}, fmt.Errorf("%w: %v not in star", ErrUnknownProcess, pid)
}

// Graph is an arbitrary topology built from an explicit edge list. Edges
// carry their own orientation: an undirected Channel contributes both
// directions. Vertices without edges can be listed explicitly.
type Graph struct {
	Edges    []Channel `json:"edges"`
	Isolated []Pid     `json:"isolated,omitempty"`

	adjacency map[Pid]ProcessSet
}

var _ Topology = &Graph{}

// NewGraph builds an arbitrary topology from edges plus optional isolated
// vertices.
func NewGraph(edges []Channel, isolated ...Pid) (*Graph, error) {
	var err error
	err = multierr.Append(err, validatePids(isolated))
	for _, edge := range edges {
		err = multierr.Append(err, validatePids([]Pid{edge.From, edge.To}))
		if edge.From == edge.To {
			err = multierr.Append(err, fmt.Errorf("%w: self-loop on %v", ErrValidation, edge.From))
		}
	}
	if len(edges) == 0 && len(isolated) == 0 {
		err = multierr.Append(err, fmt.Errorf("%w: a graph needs at least one edge or vertex", ErrValidation))
	}
	if err != nil {
		return nil, err
	}
	return &Graph{
		Edges:    append([]Channel(nil), edges...),
		Isolated: append([]Pid(nil), isolated...),
	}, nil
}

// buildAdjacency is deferred so that decoded Graph values, which bypass
// NewGraph, still work.
func (g *Graph) buildAdjacency() map[Pid]ProcessSet {
	if g.adjacency != nil {
		return g.adjacency
	}
	adjacency := make(map[Pid]ProcessSet)
	addNeighbor := func(from, to Pid) {
		adjacency[from] = adjacency[from].Add(to)
	}
	ensure := func(pid Pid) {
		if _, ok := adjacency[pid]; !ok {
			adjacency[pid] = ProcessSet{}
		}
	}
	for _, edge := range g.Edges {
		addNeighbor(edge.From, edge.To)
		ensure(edge.To)
		if !edge.Directed {
			addNeighbor(edge.To, edge.From)
		}
	}
	for _, pid := range g.Isolated {
		ensure(pid)
	}
	g.adjacency = adjacency
	return adjacency
}

func (g *Graph) Processes() ProcessSet {
	set := NewProcessSet()
	for pid := range g.buildAdjacency() {
		set = set.Add(pid)
	}
	return set
}

func (g *Graph) NeighborsOf(pid Pid) (ProcessSet, error) {
	neighbors, ok := g.buildAdjacency()[pid]
	if !ok {
		return ProcessSet{}, fmt.Errorf("%w: %v not in graph", ErrUnknownProcess, pid)
	}
	return neighbors, nil
}
