package dsim

import (
	"errors"
	"testing"
)

func TestNoProcessIsItsOwnNeighbor(t *testing.T) {
	complete, err := CompleteGraphOfSize(5)
	if err != nil {
		t.Fatalf("constructing complete graph: %v", err)
	}
	ring, err := RingOfSize(5, false)
	if err != nil {
		t.Fatalf("constructing ring: %v", err)
	}
	directedRing, err := RingOfSize(5, true)
	if err != nil {
		t.Fatalf("constructing directed ring: %v", err)
	}
	star, err := StarOfSize(5)
	if err != nil {
		t.Fatalf("constructing star: %v", err)
	}
	graph, err := NewGraph([]Channel{
		NewChannel(1, 2),
		NewUndirectedChannel(2, 3),
		NewChannel(3, 1),
	})
	if err != nil {
		t.Fatalf("constructing graph: %v", err)
	}
	topologies := map[string]Topology{
		"complete":      complete,
		"ring":          ring,
		"directed ring": directedRing,
		"star":          star,
		"graph":         graph,
	}
	for name, topology := range topologies {
		t.Run(name, func(t *testing.T) {
			for _, pid := range topology.Processes().Sorted() {
				neighbors, err := topology.NeighborsOf(pid)
				if err != nil {
					t.Fatalf("NeighborsOf(%v): %v", pid, err)
				}
				if neighbors.Contains(pid) {
					t.Errorf("%v is its own neighbor", pid)
				}
			}
		})
	}
}

func TestCompleteGraphDegrees(t *testing.T) {
	for _, size := range []int{1, 2, 5, 9} {
		graph, err := CompleteGraphOfSize(size)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		if graph.Processes().Len() != size {
			t.Errorf("size %d: expected %d processes, got %d", size, size, graph.Processes().Len())
		}
		for _, pid := range graph.Processes().Sorted() {
			neighbors, err := graph.NeighborsOf(pid)
			if err != nil {
				t.Fatalf("NeighborsOf(%v): %v", pid, err)
			}
			if neighbors.Len() != size-1 {
				t.Errorf("size %d: %v has %d neighbors, expected %d", size, pid, neighbors.Len(), size-1)
			}
		}
	}
}

func TestRingDegrees(t *testing.T) {
	for _, size := range []int{3, 4, 7} {
		ring, err := RingOfSize(size, false)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		for _, pid := range ring.Processes().Sorted() {
			neighbors, err := ring.NeighborsOf(pid)
			if err != nil {
				t.Fatalf("NeighborsOf(%v): %v", pid, err)
			}
			if neighbors.Len() != 2 {
				t.Errorf("size %d: %v has %d neighbors, expected 2", size, pid, neighbors.Len())
			}
		}
	}
}

func TestDirectedRingSuccessors(t *testing.T) {
	ring, err := RingOfSize(3, true)
	if err != nil {
		t.Fatalf("constructing ring: %v", err)
	}
	expected := map[Pid]Pid{1: 2, 2: 3, 3: 1}
	for pid, successor := range expected {
		neighbors, err := ring.NeighborsOf(pid)
		if err != nil {
			t.Fatalf("NeighborsOf(%v): %v", pid, err)
		}
		if neighbors.Len() != 1 || !neighbors.Contains(successor) {
			t.Errorf("%v: expected single successor %v, got %v", pid, successor, neighbors)
		}
	}
}

func TestStarDegrees(t *testing.T) {
	const size = 6
	star, err := StarOfSize(size)
	if err != nil {
		t.Fatalf("constructing star: %v", err)
	}
	center := star.Center()
	centerNeighbors, err := star.NeighborsOf(center)
	if err != nil {
		t.Fatalf("NeighborsOf(center): %v", err)
	}
	if centerNeighbors.Len() != size-1 {
		t.Errorf("center has %d neighbors, expected %d", centerNeighbors.Len(), size-1)
	}
	for _, pid := range star.Processes().Sorted() {
		if pid == center {
			continue
		}
		neighbors, err := star.NeighborsOf(pid)
		if err != nil {
			t.Fatalf("NeighborsOf(%v): %v", pid, err)
		}
		if neighbors.Len() != 1 || !neighbors.Contains(center) {
			t.Errorf("leaf %v: expected only the center as neighbor, got %v", pid, neighbors)
		}
	}
}

func TestGraphAdjacency(t *testing.T) {
	graph, err := NewGraph([]Channel{
		NewChannel(1, 2),
		NewUndirectedChannel(2, 3),
	}, Pid(9))
	if err != nil {
		t.Fatalf("constructing graph: %v", err)
	}
	if !graph.Processes().Equal(NewProcessSet(1, 2, 3, 9)) {
		t.Errorf("unexpected vertex set %v", graph.Processes())
	}

	tests := []struct {
		pid      Pid
		expected ProcessSet
	}{
		{1, NewProcessSet(2)}, // directed: only outgoing
		{2, NewProcessSet(3)}, // 1->2 does not make 1 a neighbor of 2
		{3, NewProcessSet(2)}, // undirected edge goes both ways
		{9, NewProcessSet()},  // isolated vertex
	}
	for _, test := range tests {
		neighbors, err := graph.NeighborsOf(test.pid)
		if err != nil {
			t.Fatalf("NeighborsOf(%v): %v", test.pid, err)
		}
		if !neighbors.Equal(test.expected) {
			t.Errorf("%v: expected neighbors %v, got %v", test.pid, test.expected, neighbors)
		}
	}
}

func TestTopologyUnknownProcess(t *testing.T) {
	ring, err := RingOfSize(3, false)
	if err != nil {
		t.Fatalf("constructing ring: %v", err)
	}
	if _, err := ring.NeighborsOf(Pid(42)); !errors.Is(err, ErrUnknownProcess) {
		t.Errorf("expected ErrUnknownProcess, got %v", err)
	}
}

func TestTopologyValidation(t *testing.T) {
	tests := []struct {
		name      string
		construct func() error
	}{
		{"complete size zero", func() error { _, err := CompleteGraphOfSize(0); return err }},
		{"ring too small", func() error { _, err := RingOfSize(2, false); return err }},
		{"ring negative pid", func() error { _, err := NewRing([]Pid{-1, 2, 3}, false); return err }},
		{"star size one", func() error { _, err := StarOfSize(1); return err }},
		{"star without leaves", func() error { _, err := NewStar(Pid(1)); return err }},
		{"star center as leaf", func() error { _, err := NewStar(Pid(1), Pid(1), Pid(2)); return err }},
		{"graph self-loop", func() error { _, err := NewGraph([]Channel{NewChannel(2, 2)}); return err }},
		{"graph empty", func() error { _, err := NewGraph(nil); return err }},
		{"graph negative pid", func() error { _, err := NewGraph([]Channel{NewChannel(-3, 1)}); return err }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := test.construct(); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}
