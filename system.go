package dsim

// System pairs a process topology with a synchrony model. It is the full
// description of the distributed environment an algorithm runs in.
type System struct {
	Topology  Topology
	Synchrony SynchronyModel
}

// NewSystem builds a system from a topology and a synchrony model.
func NewSystem(topology Topology, synchrony SynchronyModel) System {
	return System{Topology: topology, Synchrony: synchrony}
}

// Processes returns the topology's full vertex set.
func (s System) Processes() ProcessSet {
	return s.Topology.Processes()
}

// NeighborsOf returns the topology adjacency of pid.
func (s System) NeighborsOf(pid Pid) (ProcessSet, error) {
	return s.Topology.NeighborsOf(pid)
}
