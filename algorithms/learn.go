// Package algorithms holds ready-made distributed algorithms for the
// simulation engine.
package algorithms

import (
	"fmt"

	"github.com/dsimlab/dsim"
	"github.com/dsimlab/dsim/trace"
)

func init() {
	trace.RegisterType(Start{})
	trace.RegisterType(GraphIsKnown{})
	trace.RegisterType(PositionMsg{})
	trace.RegisterType(LearnState{})
}

// Start kicks off topology learning at its target process.
type Start struct {
	dsim.Signal
}

// GraphIsKnown fires locally once a process has learned the complete
// communication graph.
type GraphIsKnown struct {
	dsim.Signal
}

// PositionMsg floods one process's adjacency through the network.
type PositionMsg struct {
	dsim.Message
	Origin    dsim.Pid        `json:"origin"`
	Neighbors dsim.ProcessSet `json:"neighbors"`
}

// LearnState is the per-process state of the learn-the-topology algorithm.
type LearnState struct {
	dsim.BaseState
	Neighbors      dsim.ProcessSet `json:"neighbors"`
	KnownProcesses dsim.ProcessSet `json:"knownProcesses"`
	KnownChannels  dsim.ChannelSet `json:"knownChannels"`
	Participating  bool            `json:"participating"`
}

// GraphKnown reports whether the process has learned the complete graph:
// it participates and every endpoint of every known channel is itself known.
func GraphKnown(state LearnState) bool {
	return state.Participating && state.KnownChannels.All(func(c dsim.Channel) bool {
		return state.KnownProcesses.Contains(c.From) && state.KnownProcesses.Contains(c.To)
	})
}

// LearnGraph lets every process learn the full network topology by flooding
// adjacency information: each participant announces its neighbors to all
// neighbors and forwards any announcement it has not seen before.
type LearnGraph struct {
	dsim.NoStartBehavior
	System dsim.System
}

var _ dsim.Algorithm = LearnGraph{}

func (LearnGraph) Name() string {
	return "Learn the Topology"
}

func (LearnGraph) Description() string {
	return "Processes flood their adjacency sets until every process knows the full communication graph."
}

func (a LearnGraph) InitialState(pid dsim.Pid) dsim.State {
	neighbors, err := a.System.NeighborsOf(pid)
	if err != nil {
		panic(fmt.Sprintf("initial state for process outside topology: %v", err))
	}
	return LearnState{
		BaseState: dsim.StateOf(pid),
		Neighbors: neighbors,
	}
}

func (a LearnGraph) OnEvent(state dsim.State, event dsim.Event) (dsim.State, []dsim.Event, error) {
	st, ok := state.(LearnState)
	if !ok {
		return state, nil, fmt.Errorf("%w: state %T does not belong to %s", dsim.ErrUnhandledEvent, state, a.Name())
	}

	switch e := event.(type) {
	case Start:
		if st.Participating {
			return st, nil, nil
		}
		started, events := a.startParticipating(st)
		return started, events, nil

	case PositionMsg:
		newState := st
		var events []dsim.Event
		if !newState.Participating {
			var startEvents []dsim.Event
			newState, startEvents = a.startParticipating(newState)
			events = append(events, startEvents...)
		}
		if newState.KnownProcesses.Contains(e.Origin) {
			return newState, events, nil
		}
		newState.KnownProcesses = newState.KnownProcesses.Add(e.Origin)
		for _, neighbor := range e.Neighbors.Sorted() {
			newState.KnownChannels = newState.KnownChannels.Add(dsim.NewChannel(e.Origin, neighbor))
		}
		// forward to all neighbors except whoever sent it here
		for _, neighbor := range st.Neighbors.Sorted() {
			if neighbor == e.Sender() {
				continue
			}
			events = append(events, PositionMsg{
				Message:   dsim.MessageBetween(st.Self(), neighbor),
				Origin:    e.Origin,
				Neighbors: e.Neighbors,
			})
		}
		if GraphKnown(newState) {
			events = append(events, GraphIsKnown{Signal: dsim.SignalTo(st.Self())})
		}
		return newState, events, nil

	case GraphIsKnown:
		return st, nil, nil

	default:
		return st, nil, fmt.Errorf("%w: %T in %s", dsim.ErrUnhandledEvent, event, a.Name())
	}
}

// startParticipating announces this process's adjacency to every neighbor
// and seeds its own knowledge of the graph.
func (a LearnGraph) startParticipating(st LearnState) (LearnState, []dsim.Event) {
	var events []dsim.Event
	for _, neighbor := range st.Neighbors.Sorted() {
		events = append(events, PositionMsg{
			Message:   dsim.MessageBetween(st.Self(), neighbor),
			Origin:    st.Self(),
			Neighbors: st.Neighbors,
		})
	}
	next := st
	next.KnownProcesses = dsim.NewProcessSet(st.Self())
	channels := dsim.NewChannelSet()
	for _, neighbor := range st.Neighbors.Sorted() {
		channels = channels.Add(dsim.NewChannel(st.Self(), neighbor))
	}
	next.KnownChannels = channels
	next.Participating = true
	return next, events
}
