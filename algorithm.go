package dsim

// Algorithm is the transition function of a distributed algorithm,
// parameterized by the System it runs in. Implementations must be
// referentially transparent: no shared mutable state, no wall-clock time, no
// ambient randomness. The simulator invokes OnEvent exactly once per
// delivered event, synchronously; it must return a complete replacement
// state for the event's target plus any events to schedule.
//
// OnEvent must fail with an error wrapping ErrUnhandledEvent when handed an
// event kind it does not recognize rather than returning the state
// unchanged.
type Algorithm interface {
	// Name identifies the algorithm in trace metadata.
	Name() string
	// Description is free-form metadata recorded alongside the trace.
	Description() string
	// InitialState builds the state a process starts from.
	InitialState(pid Pid) State
	// OnStart runs once per process when the simulation starts.
	OnStart(state State) (State, []Event, error)
	// OnEvent applies one delivered event to the target's state.
	OnEvent(state State, event Event) (State, []Event, error)
}

// NoStartBehavior is an embeddable no-op OnStart for algorithms that only
// react to events.
type NoStartBehavior struct{}

func (NoStartBehavior) OnStart(state State) (State, []Event, error) {
	return state, nil, nil
}
