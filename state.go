package dsim

// State is one process's local data at a point in the run. Concrete
// algorithm states embed BaseState and add their own fields. States are
// immutable values: a transition never modifies its input, it copies the
// struct and overrides the fields that change, e.g.
//
//	next := old
//	next.Round = old.Round + 1
//
// which preserves every unmentioned field. The simulator and the causality
// reconstruction both rely on old snapshots staying valid.
type State interface {
	// Self is the process this state belongs to.
	Self() Pid
}

// BaseState supplies the Self accessor for concrete state types.
type BaseState struct {
	Pid Pid `json:"pid"`
}

var _ State = BaseState{}

// StateOf builds the embeddable base for a state owned by pid.
func StateOf(pid Pid) BaseState {
	return BaseState{Pid: pid}
}

func (s BaseState) Self() Pid {
	return s.Pid
}
