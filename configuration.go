package dsim

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"
)

// Configuration is an immutable snapshot mapping every process to its
// current state. Its key set is fixed at construction: Updated replaces the
// states of processes it already knows and never adds or removes entries.
type Configuration struct {
	states *immutable.Map[Pid, State]
}

var _ fmt.Stringer = Configuration{}
var _ gob.GobEncoder = Configuration{}
var _ gob.GobDecoder = &Configuration{}

// ConfigurationOf builds a configuration from one state per process.
func ConfigurationOf(states ...State) Configuration {
	builder := immutable.NewMapBuilder[Pid, State](PidHasher{})
	for _, state := range states {
		builder.Set(state.Self(), state)
	}
	return Configuration{states: builder.Map()}
}

// Updated returns a configuration where each given state replaces the entry
// for its process. States for processes outside the key set are ignored; all
// other entries are untouched.
func (c Configuration) Updated(states ...State) Configuration {
	if c.states == nil {
		return c
	}
	acc := c.states
	for _, state := range states {
		if _, ok := acc.Get(state.Self()); ok {
			acc = acc.Set(state.Self(), state)
		}
	}
	return Configuration{states: acc}
}

// State returns the state of pid, if present.
func (c Configuration) State(pid Pid) (State, bool) {
	if c.states == nil {
		return nil, false
	}
	return c.states.Get(pid)
}

func (c Configuration) Contains(pid Pid) bool {
	_, ok := c.State(pid)
	return ok
}

func (c Configuration) Len() int {
	if c.states == nil {
		return 0
	}
	return c.states.Len()
}

// Processes returns the key set in ascending Pid order.
func (c Configuration) Processes() []Pid {
	if c.states == nil {
		return nil
	}
	pids := make([]Pid, 0, c.states.Len())
	it := c.states.Iterator()
	for !it.Done() {
		pid, _, _ := it.Next()
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

// States returns the states in ascending Pid order.
func (c Configuration) States() []State {
	pids := c.Processes()
	states := make([]State, 0, len(pids))
	for _, pid := range pids {
		state, _ := c.State(pid)
		states = append(states, state)
	}
	return states
}

// ChangedFrom returns the processes whose state differs between c and a
// previous configuration, using eq as the state equality.
func (c Configuration) ChangedFrom(other Configuration, eq func(a, b State) bool) []Pid {
	var changed []Pid
	for _, pid := range c.Processes() {
		before, ok := other.State(pid)
		if !ok {
			continue
		}
		after, _ := c.State(pid)
		if !eq(before, after) {
			changed = append(changed, pid)
		}
	}
	return changed
}

func (c Configuration) String() string {
	var builder strings.Builder
	builder.WriteString("Configuration:")
	states := c.States()
	if len(states) == 0 {
		builder.WriteString("\n  <empty>")
		return builder.String()
	}
	for _, state := range states {
		builder.WriteString(fmt.Sprintf("\n  %v: %v", state.Self(), state))
	}
	return builder.String()
}

// GobEncode takes a value receiver so configurations inside snapshot slices,
// which gob cannot address, still encode.
func (c Configuration) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	states := c.States()
	if err := encoder.Encode(len(states)); err != nil {
		return nil, err
	}
	for _, state := range states {
		// encode through the interface so concrete type tags survive
		stateV := state
		if err := encoder.Encode(&stateV); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (c *Configuration) GobDecode(b []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(b))
	var count int
	if err := decoder.Decode(&count); err != nil {
		return err
	}
	builder := immutable.NewMapBuilder[Pid, State](PidHasher{})
	for i := 0; i < count; i++ {
		var state State
		if err := decoder.Decode(&state); err != nil {
			return err
		}
		builder.Set(state.Self(), state)
	}
	c.states = builder.Map()
	return nil
}
