package causality

import (
	"fmt"
	"time"

	"github.com/dsimlab/dsim"
	"github.com/dsimlab/dsim/trace"
)

// Kind classifies an atomic sub-event.
type Kind int

const (
	// KindLocal is a signal delivered to its own process.
	KindLocal Kind = iota
	// KindSend is the sending half of a message occurrence.
	KindSend
	// KindReceive is the delivery half of a message occurrence.
	KindReceive
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindSend:
		return "send"
	case KindReceive:
		return "receive"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// EventID indexes an atomic event within a History.
type EventID int

// AtomicEvent is one clock-bearing point of the reconstruction: a local
// signal, or one half of a message occurrence.
type AtomicEvent struct {
	ID         EventID
	Kind       Kind
	Process    dsim.Pid
	Occurrence int           // index into the trace's occurrence log
	Time       time.Duration // virtual send time, or delivery time for receives
	Event      dsim.Event
	Lamport    LamportClock
	Vector     VectorClock
}

// History is the causality-augmented view of one completed trace. It is
// immutable once built.
type History struct {
	processes []dsim.Pid
	events    []AtomicEvent
	byProcess map[dsim.Pid][]EventID
}

// Build replays a completed trace and assigns every atomic event a Lamport
// and a vector clock consistent with causal dependency.
//
// Occurrences are replayed strictly in recorded order, i.e. the order
// Schedule was called. They are never sorted by virtual time: randomized
// delay sampling can deliver a later-sent message before an earlier-sent
// one, and time order would then process a receive before its paired send.
// Each message occurrence decomposes into a send at the sender followed by
// a receive at the receiver carrying the sender's clock snapshot.
func Build(t *trace.Trace) (*History, error) {
	processSet := dsim.NewProcessSet()
	if t.Meta().System.Topology != nil {
		processSet = t.Meta().System.Topology.Processes()
	}

	lamports := map[dsim.Pid]LamportClock{}
	vectors := map[dsim.Pid]VectorClock{}

	history := &History{byProcess: map[dsim.Pid][]EventID{}}
	appendEvent := func(kind Kind, pid dsim.Pid, occurrence int, at time.Duration, event dsim.Event) {
		id := EventID(len(history.events))
		history.events = append(history.events, AtomicEvent{
			ID:         id,
			Kind:       kind,
			Process:    pid,
			Occurrence: occurrence,
			Time:       at,
			Event:      event,
			Lamport:    lamports[pid],
			Vector:     vectors[pid],
		})
		history.byProcess[pid] = append(history.byProcess[pid], id)
		processSet = processSet.Add(pid)
	}

	for idx, occurrence := range t.Occurrences() {
		if occurrence.Event == nil {
			return nil, fmt.Errorf("occurrence %d has no event", idx)
		}
		target := occurrence.Receiver()
		if message, ok := occurrence.Event.(dsim.MessageEvent); ok {
			sender := message.Sender()

			// send at the sender
			lamports[sender] = lamports[sender].Increment()
			vectors[sender] = vectors[sender].Increment(sender)
			appendEvent(KindSend, sender, idx, occurrence.Start, occurrence.Event)

			// the sender's clocks at the send are the snapshot the
			// paired receive merges in
			sentLamport := lamports[sender]
			sentVector := vectors[sender]

			lamports[target] = lamports[target].MergeAndIncrement(sentLamport)
			vectors[target] = vectors[target].Merge(sentVector).Increment(target)
			appendEvent(KindReceive, target, idx, occurrence.End, occurrence.Event)
		} else {
			lamports[target] = lamports[target].Increment()
			vectors[target] = vectors[target].Increment(target)
			appendEvent(KindLocal, target, idx, occurrence.Start, occurrence.Event)
		}
	}

	history.processes = processSet.Sorted()
	return history, nil
}

// Events returns every atomic event in replay order.
func (h *History) Events() []AtomicEvent {
	return append([]AtomicEvent(nil), h.events...)
}

// Len returns the number of atomic events.
func (h *History) Len() int {
	return len(h.events)
}

// Event returns the atomic event with the given id.
func (h *History) Event(id EventID) (AtomicEvent, bool) {
	if id < 0 || int(id) >= len(h.events) {
		return AtomicEvent{}, false
	}
	return h.events[id], true
}

// Processes returns every process that appears in the history, ascending.
func (h *History) Processes() []dsim.Pid {
	return append([]dsim.Pid(nil), h.processes...)
}

// EventsFor returns the atomic events at one process, in replay order.
func (h *History) EventsFor(pid dsim.Pid) []AtomicEvent {
	ids := h.byProcess[pid]
	events := make([]AtomicEvent, 0, len(ids))
	for _, id := range ids {
		events = append(events, h.events[id])
	}
	return events
}

// HappensBefore reports whether a causally precedes b.
func (h *History) HappensBefore(a, b EventID) bool {
	ea, oka := h.Event(a)
	eb, okb := h.Event(b)
	return oka && okb && ea.Vector.Less(eb.Vector)
}

// Concurrent reports that neither event causally precedes the other.
func (h *History) Concurrent(a, b EventID) bool {
	ea, oka := h.Event(a)
	eb, okb := h.Event(b)
	return oka && okb && ea.Vector.Concurrent(eb.Vector)
}

// CausalPast returns every atomic event that causally precedes id.
func (h *History) CausalPast(id EventID) []AtomicEvent {
	var past []AtomicEvent
	target, ok := h.Event(id)
	if !ok {
		return nil
	}
	for _, event := range h.events {
		if event.Vector.Less(target.Vector) {
			past = append(past, event)
		}
	}
	return past
}

// CausalFuture returns every atomic event that id causally precedes.
func (h *History) CausalFuture(id EventID) []AtomicEvent {
	var future []AtomicEvent
	target, ok := h.Event(id)
	if !ok {
		return nil
	}
	for _, event := range h.events {
		if target.Vector.Less(event.Vector) {
			future = append(future, event)
		}
	}
	return future
}

// TimeRange returns the smallest and largest virtual times across all atomic
// events, zero for an empty history.
func (h *History) TimeRange() (time.Duration, time.Duration) {
	if len(h.events) == 0 {
		return 0, 0
	}
	min, max := h.events[0].Time, h.events[0].Time
	for _, event := range h.events[1:] {
		if event.Time < min {
			min = event.Time
		}
		if event.Time > max {
			max = event.Time
		}
	}
	return min, max
}

// LogicalTimeRange returns the smallest and largest Lamport values across
// all atomic events, zero for an empty history.
func (h *History) LogicalTimeRange() (int, int) {
	if len(h.events) == 0 {
		return 0, 0
	}
	min, max := h.events[0].Lamport.Value(), h.events[0].Lamport.Value()
	for _, event := range h.events[1:] {
		v := event.Lamport.Value()
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
