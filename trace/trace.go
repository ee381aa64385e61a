// Package trace records what happened during one simulation run: every
// scheduled occurrence and every configuration snapshot, in order, plus the
// metadata needed to interpret them. The trace is the authoritative record
// the causality engine replays; it performs no causal reasoning itself.
package trace

import (
	"fmt"
	"reflect"
	"time"

	"github.com/dsimlab/dsim"
)

// FormatVersion tags encoded traces so readers can detect layout changes.
const FormatVersion = "1.0"

// Occurrence is one scheduled event: Start is the virtual time Schedule was
// called, End the virtual delivery time. For signals the two coincide.
type Occurrence struct {
	Start time.Duration
	End   time.Duration
	Event dsim.Event
}

// IsMessage reports whether the occurrence is a message transmission.
func (o Occurrence) IsMessage() bool {
	_, ok := o.Event.(dsim.MessageEvent)
	return ok
}

// Initiator is the process where the occurrence begins: the sender for
// messages, the target itself for signals.
func (o Occurrence) Initiator() dsim.Pid {
	return dsim.EventSender(o.Event)
}

// Receiver is the process the occurrence is delivered to.
func (o Occurrence) Receiver() dsim.Pid {
	return o.Event.Target()
}

// Snapshot is the full system configuration right after one simulator step.
type Snapshot struct {
	Time          time.Duration
	Configuration dsim.Configuration
}

// Metadata describes the run a trace was recorded from.
type Metadata struct {
	AlgorithmName        string
	AlgorithmDescription string
	SynchronyModelName   string
	SynchronyParams      map[string]string
	System               dsim.System
}

// Trace is the append-only log of one run. After the run completes it is
// only ever read.
type Trace struct {
	meta        Metadata
	occurrences []Occurrence
	snapshots   []Snapshot
}

// New builds an empty trace carrying the given run metadata.
func New(meta Metadata) *Trace {
	return &Trace{meta: meta}
}

// NewForRun builds an empty trace, capturing algorithm and synchrony-model
// metadata from the system itself.
func NewForRun(system dsim.System, algorithm dsim.Algorithm) *Trace {
	name, params := synchronyInfo(system.Synchrony)
	return New(Metadata{
		AlgorithmName:        algorithm.Name(),
		AlgorithmDescription: algorithm.Description(),
		SynchronyModelName:   name,
		SynchronyParams:      params,
		System:               system,
	})
}

func synchronyInfo(model dsim.SynchronyModel) (string, map[string]string) {
	params := map[string]string{}
	if model == nil {
		return "", params
	}
	params["min_delay"] = model.MinDelay().String()
	switch m := model.(type) {
	case dsim.Synchronous:
		params["fixed_delay"] = m.Fixed.String()
	case dsim.PartiallySynchronous:
		params["fixed_delay"] = m.Fixed.String()
		params["gst"] = m.GST.String()
	case dsim.Asynchronous:
		params["base_delay"] = m.Base.String()
	case dsim.StochasticExponential:
		params["delta_t"] = m.DeltaT.String()
	}
	typ := reflect.TypeOf(model)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return typ.Name(), params
}

// Meta returns the run metadata.
func (t *Trace) Meta() Metadata {
	return t.meta
}

// AppendOccurrences appends scheduled occurrences in order.
func (t *Trace) AppendOccurrences(occurrences ...Occurrence) {
	t.occurrences = append(t.occurrences, occurrences...)
}

// AppendSnapshots appends configuration snapshots in order.
func (t *Trace) AppendSnapshots(snapshots ...Snapshot) {
	t.snapshots = append(t.snapshots, snapshots...)
}

// Occurrences returns the occurrence log, in the exact order events were
// scheduled. The returned slice is a copy.
func (t *Trace) Occurrences() []Occurrence {
	return append([]Occurrence(nil), t.occurrences...)
}

// Snapshots returns the configuration history. The returned slice is a copy.
func (t *Trace) Snapshots() []Snapshot {
	return append([]Snapshot(nil), t.snapshots...)
}

// Len returns the number of recorded occurrences.
func (t *Trace) Len() int {
	return len(t.occurrences)
}

func (t *Trace) String() string {
	return fmt.Sprintf("Trace(%s, %d occurrences, %d snapshots)",
		t.meta.AlgorithmName, len(t.occurrences), len(t.snapshots))
}
