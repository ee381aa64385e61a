package trace

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/dsimlab/dsim"
)

// ErrUnknownTypeTag is wrapped when an encoded value names a concrete type
// that was never passed to RegisterType in this process.
var ErrUnknownTypeTag = errors.New("unknown type tag")

// The event, state, topology, and synchrony-model hierarchies are open, so
// codecs cannot enumerate their concrete types. RegisterType records a type
// in both the gob registry and the tag table the JSON codec uses, keyed by
// the type's package-qualified name. Algorithms register their payload types
// once, typically from init:
//
//	func init() {
//		trace.RegisterType(Token{})
//	}
//
// The core's own variants are pre-registered.
func RegisterType(value interface{}) {
	gob.Register(value)
	typ := reflect.TypeOf(value)
	registry[tagOf(typ)] = typ
}

var registry = map[string]reflect.Type{}

func tagOf(typ reflect.Type) string {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return typ.String()
}

func init() {
	RegisterType(dsim.CompleteGraph{})
	RegisterType(dsim.Ring{})
	RegisterType(dsim.Star{})
	RegisterType(&dsim.Graph{})
	RegisterType(dsim.Synchronous{})
	RegisterType(dsim.Asynchronous{})
	RegisterType(dsim.PartiallySynchronous{})
	RegisterType(dsim.StochasticExponential{})
}

// envelope carries a value together with its concrete type tag, so that open
// hierarchies survive a JSON round-trip with their subtype identity intact.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func sealJSON(value interface{}) (envelope, error) {
	typ := reflect.TypeOf(value)
	tag := tagOf(typ)
	if _, ok := registry[tag]; !ok {
		return envelope{}, fmt.Errorf("%w: %s is not registered", ErrUnknownTypeTag, tag)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return envelope{}, err
	}
	return envelope{Type: tag, Data: data}, nil
}

func openJSON(env envelope) (interface{}, error) {
	typ, ok := registry[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTypeTag, env.Type)
	}
	if typ.Kind() == reflect.Ptr {
		value := reflect.New(typ.Elem())
		if err := json.Unmarshal(env.Data, value.Interface()); err != nil {
			return nil, err
		}
		return value.Interface(), nil
	}
	value := reflect.New(typ)
	if err := json.Unmarshal(env.Data, value.Interface()); err != nil {
		return nil, err
	}
	return value.Elem().Interface(), nil
}

// gob layout

type gobTrace struct {
	FormatVersion        string
	AlgorithmName        string
	AlgorithmDescription string
	SynchronyModelName   string
	SynchronyParams      map[string]string
	Topology             dsim.Topology
	Synchrony            dsim.SynchronyModel
	Occurrences          []Occurrence
	Snapshots            []Snapshot
}

// EncodeGob serializes a completed trace with gob. Concrete event, state,
// topology, and synchrony types survive because they are gob-registered by
// RegisterType.
func EncodeGob(t *Trace) ([]byte, error) {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	meta := t.Meta()
	err := encoder.Encode(gobTrace{
		FormatVersion:        FormatVersion,
		AlgorithmName:        meta.AlgorithmName,
		AlgorithmDescription: meta.AlgorithmDescription,
		SynchronyModelName:   meta.SynchronyModelName,
		SynchronyParams:      meta.SynchronyParams,
		Topology:             meta.System.Topology,
		Synchrony:            meta.System.Synchrony,
		Occurrences:          t.Occurrences(),
		Snapshots:            t.Snapshots(),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeGob reconstructs a trace encoded by EncodeGob.
func DecodeGob(data []byte) (*Trace, error) {
	decoder := gob.NewDecoder(bytes.NewBuffer(data))
	var decoded gobTrace
	if err := decoder.Decode(&decoded); err != nil {
		return nil, err
	}
	t := New(Metadata{
		AlgorithmName:        decoded.AlgorithmName,
		AlgorithmDescription: decoded.AlgorithmDescription,
		SynchronyModelName:   decoded.SynchronyModelName,
		SynchronyParams:      decoded.SynchronyParams,
		System:               dsim.NewSystem(decoded.Topology, decoded.Synchrony),
	})
	t.AppendOccurrences(decoded.Occurrences...)
	t.AppendSnapshots(decoded.Snapshots...)
	return t, nil
}

// JSON layout

type jsonTrace struct {
	FormatVersion        string            `json:"formatVersion"`
	AlgorithmName        string            `json:"algorithmName"`
	AlgorithmDescription string            `json:"algorithmDescription,omitempty"`
	SynchronyModelName   string            `json:"synchronyModelName"`
	SynchronyParams      map[string]string `json:"synchronyParams,omitempty"`
	Topology             *envelope         `json:"topology,omitempty"`
	Synchrony            *envelope         `json:"synchrony,omitempty"`
	Occurrences          []jsonOccurrence  `json:"occurrences"`
	Snapshots            []jsonSnapshot    `json:"snapshots"`
}

type jsonOccurrence struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Event envelope      `json:"event"`
}

type jsonSnapshot struct {
	Time   time.Duration `json:"time"`
	States []envelope    `json:"states"`
}

// EncodeJSON serializes a completed trace as JSON, wrapping every
// open-hierarchy value in a type-tagged envelope.
func EncodeJSON(t *Trace) ([]byte, error) {
	meta := t.Meta()
	out := jsonTrace{
		FormatVersion:        FormatVersion,
		AlgorithmName:        meta.AlgorithmName,
		AlgorithmDescription: meta.AlgorithmDescription,
		SynchronyModelName:   meta.SynchronyModelName,
		SynchronyParams:      meta.SynchronyParams,
		Occurrences:          []jsonOccurrence{},
		Snapshots:            []jsonSnapshot{},
	}
	if meta.System.Topology != nil {
		env, err := sealJSON(meta.System.Topology)
		if err != nil {
			return nil, err
		}
		out.Topology = &env
	}
	if meta.System.Synchrony != nil {
		env, err := sealJSON(meta.System.Synchrony)
		if err != nil {
			return nil, err
		}
		out.Synchrony = &env
	}
	for _, occurrence := range t.Occurrences() {
		env, err := sealJSON(occurrence.Event)
		if err != nil {
			return nil, err
		}
		out.Occurrences = append(out.Occurrences, jsonOccurrence{
			Start: occurrence.Start,
			End:   occurrence.End,
			Event: env,
		})
	}
	for _, snapshot := range t.Snapshots() {
		states := []envelope{}
		for _, state := range snapshot.Configuration.States() {
			env, err := sealJSON(state)
			if err != nil {
				return nil, err
			}
			states = append(states, env)
		}
		out.Snapshots = append(out.Snapshots, jsonSnapshot{
			Time:   snapshot.Time,
			States: states,
		})
	}
	return json.Marshal(out)
}

// DecodeJSON reconstructs a trace encoded by EncodeJSON. Every type tag in
// the document must have been registered via RegisterType.
func DecodeJSON(data []byte) (*Trace, error) {
	var decoded jsonTrace
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	var system dsim.System
	if decoded.Topology != nil {
		value, err := openJSON(*decoded.Topology)
		if err != nil {
			return nil, err
		}
		topology, ok := value.(dsim.Topology)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a topology", ErrUnknownTypeTag, decoded.Topology.Type)
		}
		system.Topology = topology
	}
	if decoded.Synchrony != nil {
		value, err := openJSON(*decoded.Synchrony)
		if err != nil {
			return nil, err
		}
		synchrony, ok := value.(dsim.SynchronyModel)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a synchrony model", ErrUnknownTypeTag, decoded.Synchrony.Type)
		}
		system.Synchrony = synchrony
	}
	t := New(Metadata{
		AlgorithmName:        decoded.AlgorithmName,
		AlgorithmDescription: decoded.AlgorithmDescription,
		SynchronyModelName:   decoded.SynchronyModelName,
		SynchronyParams:      decoded.SynchronyParams,
		System:               system,
	})
	for _, occurrence := range decoded.Occurrences {
		value, err := openJSON(occurrence.Event)
		if err != nil {
			return nil, err
		}
		event, ok := value.(dsim.Event)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not an event", ErrUnknownTypeTag, occurrence.Event.Type)
		}
		t.AppendOccurrences(Occurrence{
			Start: occurrence.Start,
			End:   occurrence.End,
			Event: event,
		})
	}
	for _, snapshot := range decoded.Snapshots {
		states := make([]dsim.State, 0, len(snapshot.States))
		for _, env := range snapshot.States {
			value, err := openJSON(env)
			if err != nil {
				return nil, err
			}
			state, ok := value.(dsim.State)
			if !ok {
				return nil, fmt.Errorf("%w: %q is not a state", ErrUnknownTypeTag, env.Type)
			}
			states = append(states, state)
		}
		t.AppendSnapshots(Snapshot{
			Time:          snapshot.Time,
			Configuration: dsim.ConfigurationOf(states...),
		})
	}
	return t, nil
}
