package dsim

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"testing"
)

func TestPidString(t *testing.T) {
	tests := []struct {
		pid      Pid
		expected string
	}{
		{Pid(0), "p0"},
		{Pid(1), "p1"},
		{Pid(42), "p42"},
	}
	for _, test := range tests {
		if actual := test.pid.String(); actual != test.expected {
			t.Errorf("%d: expected %s, got %s", int(test.pid), test.expected, actual)
		}
	}
}

func TestProcessSetBasics(t *testing.T) {
	var empty ProcessSet
	if empty.Len() != 0 {
		t.Errorf("zero value should be empty, has %d members", empty.Len())
	}
	if empty.Contains(Pid(1)) {
		t.Errorf("empty set should not contain p1")
	}

	set := NewProcessSet(Pid(3), Pid(1), Pid(2), Pid(1))
	if set.Len() != 3 {
		t.Errorf("expected 3 members after deduplication, got %d", set.Len())
	}
	for _, pid := range []Pid{1, 2, 3} {
		if !set.Contains(pid) {
			t.Errorf("expected set to contain %v", pid)
		}
	}

	// Add returns a union and leaves the receiver unchanged
	bigger := set.Add(Pid(4))
	if set.Len() != 3 || bigger.Len() != 4 {
		t.Errorf("Add mutated the receiver: %d, %d", set.Len(), bigger.Len())
	}

	if actual := set.String(); actual != "{p1,p2,p3}" {
		t.Errorf("expected sorted rendering {p1,p2,p3}, got %s", actual)
	}
}

func TestProcessSetUnion(t *testing.T) {
	a := NewProcessSet(Pid(1), Pid(2))
	b := NewProcessSet(Pid(2), Pid(3))
	union := a.Union(b)
	if union.Len() != 3 {
		t.Errorf("expected 3 members, got %d", union.Len())
	}
	if !union.Equal(NewProcessSet(Pid(1), Pid(2), Pid(3))) {
		t.Errorf("unexpected union %v", union)
	}
	if !a.Union(ProcessSet{}).Equal(a) || !(ProcessSet{}).Union(a).Equal(a) {
		t.Errorf("union with the empty set should be the identity")
	}
}

func TestProcessSetRoundTrip(t *testing.T) {
	original := NewProcessSet(Pid(5), Pid(1), Pid(9))

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&original); err != nil {
		t.Fatalf("gob encode: %v", err)
	}
	var fromGob ProcessSet
	if err := gob.NewDecoder(&buf).Decode(&fromGob); err != nil {
		t.Fatalf("gob decode: %v", err)
	}
	if !fromGob.Equal(original) {
		t.Errorf("gob round-trip changed the set: %v != %v", fromGob, original)
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("json encode: %v", err)
	}
	if string(data) != "[1,5,9]" {
		t.Errorf("expected sorted json array [1,5,9], got %s", data)
	}
	var fromJSON ProcessSet
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if !fromJSON.Equal(original) {
		t.Errorf("json round-trip changed the set: %v != %v", fromJSON, original)
	}
}

func TestChannelEquality(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Channel
		expected bool
	}{
		{"directed same", NewChannel(1, 2), NewChannel(1, 2), true},
		{"directed reversed", NewChannel(1, 2), NewChannel(2, 1), false},
		{"undirected reversed", NewUndirectedChannel(1, 2), NewUndirectedChannel(2, 1), true},
		{"mixed orientation", NewChannel(2, 1), NewUndirectedChannel(1, 2), true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if actual := test.a.Equal(test.b); actual != test.expected {
				t.Errorf("%v == %v: expected %v, got %v", test.a, test.b, test.expected, actual)
			}
			if test.expected {
				hasher := ChannelHasher{}
				if hasher.Hash(test.a) != hasher.Hash(test.b) {
					t.Errorf("equal channels %v and %v hash differently", test.a, test.b)
				}
			}
		})
	}
}

func TestChannelSetNormalization(t *testing.T) {
	set := NewChannelSet(
		NewUndirectedChannel(2, 1),
		NewUndirectedChannel(1, 2),
		NewUndirectedChannel(3, 1),
	)
	if set.Len() != 2 {
		t.Fatalf("expected the two orientations to collapse, got %d members", set.Len())
	}
	if !set.Contains(NewUndirectedChannel(1, 2)) {
		t.Errorf("expected set to contain <1,2> under either orientation")
	}
	if actual := set.String(); actual != "{<1,2>,<1,3>}" {
		t.Errorf("expected normalized rendering {<1,2>,<1,3>}, got %s", actual)
	}
}

func TestChannelSetAll(t *testing.T) {
	set := NewChannelSet(NewChannel(1, 2), NewChannel(2, 3))
	if !set.All(func(c Channel) bool { return c.From >= 1 }) {
		t.Errorf("expected All to hold")
	}
	if set.All(func(c Channel) bool { return c.To == 2 }) {
		t.Errorf("expected All to fail")
	}
	if !(ChannelSet{}).All(func(Channel) bool { return false }) {
		t.Errorf("All over the empty set should hold vacuously")
	}
}
