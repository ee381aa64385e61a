package causality

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"testing"

	"github.com/dsimlab/dsim"
)

func TestVectorClockZeroValue(t *testing.T) {
	var clock VectorClock
	if clock.Get(1) != 0 {
		t.Errorf("zero value component reads %d", clock.Get(1))
	}
	if clock.Sum() != 0 {
		t.Errorf("zero value sum reads %d", clock.Sum())
	}
	if !clock.Equal(VectorClockOf(nil)) {
		t.Errorf("zero value should equal an explicitly empty clock")
	}
	if !clock.Equal(VectorClockOf(map[dsim.Pid]int{1: 0, 2: 0})) {
		t.Errorf("zero components should not distinguish clocks")
	}
}

func TestVectorClockIncrement(t *testing.T) {
	clock := VectorClockOf(map[dsim.Pid]int{1: 2})
	next := clock.Increment(1).Increment(3)
	if next.Get(1) != 3 || next.Get(3) != 1 {
		t.Errorf("unexpected components: %v", next)
	}
	if clock.Get(1) != 2 || clock.Get(3) != 0 {
		t.Errorf("Increment modified its receiver: %v", clock)
	}
}

func TestVectorClockMerge(t *testing.T) {
	a := VectorClockOf(map[dsim.Pid]int{1: 3, 2: 1})
	b := VectorClockOf(map[dsim.Pid]int{2: 4, 3: 2})
	expected := VectorClockOf(map[dsim.Pid]int{1: 3, 2: 4, 3: 2})

	if merged := a.Merge(b); !merged.Equal(expected) {
		t.Errorf("Merge = %v, expected %v", merged, expected)
	}
	// merge is commutative
	if merged := b.Merge(a); !merged.Equal(expected) {
		t.Errorf("reversed Merge = %v, expected %v", merged, expected)
	}
}

func TestVectorClockOrdering(t *testing.T) {
	smaller := VectorClockOf(map[dsim.Pid]int{1: 1, 2: 1})
	larger := VectorClockOf(map[dsim.Pid]int{1: 2, 2: 1})
	sideways := VectorClockOf(map[dsim.Pid]int{1: 1, 3: 1})

	if !smaller.Less(larger) {
		t.Errorf("%v should precede %v", smaller, larger)
	}
	if larger.Less(smaller) {
		t.Errorf("%v should not precede %v", larger, smaller)
	}
	if smaller.Less(smaller) {
		t.Errorf("Less should be strict")
	}
	if !smaller.Concurrent(sideways) || !sideways.Concurrent(smaller) {
		t.Errorf("%v and %v should be concurrent", smaller, sideways)
	}
	if smaller.Concurrent(larger) {
		t.Errorf("ordered clocks reported as concurrent")
	}
}

func TestVectorClockString(t *testing.T) {
	clock := VectorClockOf(map[dsim.Pid]int{2: 1, 1: 3})
	if got := clock.String(); got != "{p1 -> 3, p2 -> 1}" {
		t.Errorf("unexpected rendering %q", got)
	}
}

func TestVectorClockJSON(t *testing.T) {
	clock := VectorClockOf(map[dsim.Pid]int{3: 2, 1: 5})
	data, err := json.Marshal(clock)
	if err != nil {
		t.Fatalf("marshaling: %v", err)
	}
	if got := string(data); got != "[[1,5],[3,2]]" {
		t.Errorf("unexpected JSON %q", got)
	}
}

func TestVectorClockGobRoundTrip(t *testing.T) {
	clock := VectorClockOf(map[dsim.Pid]int{1: 1, 2: 7, 9: 3})

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&clock); err != nil {
		t.Fatalf("encoding: %v", err)
	}
	var decoded VectorClock
	if err := gob.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !decoded.Equal(clock) {
		t.Errorf("round trip changed the clock: %v vs %v", decoded, clock)
	}
}
