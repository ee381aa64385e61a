// Package causality reconstructs the causal partial order over a recorded
// trace: it decomposes occurrences into atomic send/receive/local sub-events,
// assigns Lamport and Fidge-Mattern vector clocks, and answers
// precedence/concurrency queries.
package causality

import "fmt"

// LamportClock is a non-negative scalar logical clock with value semantics:
// every operation returns a new clock.
type LamportClock struct {
	value int
}

var _ fmt.Stringer = LamportClock{}

// LamportClockOf builds a clock with the given value. The zero value of
// LamportClock is a clock at 0.
func LamportClockOf(value int) LamportClock {
	if value < 0 {
		panic(fmt.Sprintf("negative lamport clock %d", value))
	}
	return LamportClock{value: value}
}

// Value returns the scalar reading.
func (c LamportClock) Value() int {
	return c.value
}

// Increment returns the clock advanced by one tick.
func (c LamportClock) Increment() LamportClock {
	return LamportClock{value: c.value + 1}
}

// Merge returns the larger of the two clocks.
func (c LamportClock) Merge(other LamportClock) LamportClock {
	if other.value > c.value {
		return other
	}
	return c
}

// MergeAndIncrement applies the receive rule: max of both clocks, plus one.
func (c LamportClock) MergeAndIncrement(other LamportClock) LamportClock {
	return c.Merge(other).Increment()
}

// Less orders clocks by value. Note that Lamport order is only consistent
// with causality, not equivalent to it.
func (c LamportClock) Less(other LamportClock) bool {
	return c.value < other.value
}

func (c LamportClock) String() string {
	return fmt.Sprintf("L%d", c.value)
}
