package causality

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/dsimlab/dsim"
)

// VectorClock maps every process to a non-negative counter. Missing entries
// read as zero, so the zero value is the all-zero clock over any process
// set. All operations return a new clock.
type VectorClock struct {
	clock *immutable.Map[dsim.Pid, int]
}

var _ fmt.Stringer = VectorClock{}
var _ json.Marshaler = VectorClock{}
var _ gob.GobEncoder = &VectorClock{}
var _ gob.GobDecoder = &VectorClock{}

// VectorClockOf builds a clock from explicit components.
func VectorClockOf(components map[dsim.Pid]int) VectorClock {
	builder := immutable.NewMapBuilder[dsim.Pid, int](dsim.PidHasher{})
	for pid, count := range components {
		if count < 0 {
			panic(fmt.Sprintf("negative vector clock component %d for %v", count, pid))
		}
		if count != 0 {
			builder.Set(pid, count)
		}
	}
	return VectorClock{clock: builder.Map()}
}

func (c VectorClock) ensureMap() *immutable.Map[dsim.Pid, int] {
	if c.clock == nil {
		return immutable.NewMap[dsim.Pid, int](dsim.PidHasher{})
	}
	return c.clock
}

// Get returns the component for pid, zero when absent.
func (c VectorClock) Get(pid dsim.Pid) int {
	if c.clock == nil {
		return 0
	}
	count, ok := c.clock.Get(pid)
	if !ok {
		return 0
	}
	return count
}

// Increment returns the clock with pid's component advanced by one.
func (c VectorClock) Increment(pid dsim.Pid) VectorClock {
	acc := c.ensureMap()
	count, ok := acc.Get(pid)
	if !ok {
		count = 0
	}
	return VectorClock{clock: acc.Set(pid, count+1)}
}

// Merge returns the componentwise maximum of both clocks.
func (c VectorClock) Merge(other VectorClock) VectorClock {
	if c.clock == nil {
		return other
	} else if other.clock == nil {
		return c
	}
	self := c
	// iterate over the smaller clock
	if self.clock.Len() < other.clock.Len() {
		self, other = other, self
	}
	acc := self.clock
	it := other.clock.Iterator()
	for !it.Done() {
		pid, count, _ := it.Next()
		mine, ok := acc.Get(pid)
		if !ok {
			mine = 0
		}
		if count > mine {
			acc = acc.Set(pid, count)
		}
	}
	return VectorClock{clock: acc}
}

// LessOrEqual reports componentwise c <= other.
func (c VectorClock) LessOrEqual(other VectorClock) bool {
	if c.clock == nil {
		return true
	}
	it := c.clock.Iterator()
	for !it.Done() {
		pid, count, _ := it.Next()
		if count > other.Get(pid) {
			return false
		}
	}
	return true
}

// Equal reports componentwise equality.
func (c VectorClock) Equal(other VectorClock) bool {
	return c.LessOrEqual(other) && other.LessOrEqual(c)
}

// Less reports strict causal precedence: c <= other componentwise and the
// clocks differ.
func (c VectorClock) Less(other VectorClock) bool {
	return c.LessOrEqual(other) && !other.LessOrEqual(c)
}

// Concurrent reports that neither clock precedes the other.
func (c VectorClock) Concurrent(other VectorClock) bool {
	return !c.LessOrEqual(other) && !other.LessOrEqual(c)
}

// Sum projects the vector onto a scalar: the total number of ticks.
func (c VectorClock) Sum() int {
	if c.clock == nil {
		return 0
	}
	total := 0
	it := c.clock.Iterator()
	for !it.Done() {
		_, count, _ := it.Next()
		total += count
	}
	return total
}

func (c VectorClock) sorted() ([]dsim.Pid, []int) {
	if c.clock == nil {
		return nil, nil
	}
	set := dsim.NewProcessSet()
	it := c.clock.Iterator()
	for !it.Done() {
		pid, _, _ := it.Next()
		set = set.Add(pid)
	}
	pids := set.Sorted()
	counts := make([]int, len(pids))
	for i, pid := range pids {
		counts[i] = c.Get(pid)
	}
	return pids, counts
}

func (c VectorClock) String() string {
	var builder strings.Builder
	builder.WriteString("{")
	pids, counts := c.sorted()
	for i, pid := range pids {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(fmt.Sprintf("%v -> %d", pid, counts[i]))
	}
	builder.WriteString("}")
	return builder.String()
}

func (c VectorClock) MarshalJSON() ([]byte, error) {
	pairs := [][]int{}
	pids, counts := c.sorted()
	for i, pid := range pids {
		pairs = append(pairs, []int{int(pid), counts[i]})
	}
	return json.Marshal(pairs)
}

func (c *VectorClock) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	pids, counts := c.sorted()
	if err := encoder.Encode(len(pids)); err != nil {
		return nil, err
	}
	for i, pid := range pids {
		if err := encoder.Encode(pid); err != nil {
			return nil, err
		}
		if err := encoder.Encode(counts[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (c *VectorClock) GobDecode(b []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(b))
	var count int
	if err := decoder.Decode(&count); err != nil {
		return err
	}
	builder := immutable.NewMapBuilder[dsim.Pid, int](dsim.PidHasher{})
	for i := 0; i < count; i++ {
		var pid dsim.Pid
		var component int
		if err := decoder.Decode(&pid); err != nil {
			return err
		}
		if err := decoder.Decode(&component); err != nil {
			return err
		}
		builder.Set(pid, component)
	}
	c.clock = builder.Map()
	return nil
}
